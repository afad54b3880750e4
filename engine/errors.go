package engine

import "errors"

var (
	// ErrNoBridgedTable is returned when a bridge callback runs with no
	// table in the connection's slot. This is a registration/execution
	// mismatch and must never degrade to empty results.
	ErrNoBridgedTable = errors.New("engine: no table bridged on this connection")
	// ErrBridgeBusy is returned when a second bridged query is attempted
	// while one is already in flight on the connection.
	ErrBridgeBusy = errors.New("engine: bridged query already in flight")
	// ErrQuery is returned when the query engine rejects the query text.
	ErrQuery = errors.New("engine: query failed")
	// ErrClosed is returned when the engine has been closed.
	ErrClosed = errors.New("engine: closed")
)
