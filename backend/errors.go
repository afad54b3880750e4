package backend

import "errors"

var (
	// ErrVersionMismatch is returned when a backend reports a protocol
	// version other than ProtocolVersion.
	ErrVersionMismatch = errors.New("backend: protocol version mismatch")
	// ErrIncompleteVtable is returned when a backend's operation table has
	// missing entries.
	ErrIncompleteVtable = errors.New("backend: incomplete operation table")
	// ErrEntryPointMissing is returned when a shared object lacks the
	// required entry point symbol.
	ErrEntryPointMissing = errors.New("backend: entry point missing")
	// ErrBackendNotFound is returned when no backend library exists at any
	// configured search path.
	ErrBackendNotFound = errors.New("backend: not found at any search path")
	// ErrDuplicateBackend is returned when a backend name is registered
	// twice.
	ErrDuplicateBackend = errors.New("backend: duplicate name")
	// ErrUnknownSource is returned when a source identifier cannot be
	// resolved.
	ErrUnknownSource = errors.New("backend: unknown source")
	// ErrUnknownScheme is returned when a source identifier's scheme has no
	// registered backend.
	ErrUnknownScheme = errors.New("backend: unknown scheme")
	// ErrQueryFailed is returned when a backend's Query reported failure
	// through the null handle.
	ErrQueryFailed = errors.New("backend: query failed")
)
