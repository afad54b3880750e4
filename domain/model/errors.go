package model

import "errors"

var (
	// ErrColumnLengthMismatch is returned when table columns have differing
	// cell counts.
	ErrColumnLengthMismatch = errors.New("model: column length mismatch")
	// ErrRowWidthMismatch is returned when a row's cell count does not match
	// the declared column names.
	ErrRowWidthMismatch = errors.New("model: row width mismatch")
	// ErrSchemaMismatch is returned when column names and types have
	// differing lengths.
	ErrSchemaMismatch = errors.New("model: column names and types length mismatch")
)
