// Package backend routes source identifiers to backend implementations
// reachable through a small versioned operation table. Backends are usually
// statically registered; the same protocol also loads as a shared object.
package backend

import (
	"github.com/tabql/tabql/domain/model"
)

// ProtocolVersion is the protocol revision this package speaks. A loader
// refuses backends reporting any other version.
const ProtocolVersion = 2

// EntryPoint is the symbol a backend shared object must export: a
// `func() *Vtable` returning its operation table.
const EntryPoint = "TabqlBackendInit"

// Handle identifies one query result held by a backend. Handles are opaque;
// the backing table belongs to whichever cache produced it.
type Handle int64

// NullHandle is the sentinel returned by a failed Query. It is never a valid
// result.
const NullHandle Handle = 0

// Vtable is a backend's operation table. Every function must be non-nil.
//
// No call may panic across this boundary: a failed Query returns NullHandle
// and logs the reason, and the accessors return zero values for unknown
// handles. ResultFree is idempotent and safe on any handle because result
// ownership stays with the backend's cache.
type Vtable struct {
	// Version must equal ProtocolVersion.
	Version int
	// Name identifies the backend ("sqlite", "file", ...).
	Name string

	// Query runs query text against a source and returns a result handle,
	// or NullHandle on failure.
	Query func(query, sourceID string) Handle
	// ResultFree releases a handle. Safe to call unconditionally, any
	// number of times, on any handle value.
	ResultFree func(h Handle)
	// Rows returns the result's row count.
	Rows func(h Handle) int
	// Cols returns the result's column count.
	Cols func(h Handle) int
	// ColName returns the name of column i.
	ColName func(h Handle, i int) string
	// ColKind returns the declared type of column i.
	ColKind func(h Handle, i int) model.ColType
	// Cell returns the cell at (row, col).
	Cell func(h Handle, row, col int) model.Cell
	// Save runs query text against a source and writes the result to
	// destPath.
	Save func(query, sourceID, destPath string) error
}

// complete reports whether every operation is present.
func (v *Vtable) complete() bool {
	return v != nil &&
		v.Query != nil && v.ResultFree != nil &&
		v.Rows != nil && v.Cols != nil &&
		v.ColName != nil && v.ColKind != nil &&
		v.Cell != nil && v.Save != nil
}

// ResultTable drains a handle back into a table through the protocol
// accessors. Returns nil for NullHandle or an unknown handle.
func ResultTable(v *Vtable, h Handle) *model.Table {
	if h == NullHandle {
		return nil
	}
	cols := v.Cols(h)
	rows := v.Rows(h)
	if cols == 0 && rows == 0 {
		return nil
	}
	columns := make([]model.Column, cols)
	for c := range cols {
		cells := make([]model.Cell, rows)
		for r := range rows {
			cells[r] = v.Cell(h, r, c)
		}
		columns[c] = model.Column{
			Name:  v.ColName(h, c),
			Type:  v.ColKind(h, c),
			Cells: cells,
		}
	}
	tbl, err := model.NewTable(columns...)
	if err != nil {
		return nil
	}
	return tbl
}
