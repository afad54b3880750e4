package model

import (
	"fmt"
)

// Column is a named, typed list of cells. All columns of a Table hold the
// same number of cells.
type Column struct {
	Name  string
	Type  ColType
	Cells []Cell
}

// Table is an immutable columnar table. Construct with NewTable or FromRows;
// both validate that every column has the same length.
type Table struct {
	cols []Column
	rows int
}

// NewTable builds a table from columns. It returns ErrColumnLengthMismatch
// when the columns do not all have the same number of cells.
func NewTable(cols ...Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0].Cells)
	}
	for _, c := range cols {
		if len(c.Cells) != rows {
			return nil, fmt.Errorf("%w: column %q has %d cells, want %d",
				ErrColumnLengthMismatch, c.Name, len(c.Cells), rows)
		}
	}
	return &Table{cols: cols, rows: rows}, nil
}

// FromRows builds a table from row-major cells. names and types must have the
// same length, and every row must match that width.
func FromRows(names []string, types []ColType, rows [][]Cell) (*Table, error) {
	if len(names) != len(types) {
		return nil, fmt.Errorf("%w: %d names, %d types", ErrSchemaMismatch, len(names), len(types))
	}
	cols := make([]Column, len(names))
	for i := range names {
		cols[i] = Column{
			Name:  names[i],
			Type:  types[i],
			Cells: make([]Cell, 0, len(rows)),
		}
	}
	for ri, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d",
				ErrRowWidthMismatch, ri, len(row), len(names))
		}
		for ci, cell := range row {
			cols[ci].Cells = append(cols[ci].Cells, cell)
		}
	}
	return &Table{cols: cols, rows: len(rows)}, nil
}

// Empty returns a table with no columns and no rows.
func Empty() *Table { return &Table{} }

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *Table) Cols() int { return len(t.cols) }

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return t.rows == 0 }

// ColName returns the name of column i.
func (t *Table) ColName(i int) string { return t.cols[i].Name }

// ColNames returns the column names in order.
func (t *Table) ColNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// ColType returns the declared type of column i.
func (t *Table) ColType(i int) ColType { return t.cols[i].Type }

// Column returns column i.
func (t *Table) Column(i int) Column { return t.cols[i] }

// Cell returns the cell at row r, column c.
func (t *Table) Cell(r, c int) Cell { return t.cols[c].Cells[r] }

// widthSample caps how many rows ColWidth examines. Enough for display
// sizing without walking millions of rows.
const widthSample = 1000

// ColWidth returns the maximum display width of column i over the header and
// a bounded sample of cells, formatting floats with the given precision.
func (t *Table) ColWidth(i, decimals int) int {
	c := t.cols[i]
	w := len(c.Name)
	n := len(c.Cells)
	if n > widthSample {
		n = widthSample
	}
	for _, cell := range c.Cells[:n] {
		if l := len(cell.Format(decimals)); l > w {
			w = l
		}
	}
	return w
}

// Row returns row r as a slice of cells.
func (t *Table) Row(r int) []Cell {
	row := make([]Cell, len(t.cols))
	for i, c := range t.cols {
		row[i] = c.Cells[r]
	}
	return row
}
