// Package model provides the columnar table value types shared by every
// backend: Cell, Column and Table. Tables are immutable after construction;
// all transformations produce a new Table.
package model

import (
	"strconv"
)

// NullDisplay is the reserved display string for NULL cells. It is distinct
// from any legal data value, which always formats to its own text.
const NullDisplay = "null"

// CellKind identifies which variant of a Cell is active.
type CellKind uint8

const (
	// KindNull represents the absence of a value.
	KindNull CellKind = iota
	// KindBool represents a boolean value.
	KindBool
	// KindInt represents a 64-bit signed integer value.
	KindInt
	// KindFloat represents a 64-bit floating point value.
	KindFloat
	// KindStr represents a string value.
	KindStr
	// KindDate represents a pre-formatted date string.
	KindDate
	// KindTime represents a pre-formatted time-of-day string.
	KindTime
	// KindDateTime represents a pre-formatted datetime string.
	KindDateTime
)

// Cell is a tagged value held by a Column. Exactly one variant is active,
// selected by Kind. Date, Time and DateTime carry display-only text that was
// formatted when the cell was produced.
type Cell struct {
	Kind  CellKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// Null returns a NULL cell.
func Null() Cell { return Cell{Kind: KindNull} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }

// Int returns an integer cell.
func Int(n int64) Cell { return Cell{Kind: KindInt, Int: n} }

// Float returns a floating point cell.
func Float(f float64) Cell { return Cell{Kind: KindFloat, Float: f} }

// Str returns a string cell.
func Str(s string) Cell { return Cell{Kind: KindStr, Str: s} }

// Date returns a cell carrying pre-formatted date text.
func Date(s string) Cell { return Cell{Kind: KindDate, Str: s} }

// Time returns a cell carrying pre-formatted time text.
func Time(s string) Cell { return Cell{Kind: KindTime, Str: s} }

// DateTime returns a cell carrying pre-formatted datetime text.
func DateTime(s string) Cell { return Cell{Kind: KindDateTime, Str: s} }

// IsNull reports whether the cell is NULL.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// IsNumeric reports whether the cell holds an Int or Float value. Numeric
// comparison is only defined between matching numeric variants.
func (c Cell) IsNumeric() bool { return c.Kind == KindInt || c.Kind == KindFloat }

// Format renders the cell for display. Float values use the requested number
// of decimal places; NULL renders as NullDisplay.
func (c Cell) Format(decimals int) string {
	switch c.Kind {
	case KindNull:
		return NullDisplay
	case KindBool:
		if c.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(c.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(c.Float, 'f', decimals, 64)
	default:
		return c.Str
	}
}

// ColType is the declared type of a Column. The declared type drives schema
// declaration and display decisions; it is advisory, not enforced per cell.
type ColType uint8

const (
	// TypeStr declares a text column.
	TypeStr ColType = iota
	// TypeInt declares an integer column.
	TypeInt
	// TypeFloat declares a floating point column.
	TypeFloat
	// TypeBool declares a boolean column.
	TypeBool
	// TypeDate declares a column of pre-formatted dates.
	TypeDate
	// TypeTime declares a column of pre-formatted times.
	TypeTime
	// TypeDateTime declares a column of pre-formatted datetimes.
	TypeDateTime
)

// IsNumeric reports whether the column type is Int or Float.
func (t ColType) IsNumeric() bool { return t == TypeInt || t == TypeFloat }

// SQLType returns the SQL storage type declared for this column type.
// Integer and boolean columns map to INTEGER, floats to REAL and everything
// else to TEXT.
func (t ColType) SQLType() string {
	switch t {
	case TypeInt, TypeBool:
		return "INTEGER"
	case TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// String returns the lowercase name of the column type.
func (t ColType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeDateTime:
		return "datetime"
	default:
		return "str"
	}
}
