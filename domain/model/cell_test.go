package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cell     Cell
		decimals int
		want     string
	}{
		{name: "null", cell: Null(), decimals: 2, want: "null"},
		{name: "bool true", cell: Bool(true), decimals: 2, want: "true"},
		{name: "bool false", cell: Bool(false), decimals: 2, want: "false"},
		{name: "int", cell: Int(-42), decimals: 2, want: "-42"},
		{name: "float two decimals", cell: Float(3.14159), decimals: 2, want: "3.14"},
		{name: "float zero decimals", cell: Float(3.7), decimals: 0, want: "4"},
		{name: "str", cell: Str("hello"), decimals: 2, want: "hello"},
		{name: "str null lookalike", cell: Str("null"), decimals: 2, want: "null"},
		{name: "date", cell: Date("2024-01-15"), decimals: 2, want: "2024-01-15"},
		{name: "time", cell: Time("12:30:00"), decimals: 2, want: "12:30:00"},
		{name: "datetime", cell: DateTime("2024-01-15 12:30:00"), decimals: 2, want: "2024-01-15 12:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cell.Format(tt.decimals))
		})
	}
}

func TestCellPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, Null().IsNull())
	assert.False(t, Str("").IsNull())
	assert.True(t, Int(1).IsNumeric())
	assert.True(t, Float(1.5).IsNumeric())
	assert.False(t, Bool(true).IsNumeric())
	assert.False(t, Null().IsNumeric())
}

func TestColTypeSQLType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		colType ColType
		want    string
	}{
		{TypeInt, "INTEGER"},
		{TypeBool, "INTEGER"},
		{TypeFloat, "REAL"},
		{TypeStr, "TEXT"},
		{TypeDate, "TEXT"},
		{TypeTime, "TEXT"},
		{TypeDateTime, "TEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.colType.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.colType.SQLType())
		})
	}
}
