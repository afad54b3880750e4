package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferColumnType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []string
		want   ColType
	}{
		{name: "integers", values: []string{"1", "42", "-7"}, want: TypeInt},
		{name: "floats", values: []string{"1.5", "2.25"}, want: TypeFloat},
		{name: "mixed int and float", values: []string{"1", "2.5"}, want: TypeFloat},
		{name: "bools", values: []string{"true", "false", "TRUE"}, want: TypeBool},
		{name: "text", values: []string{"hello", "world"}, want: TypeStr},
		{name: "single text demotes", values: []string{"1", "2", "x"}, want: TypeStr},
		{name: "dates", values: []string{"2024-01-15", "2023-12-31"}, want: TypeDate},
		{name: "times", values: []string{"12:30:00", "01:00"}, want: TypeTime},
		{name: "datetimes", values: []string{"2024-01-15 12:30:00", "2024-01-15T08:00:00"}, want: TypeDateTime},
		{name: "mixed date and time", values: []string{"2024-01-15", "12:30:00"}, want: TypeDateTime},
		{name: "temporal mixed with number", values: []string{"2024-01-15", "42"}, want: TypeStr},
		{name: "empty values skipped", values: []string{"", "3", ""}, want: TypeInt},
		{name: "all empty", values: []string{"", ""}, want: TypeStr},
		{name: "no values", values: nil, want: TypeStr},
		{name: "invalid date not temporal", values: []string{"2024-13-45"}, want: TypeStr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InferColumnType(tt.values))
		})
	}
}

func TestInferSchema(t *testing.T) {
	t.Parallel()

	types := InferSchema(
		[]string{"id", "price", "name"},
		[][]string{
			{"1", "9.99", "apple"},
			{"2", "15.00", "banana"},
		},
	)
	assert.Equal(t, []ColType{TypeInt, TypeFloat, TypeStr}, types)
}

func TestParseCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		colType ColType
		want    Cell
	}{
		{name: "int", raw: "42", colType: TypeInt, want: Int(42)},
		{name: "float", raw: "1.5", colType: TypeFloat, want: Float(1.5)},
		{name: "bool", raw: "True", colType: TypeBool, want: Bool(true)},
		{name: "empty becomes null", raw: "  ", colType: TypeInt, want: Null()},
		{name: "unparsable falls back to str", raw: "abc", colType: TypeInt, want: Str("abc")},
		{name: "date", raw: "2024-01-15", colType: TypeDate, want: Date("2024-01-15")},
		{name: "str", raw: "hello", colType: TypeStr, want: Str("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseCell(tt.raw, tt.colType))
		})
	}
}
