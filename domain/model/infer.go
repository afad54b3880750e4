package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// inferSample caps how many values InferColumnType examines per column.
const inferSample = 1000

// Temporal patterns recognized during inference. Patterns are checked before
// parsing to keep the common non-temporal case cheap.
var temporalPatterns = []struct {
	pattern *regexp.Regexp
	formats []string
	colType ColType
}{
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`),
		[]string{time.RFC3339, time.RFC3339Nano},
		TypeDateTime,
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"},
		TypeDateTime,
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
		TypeDate,
	},
	{
		regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"15:04:05", "15:04:05.000"},
		TypeTime,
	},
	{
		regexp.MustCompile(`^\d{1,2}:\d{2}$`),
		[]string{"15:04"},
		TypeTime,
	},
}

// temporalType reports the temporal column type of value, or TypeStr when the
// value is not a recognized date, time or datetime.
func temporalType(value string) ColType {
	for _, tp := range temporalPatterns {
		if !tp.pattern.MatchString(value) {
			continue
		}
		for _, format := range tp.formats {
			if _, err := time.Parse(format, value); err == nil {
				return tp.colType
			}
		}
	}
	return TypeStr
}

// isBool reports whether value is a boolean literal.
func isBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "false":
		return true
	}
	return false
}

// InferColumnType infers a column type from string samples. Empty values are
// skipped; a single non-conforming value demotes the column to TypeStr.
// Priority when mixed: Str > temporal > Float > Int > Bool.
func InferColumnType(values []string) ColType {
	if len(values) > inferSample {
		values = values[:inferSample]
	}

	var hasBool, hasInt, hasFloat bool
	temporal := TypeStr
	seen := false

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		seen = true

		if isBool(value) {
			hasBool = true
			continue
		}
		if t := temporalType(value); t != TypeStr {
			// Mixed temporal kinds (a date column with a stray time) fall
			// back to datetime rather than text.
			if temporal != TypeStr && temporal != t {
				temporal = TypeDateTime
			} else {
				temporal = t
			}
			continue
		}
		if _, err := strconv.ParseInt(value, 10, 64); err == nil {
			hasInt = true
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			hasFloat = true
			continue
		}
		return TypeStr
	}

	if !seen {
		return TypeStr
	}
	if temporal != TypeStr {
		if hasBool || hasInt || hasFloat {
			return TypeStr
		}
		return temporal
	}
	if hasBool && !hasInt && !hasFloat {
		return TypeBool
	}
	if hasFloat {
		return TypeFloat
	}
	if hasInt {
		return TypeInt
	}
	if hasBool {
		return TypeBool
	}
	return TypeStr
}

// InferSchema infers a type per column from row-major string records.
func InferSchema(names []string, records [][]string) []ColType {
	types := make([]ColType, len(names))
	for i := range names {
		var values []string
		for _, rec := range records {
			if i < len(rec) {
				values = append(values, rec[i])
			}
		}
		types[i] = InferColumnType(values)
	}
	return types
}

// ParseCell converts raw string text into a Cell according to the declared
// column type. Empty text becomes NULL; text that does not parse under the
// declared type is kept as a string cell.
func ParseCell(raw string, t ColType) Cell {
	if strings.TrimSpace(raw) == "" {
		return Null()
	}
	switch t {
	case TypeInt:
		if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			return Int(n)
		}
	case TypeFloat:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return Float(f)
		}
	case TypeBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return Bool(true)
		case "false":
			return Bool(false)
		}
	case TypeDate:
		return Date(strings.TrimSpace(raw))
	case TypeTime:
		return Time(strings.TrimSpace(raw))
	case TypeDateTime:
		return DateTime(strings.TrimSpace(raw))
	}
	return Str(raw)
}
