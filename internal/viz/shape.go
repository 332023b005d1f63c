// Package viz chooses how a result set should be rendered. Selection is
// a deterministic decision tree over the result's column shape; no
// language model is involved.
package viz

import (
	"strings"
	"time"
)

// ColumnType is the inferred semantic type of a result column.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeTemporal    ColumnType = "temporal"
	TypeCategorical ColumnType = "categorical"
	TypeIdentifier  ColumnType = "identifier"
)

// Column describes one column of a result set.
type Column struct {
	Name string
	Type ColumnType

	// Distinct is the number of distinct values observed in the result.
	Distinct int
}

// ResultShape describes a result set's columns and cardinality.
type ResultShape struct {
	Columns  []Column
	RowCount int
}

// temporalLayouts are the date/time formats recognized in text values.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// InferShape derives the semantic shape of a result set from column
// names, declared database types, and the values themselves.
func InferShape(columns []string, dbTypes []string, rows []map[string]any) ResultShape {
	shape := ResultShape{RowCount: len(rows)}

	for i, name := range columns {
		declared := ""
		if i < len(dbTypes) {
			declared = strings.ToUpper(dbTypes[i])
		}

		col := Column{
			Name:     name,
			Type:     inferColumnType(name, declared, columnValues(name, rows)),
			Distinct: countDistinct(name, rows),
		}
		shape.Columns = append(shape.Columns, col)
	}

	return shape
}

// CountByType returns how many columns carry the given semantic type.
func (s ResultShape) CountByType(t ColumnType) int {
	n := 0
	for _, c := range s.Columns {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FirstOfType returns the first column of the given type, if any.
func (s ResultShape) FirstOfType(t ColumnType) (Column, bool) {
	for _, c := range s.Columns {
		if c.Type == t {
			return c, true
		}
	}
	return Column{}, false
}

func columnValues(name string, rows []map[string]any) []any {
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row[name])
	}
	return values
}

func countDistinct(name string, rows []map[string]any) int {
	seen := make(map[any]struct{})
	for _, row := range rows {
		v := row[name]
		switch v.(type) {
		case []byte:
			seen[string(v.([]byte))] = struct{}{}
		default:
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func inferColumnType(name, declared string, values []any) ColumnType {
	lower := strings.ToLower(name)

	// Identifier columns are never charted as categories or measures.
	if lower == "id" || strings.HasSuffix(lower, "_id") ||
		(strings.HasSuffix(lower, "id") && isLikelyIDWord(lower)) {
		return TypeIdentifier
	}

	if isTemporalName(lower) || isTemporalDeclared(declared) || allValuesTemporal(values) {
		return TypeTemporal
	}

	if isNumericDeclared(declared) || allValuesNumeric(values) {
		return TypeNumeric
	}

	return TypeCategorical
}

// isLikelyIDWord avoids classifying words that merely end in "id"
// (e.g. "paid", "valid") as identifiers. CamelCase and snake_case
// forms like TrackId / track_id qualify.
func isLikelyIDWord(lower string) bool {
	switch lower {
	case "paid", "valid", "invalid", "rapid", "solid", "mermaid":
		return false
	}
	return true
}

func isTemporalName(lower string) bool {
	for _, hint := range []string{"date", "time", "month", "year", "day", "quarter", "week"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func isTemporalDeclared(declared string) bool {
	for _, hint := range []string{"DATE", "TIME", "TIMESTAMP"} {
		if strings.Contains(declared, hint) {
			return true
		}
	}
	return false
}

func isNumericDeclared(declared string) bool {
	for _, hint := range []string{"INT", "REAL", "FLOA", "DOUB", "NUM", "DEC", "MONEY"} {
		if strings.Contains(declared, hint) {
			return true
		}
	}
	return false
}

func allValuesNumeric(values []any) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		case nil:
		default:
			return false
		}
	}
	return true
}

func allValuesTemporal(values []any) bool {
	if len(values) == 0 {
		return false
	}
	sawValue := false
	for _, v := range values {
		switch t := v.(type) {
		case time.Time:
			sawValue = true
		case string:
			if !parsesAsTime(t) {
				return false
			}
			sawValue = true
		case []byte:
			if !parsesAsTime(string(t)) {
				return false
			}
			sawValue = true
		case nil:
		default:
			return false
		}
	}
	return sawValue
}

func parsesAsTime(s string) bool {
	for _, layout := range temporalLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
