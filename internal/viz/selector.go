package viz

// Mode is the chosen rendering mode for a result set.
type Mode string

const (
	ModeTable     Mode = "table"
	ModeLineChart Mode = "line_chart"
	ModeBarChart  Mode = "bar_chart"
	ModePieChart  Mode = "pie_chart"
)

// Selector chooses a rendering mode from a result shape.
type Selector struct {
	pieMaxCategories int
}

// NewSelector creates a selector. pieMaxCategories is the categorical
// cardinality at or below which a category/measure pair renders as a
// pie chart rather than a bar chart.
func NewSelector(pieMaxCategories int) *Selector {
	if pieMaxCategories <= 0 {
		pieMaxCategories = 8
	}
	return &Selector{pieMaxCategories: pieMaxCategories}
}

// Select applies the decision tree:
//
//   - one temporal + one numeric column  -> line chart
//   - one categorical + one numeric column -> pie chart when the
//     category cardinality fits, bar chart otherwise
//   - anything else (no numeric axis, multiple measures, identifier or
//     text-only results, empty results) -> table
//
// Charts are never forced onto shapes that lack a clear axis.
func (s *Selector) Select(shape ResultShape) Mode {
	if shape.RowCount == 0 || len(shape.Columns) != 2 {
		return ModeTable
	}

	numeric := shape.CountByType(TypeNumeric)
	temporal := shape.CountByType(TypeTemporal)
	categorical := shape.CountByType(TypeCategorical)

	if temporal == 1 && numeric == 1 {
		return ModeLineChart
	}

	if categorical == 1 && numeric == 1 {
		if cat, ok := shape.FirstOfType(TypeCategorical); ok && cat.Distinct <= s.pieMaxCategories {
			return ModePieChart
		}
		return ModeBarChart
	}

	return ModeTable
}
