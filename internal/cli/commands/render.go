package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/askdb-labs/askdb/internal/pipeline"
	"github.com/askdb-labs/askdb/internal/viz"
)

var rowPrinter = message.NewPrinter(language.English)

// vizLabels name the chart modes in human output.
var vizLabels = map[viz.Mode]string{
	viz.ModeTable:     "table",
	viz.ModeLineChart: "line chart",
	viz.ModeBarChart:  "bar chart",
	viz.ModePieChart:  "pie chart",
}

// renderResponse writes one turn's result. The json format emits the
// full response object; the others render rows plus a footer.
func renderResponse(w io.Writer, resp *pipeline.Response, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Outcome != pipeline.OutcomeAnswered {
		fmt.Fprintf(w, "%s\n", resp.Message)
		if resp.GeneratedSQL != "" {
			fmt.Fprintf(w, "SQL: %s\n", resp.GeneratedSQL)
		}
		return nil
	}

	fmt.Fprintf(w, "SQL: %s\n", resp.GeneratedSQL)

	var err error
	switch format {
	case "csv":
		err = renderCSV(w, resp.Columns, resp.Rows)
	case "md", "markdown":
		err = renderMarkdown(w, resp.Columns, resp.Rows)
	default:
		err = renderTable(w, resp.Columns, resp.Rows)
	}
	if err != nil {
		return err
	}

	if resp.RowCount == 0 {
		fmt.Fprintf(w, "%s\n", resp.Message)
		return nil
	}

	footer := rowPrinter.Sprintf("(%d rows", resp.RowCount)
	if resp.Truncated {
		footer += ", truncated"
	}
	footer += ")"
	if label := vizLabels[resp.ViewMode]; resp.ViewMode != viz.ModeTable && label != "" {
		footer += fmt.Sprintf(" suggested view: %s", label)
	}
	fmt.Fprintln(w, footer)
	return nil
}

func renderTable(w io.Writer, cols []string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	return nil
}

func renderCSV(w io.Writer, cols []string, rows []map[string]any) error {
	fmt.Fprintln(w, strings.Join(cols, ","))
	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(r[col]))
		}
		fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = formatValue(r[col])
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
