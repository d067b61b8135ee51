package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table represents a simple text table
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Print prints the table to stdout
func (t *Table) Print() {
	t.Fprint(os.Stdout)
}

// Fprint writes the table to w. An empty table prints nothing.
func (t *Table) Fprint(w io.Writer) {
	if len(t.Rows) == 0 {
		return
	}

	widths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		widths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow(w, t.Headers, widths)
	for _, row := range t.Rows {
		writeRow(w, row, widths)
	}
}

func writeRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if i < len(widths) && i < len(cells)-1 {
			cell = padRight(cell, widths[i])
		}
		parts[i] = cell
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// PrintJSON prints data as indented JSON to stdout
func PrintJSON(v interface{}) error {
	return FprintJSON(os.Stdout, v)
}

// FprintJSON writes data as indented JSON to w
func FprintJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// YesNo renders a boolean for table cells
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
