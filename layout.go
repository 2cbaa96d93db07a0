package main

import (
	"sort"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/metcalfc/tread/internal/reader"
)

// layout is a document rendered for a fixed width: the lines of
// reader.Render, each wrapped into one or more display rows.
type layout struct {
	rows     []string
	firstRow []int // first row of each rendered line
	lines    int
	spacing  float64
}

// newLayout renders lines with paragraph spacing and wraps the result to
// width columns. A width of 0 or less disables wrapping, leaving exactly
// reader.Render's lines.
func newLayout(lines []string, width int, spacing float64) layout {
	l := layout{lines: len(lines), spacing: spacing}
	if len(lines) == 0 {
		return l
	}

	rendered := strings.Split(reader.Render(lines, spacing), "\n")
	l.firstRow = make([]int, len(rendered))
	for i, text := range rendered {
		l.firstRow[i] = len(l.rows)
		if width <= 0 || text == "" {
			l.rows = append(l.rows, text)
			continue
		}
		text = strings.ReplaceAll(text, "\t", "    ")
		l.rows = append(l.rows, strings.Split(ansi.Wrap(text, width, ""), "\n")...)
	}
	return l
}

// Content returns the rows joined for display.
func (l layout) Content() string {
	return strings.Join(l.rows, "\n")
}

// Rows returns the number of display rows.
func (l layout) Rows() int {
	return len(l.rows)
}

// Row returns display row i, or "" when out of range.
func (l layout) Row(i int) string {
	if i < 0 || i >= len(l.rows) {
		return ""
	}
	return l.rows[i]
}

// RowOf returns the first display row of source line.
func (l layout) RowOf(line int) int {
	if l.lines == 0 || line < 0 {
		return 0
	}
	if line >= l.lines {
		line = l.lines - 1
	}
	d := reader.DisplayLine(line, l.spacing)
	if d >= len(l.firstRow) {
		d = len(l.firstRow) - 1
	}
	return l.firstRow[d]
}

// LineAt returns the source line shown on display row. Blank spacing rows
// belong to the line above.
func (l layout) LineAt(row int) int {
	if l.lines == 0 || row < 0 {
		return 0
	}
	d := sort.Search(len(l.firstRow), func(i int) bool {
		return l.firstRow[i] > row
	}) - 1
	if d < 0 {
		d = 0
	}
	line := reader.SourceLine(d, l.spacing)
	if line >= l.lines {
		line = l.lines - 1
	}
	return line
}
