package reader

import (
	"math"
	"strings"
)

// BlankLines returns how many blank lines paragraph spacing inserts between
// two source lines: 0 below 0.5, otherwise floor(spacing) with a minimum of
// 1. Callers bound spacing; config.MaxParagraphSpacing is the reader's limit.
func BlankLines(spacing float64) int {
	if math.IsNaN(spacing) || spacing < 0.5 {
		return 0
	}
	k := int(math.Floor(spacing))
	if k < 1 {
		k = 1
	}
	return k
}

// Render joins lines into display text with the given paragraph spacing.
// No blank lines follow the last line.
func Render(lines []string, spacing float64) string {
	sep := strings.Repeat("\n", BlankLines(spacing)+1)
	return strings.Join(lines, sep)
}

// DisplayLine maps a source line to its line in Render's output.
func DisplayLine(src int, spacing float64) int {
	return src * (BlankLines(spacing) + 1)
}

// SourceLine maps a line of Render's output back to the source line it
// belongs to. Inserted blank lines map to the source line above them.
func SourceLine(display int, spacing float64) int {
	if display < 0 {
		return 0
	}
	return display / (BlankLines(spacing) + 1)
}
