package view

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatValue renders a table cell: one-decimal percentage in normalized
// view, comma-grouped whole contracts in absolute view.
func FormatValue(v float64, absoluteView bool) string {
	if !absoluteView {
		return fmt.Sprintf("%.1f%%", v)
	}
	return humanize.Comma(int64(math.Round(v)))
}

// Caption describes the active view mode under the chart.
func Caption(absoluteView bool) string {
	if absoluteView {
		return "Absolute view (contracts)"
	}
	return "Normalized view (0-100%)"
}
