package view

import (
	"fmt"
	"math"
)

// Text colors picked against the cell background, light on dark.
const (
	lightText = "#f1f1f1"
	darkText  = "#000000"

	// relative luminance below which the background counts as dark
	textColorThreshold = 0.408
)

// CellStyle is the background and text color of one shaded cell.
type CellStyle struct {
	Background string `json:"background"`
	Color      string `json:"color"`
}

// NetGradient shades the Net column on a monochrome scale running from
// white at the column minimum to black at its maximum. The scale is taken
// from the values as displayed, so it follows the active view mode. When
// every value is equal all cells get the lightest shade.
func NetGradient(values []float64) []CellStyle {
	if len(values) == 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	styles := make([]CellStyle, len(values))
	for i, v := range values {
		var s float64
		if hi > lo {
			s = (v - lo) / (hi - lo)
		}
		styles[i] = shade(s)
	}
	return styles
}

// shade maps s in [0,1] onto the reversed gray scale.
func shade(s float64) CellStyle {
	level := 1 - math.Max(0, math.Min(1, s))
	c := uint8(math.Round(level * 255))

	text := darkText
	if luminance(level) < textColorThreshold {
		text = lightText
	}
	return CellStyle{
		Background: fmt.Sprintf("#%02x%02x%02x", c, c, c),
		Color:      text,
	}
}

// luminance is the WCAG relative luminance of a gray with channel value c.
func luminance(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
