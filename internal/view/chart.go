package view

import (
	"encoding/json"

	"github.com/cotlab/cot-analytics/internal/positions"
)

// Fixed series colors: Long always before Short.
const (
	ColorLong  = "#FFFFFF"
	ColorShort = "#666666"

	labelColor = "#FFFFFF"
	lineColor  = "#333333"
)

// null suppresses a Vega-Lite title.
var null = json.RawMessage("null")

// ChartSpec is a Vega-Lite stacked bar specification.
type ChartSpec struct {
	Mark      string      `json:"mark"`
	Transform []Transform `json:"transform,omitempty"`
	Encoding  Encoding    `json:"encoding"`
	Config    ChartConfig `json:"config"`
}

type Transform struct {
	JoinAggregate []AggregateOp `json:"joinaggregate,omitempty"`
	GroupBy       []string      `json:"groupby,omitempty"`
	Calculate     string        `json:"calculate,omitempty"`
	As            string        `json:"as,omitempty"`
}

type AggregateOp struct {
	Op    string `json:"op"`
	Field string `json:"field"`
	As    string `json:"as"`
}

type Encoding struct {
	X       Channel   `json:"x"`
	Y       Channel   `json:"y"`
	Color   Channel   `json:"color"`
	Order   Channel   `json:"order"`
	Tooltip []Channel `json:"tooltip"`
}

// Channel is a Vega-Lite encoding channel or tooltip field.
type Channel struct {
	Field  string  `json:"field"`
	Type   string  `json:"type,omitempty"`
	Title  any     `json:"title,omitempty"`
	Stack  string  `json:"stack,omitempty"`
	Format string  `json:"format,omitempty"`
	Sort   any     `json:"sort,omitempty"`
	Axis   *Axis   `json:"axis,omitempty"`
	Scale  *Scale  `json:"scale,omitempty"`
	Legend *Legend `json:"legend,omitempty"`
}

type Axis struct {
	Format      string  `json:"format,omitempty"`
	Title       string  `json:"title,omitempty"`
	Grid        bool    `json:"grid,omitempty"`
	GridColor   string  `json:"gridColor,omitempty"`
	GridOpacity float64 `json:"gridOpacity,omitempty"`
	LabelColor  string  `json:"labelColor,omitempty"`
	TitleColor  string  `json:"titleColor,omitempty"`
	DomainColor string  `json:"domainColor,omitempty"`
	TickColor   string  `json:"tickColor,omitempty"`
}

type Scale struct {
	Range  []string  `json:"range,omitempty"`
	Domain []float64 `json:"domain,omitempty"`
}

type Legend struct {
	Orient     string `json:"orient"`
	Title      any    `json:"title"`
	LabelColor string `json:"labelColor"`
}

type ChartConfig struct {
	View       ViewConfig `json:"view"`
	Axis       Axis       `json:"axis"`
	Background string     `json:"background"`
}

type ViewConfig struct {
	Stroke string `json:"stroke"`
}

// Preset selects the chart specification for the view mode.
func Preset(absoluteView bool) ChartSpec {
	if absoluteView {
		return AbsolutePreset()
	}
	return NormalizedPreset()
}

// AbsolutePreset stacks raw contract counts with integer axis and tooltip.
func AbsolutePreset() ChartSpec {
	return barSpec(
		Channel{
			Field: "Value",
			Type:  "quantitative",
			Title: "Contracts",
			Axis: &Axis{
				Grid:       true,
				GridColor:  lineColor,
				LabelColor: labelColor,
				TitleColor: labelColor,
			},
		},
		Channel{Field: "Value", Type: "quantitative", Format: ".0f"},
		nil,
	)
}

// NormalizedPreset stacks each trader's bar to 100%. The tooltip shows the
// side's share of the trader total, computed in the spec itself.
func NormalizedPreset() ChartSpec {
	return barSpec(
		Channel{
			Field: "Value",
			Type:  "quantitative",
			Stack: "normalize",
			Axis: &Axis{
				Format:     ".0%",
				Title:      "Percentage",
				LabelColor: labelColor,
				TitleColor: labelColor,
			},
			Scale: &Scale{Domain: []float64{0, 1}},
		},
		Channel{Field: "Share", Type: "quantitative", Title: "Share", Format: ".1%"},
		[]Transform{
			{
				JoinAggregate: []AggregateOp{{Op: "sum", Field: "Value", As: "TraderTotal"}},
				GroupBy:       []string{"Trader"},
			},
			{
				Calculate: "datum.TraderTotal ? datum.Value / datum.TraderTotal : 0",
				As:        "Share",
			},
		},
	)
}

// barSpec builds a fresh spec on every call; presets never share state.
func barSpec(y, valueTooltip Channel, transforms []Transform) ChartSpec {
	return ChartSpec{
		Mark:      "bar",
		Transform: transforms,
		Encoding: Encoding{
			X: Channel{
				Field: "Trader",
				Type:  "nominal",
				Title: null,
				Axis: &Axis{
					LabelColor:  labelColor,
					TitleColor:  labelColor,
					DomainColor: lineColor,
					TickColor:   lineColor,
				},
			},
			Y: y,
			Color: Channel{
				Field: "Position",
				Type:  "nominal",
				Scale: &Scale{Range: []string{ColorLong, ColorShort}},
				Legend: &Legend{
					Orient:     "top",
					Title:      null,
					LabelColor: labelColor,
				},
				Sort: []string{positions.SideLong, positions.SideShort},
			},
			Order: Channel{Field: "Position", Sort: "ascending"},
			Tooltip: []Channel{
				{Field: "Trader", Type: "nominal", Title: "Trader Type"},
				{Field: "Position", Type: "nominal"},
				valueTooltip,
			},
		},
		Config: ChartConfig{
			View: ViewConfig{Stroke: "transparent"},
			Axis: Axis{
				Grid:        true,
				GridColor:   lineColor,
				GridOpacity: 0.3,
			},
			Background: "transparent",
		},
	}
}
