package positions

// Position sides emitted in chart records. Net is never charted.
const (
	SideLong  = "Long"
	SideShort = "Short"
)

// ChartRecord is one tidy-format row for the stacked bar chart.
type ChartRecord struct {
	Trader   string  `json:"Trader"`
	Position string  `json:"Position"`
	Value    float64 `json:"Value"`
}

// ChartData reshapes the un-normalized table into two records per
// category, Long before Short, in category order. The chart layer applies
// its own stacking, so normalized values are never passed here.
func ChartData(t Table) []ChartRecord {
	out := make([]ChartRecord, 0, 2*numCategories)
	for _, c := range Categories {
		out = append(out,
			ChartRecord{Trader: c.String(), Position: SideLong, Value: float64(t[c].Long)},
			ChartRecord{Trader: c.String(), Position: SideShort, Value: float64(t[c].Short)},
		)
	}
	return out
}
