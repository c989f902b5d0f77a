package positions

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ViewRow is one category row as displayed, either raw counts or
// percentages of the column's total magnitude.
type ViewRow struct {
	Long  float64 `json:"Long"`
	Short float64 `json:"Short"`
	Net   float64 `json:"Net"`
}

// View is the displayed table. It is derived from a Table and never
// written back.
type View [numCategories]ViewRow

func (v View) MarshalJSON() ([]byte, error) {
	return marshalOrdered(func(c Category) any { return v[c] })
}

// Net returns the Net column in category order.
func (v View) Net() []float64 {
	out := make([]float64, numCategories)
	for _, c := range Categories {
		out[c] = v[c].Net
	}
	return out
}

// Normalize returns the table as displayed. In absolute view values pass
// through unchanged. Otherwise each column is rescaled independently to
// value / sum(|column|) * 100. A column whose total magnitude is zero
// becomes all zeros.
func Normalize(t Table, absoluteView bool) View {
	var v View
	if absoluteView {
		for _, c := range Categories {
			v[c] = ViewRow{
				Long:  float64(t[c].Long),
				Short: float64(t[c].Short),
				Net:   float64(t[c].Net),
			}
		}
		return v
	}

	long := normalizeColumn(t, func(r Row) int64 { return r.Long })
	short := normalizeColumn(t, func(r Row) int64 { return r.Short })
	net := normalizeColumn(t, func(r Row) int64 { return r.Net })
	for _, c := range Categories {
		v[c] = ViewRow{Long: long[c], Short: short[c], Net: net[c]}
	}
	return v
}

func normalizeColumn(t Table, col func(Row) int64) [numCategories]float64 {
	var out [numCategories]float64

	total := decimal.Zero
	for _, c := range Categories {
		total = total.Add(decimal.NewFromInt(col(t[c])).Abs())
	}
	if total.IsZero() {
		return out
	}

	for _, c := range Categories {
		out[c] = decimal.NewFromInt(col(t[c])).Mul(hundred).Div(total).InexactFloat64()
	}
	return out
}
