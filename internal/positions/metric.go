package positions

import (
	"encoding/json"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/cotlab/cot-analytics/internal/market"
	"github.com/cotlab/cot-analytics/internal/model"
)

// Metric is the dominant-trader summary: the category with the largest
// absolute net position and that signed net.
type Metric struct {
	Category Category
	Net      decimal.Decimal
}

// DominantTrader computes the dominant-trader metric. Nets are computed as
// exact decimals; on equal magnitude the earlier category wins.
func DominantTrader(rec model.MarketRecord) (Metric, error) {
	var best Metric
	for i, c := range Categories {
		long, err := market.ReportDecimal(rec, categoryFields[c][0])
		if err != nil {
			return Metric{}, err
		}
		short, err := market.ReportDecimal(rec, categoryFields[c][1])
		if err != nil {
			return Metric{}, err
		}
		net := long.Sub(short)
		if i == 0 || net.Abs().GreaterThan(best.Net.Abs()) {
			best = Metric{Category: c, Net: net}
		}
	}
	return best, nil
}

// FormattedNet renders the net with an explicit sign when positive, comma
// grouping and two decimals, e.g. "+12,345.00" or "-500.00".
func (m Metric) FormattedNet() string {
	return humanize.FormatFloat("+#,###.##", m.Net.Round(2).InexactFloat64())
}

// String renders the metric as "<Category> (<net>)".
func (m Metric) String() string {
	return m.Category.String() + " (" + m.FormattedNet() + ")"
}

func (m Metric) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Category string `json:"category"`
		Net      string `json:"net"`
		Label    string `json:"label"`
	}{m.Category.String(), m.Net.StringFixed(2), m.String()})
}
