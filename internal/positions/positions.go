// Package positions turns a market's latest COT report into the structures
// the dashboard renders: the positions table per trader category, the
// dominant-trader metric, the normalized view and the tidy chart dataset.
//
// Everything here is pure. Tables are arrays indexed by Category, so they
// are copied by value and a transformation can never mutate its input.
package positions

import (
	"encoding/json"
	"fmt"

	"github.com/cotlab/cot-analytics/internal/market"
	"github.com/cotlab/cot-analytics/internal/model"
)

// Category is a trader category. The set and order are fixed.
type Category int

const (
	Commercial Category = iota
	NonCommercial
	Retail

	numCategories = 3
)

// Categories lists every category in display order.
var Categories = [numCategories]Category{Commercial, NonCommercial, Retail}

var categoryNames = [numCategories]string{"Commercial", "Non-Commercial", "Retail"}

// report fields per category: long, short.
var categoryFields = [numCategories][2]string{
	{model.FieldCommLong, model.FieldCommShort},
	{model.FieldNonCommLong, model.FieldNonCommShort},
	{model.FieldNonReptLong, model.FieldNonReptShort},
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Row holds one category's contract counts. Net is always Long - Short.
type Row struct {
	Long  int64 `json:"Long"`
	Short int64 `json:"Short"`
	Net   int64 `json:"Net"`
}

// Table is the positions table keyed by Category.
type Table [numCategories]Row

// Transform builds the positions table from a record's latest report.
// A missing or non-integer field yields a *market.DataFormatError.
func Transform(rec model.MarketRecord) (Table, error) {
	var t Table
	for _, c := range Categories {
		long, err := market.ReportInt(rec, categoryFields[c][0])
		if err != nil {
			return Table{}, err
		}
		short, err := market.ReportInt(rec, categoryFields[c][1])
		if err != nil {
			return Table{}, err
		}
		t[c] = Row{Long: long, Short: short, Net: long - short}
	}
	return t, nil
}

// MarshalJSON encodes the table as an object keyed by category name, in
// category order.
func (t Table) MarshalJSON() ([]byte, error) {
	return marshalOrdered(func(c Category) any { return t[c] })
}

func marshalOrdered(row func(Category) any) ([]byte, error) {
	buf := []byte{'{'}
	for i, c := range Categories {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, _ := json.Marshal(c.String())
		val, err := json.Marshal(row(c))
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}
