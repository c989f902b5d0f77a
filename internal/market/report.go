package market

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cotlab/cot-analytics/internal/model"
)

var (
	maxInt64 = decimal.NewFromInt(1<<63 - 1)
	minInt64 = decimal.NewFromInt(-1 << 63)
)

// ReportInt reads a latest-report field as an integer contract count.
// Numbers are truncated toward zero; strings must be integer literals.
func ReportInt(rec model.MarketRecord, field string) (int64, error) {
	v, err := reportValue(rec, field)
	if err != nil {
		return 0, err
	}

	switch x := v.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fieldError(rec, field, "not an integer: "+strconv.Quote(x))
		}
		return n, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	}

	d, err := numberValue(rec, field, v)
	if err != nil {
		return 0, err
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
		return 0, fieldError(rec, field, "out of integer range")
	}
	return d.IntPart(), nil
}

// ReportDecimal reads a latest-report field as an exact decimal. Strings may
// hold any decimal literal.
func ReportDecimal(rec model.MarketRecord, field string) (decimal.Decimal, error) {
	v, err := reportValue(rec, field)
	if err != nil {
		return decimal.Zero, err
	}
	if s, ok := v.(string); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero, fieldError(rec, field, "not a number: "+strconv.Quote(s))
		}
		return d, nil
	}
	return numberValue(rec, field, v)
}

func reportValue(rec model.MarketRecord, field string) (any, error) {
	if rec.LatestReport == nil {
		return nil, &DataFormatError{Market: rec.DisplayName, Reason: "latest_report is missing"}
	}
	v, ok := rec.LatestReport[field]
	if !ok || v == nil {
		return nil, fieldError(rec, field, "missing")
	}
	return v, nil
}

func numberValue(rec model.MarketRecord, field string, v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, fieldError(rec, field, "not a number: "+x.String())
		}
		return d, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, fieldError(rec, field, "not a finite number")
		}
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	default:
		return decimal.Zero, fieldError(rec, field, "not numeric")
	}
}

func fieldError(rec model.MarketRecord, field, reason string) error {
	return &DataFormatError{Market: rec.DisplayName, Field: field, Reason: reason}
}
