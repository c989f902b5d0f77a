package market

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cotlab/cot-analytics/internal/model"
)

const sampleCollection = `[
  {"display_name": "GOLD - COMMODITY EXCHANGE INC.",
   "latest_report": {"comm_positions_long_all": "100", "comm_positions_short_all": "40",
                     "noncomm_positions_long_all": 10, "noncomm_positions_short_all": "60",
                     "nonrept_positions_long_all": "5", "nonrept_positions_short_all": 5}},
  {"display_name": "SILVER - COMMODITY EXCHANGE INC.",
   "latest_report": {"comm_positions_long_all": "1", "comm_positions_short_all": "2",
                     "noncomm_positions_long_all": "3", "noncomm_positions_short_all": "4",
                     "nonrept_positions_long_all": "5", "nonrept_positions_short_all": "6"}}
]`

func TestParse_Valid(t *testing.T) {
	c, err := Parse([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", c.Len())
	}
	names := c.Names()
	if names[0] != "GOLD - COMMODITY EXCHANGE INC." || names[1] != "SILVER - COMMODITY EXCHANGE INC." {
		t.Errorf("names out of order: %v", names)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty list":      `[]`,
		"not a list":      `{"display_name": "GOLD"}`,
		"scalar":          `42`,
		"invalid json":    `[{`,
		"no display_name": `[{"latest_report": {}}, 7, "x"]`,
		"empty name":      `[{"display_name": ""}]`,
	}
	for name, raw := range tests {
		_, err := Parse([]byte(raw))
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !errors.Is(err, ErrDataFormat) {
			t.Errorf("%s: expected ErrDataFormat, got %v", name, err)
		}
		var dfe *DataFormatError
		if !errors.As(err, &dfe) {
			t.Errorf("%s: expected *DataFormatError, got %T", name, err)
		}
	}
}

func TestParse_SkipsInvalidEntries(t *testing.T) {
	c, err := Parse([]byte(`[1, {"foo": "bar"}, {"display_name": "CORN"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 1 || c.Names()[0] != "CORN" {
		t.Errorf("expected only CORN, got %v", c.Names())
	}
}

func TestLookup_ExactMatch(t *testing.T) {
	c, _ := Parse([]byte(sampleCollection))
	rec := c.Lookup("SILVER - COMMODITY EXCHANGE INC.")
	if rec.DisplayName != "SILVER - COMMODITY EXCHANGE INC." {
		t.Errorf("expected SILVER, got %s", rec.DisplayName)
	}
}

func TestLookup_StaleSelectionFallsBackToFirst(t *testing.T) {
	c, _ := Parse([]byte(sampleCollection))
	for _, name := range []string{"", "PLATINUM", "gold - commodity exchange inc."} {
		rec := c.Lookup(name)
		if rec.DisplayName != "GOLD - COMMODITY EXCHANGE INC." {
			t.Errorf("lookup %q: expected fallback to first record, got %s", name, rec.DisplayName)
		}
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.json")
	if err := os.WriteFile(path, []byte(sampleCollection), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 records, got %d", c.Len())
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrDataFormat) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected data error wrapping ErrNotExist, got %v", err)
	}
}

func rec(fields map[string]any) model.MarketRecord {
	return model.MarketRecord{DisplayName: "TEST", LatestReport: fields}
}

func TestReportInt_Coercion(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{"100", 100},
		{" 42 ", 42},
		{"-7", -7},
		{json.Number("250"), 250},
		{json.Number("99.9"), 99},
		{json.Number("-99.9"), -99},
		{12.7, 12},
		{int64(5), 5},
		{3, 3},
	}
	for _, tt := range tests {
		got, err := ReportInt(rec(map[string]any{"f": tt.in}), "f")
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestReportInt_Invalid(t *testing.T) {
	for _, in := range []any{"abc", "12.5", "", true, nil, map[string]any{}} {
		_, err := ReportInt(rec(map[string]any{"f": in}), "f")
		if !errors.Is(err, ErrDataFormat) {
			t.Errorf("%v: expected ErrDataFormat, got %v", in, err)
		}
	}

	if _, err := ReportInt(rec(map[string]any{}), "f"); !errors.Is(err, ErrDataFormat) {
		t.Errorf("missing field: expected ErrDataFormat, got %v", err)
	}
	if _, err := ReportInt(model.MarketRecord{DisplayName: "X"}, "f"); !errors.Is(err, ErrDataFormat) {
		t.Errorf("missing report: expected ErrDataFormat, got %v", err)
	}
}

func TestReportDecimal_Coercion(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"100", "100"},
		{"12.5", "12.5"},
		{json.Number("-3.25"), "-3.25"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		got, err := ReportDecimal(rec(map[string]any{"f": tt.in}), "f")
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%v: expected %s, got %s", tt.in, tt.want, got)
		}
	}

	if _, err := ReportDecimal(rec(map[string]any{"f": "n/a"}), "f"); !errors.Is(err, ErrDataFormat) {
		t.Errorf("expected ErrDataFormat, got %v", err)
	}
}
