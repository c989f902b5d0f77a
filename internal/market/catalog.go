// Package market loads the read-only collection of COT market records and
// exposes typed access to their latest-report fields.
//
// The collection is loaded once at process start. Lookups never fail on a
// non-empty catalog: an unknown name falls back to the first record.
package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/cotlab/cot-analytics/internal/model"
)

// Catalog is an ordered, immutable set of market records.
type Catalog struct {
	records []model.MarketRecord
}

// Load reads a JSON collection from path and parses it. An unreadable file
// is reported as a data error as well, so the page can show it.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataFormatError{Reason: fmt.Sprintf("read %s: %v", path, err), Err: err}
	}
	return Parse(raw)
}

// Parse decodes a JSON array of market records. Numbers are kept as
// json.Number so no precision is lost before coercion.
//
// Elements that are not objects or carry no string display_name are skipped.
// The collection must be an array and yield at least one usable record.
func Parse(raw []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &DataFormatError{Reason: "invalid JSON: " + err.Error()}
	}

	items, ok := doc.([]any)
	if !ok {
		return nil, &DataFormatError{Reason: "invalid data format, expected a list of market data"}
	}
	if len(items) == 0 {
		return nil, &DataFormatError{Reason: "market collection is empty"}
	}

	records := make([]model.MarketRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			slog.Warn("skipping non-object market entry", "index", i)
			continue
		}
		name, _ := obj["display_name"].(string)
		if name == "" {
			slog.Warn("skipping market entry without display_name", "index", i)
			continue
		}
		report, _ := obj["latest_report"].(map[string]any)
		records = append(records, model.MarketRecord{
			DisplayName:  name,
			LatestReport: report,
		})
	}

	if len(records) == 0 {
		return nil, &DataFormatError{Reason: "no valid market options found in data"}
	}
	return &Catalog{records: records}, nil
}

// Len returns the number of usable records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Names returns the selector options in collection order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.records))
	for i, r := range c.records {
		names[i] = r.DisplayName
	}
	return names
}

// Lookup returns the record whose display name matches exactly, or the first
// record when nothing matches (stale selection).
func (c *Catalog) Lookup(name string) model.MarketRecord {
	for _, r := range c.records {
		if r.DisplayName == name {
			return r
		}
	}
	return c.records[0]
}
