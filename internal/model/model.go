// Package model defines the core domain types shared across the analytics
// service: market records loaded at startup and persisted feedback documents.
package model

import "time"

// MarketRecord is one market of the COT collection. Records are loaded once
// at process start and never mutated.
type MarketRecord struct {
	DisplayName string `json:"display_name"`
	// LatestReport holds the raw snapshot fields. Values are json.Number,
	// string or whatever the source carried; coercion happens downstream.
	LatestReport map[string]any `json:"latest_report"`
}

// Report field names read from LatestReport, per trader category prefix.
const (
	FieldCommLong     = "comm_positions_long_all"
	FieldCommShort    = "comm_positions_short_all"
	FieldNonCommLong  = "noncomm_positions_long_all"
	FieldNonCommShort = "noncomm_positions_short_all"
	FieldNonReptLong  = "nonrept_positions_long_all"
	FieldNonReptShort = "nonrept_positions_short_all"
)

// Feedback is an append-only feedback document.
// Once inserted it is never updated or deleted.
type Feedback struct {
	ID        string    `json:"id" db:"id"`
	Feedback  string    `json:"feedback" db:"feedback"`
	Email     string    `json:"email" db:"email"`         // "" when not given
	Timestamp time.Time `json:"timestamp" db:"timestamp"` // client capture time
	CreatedAt time.Time `json:"created_at" db:"created_at"` // assigned by the store
}
