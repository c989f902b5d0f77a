// Package store defines the persistence interface for feedback documents.
// Implementations include PostgreSQL (JSONB documents), a Redis stream and
// in-memory (for testing). All of them are append-only.
package store

import (
	"context"

	"github.com/cotlab/cot-analytics/internal/model"
)

// FeedbackStore is the remote feedback store. It never updates or deletes.
type FeedbackStore interface {
	// InsertFeedback appends one document and sets f.CreatedAt to the time
	// the store assigned.
	InsertFeedback(ctx context.Context, f *model.Feedback) error

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error
}
