package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cotlab/cot-analytics/internal/model"
)

// feedbackSchema creates the document table. created_at is assigned by the
// database, never by the client.
const feedbackSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	id         UUID PRIMARY KEY,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore implements FeedbackStore as a JSONB document table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the feedback table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, feedbackSchema); err != nil {
		return fmt.Errorf("create feedback table: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	doc, err := feedbackDocument(f)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO feedback (id, document)
		 VALUES ($1, $2::JSONB)
		 RETURNING created_at`,
		f.ID, doc,
	).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback %s: %w", f.ID, err)
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// feedbackDocument is the JSONB body: everything except the identifiers and
// the server timestamp, which live in their own columns.
func feedbackDocument(f *model.Feedback) (string, error) {
	data, err := json.Marshal(struct {
		Feedback  string `json:"feedback"`
		Email     string `json:"email"`
		Timestamp string `json:"timestamp"`
	}{f.Feedback, f.Email, f.Timestamp.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return "", fmt.Errorf("encode feedback %s: %w", f.ID, err)
	}
	return string(data), nil
}
