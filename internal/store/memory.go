package store

import (
	"context"
	"sync"
	"time"

	"github.com/cotlab/cot-analytics/internal/model"
)

// MemoryStore implements FeedbackStore with an in-memory slice. Used for
// testing and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	feedback []model.Feedback
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f.CreatedAt = s.now().UTC()
	// Store a copy to avoid external mutation.
	s.feedback = append(s.feedback, *f)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Feedback returns every stored document in insertion order.
func (s *MemoryStore) Feedback() []model.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Feedback, len(s.feedback))
	copy(out, s.feedback)
	return out
}
