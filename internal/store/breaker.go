package store

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cotlab/cot-analytics/internal/model"
)

// BreakerStore guards a remote store with a circuit breaker. After
// maxFailures consecutive failed inserts the breaker opens and inserts fail
// immediately with gobreaker.ErrOpenState until openTimeout has passed.
// It never retries.
type BreakerStore struct {
	inner FeedbackStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner. maxFailures below 1 is treated as 1.
func NewBreakerStore(inner FeedbackStore, name string, maxFailures uint32, openTimeout time.Duration) *BreakerStore {
	if maxFailures < 1 {
		maxFailures = 1
	}
	st := gobreaker.Settings{
		Name:    name,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &BreakerStore{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

func (s *BreakerStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.inner.InsertFeedback(ctx, f)
	})
	return err
}

func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// State reports the breaker state (closed, half-open, open).
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}
