package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cotlab/cot-analytics/internal/model"
)

// DefaultStream is the Redis stream feedback is appended to.
const DefaultStream = "cot:feedback"

// StreamStore implements FeedbackStore as a Redis stream. Entries are only
// ever added with XADD; the server-generated entry ID carries the creation
// time in milliseconds.
type StreamStore struct {
	rdb    *redis.Client
	stream string
}

// NewStreamStore creates a stream-backed store. An empty stream name uses
// DefaultStream.
func NewStreamStore(rdb *redis.Client, stream string) *StreamStore {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamStore{rdb: rdb, stream: stream}
}

func (s *StreamStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	id, err := s.rdb.XAdd(ctx, streamArgs(s.stream, f)).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}

	created, err := streamIDTime(id)
	if err != nil {
		return err
	}
	f.CreatedAt = created
	return nil
}

func (s *StreamStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// streamArgs keeps field order fixed so entries read back consistently.
func streamArgs(stream string, f *model.Feedback) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: []any{
			"id", f.ID,
			"feedback", f.Feedback,
			"email", f.Email,
			"timestamp", f.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}
}

// streamIDTime decodes the millisecond part of a "<ms>-<seq>" entry ID.
func streamIDTime(id string) (time.Time, error) {
	ms, _, ok := strings.Cut(id, "-")
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected stream entry id %q", id)
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected stream entry id %q: %w", id, err)
	}
	return time.UnixMilli(n).UTC(), nil
}
