package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotlab/cot-analytics/internal/model"
	"github.com/cotlab/cot-analytics/internal/store"
)

type errStore struct {
	err   error
	calls int
}

func (s *errStore) InsertFeedback(_ context.Context, _ *model.Feedback) error {
	s.calls++
	return s.err
}

func (s *errStore) Ping(_ context.Context) error { return nil }

// blockingStore waits until released or the context ends.
type blockingStore struct {
	release chan struct{}
}

func (s *blockingStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	select {
	case <-s.release:
		f.CreatedAt = time.Now().UTC()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *blockingStore) Ping(_ context.Context) error { return nil }

func messages(ns []Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Message
	}
	return out
}

// --- Validation ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		form  Form
		field string
	}{
		{"valid", Form{Feedback: "great tool"}, ""},
		{"valid with email", Form{Feedback: "great tool", Email: "a@b.co"}, ""},
		{"empty feedback", Form{Feedback: ""}, "feedback"},
		{"whitespace feedback", Form{Feedback: " \n\t "}, "feedback"},
		{"email without at", Form{Feedback: "great tool", Email: "not-an-email"}, "email"},
		{"email checked first", Form{Feedback: "", Email: "nope"}, "email"},
		{"too long", Form{Feedback: strings.Repeat("x", MaxFeedbackChars+1)}, "feedback"},
		{"max length", Form{Feedback: strings.Repeat("é", MaxFeedbackChars)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.form)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

// --- State machine ---

func TestStateTransitions(t *testing.T) {
	assert.True(t, Idle.CanTransition(Validating))
	assert.True(t, Validating.CanTransition(Submitting))
	assert.True(t, Validating.CanTransition(Idle))
	assert.True(t, Submitting.CanTransition(Succeeded))
	assert.True(t, Submitting.CanTransition(Failed))
	assert.True(t, Succeeded.CanTransition(Idle))
	assert.True(t, Failed.CanTransition(Idle))

	assert.False(t, Idle.CanTransition(Submitting))
	assert.False(t, Succeeded.CanTransition(Succeeded))
	assert.False(t, Failed.CanTransition(Submitting))
	assert.Equal(t, "submitting", Submitting.String())
}

func TestSubmit_Success(t *testing.T) {
	ms := store.NewMemoryStore()
	rec := &Recorder{}
	m := NewMachine(ms, rec, time.Second)
	captured := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return captured }

	doc, err := m.Submit(context.Background(), Form{Feedback: "  great tool \n", Email: " me@example.com "})
	require.NoError(t, err)

	assert.Equal(t, "great tool", doc.Feedback)
	assert.Equal(t, "me@example.com", doc.Email)
	assert.True(t, captured.Equal(doc.Timestamp), "timestamp is the capture time")
	assert.False(t, doc.CreatedAt.IsZero(), "store must assign created_at")
	assert.NotEmpty(t, doc.ID)

	stored := ms.Feedback()
	require.Len(t, stored, 1)
	assert.Equal(t, doc.ID, stored[0].ID)

	assert.Equal(t, []string{"Sending your feedback...", "Thank you for your feedback!"}, messages(rec.Notifications()))
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, Form{}, m.Form(), "form is cleared after success")
}

func TestSubmit_EmptyEmailStoredAsEmptyString(t *testing.T) {
	ms := store.NewMemoryStore()
	m := NewMachine(ms, nil, time.Second)

	doc, err := m.Submit(context.Background(), Form{Feedback: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "", doc.Email)
}

func TestSubmit_OneThankYouPerSuccess(t *testing.T) {
	ms := store.NewMemoryStore()
	rec := &Recorder{}
	m := NewMachine(ms, rec, time.Second)

	_, err := m.Submit(context.Background(), Form{Feedback: "first"})
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), Form{Feedback: "second"})
	require.NoError(t, err)

	thanks := 0
	for _, n := range rec.Notifications() {
		if n.Kind == KindSuccess {
			thanks++
		}
	}
	assert.Equal(t, 2, thanks, "one thank-you per successful submission")
	assert.Len(t, ms.Feedback(), 2)
}

func TestSubmit_EmptyFeedbackDoesNotWrite(t *testing.T) {
	st := &errStore{}
	rec := &Recorder{}
	m := NewMachine(st, rec, time.Second)

	_, err := m.Submit(context.Background(), Form{Feedback: ""})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, st.calls, "no store write on validation failure")
	assert.Equal(t, Idle, m.State())

	ns := rec.Notifications()
	require.Len(t, ns, 1)
	assert.Equal(t, KindWarning, ns[0].Kind)
	assert.Equal(t, "Please enter your feedback before submitting.", ns[0].Message)
}

func TestSubmit_InvalidEmailDoesNotWrite(t *testing.T) {
	st := &errStore{}
	rec := &Recorder{}
	m := NewMachine(st, rec, time.Second)

	form := Form{Feedback: "great tool", Email: "not-an-email"}
	_, err := m.Submit(context.Background(), form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
	assert.Equal(t, 0, st.calls)
	assert.Equal(t, form, m.Form(), "values retained after validation failure")
	assert.Equal(t, []string{"Please enter a valid email address"}, messages(rec.Notifications()))
}

func TestSubmit_StoreFailureKeepsForm(t *testing.T) {
	st := &errStore{err: errors.New("permission denied")}
	rec := &Recorder{}
	m := NewMachine(st, rec, time.Second)

	form := Form{Feedback: "great tool", Email: "me@example.com"}
	doc, err := m.Submit(context.Background(), form)

	assert.Nil(t, doc)
	var serr *SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.EqualError(t, serr.Err, "permission denied")
	assert.Equal(t, 1, st.calls, "no automatic retry")
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, form, m.Form())
	assert.Equal(t,
		[]string{"Sending your feedback...", "Failed to save feedback: permission denied"},
		messages(rec.Notifications()))

	// The user may retry with the same values.
	st.err = nil
	_, err = m.Submit(context.Background(), m.Form())
	require.NoError(t, err)
	assert.Equal(t, 2, st.calls)
}

func TestSubmit_TimeoutIsFailure(t *testing.T) {
	st := &blockingStore{release: make(chan struct{})}
	rec := &Recorder{}
	m := NewMachine(st, rec, 20*time.Millisecond)

	_, err := m.Submit(context.Background(), Form{Feedback: "slow"})

	var serr *SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, Form{Feedback: "slow"}, m.Form())
}

func TestSubmit_BusyWhileInFlight(t *testing.T) {
	st := &blockingStore{release: make(chan struct{})}
	m := NewMachine(st, nil, 5*time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), Form{Feedback: "first"})
		done <- err
	}()

	require.Eventually(t, func() bool { return m.State() == Submitting }, time.Second, time.Millisecond)

	_, err := m.Submit(context.Background(), Form{Feedback: "second"})
	assert.ErrorIs(t, err, ErrBusy)

	close(st.release)
	require.NoError(t, <-done)
	assert.Equal(t, Idle, m.State())
}
