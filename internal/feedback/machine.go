package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cotlab/cot-analytics/internal/metrics"
	"github.com/cotlab/cot-analytics/internal/model"
	"github.com/cotlab/cot-analytics/internal/store"
)

// DefaultTimeout bounds one store insert when none is configured.
const DefaultTimeout = 10 * time.Second

// State is the submission state.
type State int

const (
	Idle State = iota
	Validating
	Submitting
	Succeeded
	Failed
)

var stateNames = map[State]string{
	Idle:       "idle",
	Validating: "validating",
	Submitting: "submitting",
	Succeeded:  "succeeded",
	Failed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// transitions lists every allowed state change.
var transitions = map[State][]State{
	Idle:       {Validating},
	Validating: {Idle, Submitting},
	Submitting: {Succeeded, Failed},
	Succeeded:  {Idle},
	Failed:     {Idle},
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Machine drives one form through Idle → Validating → Submitting →
// {Succeeded, Failed} → Idle. The form is cleared only after success.
type Machine struct {
	store    store.FeedbackStore
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time

	mu    sync.Mutex
	state State
	form  Form
}

// NewMachine creates an idle machine writing to st. A non-positive timeout
// uses DefaultTimeout. Pass nil for n to drop notifications.
func NewMachine(st store.FeedbackStore, n Notifier, timeout time.Duration) *Machine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if n == nil {
		n = NotifierFunc(func(Notification) {})
	}
	return &Machine{
		store:    st,
		notifier: n,
		timeout:  timeout,
		now:      time.Now,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Form returns the values the form currently holds.
func (m *Machine) Form() Form {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.form
}

// Submit runs one submission with the given form values. It returns the
// persisted document on success, a *ValidationError or *SubmissionError on
// failure, or ErrBusy if a submission is already running.
func (m *Machine) Submit(ctx context.Context, f Form) (*model.Feedback, error) {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	m.form = f
	err := m.transitionLocked(Validating)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := Validate(f); err != nil {
		var verr *ValidationError
		errors.As(err, &verr)
		m.notifier.Notify(warning(verr.Message))
		metrics.FeedbackSubmissions.WithLabelValues("invalid").Inc()
		if terr := m.transition(Idle); terr != nil {
			return nil, terr
		}
		return nil, err
	}

	if err := m.transition(Submitting); err != nil {
		return nil, err
	}
	m.notifier.Notify(sending())

	doc := &model.Feedback{
		ID:        uuid.New().String(),
		Feedback:  strings.TrimSpace(f.Feedback),
		Email:     strings.TrimSpace(f.Email),
		Timestamp: m.now().UTC(),
	}

	if err := m.insert(ctx, doc); err != nil {
		return nil, m.fail(err)
	}

	if err := m.transition(Succeeded); err != nil {
		return nil, err
	}
	m.notifier.Notify(thankYou())
	metrics.FeedbackSubmissions.WithLabelValues("succeeded").Inc()
	slog.Info("feedback saved", "id", doc.ID, "has_email", doc.Email != "")

	m.mu.Lock()
	m.form = Form{}
	err = m.transitionLocked(Idle)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// insert performs the single bounded store write.
func (m *Machine) insert(ctx context.Context, doc *model.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.store.InsertFeedback(ctx, doc)
	metrics.FeedbackStoreLatency.Observe(time.Since(start).Seconds())

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, m.timeout, err)
	}
	return err
}

// fail moves Submitting → Failed → Idle, keeping the form values.
func (m *Machine) fail(cause error) error {
	if err := m.transition(Failed); err != nil {
		return err
	}
	m.notifier.Notify(failure(cause))
	metrics.FeedbackSubmissions.WithLabelValues("failed").Inc()
	slog.Error("feedback insert failed", "err", cause)

	if err := m.transition(Idle); err != nil {
		return err
	}
	return &SubmissionError{Err: cause}
}

func (m *Machine) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(to)
}

func (m *Machine) transitionLocked(to State) error {
	if !m.state.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, to)
	}
	m.state = to
	return nil
}
