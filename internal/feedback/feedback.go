// Package feedback implements the feedback form submission: local
// validation, an explicit submission state machine and the append-only
// write to the remote feedback store.
package feedback

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxFeedbackChars bounds the feedback text, counted in characters.
const MaxFeedbackChars = 1000

var (
	// ErrBusy is returned when Submit is called while a submission is in
	// flight. Submissions are never queued or resent silently.
	ErrBusy = errors.New("feedback: submission already in progress")

	// ErrIllegalTransition reports a state change the machine does not allow.
	ErrIllegalTransition = errors.New("feedback: illegal state transition")

	// ErrTimeout is wrapped into a SubmissionError when the store does not
	// answer within the configured timeout.
	ErrTimeout = errors.New("feedback: store did not respond in time")
)

// Form holds the current form values.
type Form struct {
	Feedback string `json:"feedback"`
	Email    string `json:"email"`
}

// ValidationError is a local validation failure. Nothing is submitted and
// the form keeps its values.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("feedback: invalid %s: %s", e.Field, e.Message)
}

// SubmissionError is a failed store insert. The form keeps its values so the
// user can retry; there is no automatic retry.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "feedback: submission failed: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Validate checks the form the way the user sees it: email shape first,
// then the feedback text.
func Validate(f Form) error {
	if f.Email != "" && !strings.Contains(f.Email, "@") {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}

	text := strings.TrimSpace(f.Feedback)
	if text == "" {
		return &ValidationError{Field: "feedback", Message: "Please enter your feedback before submitting."}
	}
	if utf8.RuneCountInString(text) > MaxFeedbackChars {
		return &ValidationError{
			Field:   "feedback",
			Message: fmt.Sprintf("Feedback must be at most %d characters.", MaxFeedbackChars),
		}
	}
	return nil
}
