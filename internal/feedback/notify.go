package feedback

import "sync"

// Kind classifies a notification for the presentation layer.
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

// Notification is a transient, user-visible message (a toast).
type Notification struct {
	Kind    Kind   `json:"kind"`
	Icon    string `json:"icon,omitempty"`
	Message string `json:"message"`
}

// Notifier receives notifications as the machine emits them.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Recorder collects notifications in emission order.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

func sending() Notification {
	return Notification{Kind: KindInfo, Icon: "📤", Message: "Sending your feedback..."}
}

func thankYou() Notification {
	return Notification{Kind: KindSuccess, Icon: "✨", Message: "Thank you for your feedback!"}
}

func warning(msg string) Notification {
	return Notification{Kind: KindWarning, Icon: "⚠️", Message: msg}
}

func failure(err error) Notification {
	return Notification{Kind: KindError, Message: "Failed to save feedback: " + err.Error()}
}
