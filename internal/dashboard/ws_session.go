package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cotlab/cot-analytics/internal/feedback"
	"github.com/cotlab/cot-analytics/internal/metrics"
	"github.com/cotlab/cot-analytics/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 16 << 10
)

// Client message types.
const (
	MsgSelect   = "select"
	MsgToggle   = "toggle"
	MsgFeedback = "feedback"
)

// Server message types.
const (
	MsgPage         = "page"
	MsgNotification = "notification"
	MsgError        = "error"
)

// ClientMessage is a JSON message received from a WebSocket client.
type ClientMessage struct {
	Type     string `json:"type"`
	Market   string `json:"market,omitempty"`
	Absolute bool   `json:"absolute,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ServerMessage is a JSON message sent to a WebSocket client.
type ServerMessage struct {
	Type         string                 `json:"type"`
	Page         *view.Page             `json:"page,omitempty"`
	Notification *feedback.Notification `json:"notification,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// session is one connected user. The read loop owns state and input; the
// feedback machine is shared with at most one in-flight submission.
type session struct {
	svc     *Service
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	state   view.Session
	input   view.Input
	machine *feedback.Machine
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
//
// The server renders the default page on connect, then re-renders after
// every select or toggle message. Feedback messages are submitted in the
// background; their notifications arrive as separate messages.
func (s *Service) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	sess := &session{
		svc:  s,
		conn: conn,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
	}
	sess.machine = feedback.NewMachine(s.store, feedback.NotifierFunc(sess.notify), s.timeout)

	metrics.Sessions.Inc()
	slog.Info("ws session opened", "remote", r.RemoteAddr)

	go sess.writePump()
	sess.readPump(context.WithoutCancel(r.Context()))

	metrics.Sessions.Dec()
	slog.Info("ws session closed", "remote", r.RemoteAddr)
}

// readPump processes client messages until the connection fails.
func (s *session) readPump(ctx context.Context) {
	defer close(s.done)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	s.rerender()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read failed", "err", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.push(ServerMessage{Type: MsgError, Error: "invalid message"})
			continue
		}
		s.handle(ctx, msg)
	}
}

func (s *session) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case MsgSelect:
		s.input.Market = msg.Market
		s.rerender()
	case MsgToggle:
		s.input.AbsoluteView = msg.Absolute
		s.rerender()
	case MsgFeedback:
		form := feedback.Form{Feedback: msg.Feedback, Email: msg.Email}
		go func() {
			_, err := s.machine.Submit(ctx, form)
			if errors.Is(err, feedback.ErrBusy) {
				s.push(ServerMessage{Type: MsgError, Error: "a submission is already in progress"})
			}
		}()
	default:
		s.push(ServerMessage{Type: MsgError, Error: "unknown message type: " + msg.Type})
	}
}

// rerender recomputes the page from the current input and carries the
// session forward. An error page leaves the session untouched.
func (s *session) rerender() {
	page, next, _ := s.svc.render(s.state, s.input)
	s.state = next
	s.push(ServerMessage{Type: MsgPage, Page: &page})
}

func (s *session) notify(n feedback.Notification) {
	s.push(ServerMessage{Type: MsgNotification, Notification: &n})
}

// push queues a message for the write pump. It drops the message once the
// session has ended.
func (s *session) push(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws marshal failed", "type", msg.Type, "err", err)
		return
	}
	select {
	case s.send <- data:
	case <-s.done:
	}
}

// writePump is the only writer on the connection. It also keeps the
// connection alive through proxies with periodic pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
