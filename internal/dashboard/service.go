// Package dashboard provides the HTTP handlers and WebSocket sessions that
// serve the positioning dashboard and accept user feedback.
package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cotlab/cot-analytics/internal/feedback"
	"github.com/cotlab/cot-analytics/internal/market"
	"github.com/cotlab/cot-analytics/internal/metrics"
	"github.com/cotlab/cot-analytics/internal/model"
	"github.com/cotlab/cot-analytics/internal/store"
	"github.com/cotlab/cot-analytics/internal/view"
)

// Service serves the dashboard. The catalog is read-only after startup, so
// handlers share it without locking; all per-user state lives in the
// request or in the WebSocket session.
type Service struct {
	catalog *market.Catalog
	loadErr error
	store   store.FeedbackStore
	timeout time.Duration
}

// NewService creates a dashboard service. loadErr is the error from loading
// the catalog, if any; every render then shows it instead of data.
func NewService(cat *market.Catalog, loadErr error, st store.FeedbackStore, timeout time.Duration) *Service {
	return &Service{
		catalog: cat,
		loadErr: loadErr,
		store:   st,
		timeout: timeout,
	}
}

// --- Request/Response types ---

// MarketsResponse is the JSON body returned from GET /markets.
type MarketsResponse struct {
	Markets []string `json:"markets"`
	Count   int      `json:"count"`
}

// FeedbackResponse is the JSON body returned from POST /feedback.
type FeedbackResponse struct {
	Feedback      *model.Feedback         `json:"feedback,omitempty"`
	Notifications []feedback.Notification `json:"notifications"`
	Error         string                  `json:"error,omitempty"`
	Field         string                  `json:"field,omitempty"`
}

// --- HTTP Handlers ---

// ListMarkets handles GET /api/v1/markets
func (s *Service) ListMarkets(w http.ResponseWriter, r *http.Request) {
	if s.loadErr != nil || s.catalog == nil {
		page, _, _ := s.render(view.Session{}, view.Input{})
		writeError(w, page.Error, http.StatusUnprocessableEntity)
		return
	}

	names := s.catalog.Names()
	writeJSON(w, http.StatusOK, MarketsResponse{Markets: names, Count: len(names)})
}

// GetDashboard handles GET /api/v1/dashboard?market=&absolute=
//
// The endpoint is stateless: every call renders as a fresh session.
func (s *Service) GetDashboard(w http.ResponseWriter, r *http.Request) {
	in := view.Input{Market: r.URL.Query().Get("market")}
	if raw := r.URL.Query().Get("absolute"); raw != "" {
		abs, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, "absolute must be a boolean", http.StatusBadRequest)
			return
		}
		in.AbsoluteView = abs
	}

	page, _, err := s.render(view.Session{}, in)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, market.ErrDataFormat) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, page.Error, status)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SubmitFeedback handles POST /api/v1/feedback
func (s *Service) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var form feedback.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec := &feedback.Recorder{}
	machine := feedback.NewMachine(s.store, rec, s.timeout)
	doc, err := machine.Submit(r.Context(), form)

	resp := FeedbackResponse{Feedback: doc, Notifications: rec.Notifications()}
	if err == nil {
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	resp.Error = err.Error()
	var verr *feedback.ValidationError
	var serr *feedback.SubmissionError
	switch {
	case errors.As(err, &verr):
		resp.Error, resp.Field = verr.Message, verr.Field
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &serr):
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		slog.Error("feedback submit failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// Ready handles GET /ready by pinging the feedback store.
func (s *Service) Ready(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, "feedback store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// render runs one view render and records its outcome.
func (s *Service) render(sess view.Session, in view.Input) (view.Page, view.Session, error) {
	page, next, err := view.Render(s.catalog, s.loadErr, sess, in)
	if err != nil {
		kind := "internal"
		if errors.Is(err, market.ErrDataFormat) {
			kind = "data"
		}
		metrics.RenderErrors.WithLabelValues(kind).Inc()
		slog.Warn("dashboard render failed", "market", in.Market, "err", err)
		return page, next, err
	}

	mode := "normalized"
	if in.AbsoluteView {
		mode = "absolute"
	}
	metrics.DashboardRenders.WithLabelValues(mode).Inc()
	return page, next, nil
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
