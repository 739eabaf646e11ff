package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"CryptoSentinel/internal/model"
	"CryptoSentinel/internal/recorder"
	"CryptoSentinel/internal/tracker"

	"github.com/gorilla/mux"
)

// SignalStore is the read side of the signal tracker.
type SignalStore interface {
	All() []model.MonitoredSignal
	Get(id string) (model.MonitoredSignal, error)
}

// StatsSource reports recorded activity.
type StatsSource interface {
	Stats(since time.Time) (recorder.Stats, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	signals SignalStore
	stats   StatsSource
	started time.Time
	now     func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(signals SignalStore, stats StatsSource) *Handler {
	return &Handler{
		signals: signals,
		stats:   stats,
		started: time.Now().UTC(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetSignals handles GET /signals with an optional ?status= filter.
func (h *Handler) GetSignals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	all := h.signals.All()
	out := make([]model.MonitoredSignal, 0, len(all))
	for _, s := range all {
		if status == "" || string(s.Status) == status {
			out = append(out, s)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// GetSignal handles GET /signals/{id}.
func (h *Handler) GetSignal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s, err := h.signals.Get(id)
	if errors.Is(err, tracker.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// GetStats handles GET /stats for the trailing 24 hours, plus open signals.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(h.now().Add(-24 * time.Hour))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	open := 0
	for _, s := range h.signals.All() {
		if s.Status == model.SignalOpen {
			open++
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"window":       "24h",
		"stats":        stats,
		"open_signals": open,
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"uptime": h.now().Sub(h.started).Round(time.Second).String(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
