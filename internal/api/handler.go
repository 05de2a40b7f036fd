package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/schedule"
)

// ScheduleLister reports registered flows.
type ScheduleLister interface {
	Entries() []schedule.Entry
}

// Handler serves liveness and schedule status for a running scheduler.
type Handler struct {
	schedule ScheduleLister
}

// NewHandler creates a new Handler.
func NewHandler(s ScheduleLister) *Handler {
	return &Handler{schedule: s}
}

// RegisterRoutes attaches all routes to the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /schedule", h.handleSchedule)
}

// handleHealth returns 204 No Content for liveness checks.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type entryResponse struct {
	Flow string    `json:"flow"`
	Cron string    `json:"cron"`
	Next time.Time `json:"next"`
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	entries := h.schedule.Entries()
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{Flow: e.Name, Cron: e.Spec, Next: e.Next})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode schedule", "error", err)
	}
}
