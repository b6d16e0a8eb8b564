package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/trackspend/expense-tracker/internal/storage"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// SchedulerStatus is the read-only slice of the scheduler the status
// endpoints report on.
type SchedulerStatus interface {
	Running() bool
	Interval() time.Duration
}

type HealthHandler struct {
	store     storage.DocStore
	scheduler SchedulerStatus
}

func NewHealthHandler(store storage.DocStore, scheduler SchedulerStatus) *HealthHandler {
	return &HealthHandler{store: store, scheduler: scheduler}
}

// pingHandler just says the service is up
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "OK"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// healthCheckHandler probes the document store
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	_, err := h.store.ListKeys(ctx, "")

	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}

	resp := HealthResponse{
		Status:     entry.Status,
		CheckedAt:  time.Now(),
		Components: map[string]CheckEntry{"document_store": entry},
	}

	statusCode := http.StatusOK
	if entry.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// systemStatusHandler reports whether the periodic processor is
// running and at what cadence.
func (h *HealthHandler) systemStatusHandler(w http.ResponseWriter, r *http.Request) {
	schedulerState := map[string]any{
		"running":  false,
		"interval": "",
	}
	if h.scheduler != nil {
		schedulerState["running"] = h.scheduler.Running()
		schedulerState["interval"] = h.scheduler.Interval().String()
	}

	resp := map[string]any{
		"status":    "OK",
		"time":      time.Now(),
		"scheduler": schedulerState,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
