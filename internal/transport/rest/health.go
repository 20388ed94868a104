package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
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

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// QueueStats is satisfied by the payment poll dispatcher.
type QueueStats interface {
	Stats() (queued, capacity, workers int)
}

type HealthHandler struct {
	db    Pinger
	queue QueueStats
}

func NewHealthHandler(db Pinger, queue QueueStats) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

// pingHandler is the liveness probe.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler is the readiness probe: the database must answer, and a full poll
// queue degrades the service without failing it.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	components := map[string]CheckEntry{}
	overall := HealthHealthy

	if h.db != nil {
		entry := h.checkDatabase(r.Context())
		components["postgres"] = entry
		if entry.Status == HealthUnhealthy {
			overall = HealthUnhealthy
		}
	}

	if h.queue != nil {
		entry := h.checkQueue()
		components["payment_poller"] = entry
		if entry.Status == HealthDegraded && overall == HealthHealthy {
			overall = HealthDegraded
		}
	}

	statusCode := http.StatusOK
	if overall == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:     overall,
		CheckedAt:  time.Now(),
		Components: components,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckEntry {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)

	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	return entry
}

func (h *HealthHandler) checkQueue() CheckEntry {
	queued, capacity, workers := h.queue.Stats()
	entry := CheckEntry{
		Status:    HealthHealthy,
		CheckedAt: time.Now(),
		Details: map[string]any{
			"queued":   queued,
			"capacity": capacity,
			"workers":  workers,
		},
	}
	if capacity > 0 && queued >= capacity {
		entry.Status = HealthDegraded
		entry.Message = "poll queue is full"
	}
	return entry
}
