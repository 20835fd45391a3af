// Package server provides the operational HTTP surface: health probes,
// metrics scraping, and on-demand audit chain verification.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/internal/db"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	sqlDB  *sql.DB
	logger *zap.Logger
	mu     sync.RWMutex
	ready  bool
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Checks      map[string]string `json:"checks,omitempty"`
	Description string            `json:"description,omitempty"`
}

// NewHealthHandler creates a new health handler. The database handle may be
// nil when the server runs against in-memory stores.
func NewHealthHandler(sqlDB *sql.DB, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		sqlDB:  sqlDB,
		logger: logger,
		ready:  true,
	}
}

// SetReady updates the readiness status
func (h *HealthHandler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the current readiness status
func (h *HealthHandler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Health handles GET /health - Basic liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthStatus{
		Status:      "UP",
		Timestamp:   time.Now().UTC(),
		Description: "Compliance engine is running",
	})

	h.logger.Debug("Health check completed")
}

// Ready handles GET /health/ready - Readiness with dependency checks
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	allReady := h.IsReady()

	if h.sqlDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.sqlDB.PingContext(ctx); err != nil {
			checks["database"] = "unreachable"
			allReady = false
		} else if err := db.CheckSchema(ctx, h.sqlDB); err != nil {
			checks["database"] = "schema_incomplete"
			allReady = false
		} else {
			checks["database"] = "ready"
		}
	}

	statusCode := http.StatusOK
	statusStr := "UP"
	description := "Ready to accept checks"
	if !allReady {
		statusCode = http.StatusServiceUnavailable
		statusStr = "DOWN"
		description = "Not all dependencies are ready"
	}

	writeJSON(w, statusCode, HealthStatus{
		Status:      statusStr,
		Timestamp:   time.Now().UTC(),
		Checks:      checks,
		Description: description,
	})

	h.logger.Debug("Readiness check completed",
		zap.String("status", statusStr),
		zap.Bool("ready", allReady),
	)
}

// Live handles GET /health/live - Kubernetes liveness probe
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthStatus{
		Status:      "ALIVE",
		Timestamp:   time.Now().UTC(),
		Description: "Process is alive and responding",
	})
}

// RegisterHealthHandlers registers all health check handlers with the HTTP mux
func RegisterHealthHandlers(mux *http.ServeMux, handler *HealthHandler) {
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/health/ready", handler.Ready)
	mux.HandleFunc("/health/live", handler.Live)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
