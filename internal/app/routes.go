package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"object-denormalizer/internal/circuitbreaker"
	"object-denormalizer/internal/common/logging"
	"object-denormalizer/internal/middleware"
)

// Health statuses reported by /health
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type componentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the /health body
type HealthResponse struct {
	Status        string               `json:"status"`
	Broker        componentHealth      `json:"broker"`
	CacheStore    componentHealth      `json:"cache_store"`
	SearchBreaker circuitbreaker.Stats `json:"search_breaker"`
	Strategies    []string             `json:"strategies"`
	Timestamp     time.Time            `json:"timestamp"`
}

// SetupRoutes configures the operational HTTP routes
func (app *App) SetupRoutes(router *mux.Router) {
	router.Use(middleware.Logging(app.Logger))

	router.HandleFunc("/health", app.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", app.MetricsSnapshot).Methods(http.MethodGet)
}

func check(name string, fn func() error) componentHealth {
	if err := fn(); err != nil {
		return componentHealth{Name: name, Error: err.Error()}
	}
	return componentHealth{Name: name, Healthy: true}
}

// HealthCheck reports broker and cache store health. A search breaker that
// is not closed only degrades the status.
func (app *App) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        StatusHealthy,
		Broker:        check(app.Broker.Name(), app.Broker.Health),
		CacheStore:    check(app.Config.CacheStore, app.Store.Health),
		SearchBreaker: app.Search.Stats(),
		Strategies:    app.Strategies.Types(),
		Timestamp:     time.Now(),
	}

	status := http.StatusOK
	switch {
	case !response.Broker.Healthy || !response.CacheStore.Healthy:
		response.Status = StatusUnhealthy
		status = http.StatusServiceUnavailable
	case response.SearchBreaker.State != circuitbreaker.StateClosed.String():
		response.Status = StatusDegraded
	}

	writeJSON(w, status, response, app.Logger)
}

// MetricsSnapshot returns the job counters
func (app *App) MetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Metrics.Snapshot(), app.Logger)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}, logger logging.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write response", logging.Field{Key: "error", Value: err})
	}
}
