// Package health provides health check functionality for poll mode.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker is a component that can be health checked.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker runs registered checks and serves the aggregate status.
type HealthChecker struct {
	config   Config
	mu       sync.RWMutex
	checks   map[string]Checker
	statuses map[string]*CheckStatus
	started  time.Time
}

// Config holds health checker configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	CheckTimeout   time.Duration
}

// CheckStatus is the status of a single health check.
type CheckStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "healthy" or "unhealthy"
	Error     string    `json:"error,omitempty"`
	LastCheck time.Time `json:"last_check"`
}

// Response is the full health response body.
type Response struct {
	Status    string                  `json:"status"`
	Service   string                  `json:"service"`
	Version   string                  `json:"version"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckStatus `json:"checks,omitempty"`
	Uptime    string                  `json:"uptime,omitempty"`
}

// NewChecker creates a health checker.
func NewChecker(config Config) *HealthChecker {
	if config.CheckTimeout == 0 {
		config.CheckTimeout = 5 * time.Second
	}
	return &HealthChecker{
		config:   config,
		checks:   make(map[string]Checker),
		statuses: make(map[string]*CheckStatus),
		started:  time.Now(),
	}
}

// AddCheck registers a health check.
func (h *HealthChecker) AddCheck(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = checker
	h.statuses[name] = &CheckStatus{Name: name, Status: "unknown"}
}

// RunChecks executes all registered checks and returns the aggregate.
func (h *HealthChecker) RunChecks(ctx context.Context) Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	overall := "healthy"
	for name, checker := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.config.CheckTimeout)
		err := checker.HealthCheck(checkCtx)
		cancel()

		status := h.statuses[name]
		status.LastCheck = time.Now()
		if err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
			overall = "unhealthy"
		} else {
			status.Status = "healthy"
			status.Error = ""
		}
	}

	return Response{
		Status:    overall,
		Service:   h.config.ServiceName,
		Version:   h.config.ServiceVersion,
		Timestamp: time.Now(),
		Checks:    h.statuses,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
}

// Handler returns an HTTP handler serving the health response.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h.RunChecks(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}
