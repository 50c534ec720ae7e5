package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Component states reported by State.
const (
	StatusStarting = "starting"
	StatusOK       = "ok"
	StatusStopping = "stopping"
	StatusFailed   = "failed"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// State is a HealthChecker over named components. The process is live until a
// component fails and ready while every component is ok.
type State struct {
	mu         sync.RWMutex
	components map[string]string
}

var _ HealthChecker = (*State)(nil)

// NewState creates a state with every component starting.
func NewState(components ...string) *State {
	s := &State{components: make(map[string]string, len(components))}
	for _, c := range components {
		s.components[c] = StatusStarting
	}
	return s
}

// Set records the status of a component, adding it if needed.
func (s *State) Set(component, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components[component] = status
}

// Liveness reports whether no component has failed.
func (s *State) Liveness() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, status := range s.components {
		if status == StatusFailed {
			return false
		}
	}
	return true
}

// Readiness reports whether every component is ok.
func (s *State) Readiness(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, status := range s.components {
		if status != StatusOK {
			return false
		}
	}
	return true
}

// GetStatus returns a copy of the component states.
func (s *State) GetStatus() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.components))
	for c, status := range s.components {
		out[c] = status
	}
	return out
}

// Components returns the component names in sorted order.
func (s *State) Components() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.components))
	for c := range s.components {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness probes should only fail if the process needs to be restarted.
func LivenessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		writeHealth(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, logger)
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes. The
// stream command is ready once its consumer group session has started.
func ReadinessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		writeHealth(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checker.GetStatus(),
		}, logger)
	}
}

func writeHealth(w http.ResponseWriter, statusCode int, response HealthResponse, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode health response", "status", response.Status, "error", err)
	}
}
