// Package server implements the HTTP server for health checks and metrics.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker interface for checking component health.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	GetStatus() map[string]string
}

// Config configures the listeners. A zero port disables that listener.
type Config struct {
	HealthPort  int
	MetricsPort int
	// MetricsPath defaults to /metrics.
	MetricsPath string
}

// Server serves health probes and Prometheus metrics. When both ports are
// equal everything is served by one listener.
type Server struct {
	servers []*http.Server
	logger  *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(
	config Config,
	healthChecker HealthChecker,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Server {
	metricsPath := config.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	muxes := make(map[int]*http.ServeMux)
	mux := func(port int) *http.ServeMux {
		if m, ok := muxes[port]; ok {
			return m
		}
		m := http.NewServeMux()
		muxes[port] = m
		return m
	}

	if config.HealthPort > 0 && healthChecker != nil {
		m := mux(config.HealthPort)
		m.HandleFunc("/health/live", LivenessHandler(healthChecker, logger))
		m.HandleFunc("/health/ready", ReadinessHandler(healthChecker, logger))
	}
	if config.MetricsPort > 0 && registry != nil {
		mux(config.MetricsPort).Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s := &Server{logger: logger}
	for port, m := range muxes {
		s.servers = append(s.servers, &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      m,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		})
	}
	return s
}

// Start binds every listener and serves in the background. A port that
// cannot be bound is returned as an error and nothing is served.
func (s *Server) Start() error {
	listeners := make([]net.Listener, 0, len(s.servers))
	for _, srv := range s.servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	for i, srv := range s.servers {
		go func(srv *http.Server, ln net.Listener) {
			s.logger.Info("starting http server", "addr", srv.Addr)
			if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				s.logger.Error("http server failed", "addr", srv.Addr, "error", err)
			}
		}(srv, listeners[i])
	}

	return nil
}

// Shutdown gracefully shuts down all servers.
func (s *Server) Shutdown(ctx context.Context) error {
	if len(s.servers) == 0 {
		return nil
	}
	s.logger.Info("shutting down http servers")

	errChan := make(chan error, len(s.servers))
	for _, srv := range s.servers {
		go func(srv *http.Server) {
			errChan <- srv.Shutdown(ctx)
		}(srv)
	}

	var errs []error
	for range s.servers {
		if err := <-errChan; err != nil {
			s.logger.Error("error shutting down server", "error", err)
			errs = append(errs, err)
		}
	}

	return stderrors.Join(errs...)
}
