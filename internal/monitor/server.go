// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/parkir-ops/parkir-ops/internal/config"
	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/model"
)

// Server is the long-running monitor: an HTTP endpoint trio plus a
// periodic health checker, both supervised by suture.
type Server struct {
	cfg        config.MonitorConfig
	configPath string
	dataPath   string

	mu     sync.RWMutex
	latest *HealthReport
}

// NewServer builds the monitor server from the engine configuration.
func NewServer(cfg config.MonitorConfig, configPath, dataPath string) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		dataPath:   dataPath,
	}
}

// Run starts the supervised services and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	handler := &sutureslog.Handler{Logger: logging.Slogger()}
	sup := suture.New("parkirops-monitor", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})

	sup.Add(&httpService{server: s})
	sup.Add(&checkerService{server: s})

	logging.Info().
		Str("addr", s.addr()).
		Dur("check_interval", s.cfg.CheckInterval).
		Msg("monitor server starting")
	return sup.Serve(ctx)
}

func (s *Server) addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
}

// router wires the endpoint trio with CORS and rate limiting.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(s.cfg.RateLimitReqs, s.cfg.RateLimitWindow))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/statusz", s.handleStatusz)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleHealthz runs a fresh check and maps health to the status code so
// probes need only the code, not the body.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	rep := s.refresh()
	code := http.StatusOK
	if !rep.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, rep)
}

// handleStatusz serves the current statistics block plus the last health
// report, for the dashboards.
func (s *Server) handleStatusz(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	status := struct {
		Statistics *model.Statistics `json:"statistics,omitempty"`
		Metadata   *model.Metadata   `json:"metadata,omitempty"`
		LastCheck  *HealthReport     `json:"last_check,omitempty"`
	}{LastCheck: latest}

	if doc, _, err := model.LoadDataDocument(s.dataPath); err == nil {
		status.Statistics = &doc.Statistics
		status.Metadata = &doc.Metadata
	}
	writeJSON(w, http.StatusOK, status)
}

// refresh runs a health check and caches the report.
func (s *Server) refresh() *HealthReport {
	rep := Check(s.configPath, s.dataPath)
	s.mu.Lock()
	s.latest = rep
	s.mu.Unlock()
	return rep
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("response encoding failed")
	}
}

// httpService runs the HTTP server as a suture service.
type httpService struct {
	server *Server
}

func (h *httpService) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              h.server.addr(),
		Handler:           h.server.router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("monitor http shutdown incomplete")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (h *httpService) String() string { return "monitor-http" }

// checkerService re-probes document health on the configured interval.
type checkerService struct {
	server *Server
}

func (c *checkerService) Serve(ctx context.Context) error {
	interval := c.server.cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}

	// Prime the cache so /statusz has a report before the first tick.
	c.server.refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rep := c.server.refresh()
			if !rep.Healthy {
				logging.Warn().
					Strs("problems", rep.Problems).
					Msg("periodic health check failed")
			}
		}
	}
}

func (c *checkerService) String() string { return "monitor-checker" }
