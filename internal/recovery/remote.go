// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package recovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/metrics"
	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/validate"
)

// maxRemoteBodyBytes caps the response body. The real documents are tens
// of kilobytes; anything near this limit is not our data file.
const maxRemoteBodyBytes = 8 << 20

// RemoteConfig configures the upstream pull rung.
type RemoteConfig struct {
	// URL points at the raw last-committed data document. Empty disables
	// the rung.
	URL string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// Attempts is how many pulls one rung may try.
	Attempts int
	// Interval paces the attempts.
	Interval time.Duration
}

// RemotePuller fetches the upstream copy of the data document. Attempts
// are paced by a rate limiter and guarded by a circuit breaker so a dead
// upstream fails fast instead of burning the full retry budget on every
// ladder run.
type RemotePuller struct {
	cfg     RemoteConfig
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[*model.DataDocument]
	limiter *rate.Limiter
}

// NewRemotePuller builds a puller from cfg. Zero-valued fields get
// conservative defaults.
func NewRemotePuller(cfg RemoteConfig) *RemotePuller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}

	cbName := "remote-recovery"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*model.DataDocument](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("remote recovery circuit state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &RemotePuller{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cb:      cb,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
	}
}

// Enabled reports whether a remote URL is configured.
func (p *RemotePuller) Enabled() bool {
	return p != nil && p.cfg.URL != ""
}

// Pull fetches the upstream data document, retrying up to the configured
// attempt count. The fetched body must pass structural validation before
// it is returned; a document that parses but fails shape checks counts as
// a failed attempt.
func (p *RemotePuller) Pull(ctx context.Context) (*model.DataDocument, error) {
	if !p.Enabled() {
		return nil, errors.New("recovery: remote url not configured")
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("recovery: remote pull aborted: %w", err)
		}

		doc, err := p.cb.Execute(func() (*model.DataDocument, error) {
			return p.fetch(ctx)
		})
		if err == nil {
			metrics.CircuitBreakerRequests.WithLabelValues("remote-recovery", "success").Inc()
			return doc, nil
		}

		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues("remote-recovery", "rejected").Inc()
			// The breaker will reject everything until its timeout; more
			// attempts within this rung are pointless.
			return nil, fmt.Errorf("recovery: remote circuit open: %w", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues("remote-recovery", "failure").Inc()
		logging.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", p.cfg.Attempts).
			Msg("remote pull attempt failed")
	}
	return nil, fmt.Errorf("recovery: remote pull exhausted %d attempts: %w", p.cfg.Attempts, lastErr)
}

func (p *RemotePuller) fetch(ctx context.Context) (*model.DataDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBodyBytes))
	if err != nil {
		return nil, err
	}

	res, err := validate.CheckData(raw)
	if err != nil {
		return nil, fmt.Errorf("upstream document invalid: %w", err)
	}
	if len(res.Doc.Locations) == 0 {
		return nil, errors.New("upstream document has no locations")
	}
	return res.Doc, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
