// Package resilience provides a generic retry-plus-circuit-breaker wrapper
// around an idempotent external call, grounded on the health/retry
// semantics of original_source/src/clients/base.py.
package resilience

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lattice-voice/callcore/logger"
)

// Metrics is a point-in-time snapshot of a Client's observed behavior.
type Metrics struct {
	Requests     int64
	Successes    int64
	Failures     int64
	TotalLatency time.Duration
	BreakerTrips int
	BreakerState BreakerState
}

// SuccessRate returns successes/requests, or 1.0 if no requests have been made.
func (m Metrics) SuccessRate() float64 {
	if m.Requests == 0 {
		return 1.0
	}
	return float64(m.Successes) / float64(m.Requests)
}

// Client wraps an idempotent unit of work with retry and circuit-breaking.
// One Client instance should be shared across calls to the same external
// dependency (e.g. one per vendor facade) so the breaker state and metrics
// reflect that dependency's real health.
type Client struct {
	Component string
	cfg       Config
	breaker   *breaker
	limiter   *rate.Limiter

	mu           sync.Mutex
	requests     int64
	successes    int64
	failures     int64
	totalLatency time.Duration
}

// NewClient constructs a Client for the named component (used in logs and
// error messages, e.g. "stt.deepgram").
func NewClient(component string, cfg Config) *Client {
	return &Client{
		Component: component,
		cfg:       cfg,
		breaker:   newBreaker(cfg),
	}
}

// NewRateLimitedClient constructs a Client that additionally throttles
// attempts (including retries) to ratePerSecond requests/sec with the given
// burst, independent of the circuit breaker. Use this in front of vendors
// with a known request-rate ceiling (e.g. a pay-per-call STT API).
func NewRateLimitedClient(component string, cfg Config, ratePerSecond float64, burst int) *Client {
	c := NewClient(component, cfg)
	c.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	return c
}

// Execute runs fn, retrying transient failures with exponential backoff and
// respecting the circuit breaker. correlationID is generated if empty and
// propagated to logs. The zero value of T is returned alongside a
// BreakerOpenError or ExhaustedError on failure.
func Execute[T any](ctx context.Context, c *Client, correlationID string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = logger.WithCorrelationID(ctx, correlationID)

	if !c.breaker.allow() {
		logger.WarnContext(ctx, "resilience: breaker open, rejecting call", "component", c.Component)
		return zero, &BreakerOpenError{Component: c.Component}
	}

	maxAttempts := c.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.cfg.delayForAttempt(attempt)
			if c.cfg.Jitter {
				factor := 0.5 + rand.Float64()*0.5
				delay = time.Duration(float64(delay) * factor)
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		start := time.Now()
		result, err := fn(ctx)
		latency := time.Since(start)

		c.recordAttempt(latency, err == nil)

		if err == nil {
			c.breaker.recordSuccess()
			return result, nil
		}

		lastErr = err
		c.breaker.recordFailure()
		logger.WarnContext(ctx, "resilience: attempt failed", "component", c.Component, "attempt", attempt, "max_attempts", maxAttempts, "error", err)

		if !c.breaker.allow() {
			return zero, &BreakerOpenError{Component: c.Component}
		}
	}

	return zero, &ExhaustedError{Component: c.Component, Attempts: maxAttempts, Last: lastErr}
}

func (c *Client) recordAttempt(latency time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.totalLatency += latency
	if success {
		c.successes++
	} else {
		c.failures++
	}
}

// Snapshot returns the Client's current metrics.
func (c *Client) Snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{
		Requests:     c.requests,
		Successes:    c.successes,
		Failures:     c.failures,
		TotalLatency: c.totalLatency,
		BreakerTrips: c.breaker.tripCount(),
		BreakerState: c.breaker.currentState(),
	}
}

// Healthy reports breaker != Open && success_rate >= min_success_rate,
// mirroring original_source/src/clients/base.py::get_health_status.
func (c *Client) Healthy() bool {
	snap := c.Snapshot()
	if snap.BreakerState == Open {
		return false
	}
	return snap.SuccessRate() >= c.cfg.MinSuccessRate
}

// BreakerState returns the breaker's current state.
func (c *Client) BreakerState() BreakerState {
	return c.breaker.currentState()
}
