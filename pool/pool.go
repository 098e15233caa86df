// Package pool implements a generic, fixed-floor/elastic-ceiling connection
// pool. It serves the media-server API connection pool and, equally, a pool
// of resilience-wrapped vendor clients.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lattice-voice/callcore/logger"
)

// ConnState is a pooled connection's lifecycle state.
type ConnState int

const (
	Connected ConnState = iota
	Reconnecting
	Failed
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Factory constructs a new underlying client of type T.
type Factory[T any] func(ctx context.Context) (T, error)

// Prober issues a lightweight no-op request against a client to verify
// liveness and sample latency.
type Prober[T any] func(ctx context.Context, client T) error

// entry wraps one pooled client with its lifecycle metrics.
type entry[T any] struct {
	client T

	state ConnState
	inUse bool

	lastUsed       time.Time
	lastProbe      time.Time
	currentLatency time.Duration
	avgLatency     time.Duration
	requests       int
	failedRequests int
	reconnects     int
}

// ErrAtCeiling is returned internally when Acquire cannot expand further;
// callers see it surface only if the backoff loop is exhausted.
var ErrAtCeiling = errors.New("pool: at ceiling, no connection available")

// Config parameterizes pool sizing and acquire-wait behavior.
type Config struct {
	InitialSize     int
	MaxSize         int // explicit ceiling always wins over 2x-initial default
	AcquireWait     time.Duration
	AcquireAttempts int
}

// resolveCeiling returns the configured ceiling, defaulting to 2x initial
// size only when no explicit ceiling was supplied.
func (c Config) resolveCeiling() int {
	if c.MaxSize > 0 {
		return c.MaxSize
	}
	return c.InitialSize * 2
}

// Pool is a generic connection pool over client type T.
type Pool[T any] struct {
	mu      sync.Mutex
	entries []*entry[T]

	factory Factory[T]
	prober  Prober[T]
	cfg     Config
}

// New constructs a pool and eagerly fills it to Config.InitialSize.
func New[T any](ctx context.Context, cfg Config, factory Factory[T], prober Prober[T]) (*Pool[T], error) {
	if cfg.AcquireWait <= 0 {
		cfg.AcquireWait = 50 * time.Millisecond
	}
	if cfg.AcquireAttempts <= 0 {
		cfg.AcquireAttempts = 20
	}

	p := &Pool[T]{factory: factory, prober: prober, cfg: cfg}

	for i := 0; i < cfg.InitialSize; i++ {
		client, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		e := &entry[T]{client: client, state: Connected, lastUsed: time.Now()}
		_ = p.probeEntry(ctx, e)
		p.entries = append(p.entries, e)
	}

	return p, nil
}

// Handle is returned by Acquire; Release must be called exactly once.
type Handle[T any] struct {
	Client T
	entry  *entry[T]
	pool   *Pool[T]
}

// Release returns the connection to the pool without closing it.
func (h Handle[T]) Release() {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	h.entry.inUse = false
}

// Acquire scans for an idle Connected entry; if none exists and the pool is
// below its ceiling, constructs and probes a new one; otherwise waits in a
// short backoff loop and retries.
func (p *Pool[T]) Acquire(ctx context.Context) (Handle[T], error) {
	for attempt := 0; attempt < p.cfg.AcquireAttempts; attempt++ {
		if h, ok := p.tryAcquire(ctx); ok {
			return h, nil
		}

		select {
		case <-ctx.Done():
			return Handle[T]{}, ctx.Err()
		case <-time.After(p.cfg.AcquireWait):
		}
	}
	return Handle[T]{}, ErrAtCeiling
}

func (p *Pool[T]) tryAcquire(ctx context.Context) (Handle[T], bool) {
	p.mu.Lock()
	for _, e := range p.entries {
		if e.state == Connected && !e.inUse {
			e.inUse = true
			e.lastUsed = time.Now()
			client := e.client
			p.mu.Unlock()
			return Handle[T]{Client: client, entry: e, pool: p}, true
		}
	}
	ceiling := p.cfg.resolveCeiling()
	canExpand := len(p.entries) < ceiling
	p.mu.Unlock()

	if !canExpand {
		return Handle[T]{}, false
	}

	client, err := p.factory(ctx)
	if err != nil {
		logger.Warn("pool: failed to construct new connection", "error", err)
		return Handle[T]{}, false
	}

	e := &entry[T]{client: client, state: Connected, inUse: true, lastUsed: time.Now()}
	_ = p.probeEntry(ctx, e)

	p.mu.Lock()
	p.entries = append(p.entries, e)
	p.mu.Unlock()

	return Handle[T]{Client: client, entry: e, pool: p}, true
}

// WithConnection acquires a connection, runs fn, and guarantees release on
// both normal and exceptional exit.
func (p *Pool[T]) WithConnection(ctx context.Context, fn func(client T) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(h.Client)
}

// probeEntry issues a single no-op request, updating latency metrics and
// state on success or failure. Caller need not hold p.mu; probeEntry only
// touches its own entry.
func (p *Pool[T]) probeEntry(ctx context.Context, e *entry[T]) error {
	start := time.Now()
	err := p.prober(ctx, e.client)
	latency := time.Since(start)

	e.lastProbe = time.Now()
	e.requests++

	if err != nil {
		e.failedRequests++
		e.state = Failed
		return err
	}

	e.currentLatency = latency
	if e.avgLatency == 0 {
		e.avgLatency = latency
	} else {
		e.avgLatency = (e.avgLatency + latency) / 2
	}
	e.state = Connected
	return nil
}

// reconnectBaseDelay is the base for the k=base*2^k second reconnect policy.
const reconnectBaseDelay = time.Second

// maxReconnectAttempts bounds a single Reconnect call.
const maxReconnectAttempts = 5

// Reconnect attempts to replace a Failed entry's underlying client, up to
// maxReconnectAttempts times with exponential backoff. The first successful
// probe returns the entry to Connected and increments its reconnect count.
// All attempts failing leaves the entry Failed in the pool for the health
// observer to retry later.
func (p *Pool[T]) Reconnect(ctx context.Context, h Handle[T]) error {
	e := h.entry
	e.state = Reconnecting

	var lastErr error
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		delay := reconnectBaseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		client, err := p.factory(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		e.client = client
		if err := p.probeEntry(ctx, e); err != nil {
			lastErr = err
			continue
		}

		e.reconnects++
		return nil
	}

	e.state = Failed
	return lastErr
}

// EntrySnapshot is a point-in-time, read-only view of one pooled entry.
type EntrySnapshot struct {
	State          ConnState
	InUse          bool
	LastUsed       time.Time
	LastProbe      time.Time
	CurrentLatency time.Duration
	AvgLatency     time.Duration
	Requests       int
	FailedRequests int
	Reconnects     int
}

// Snapshot returns a copy of every entry's current state, for the health
// observer's aggregation pass.
func (p *Pool[T]) Snapshot() []EntrySnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]EntrySnapshot, len(p.entries))
	for i, e := range p.entries {
		out[i] = EntrySnapshot{
			State:          e.state,
			InUse:          e.inUse,
			LastUsed:       e.lastUsed,
			LastProbe:      e.lastProbe,
			CurrentLatency: e.currentLatency,
			AvgLatency:     e.avgLatency,
			Requests:       e.requests,
			FailedRequests: e.failedRequests,
			Reconnects:     e.reconnects,
		}
	}
	return out
}

// ProbeStale probes every non-in-use entry whose last probe is older than
// interval, attempting reconnect on failure. Used by the health observer's
// periodic loop.
func (p *Pool[T]) ProbeStale(ctx context.Context, interval time.Duration) {
	p.mu.Lock()
	var stale []*entry[T]
	now := time.Now()
	for _, e := range p.entries {
		if !e.inUse && now.Sub(e.lastProbe) > interval {
			stale = append(stale, e)
		}
	}
	p.mu.Unlock()

	for _, e := range stale {
		if err := p.probeEntry(ctx, e); err != nil {
			h := Handle[T]{Client: e.client, entry: e, pool: p}
			if err := p.Reconnect(ctx, h); err != nil {
				logger.Warn("pool: reconnect failed", "error", err)
			}
		}
	}
}

// Size returns the pool's current entry count.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
