package resilience

import (
	"sync"
	"time"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// breaker is a three-state circuit breaker. It is safe for concurrent use;
// callers go through Client.Execute rather than this type directly.
type breaker struct {
	mu sync.Mutex

	state            BreakerState
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	trips                int
}

func newBreaker(cfg Config) *breaker {
	return &breaker{
		state:            Closed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		recoveryTimeout:  cfg.RecoveryTimeout,
	}
}

// allow reports whether a call may proceed, transitioning Open -> HalfOpen
// when the recovery timeout has elapsed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if time.Since(b.openedAt) >= b.recoveryTimeout {
			b.state = HalfOpen
			b.consecutiveSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.consecutiveFailures = 0
	case HalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			b.state = Closed
			b.consecutiveFailures = 0
			b.consecutiveSuccesses = 0
		}
	}
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.trip()
		}
	case HalfOpen:
		b.trip()
	}
}

// trip moves the breaker to Open. Caller must hold b.mu.
func (b *breaker) trip() {
	b.state = Open
	b.openedAt = time.Now()
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.trips++
}

func (b *breaker) currentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) tripCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}
