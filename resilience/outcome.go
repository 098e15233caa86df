package resilience

import "fmt"

// Outcome classifies how an Execute call concluded.
type Outcome int

const (
	// OutcomeOK means the attempt function returned a nil error.
	OutcomeOK Outcome = iota
	// OutcomeTransient means a failure occurred but was retried internally
	// and never surfaced to the caller (present for completeness; Execute
	// only returns once a terminal outcome is reached).
	OutcomeTransient
	// OutcomeExhausted means every retry attempt failed.
	OutcomeExhausted
	// OutcomeBreakerOpen means the call was rejected without being attempted.
	OutcomeBreakerOpen
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransient:
		return "transient"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeBreakerOpen:
		return "breaker_open"
	default:
		return "unknown"
	}
}

// BreakerOpenError is returned when the circuit breaker rejects a call
// without attempting it.
type BreakerOpenError struct {
	Component string
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("%s: circuit breaker open", e.Component)
}

// ExhaustedError wraps the last attempt's error once retries are consumed.
type ExhaustedError struct {
	Component string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exhausted after %d attempts: %v", e.Component, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsBreakerOpen reports whether err is a BreakerOpenError.
func IsBreakerOpen(err error) bool {
	_, ok := err.(*BreakerOpenError)
	return ok
}

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	_, ok := err.(*ExhaustedError)
	return ok
}
