package resilience

import "time"

// Config parameterizes retry and circuit-breaker behavior for a Client.
type Config struct {
	// Retry
	MaxAttempts     int           `yaml:"max_attempts"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base"`
	Jitter          bool          `yaml:"jitter"`

	// Circuit breaker
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`

	// Health verdict
	MinSuccessRate float64 `yaml:"min_success_rate"`
}

// DefaultConfig returns the retry/breaker defaults named in the
// configuration option table.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		BaseDelay:        200 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		ExponentialBase:  2.0,
		Jitter:           true,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
		MinSuccessRate:   0.5,
	}
}

// delayForAttempt returns the backoff delay before attempt k (1-indexed),
// before jitter is applied.
func (c Config) delayForAttempt(k int) time.Duration {
	base := float64(c.BaseDelay)
	exp := c.ExponentialBase
	if exp <= 0 {
		exp = 2.0
	}
	delay := base
	for i := 1; i < k; i++ {
		delay *= exp
	}
	if c.MaxDelay > 0 && time.Duration(delay) > c.MaxDelay {
		delay = float64(c.MaxDelay)
	}
	return time.Duration(delay)
}
