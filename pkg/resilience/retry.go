package resilience

import (
	"context"
	"time"

	"github.com/histochat/backend/pkg/logger"
)

// RetryConfig holds configuration for a bounded retry policy
type RetryConfig struct {
	Name string
	// Attempts is the total number of attempts, including the first one
	Attempts int
	// Delay is the fixed wait between attempts
	Delay time.Duration
}

// DefaultRetryConfig returns the standard 3-attempt, 1-second policy
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:     name,
		Attempts: 3,
		Delay:    time.Second,
	}
}

// Retrier executes operations under a bounded retry policy with a fixed
// inter-attempt delay. The loop is explicit rather than recursive so the
// attempt count and cancellation behavior stay easy to reason about.
type Retrier struct {
	config RetryConfig
	log    *logger.Logger
	// ShouldRetry decides whether an error is worth another attempt;
	// nil means every error is retried
	ShouldRetry func(error) bool
}

// NewRetrier creates a retrier with the given config
func NewRetrier(config RetryConfig, log *logger.Logger) *Retrier {
	if config.Attempts < 1 {
		config.Attempts = 1
	}
	return &Retrier{config: config, log: log}
}

// Do runs fn up to the configured number of attempts, waiting the fixed
// delay between failures. The delay is abandoned if ctx is cancelled.
// Returns the last error along with the number of attempts made.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.config.Attempts; attempt++ {
		start := time.Now()
		err := fn(ctx)
		if r.log != nil {
			r.log.LogUpstreamAttempt(r.config.Name, attempt, time.Since(start), err)
		}
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if r.ShouldRetry != nil && !r.ShouldRetry(err) {
			return attempt, lastErr
		}
		if attempt == r.config.Attempts {
			break
		}

		select {
		case <-time.After(r.config.Delay):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
	}

	return r.config.Attempts, lastErr
}
