package llm

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig controls per-endpoint retries before the client falls back to
// the next endpoint in the capability chain.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per endpoint.
	MaxAttempts int

	// BackoffBase is the wait before the second attempt.
	BackoffBase time.Duration

	// BackoffMultiplier grows the wait on each further attempt.
	BackoffMultiplier float64

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the retry defaults for LLM requests.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// Validate checks the retry configuration.
func (r RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", r.MaxAttempts)
	}
	if r.BackoffBase < 0 || r.MaxBackoff < 0 {
		return fmt.Errorf("backoff durations must not be negative")
	}
	if r.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff multiplier must be at least 1, got %g", r.BackoffMultiplier)
	}
	return nil
}

// Backoff returns the wait after the given failed attempt (1-based), with
// +/-25% jitter so concurrent callers do not retry in lockstep.
func (r RetryConfig) Backoff(attempt int) time.Duration {
	wait := float64(r.BackoffBase)
	for i := 1; i < attempt; i++ {
		wait *= r.BackoffMultiplier
	}
	if maxWait := float64(r.MaxBackoff); r.MaxBackoff > 0 && wait > maxWait {
		wait = maxWait
	}

	jitter := wait * 0.25 * (rand.Float64()*2 - 1)
	return time.Duration(wait + jitter)
}
