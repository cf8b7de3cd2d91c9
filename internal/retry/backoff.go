package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           `json:"max_retries"` // Maximum number of retry attempts after the first try
	BaseDelay  time.Duration `json:"base_delay"`  // Base delay between retries
	MaxDelay   time.Duration `json:"max_delay"`   // Maximum delay between retries
	Multiplier float64       `json:"multiplier"`  // Exponential backoff multiplier
	Jitter     bool          `json:"jitter"`      // Add random jitter to prevent thundering herd
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int           `json:"attempts"`       // Total number of attempts made
	TotalDuration time.Duration `json:"total_duration"` // Total time spent on all attempts
	LastError     error         `json:"-"`              // Last error encountered
	Success       bool          `json:"success"`        // Whether the operation eventually succeeded
	Reasons       []string      `json:"reasons"`        // Reason recorded for each failed attempt
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// RemoteCallConfig returns the configuration used for generation requests.
// Jitter is off so the delay before each successive attempt is strictly
// increasing.
func RemoteCallConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     false,
	}
}

// Unrecoverable wraps an error that must not be retried. WithBackoff stops
// immediately when the operation returns one.
type Unrecoverable struct {
	Err error
}

func (u Unrecoverable) Error() string { return u.Err.Error() }

func (u Unrecoverable) Unwrap() error { return u.Err }

// Stop marks err as unrecoverable so the retry loop gives up at once.
func Stop(err error) error {
	return Unrecoverable{Err: err}
}

// IsUnrecoverable reports whether err carries the Unrecoverable marker.
func IsUnrecoverable(err error) bool {
	var u Unrecoverable
	return errors.As(err, &u)
}

// WithBackoff executes an operation with exponential backoff retry logic.
// The operation returns the error for the attempt plus a short reason
// string recorded in the result. Attempts are strictly sequential.
func WithBackoff(ctx context.Context, config Config, operation func() (error, string)) Result {
	startTime := time.Now()

	result := Result{
		Reasons: make([]string, 0),
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err, reason := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			return result
		}

		result.LastError = err
		result.Reasons = append(result.Reasons, reason)

		// Unrecoverable errors short-circuit the whole loop. The marker is
		// unwrapped so callers see the underlying error.
		if IsUnrecoverable(err) {
			var u Unrecoverable
			errors.As(err, &u)
			result.LastError = u.Err
			result.TotalDuration = time.Since(startTime)
			return result
		}

		if attempt >= config.MaxRetries {
			result.TotalDuration = time.Since(startTime)
			return result
		}

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		}

		delay := Delay(config, attempt)

		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		case <-time.After(delay):
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}

// Delay calculates the backoff delay after the given zero-based attempt
// index: baseDelay * multiplier^attempt, capped at MaxDelay.
func Delay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		// Up to 10% random jitter
		jitterRange := delay * 0.1
		jitter := (rand.Float64() - 0.5) * 2 * jitterRange
		delay += jitter

		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}

	return time.Duration(delay)
}
