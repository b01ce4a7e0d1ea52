// Package retry provides exponential backoff for calls to remote providers.
package retry

import (
	"context"
	"errors"
	"time"
)

// Config configures exponential backoff retry behavior
type Config struct {
	MaxAttempts int           // Total attempts including the first
	BaseDelay   time.Duration // Initial delay between attempts
	MaxDelay    time.Duration // Maximum delay between attempts
	Multiplier  float64       // Exponential backoff multiplier
}

// DefaultConfig returns defaults suited to HTTP model APIs
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   1000 * time.Millisecond,
		MaxDelay:    10000 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it without further attempts
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do executes fn with exponential backoff between failed attempts.
// Retry stops on context cancellation or a Permanent error.
func Do[T any](ctx context.Context, config Config, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T

	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := config.BaseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if config.MaxDelay > 0 && backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
