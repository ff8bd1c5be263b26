package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// JobError is a failed attempt of a scheduler job.
type JobError struct {
	JobID     string
	Attempt   int
	Err       error
	Timestamp time.Time
}

func (e *JobError) Error() string {
	return fmt.Sprintf("[%s] attempt %d: %v at %s",
		e.JobID, e.Attempt, e.Err, e.Timestamp.Format(time.RFC3339))
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError creates a new JobError
func NewJobError(jobID string, attempt int, err error) *JobError {
	return &JobError{
		JobID:     jobID,
		Attempt:   attempt,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Second,
		MaxDelay:     5 * time.Minute,
		Multiplier:   2.0,
	}
}

// WithRetry runs fn with exponential backoff until it succeeds, returns a
// non-retryable error, or attempts run out. ctx only bounds the waits
// between attempts; fn receives the attempt number, starting at 1.
func WithRetry(ctx context.Context, cfg RetryConfig, logger *slog.Logger, fn func(attempt int) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if logger != nil {
			logger.Warn("job attempt failed",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", cfg.MaxAttempts),
				slog.String("error", err.Error()),
			)
		}
		if !IsRetryableError(err) {
			return err
		}

		// Don't wait after the last attempt
		if attempt < cfg.MaxAttempts {
			waitTime := delay
			if delay >= 4 {
				waitTime += time.Duration(rand.Int63n(int64(delay / 4)))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so WithRetry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	// Context errors should not be retried
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
