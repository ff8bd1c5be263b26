package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.InitialDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		failures     int
		err          error
		maxAttempts  int
		wantErr      bool
		wantAttempts int
	}{
		{name: "first attempt succeeds", failures: 0, maxAttempts: 5, wantAttempts: 1},
		{name: "succeeds after two failures", failures: 2, err: errors.New("db unavailable"), maxAttempts: 5, wantAttempts: 3},
		{name: "exhausts attempts", failures: 10, err: errors.New("db unavailable"), maxAttempts: 5, wantErr: true, wantAttempts: 5},
		{name: "permanent error stops early", failures: 10, err: Permanent(errors.New("bad schedule")), maxAttempts: 5, wantErr: true, wantAttempts: 1},
		{name: "canceled is not retried", failures: 10, err: context.Canceled, maxAttempts: 5, wantErr: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			err := WithRetry(context.Background(), fastRetry(tt.maxAttempts), nil, func(attempt int) error {
				attempts++
				assert.Equal(t, attempts, attempt)
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestWithRetry_ContextCanceledDuringWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2}

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- WithRetry(ctx, cfg, nil, func(int) error {
			attempts++
			return errors.New("still down")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancel")
	}
}

func TestJobError(t *testing.T) {
	t.Parallel()

	base := errors.New("list active tenants: connection refused")
	err := NewJobError("daily:2026-10-16", 2, base)

	assert.Contains(t, err.Error(), "[daily:2026-10-16] attempt 2")
	assert.ErrorIs(t, err, base)
}
