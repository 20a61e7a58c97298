package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo_RetriesUntilSuccess(t *testing.T) {
	r := New(WithMaxAttempts(3), WithInitialDelay(0), WithJitter(0))
	calls := 0

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("flaky"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	r := New(WithMaxAttempts(5), WithInitialDelay(0))
	calls := 0
	cause := errors.New("not found")

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsUnwrappedErrorAfterLastAttempt(t *testing.T) {
	r := New(WithMaxAttempts(2), WithInitialDelay(time.Millisecond), WithJitter(0))
	cause := errors.New("timeout")

	err := r.Do(context.Background(), func(ctx context.Context) error {
		return Retryable(cause)
	})

	assert.Equal(t, cause, err)
}

func TestRosterFetchRetrier_ReportsRetries(t *testing.T) {
	var delays []time.Duration
	r := RosterFetchRetrier(3, time.Millisecond, WithJitter(0), WithOnRetry(func(attempt int, err error, delay time.Duration) {
		assert.Equal(t, len(delays)+1, attempt)
		assert.True(t, IsRetryable(err))
		delays = append(delays, delay)
	}))

	err := r.Do(context.Background(), func(ctx context.Context) error {
		return Retryable(errors.New("502"))
	})

	assert.Error(t, err)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestRosterFetchRetrier_CapsDelay(t *testing.T) {
	r := RosterFetchRetrier(10, 4*time.Second, WithJitter(0))
	assert.Equal(t, 4*time.Second, r.calculateDelay(1))
	assert.Equal(t, 5*time.Second, r.calculateDelay(3))
}

func TestDoWithData(t *testing.T) {
	r := New(WithMaxAttempts(2), WithInitialDelay(0))
	v, err := DoWithData(context.Background(), r, func(ctx context.Context) (int, error) {
		return 34, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 34, v)
}
