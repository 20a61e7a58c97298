package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("roster host responded 503")

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time { return f.t }

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New("roster-http", WithTripAfter(2))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	cb := New("database", WithTripAfter(2))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, succeed))
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_TrialCallRecovers(t *testing.T) {
	clock := &fakeTime{t: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	var seen []Transition
	cb := New("roster-http",
		WithTripAfter(1),
		WithCooldown(time.Minute),
		WithNow(clock.now),
		WithOnTransition(func(t Transition) { seen = append(seen, t) }),
	)
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	require.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)

	clock.t = clock.t.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())

	require.Len(t, seen, 3)
	opened := seen[0]
	assert.Equal(t, "roster-http", opened.Source)
	assert.Equal(t, StateClosed, opened.From)
	assert.Equal(t, StateOpen, opened.To)
	assert.Equal(t, 1, opened.Failures)
	assert.ErrorIs(t, opened.Cause, errDown)
	assert.Equal(t, time.Date(2025, 4, 1, 9, 1, 0, 0, time.UTC), opened.RetryAt)

	assert.Equal(t, StateHalfOpen, seen[1].To)
	assert.Equal(t, StateClosed, seen[2].To)
	assert.NoError(t, seen[2].Cause)
}

func TestBreaker_TrialFailureReopens(t *testing.T) {
	clock := &fakeTime{t: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	cb := New("database", WithTripAfter(1), WithCooldown(time.Second), WithNow(clock.now))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.t = clock.t.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestBreaker_OneTrialAtATime(t *testing.T) {
	clock := &fakeTime{t: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	cb := New("roster-http", WithTripAfter(1), WithCooldown(time.Second), WithNow(clock.now))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.t = clock.t.Add(time.Second)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrTrialInFlight)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestPresets(t *testing.T) {
	assert.Equal(t, "roster-http", RosterSourceBreaker(nil).Name())
	assert.Equal(t, "database", DatabaseBreaker(nil).Name())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
