package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/circuitbreaker"
)

type stubSnapshots struct {
	err   error
	snap  *schedule.Snapshot
	calls int
}

func (s *stubSnapshots) Save(context.Context, *schedule.Snapshot) error {
	s.calls++
	return s.err
}

func (s *stubSnapshots) Latest(context.Context, string) (*schedule.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.snap == nil {
		return nil, shared.ErrSnapshotNotFound
	}
	return s.snap, nil
}

func TestGuardedSnapshots_NotFoundDoesNotTrip(t *testing.T) {
	inner := &stubSnapshots{}
	breaker := circuitbreaker.New("test", circuitbreaker.WithTripAfter(1), circuitbreaker.WithCooldown(time.Hour))
	g := NewGuardedSnapshots(inner, breaker)

	for i := 0; i < 3; i++ {
		_, err := g.Latest(context.Background(), "fp")
		assert.ErrorIs(t, err, shared.ErrSnapshotNotFound)
	}
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
	assert.Equal(t, 3, inner.calls)

	inner.snap = &schedule.Snapshot{ID: "s1"}
	got, err := g.Latest(context.Background(), "fp")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}

func TestGuardedSnapshots_OpensOnDatabaseErrors(t *testing.T) {
	inner := &stubSnapshots{err: errors.New("connection refused")}
	breaker := circuitbreaker.New("test", circuitbreaker.WithTripAfter(2), circuitbreaker.WithCooldown(time.Hour))
	g := NewGuardedSnapshots(inner, breaker)

	require.Error(t, g.Save(context.Background(), &schedule.Snapshot{}))
	_, err := g.Latest(context.Background(), "fp")
	require.Error(t, err)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, err = g.Latest(context.Background(), "fp")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestNewGuardedSnapshots_DefaultBreaker(t *testing.T) {
	g := NewGuardedSnapshots(&stubSnapshots{}, nil)
	assert.Equal(t, "database", g.breaker.Name())
}
