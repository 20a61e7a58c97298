package postgres

import (
	"context"
	"errors"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/circuitbreaker"
)

// GuardedSnapshots runs a snapshot store behind a circuit breaker so a down
// database costs one fast failure per call instead of a query timeout.
// A missing snapshot is a successful lookup and never trips the breaker.
type GuardedSnapshots struct {
	inner   schedule.SnapshotRepository
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedSnapshots wraps inner. A nil breaker uses the database preset.
func NewGuardedSnapshots(inner schedule.SnapshotRepository, breaker *circuitbreaker.CircuitBreaker) *GuardedSnapshots {
	if breaker == nil {
		breaker = circuitbreaker.DatabaseBreaker(nil)
	}
	return &GuardedSnapshots{inner: inner, breaker: breaker}
}

var _ schedule.SnapshotRepository = (*GuardedSnapshots)(nil)

// Save stores s through the breaker.
func (g *GuardedSnapshots) Save(ctx context.Context, s *schedule.Snapshot) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Save(ctx, s)
	})
}

// Latest looks the fingerprint up through the breaker.
func (g *GuardedSnapshots) Latest(ctx context.Context, fingerprint string) (*schedule.Snapshot, error) {
	var (
		snap     *schedule.Snapshot
		notFound error
	)
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		snap, err = g.inner.Latest(ctx, fingerprint)
		if errors.Is(err, shared.ErrSnapshotNotFound) {
			notFound = err
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if notFound != nil {
		return nil, notFound
	}
	return snap, nil
}
