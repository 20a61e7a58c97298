package redis

import (
	"context"
	"errors"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
)

// ScheduleCache keeps generated schedules keyed by roster fingerprint, so a
// rerun over an unchanged roster skips generation.
type ScheduleCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewScheduleCache creates a new ScheduleCache. A non-positive ttl means TTLSchedule.
func NewScheduleCache(cache *Cache, ttl time.Duration) *ScheduleCache {
	if ttl <= 0 {
		ttl = TTLSchedule
	}
	return &ScheduleCache{cache: cache, ttl: ttl}
}

// cachedSnapshot is the JSON shape stored under ScheduleKey.
type cachedSnapshot struct {
	ID            string          `json:"id"`
	Fingerprint   string          `json:"fingerprint"`
	YearStart     time.Time       `json:"year_start"`
	StudentCount  int             `json:"student_count"`
	ConflictCount int             `json:"conflict_count"`
	GeneratedAt   time.Time       `json:"generated_at"`
	Items         []schedule.Item `json:"items"`
}

func toCached(s *schedule.Snapshot) cachedSnapshot {
	return cachedSnapshot{
		ID:            s.ID,
		Fingerprint:   s.Fingerprint,
		YearStart:     s.YearStart,
		StudentCount:  s.StudentCount,
		ConflictCount: s.ConflictCount,
		GeneratedAt:   s.GeneratedAt,
		Items:         s.Items,
	}
}

func (c cachedSnapshot) snapshot() *schedule.Snapshot {
	return &schedule.Snapshot{
		ID:            c.ID,
		Fingerprint:   c.Fingerprint,
		YearStart:     c.YearStart,
		StudentCount:  c.StudentCount,
		ConflictCount: c.ConflictCount,
		GeneratedAt:   c.GeneratedAt,
		Items:         c.Items,
	}
}

// Get returns the cached schedule for fingerprint, or
// shared.ErrSnapshotNotFound on a miss.
func (s *ScheduleCache) Get(ctx context.Context, fingerprint string) (*schedule.Snapshot, error) {
	var c cachedSnapshot
	if err := s.cache.Get(ctx, ScheduleKey(fingerprint), &c); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrSnapshotNotFound
		}
		return nil, err
	}
	if c.Fingerprint != fingerprint {
		return nil, shared.ErrSnapshotNotFound
	}
	return c.snapshot(), nil
}

// Set caches snap under its fingerprint.
func (s *ScheduleCache) Set(ctx context.Context, snap *schedule.Snapshot) error {
	if snap == nil {
		return ErrCacheNilValue
	}
	return s.cache.Set(ctx, ScheduleKey(snap.Fingerprint), toCached(snap), s.ttl)
}

// Lock claims the right to generate for fingerprint. It reports false when
// another process holds it.
func (s *ScheduleCache) Lock(ctx context.Context, fingerprint, owner string) (bool, error) {
	return s.cache.SetNX(ctx, LockKey(fingerprint), owner, TTLGenerationLock)
}

// Unlock releases the generation lock if owner still holds it. A lock that
// expired and was claimed by another process is left alone.
func (s *ScheduleCache) Unlock(ctx context.Context, fingerprint, owner string) error {
	_, err := s.cache.CompareAndDelete(ctx, LockKey(fingerprint), owner)
	return err
}

// InvalidateAll drops every cached schedule.
func (s *ScheduleCache) InvalidateAll(ctx context.Context) error {
	return s.cache.DeleteByPattern(ctx, PrefixSchedule+"*")
}
