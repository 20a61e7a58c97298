package command

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/clock"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeCache struct {
	snaps    map[string]*schedule.Snapshot
	locked   map[string]string
	getErr   error
	lockErr  error
	sets     int
	unlocked int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: map[string]*schedule.Snapshot{}, locked: map[string]string{}}
}

func (c *fakeCache) Get(_ context.Context, fp string) (*schedule.Snapshot, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	s, ok := c.snaps[fp]
	if !ok {
		return nil, shared.ErrSnapshotNotFound
	}
	return s, nil
}

func (c *fakeCache) Set(_ context.Context, s *schedule.Snapshot) error {
	c.sets++
	c.snaps[s.Fingerprint] = s
	return nil
}

func (c *fakeCache) Lock(_ context.Context, fp, owner string) (bool, error) {
	if c.lockErr != nil {
		return false, c.lockErr
	}
	if _, held := c.locked[fp]; held {
		return false, nil
	}
	c.locked[fp] = owner
	return true, nil
}

func (c *fakeCache) Unlock(_ context.Context, fp, owner string) error {
	if c.locked[fp] != owner {
		return nil
	}
	c.unlocked++
	delete(c.locked, fp)
	return nil
}

type fakeSnapshots struct {
	saved []*schedule.Snapshot
}

func (r *fakeSnapshots) Save(_ context.Context, s *schedule.Snapshot) error {
	r.saved = append(r.saved, s)
	return nil
}

func (r *fakeSnapshots) Latest(_ context.Context, fp string) (*schedule.Snapshot, error) {
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].Fingerprint == fp {
			return r.saved[i], nil
		}
	}
	return nil, shared.ErrSnapshotNotFound
}

type fakeRoster struct {
	stored student.Roster
	err    error
}

func (f *fakeRoster) ListAll(context.Context) (student.Roster, error) { return f.stored, nil }

func (f *fakeRoster) ReplaceAll(_ context.Context, r student.Roster) error {
	if f.err != nil {
		return f.err
	}
	f.stored = r
	return nil
}

func testRoster() student.Roster {
	var r student.Roster
	for _, b := range shared.AllBatches {
		for i := 1; i <= 34; i++ {
			if b == shared.BatchD && i > 30 {
				r = append(r, student.NewPlaceholder(b, i))
				continue
			}
			r = append(r, student.New(b, i, fmt.Sprintf("R%s%03d", b, i), fmt.Sprintf("Student %s%d", b, i)))
		}
	}
	return r
}

func newHandler(cache SnapshotCache, snaps schedule.SnapshotRepository) *GenerateScheduleHandler {
	h := NewGenerateScheduleHandler(catalog.Default(), clock.NewFixed(timeutil.Date(2025, 4, 1)), cache, snaps, nil)
	h.now = func() time.Time { return time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC) }
	return h
}

// ─────────────────────────────────────────────────────────────────────────────
// Generate schedule
// ─────────────────────────────────────────────────────────────────────────────

func TestGenerateSchedule_Validate(t *testing.T) {
	_, err := newHandler(nil, nil).Handle(context.Background(), GenerateScheduleCommand{})
	assert.ErrorIs(t, err, shared.ErrRosterEmpty)
}

func TestGenerateSchedule_WithoutStores(t *testing.T) {
	res, err := newHandler(nil, nil).Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster(), Persist: true})
	require.NoError(t, err)

	assert.Equal(t, OriginGenerated, res.Origin)
	assert.False(t, res.Persisted)
	assert.Equal(t, 0, res.Conflicts)
	assert.Len(t, res.Engine.Roster(), 136)
	assert.Equal(t, res.Engine.Schedule().Len(), res.Snapshot.ItemCount())
	assert.Equal(t, schedule.Fingerprint(testRoster(), catalog.Default()), res.Fingerprint)
	assert.Equal(t, 136, res.Snapshot.StudentCount)
}

func TestGenerateSchedule_CachesThenReuses(t *testing.T) {
	cache := newFakeCache()
	snaps := &fakeSnapshots{}
	h := newHandler(cache, snaps)
	ctx := context.Background()

	first, err := h.Handle(ctx, GenerateScheduleCommand{Roster: testRoster(), Persist: true})
	require.NoError(t, err)
	assert.Equal(t, OriginGenerated, first.Origin)
	assert.True(t, first.Persisted)
	assert.Len(t, snaps.saved, 1)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, cache.unlocked)
	assert.Empty(t, cache.locked)

	second, err := h.Handle(ctx, GenerateScheduleCommand{Roster: testRoster(), Persist: true})
	require.NoError(t, err)
	assert.Equal(t, OriginCache, second.Origin)
	assert.Equal(t, first.Snapshot.ID, second.Snapshot.ID)
	assert.Len(t, snaps.saved, 1)
	assert.Equal(t,
		first.Engine.Schedule().ForStudent("B07"),
		second.Engine.Schedule().ForStudent("B07"))

	forced, err := h.Handle(ctx, GenerateScheduleCommand{Roster: testRoster(), Force: true})
	require.NoError(t, err)
	assert.Equal(t, OriginGenerated, forced.Origin)
	assert.NotEqual(t, first.Snapshot.ID, forced.Snapshot.ID)
}

func TestGenerateSchedule_RestoresFromStore(t *testing.T) {
	snaps := &fakeSnapshots{}
	_, err := newHandler(nil, snaps).Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster(), Persist: true})
	require.NoError(t, err)

	cache := newFakeCache()
	res, err := newHandler(cache, snaps).Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster()})
	require.NoError(t, err)
	assert.Equal(t, OriginStore, res.Origin)
	assert.Equal(t, 1, cache.sets)
}

func TestGenerateSchedule_CacheErrorIsAMiss(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")

	res, err := newHandler(cache, nil).Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster()})
	require.NoError(t, err)
	assert.Equal(t, OriginGenerated, res.Origin)
}

func TestGenerateSchedule_SkipsWritesWithoutLock(t *testing.T) {
	cache := newFakeCache()
	snaps := &fakeSnapshots{}
	fp := schedule.Fingerprint(testRoster(), catalog.Default())
	cache.locked[fp] = "other"

	res, err := newHandler(cache, snaps).Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster(), Persist: true})
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Empty(t, snaps.saved)
	assert.Equal(t, 0, cache.sets)
	assert.Equal(t, 0, cache.unlocked)
}

func TestGenerateSchedule_LockErrorStillPersists(t *testing.T) {
	cache := newFakeCache()
	cache.lockErr = errors.New("redis: connection refused")
	snaps := &fakeSnapshots{}

	res, err := newHandler(cache, snaps).Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster(), Persist: true})
	require.NoError(t, err)
	assert.Equal(t, OriginGenerated, res.Origin)
	assert.True(t, res.Persisted)
	assert.Len(t, snaps.saved, 1)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 0, cache.unlocked)
}

func TestGenerateSchedule_ReleasesOwnLock(t *testing.T) {
	cache := newFakeCache()
	fp := schedule.Fingerprint(testRoster(), catalog.Default())

	_, err := newHandler(cache, nil).Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster()})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.unlocked)
	assert.NotContains(t, cache.locked, fp)
}

func TestGenerateSchedule_NewRosterNewFingerprint(t *testing.T) {
	cache := newFakeCache()
	h := newHandler(cache, nil)

	a, err := h.Handle(context.Background(), GenerateScheduleCommand{Roster: testRoster()})
	require.NoError(t, err)

	changed := testRoster()
	changed[0].Name = "Renamed"
	b, err := h.Handle(context.Background(), GenerateScheduleCommand{Roster: changed})
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
	assert.Equal(t, OriginGenerated, b.Origin)
}

// ─────────────────────────────────────────────────────────────────────────────
// Import roster
// ─────────────────────────────────────────────────────────────────────────────

func TestImportRoster(t *testing.T) {
	repo := &fakeRoster{}
	h := NewImportRosterHandler(repo)

	res, err := h.Handle(context.Background(), ImportRosterCommand{Roster: testRoster()})
	require.NoError(t, err)
	assert.Equal(t, 132, res.Stored)
	assert.Equal(t, 4, res.Placeholders)
	assert.Len(t, repo.stored, 132)

	res, err = h.Handle(context.Background(), ImportRosterCommand{Roster: testRoster(), IncludePlaceholders: true})
	require.NoError(t, err)
	assert.Equal(t, 136, res.Stored)
}

func TestImportRoster_Errors(t *testing.T) {
	bad := student.Roster{{ID: "A01", Batch: shared.BatchA}}
	_, err := NewImportRosterHandler(&fakeRoster{}).Handle(context.Background(), ImportRosterCommand{Roster: bad})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	repoErr := errors.New("tx aborted")
	_, err = NewImportRosterHandler(&fakeRoster{err: repoErr}).Handle(context.Background(), ImportRosterCommand{Roster: testRoster()})
	assert.ErrorIs(t, err, repoErr)
}
