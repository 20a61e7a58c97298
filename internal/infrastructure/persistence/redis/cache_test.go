package redis

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "schedule:abc", ScheduleKey("abc"))
	assert.Equal(t, "lock:schedule:abc", LockKey("abc"))
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 10, opts.PoolSize)

	cfg.URL = "redis://:secret@cache.internal:6380/2"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)

	cfg.URL = "http://nope"
	_, err = cfg.Options()
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestEncode_RejectsBadInput(t *testing.T) {
	_, err := encode("", 1, time.Minute)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)

	_, err = encode("k", nil, time.Minute)
	assert.ErrorIs(t, err, ErrCacheNilValue)

	_, err = encode("k", 1, -time.Second)
	assert.ErrorIs(t, err, ErrCacheInvalidTTL)

	_, err = encode("k", math.Inf(1), time.Minute)
	assert.ErrorIs(t, err, ErrCacheSerialization)
}

func TestCompareAndDelete_MatchesLockEncoding(t *testing.T) {
	owner := "5f0c1a2e-8d7b-4c3a-9e61-0b2d4f6a8c10"

	held, err := encode(LockKey("fp"), owner, TTLGenerationLock)
	require.NoError(t, err)
	released, err := encode(LockKey("fp"), owner, 0)
	require.NoError(t, err)
	assert.Equal(t, held, released)
	assert.Equal(t, `"`+owner+`"`, string(held))

	c := &Cache{}
	_, err = c.CompareAndDelete(context.Background(), "", owner)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
	_, err = c.CompareAndDelete(context.Background(), LockKey("fp"), nil)
	assert.ErrorIs(t, err, ErrCacheNilValue)
}

func TestDecode_Corrupt(t *testing.T) {
	var c cachedSnapshot
	assert.ErrorIs(t, decode([]byte("{"), &c), ErrCacheSerialization)
}

func TestCachedSnapshot_KeepsItems(t *testing.T) {
	snap := &schedule.Snapshot{
		ID:          "0b7f0c2e-7a53-4a0d-9a53-2d2f1f6f8c11",
		Fingerprint: "fp",
		YearStart:   timeutil.Date(2025, 4, 1),
		GeneratedAt: time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
		Items: []schedule.Item{
			{StudentID: "A01", Rotation: "GM", Start: timeutil.Date(2025, 4, 1), End: timeutil.Date(2025, 5, 12)},
		},
	}

	data, err := encode(ScheduleKey(snap.Fingerprint), toCached(snap), TTLSchedule)
	require.NoError(t, err)

	var back cachedSnapshot
	require.NoError(t, json.Unmarshal(data, &back))
	got := back.snapshot()
	assert.Equal(t, snap.Items[0].Rotation, got.Items[0].Rotation)
	assert.True(t, snap.Items[0].End.Equal(got.Items[0].End))
	assert.Equal(t, snap.Fingerprint, got.Fingerprint)
}

func TestNewScheduleCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, TTLSchedule, NewScheduleCache(nil, 0).ttl)
	assert.Equal(t, time.Hour, NewScheduleCache(nil, time.Hour).ttl)
}
