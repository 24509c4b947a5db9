package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisUsageStore(t *testing.T, now time.Time) (*RedisUsageStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisUsageStore(client, 90*24*time.Hour)
	store.now = func() time.Time { return now }
	return store, mr
}

func TestRedisUsageStore_RecordUsage(t *testing.T) {
	now := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)
	store, mr := setupRedisUsageStore(t, now)
	keyID := uuid.New()
	ctx := context.Background()

	require.NoError(t, store.RecordUsage(ctx, keyID, "/api/v1/usage"))
	require.NoError(t, store.RecordUsage(ctx, keyID, "/api/v1/usage"))
	require.NoError(t, store.RecordUsage(ctx, keyID, "/api/v1/leaderboard"))

	key := "usage:" + keyID.String() + ":2026-10-14"
	assert.Equal(t, "2", mr.HGet(key, "/api/v1/usage"))
	assert.Equal(t, "1", mr.HGet(key, "/api/v1/leaderboard"))
	assert.Equal(t, 90*24*time.Hour, mr.TTL(key))
}

func TestRedisUsageStore_ConcurrentRecordUsage(t *testing.T) {
	store, _ := setupRedisUsageStore(t, time.Now())
	keyID := uuid.New()

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.RecordUsage(context.Background(), keyID, "/api/v1/matchmaking")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	records, err := store.UsageForKey(context.Background(), keyID, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(n), records[0].CallsCount)
}

func TestRedisUsageStore_UsageForKey(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	store, _ := setupRedisUsageStore(t, now)
	keyID := uuid.New()
	ctx := context.Background()

	// Yesterday
	store.now = func() time.Time { return now.AddDate(0, 0, -1) }
	require.NoError(t, store.RecordUsage(ctx, keyID, "/api/v1/saves"))

	store.now = func() time.Time { return now }
	require.NoError(t, store.RecordUsage(ctx, keyID, "/api/v1/saves"))
	require.NoError(t, store.RecordUsage(ctx, keyID, "/api/v1/analytics"))

	records, err := store.UsageForKey(ctx, keyID, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, records, 3)

	today := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "/api/v1/analytics", records[0].Endpoint)
	assert.Equal(t, today, records[0].Date)
	assert.Equal(t, "/api/v1/saves", records[1].Endpoint)
	assert.Equal(t, today.AddDate(0, 0, -1), records[2].Date)
	assert.Equal(t, int64(1), records[2].CallsCount)

	other, err := store.UsageForKey(ctx, uuid.New(), now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRedisUsageStore_UsageForKeyFullWindow(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	store, _ := setupRedisUsageStore(t, now)
	keyID := uuid.New()
	ctx := context.Background()

	for i := 0; i <= 30; i++ {
		day := now.AddDate(0, 0, -i)
		store.now = func() time.Time { return day }
		require.NoError(t, store.RecordUsage(ctx, keyID, "/api/v1/saves"))
	}
	store.now = func() time.Time { return now }

	records, err := store.UsageForKey(ctx, keyID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, records, 31)
	assert.Equal(t, truncateDay(now), records[0].Date)
	assert.Equal(t, truncateDay(now.AddDate(0, 0, -30)), records[30].Date)

	future, err := store.UsageForKey(ctx, keyID, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestRedisUsageStore_UsageForKeyRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisUsageStore(client, time.Hour)
	mr.Close()

	_, err = store.UsageForKey(context.Background(), uuid.New(), time.Now().AddDate(0, 0, -1))
	assert.ErrorContains(t, err, "failed to read usage from Redis")
}
