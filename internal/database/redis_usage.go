package database

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/temcen/gamecore/pkg/models"
)

const usageDateLayout = "2006-01-02"

// RedisUsageStore keeps one hash per (key, UTC day) with an endpoint field
// per path. HINCRBY is atomic, so it provides the same no-lost-update
// guarantee as the Postgres upsert.
type RedisUsageStore struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewRedisUsageStore(client *redis.Client, retention time.Duration) *RedisUsageStore {
	return &RedisUsageStore{
		client:    client,
		retention: retention,
		now:       time.Now,
	}
}

func usageKey(keyID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("usage:%s:%s", keyID.String(), day.Format(usageDateLayout))
}

func (s *RedisUsageStore) RecordUsage(ctx context.Context, keyID uuid.UUID, endpoint string) error {
	key := usageKey(keyID, s.now().UTC())

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, endpoint, 1)
		if s.retention > 0 {
			pipe.Expire(ctx, key, s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record usage in Redis: %w", err)
	}
	return nil
}

func (s *RedisUsageStore) UsageForKey(ctx context.Context, keyID uuid.UUID, since time.Time) ([]models.UsageRecord, error) {
	today := truncateDay(s.now().UTC())
	first := truncateDay(since.UTC())

	var days []time.Time
	for day := today; !day.Before(first); day = day.AddDate(0, 0, -1) {
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, nil
	}

	// One round trip for the whole window.
	cmds := make([]*redis.MapStringStringCmd, len(days))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, day := range days {
			cmds[i] = pipe.HGetAll(ctx, usageKey(keyID, day))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read usage from Redis: %w", err)
	}

	var records []models.UsageRecord
	for i, day := range days {
		fields := cmds[i].Val()

		endpoints := make([]string, 0, len(fields))
		for endpoint := range fields {
			endpoints = append(endpoints, endpoint)
		}
		sort.Strings(endpoints)

		for _, endpoint := range endpoints {
			count, err := strconv.ParseInt(fields[endpoint], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid usage counter %q: %w", fields[endpoint], err)
			}
			records = append(records, models.UsageRecord{
				APIKeyID:   keyID,
				Endpoint:   endpoint,
				Date:       day,
				CallsCount: count,
			})
		}
	}

	return records, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
