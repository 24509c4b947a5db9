package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/temcen/gamecore/pkg/models"
)

// ErrAPIKeyNotFound covers both unknown and inactive keys.
var ErrAPIKeyNotFound = errors.New("api key not found")

const (
	lookupActiveKeySQL = `
		SELECT id, key, user_id, is_active, created_at
		FROM api_keys
		WHERE key = $1 AND is_active = true`

	recordUsageSQL = `
		INSERT INTO usage_stats (api_key_id, endpoint, calls_count, date)
		VALUES ($1, $2, 1, CURRENT_DATE)
		ON CONFLICT (api_key_id, endpoint, date)
		DO UPDATE SET calls_count = usage_stats.calls_count + 1`

	usageForKeySQL = `
		SELECT api_key_id, endpoint, date, calls_count
		FROM usage_stats
		WHERE api_key_id = $1 AND date >= $2
		ORDER BY date DESC, endpoint`
)

// CredentialStore is the Postgres gateway for API keys and their usage
// counters. It never caches: every lookup hits the table.
type CredentialStore struct {
	db Querier
}

func NewCredentialStore(db Querier) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) LookupActiveKey(ctx context.Context, key string) (*models.APIKey, error) {
	var k models.APIKey
	err := s.db.QueryRow(ctx, lookupActiveKeySQL, key).Scan(
		&k.ID, &k.Key, &k.UserID, &k.IsActive, &k.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}
	return &k, nil
}

// RecordUsage increments today's counter for (keyID, endpoint) with a single
// insert-or-increment statement, so concurrent calls never lose updates.
func (s *CredentialStore) RecordUsage(ctx context.Context, keyID uuid.UUID, endpoint string) error {
	if _, err := s.db.Exec(ctx, recordUsageSQL, keyID, endpoint); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func (s *CredentialStore) UsageForKey(ctx context.Context, keyID uuid.UUID, since time.Time) ([]models.UsageRecord, error) {
	rows, err := s.db.Query(ctx, usageForKeySQL, keyID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.APIKeyID, &r.Endpoint, &r.Date, &r.CallsCount); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage rows: %w", err)
	}

	return records, nil
}
