package database

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/temcen/gamecore/pkg/models"
)

// setupPostgres starts a PostgreSQL container with the schema applied.
// Tests are skipped if no container runtime is available.
func setupPostgres(t *testing.T) *Database {
	t.Helper()

	if testing.Short() || os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("skipping PostgreSQL integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("gamecore_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db := &Database{PG: pool, logger: logger}
	require.NoError(t, db.Migrate(ctx))
	// Applying the schema twice must be harmless.
	require.NoError(t, db.Migrate(ctx))
	return db
}

func createTestAccount(t *testing.T, db *Database) *models.APIKey {
	t.Helper()

	user, key := newAccount()
	require.NoError(t, NewUserStore(db.PG).CreateAccount(context.Background(), user, key))
	return key
}

func TestPostgres_ConcurrentRecordUsageIsExact(t *testing.T) {
	db := setupPostgres(t)
	key := createTestAccount(t, db)
	store := NewCredentialStore(db.PG)

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.RecordUsage(context.Background(), key.ID, "/api/v1/matchmaking")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	records, err := store.UsageForKey(context.Background(), key.ID, time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(n), records[0].CallsCount)
	assert.Equal(t, "/api/v1/matchmaking", records[0].Endpoint)
}

func TestPostgres_RevokedKeyIsNotFound(t *testing.T) {
	db := setupPostgres(t)
	key := createTestAccount(t, db)
	store := NewCredentialStore(db.PG)
	ctx := context.Background()

	found, err := store.LookupActiveKey(ctx, key.Key)
	require.NoError(t, err)
	assert.Equal(t, key.ID, found.ID)

	_, err = db.PG.Exec(ctx, "UPDATE api_keys SET is_active = false WHERE id = $1", key.ID)
	require.NoError(t, err)

	_, err = store.LookupActiveKey(ctx, key.Key)
	assert.ErrorIs(t, err, ErrAPIKeyNotFound)
}

func TestPostgres_DuplicateAccount(t *testing.T) {
	db := setupPostgres(t)
	users := NewUserStore(db.PG)
	ctx := context.Background()

	user, key := newAccount()
	require.NoError(t, users.CreateAccount(ctx, user, key))

	again, againKey := newAccount()
	err := users.CreateAccount(ctx, again, againKey)
	assert.ErrorIs(t, err, ErrDuplicate)

	// The rolled-back transaction left no orphan key behind.
	var keys int
	require.NoError(t, db.PG.QueryRow(ctx, "SELECT COUNT(*) FROM api_keys").Scan(&keys))
	assert.Equal(t, 1, keys)
}
