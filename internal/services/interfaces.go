package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/gamecore/pkg/models"
)

// UsageRecorder atomically increments today's counter for (keyID, endpoint).
type UsageRecorder interface {
	RecordUsage(ctx context.Context, keyID uuid.UUID, endpoint string) error
}

// UsageReader lists usage counters for a key from since (inclusive) to today.
type UsageReader interface {
	UsageForKey(ctx context.Context, keyID uuid.UUID, since time.Time) ([]models.UsageRecord, error)
}

// UsageStore is implemented by the Postgres and Redis usage backends.
type UsageStore interface {
	UsageRecorder
	UsageReader
}

// KeyLookup finds an API key that is active at call time.
type KeyLookup interface {
	LookupActiveKey(ctx context.Context, key string) (*models.APIKey, error)
}

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, bool)
}

// UsageTrackerInterface schedules fire-and-forget usage recording.
type UsageTrackerInterface interface {
	Track(ctx context.Context, keyID uuid.UUID, endpoint string) <-chan error
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateAccount(ctx context.Context, user *models.User, key *models.APIKey) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AccountServiceInterface defines registration and login.
type AccountServiceInterface interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
}
