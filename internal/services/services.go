package services

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/config"
	"github.com/temcen/gamecore/internal/database"
)

const (
	UsageBackendPostgres = "postgres"
	UsageBackendRedis    = "redis"
)

type Services struct {
	Tokens      *TokenService
	Passwords   *PasswordHasher
	Credentials *database.CredentialStore
	Usage       UsageStore
	UsageTrack  *UsageTracker
	Accounts    *AccountService
	Health      *HealthService
	Metrics     *AuthMetrics
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	secret, insecure, err := cfg.SigningSecret()
	if err != nil {
		return nil, err
	}
	if insecure {
		logger.WithField("environment", cfg.Server.Environment).
			Warn("Using insecure default JWT secret; set AUTH_JWT_SECRET before deploying")
	}

	metrics := NewAuthMetrics(reg, logger)
	tokens := NewTokenService(secret, cfg.Auth.TokenTTL, logger)
	passwords := NewPasswordHasher(cfg.Auth.BcryptCost)
	credentials := database.NewCredentialStore(db.PG)

	var usage UsageStore
	switch cfg.Usage.Backend {
	case "", UsageBackendPostgres:
		usage = credentials
	case UsageBackendRedis:
		if db.Redis == nil {
			return nil, fmt.Errorf("usage backend %q requires redis.url", cfg.Usage.Backend)
		}
		usage = database.NewRedisUsageStore(db.Redis, cfg.Usage.Retention)
	default:
		return nil, fmt.Errorf("unknown usage backend %q", cfg.Usage.Backend)
	}

	accounts := NewAccountService(
		database.NewUserStore(db.PG), passwords, tokens, cfg.Server.IsProduction(), logger,
	)

	return &Services{
		Tokens:      tokens,
		Passwords:   passwords,
		Credentials: credentials,
		Usage:       usage,
		UsageTrack:  NewUsageTracker(usage, cfg.Usage.Timeout, logger, metrics),
		Accounts:    accounts,
		Health:      NewHealthService(logger, db, reg),
		Metrics:     metrics,
	}, nil
}
