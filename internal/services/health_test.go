package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/gamecore/internal/database"
)

func TestHealthService_CheckHealth(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	reg := prometheus.NewRegistry()
	hs := NewHealthService(newTestLogger(), &database.Database{Redis: client}, reg)

	pgErr := error(nil)
	hs.critical["postgresql"] = func(context.Context) error { return pgErr }

	status := hs.CheckHealth(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, Version, status.Version)
	assert.Equal(t, StatusHealthy, status.Services["redis"])

	mr.Close()
	status = hs.CheckHealth(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, []string{"redis"}, status.NonCritical)
	assert.Equal(t, 0.0, testutil.ToFloat64(hs.healthCheckStatus.WithLabelValues("redis")))

	pgErr = errors.New("connection refused")
	status = hs.CheckHealth(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, []string{"postgresql"}, status.Critical)
}
