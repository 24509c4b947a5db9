package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/database"
)

const (
	Version = "1.0.0"

	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type checkFunc func(ctx context.Context) error

type HealthService struct {
	logger      *logrus.Logger
	db          *database.Database
	critical    map[string]checkFunc
	nonCritical map[string]checkFunc

	healthCheckStatus   *prometheus.GaugeVec
	dbConnectionMetrics *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
}

func NewHealthService(logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) *HealthService {
	hs := &HealthService{
		logger:      logger,
		db:          db,
		critical:    map[string]checkFunc{},
		nonCritical: map[string]checkFunc{},
	}

	if db != nil && db.PG != nil {
		hs.critical["postgresql"] = db.PG.Ping
	}
	if db != nil && db.Redis != nil {
		hs.nonCritical["redis"] = func(ctx context.Context) error {
			return db.Redis.Ping(ctx).Err()
		}
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.dbConnectionMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "database_connection_pool",
		Help: "PostgreSQL connection pool state",
	}, []string{"state"})

	hs.healthCheckStatus = register(reg, hs.healthCheckStatus, logger)
	hs.dbConnectionMetrics = register(reg, hs.dbConnectionMetrics, logger)

	return hs
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Version:   Version,
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	allCriticalHealthy := true
	for name, check := range s.critical {
		if err := s.run(ctx, check); err != nil {
			status.Services[name] = StatusUnhealthy
			status.Critical = append(status.Critical, name)
			allCriticalHealthy = false
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", name)
			s.updateHealthMetric(name, false)
		} else {
			status.Services[name] = StatusHealthy
			s.updateHealthMetric(name, true)
		}
	}

	for name, check := range s.nonCritical {
		if err := s.run(ctx, check); err != nil {
			status.Services[name] = StatusUnhealthy
			status.NonCritical = append(status.NonCritical, name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
			s.updateHealthMetric(name, false)
		} else {
			status.Services[name] = StatusHealthy
			s.updateHealthMetric(name, true)
		}
	}

	switch {
	case !allCriticalHealthy:
		status.Status = StatusUnhealthy
	case len(status.NonCritical) > 0:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}

	s.collectPoolMetrics()
	return status
}

func (s *HealthService) run(ctx context.Context, check checkFunc) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return check(ctx)
}

func (s *HealthService) collectPoolMetrics() {
	if s.db == nil || s.db.PG == nil {
		return
	}
	stats := s.db.PG.Stat()
	s.dbConnectionMetrics.WithLabelValues("acquired").Set(float64(stats.AcquiredConns()))
	s.dbConnectionMetrics.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	s.dbConnectionMetrics.WithLabelValues("total").Set(float64(stats.TotalConns()))
	s.dbConnectionMetrics.WithLabelValues("max").Set(float64(stats.MaxConns()))
}

func (s *HealthService) updateHealthMetric(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
}
