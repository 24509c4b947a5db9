package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	GuardSession = "session"
	GuardAPIKey  = "api_key"

	OutcomeSuccess = "success"
	OutcomeMissing = "missing"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// AuthMetrics counts guard decisions and usage-recording outcomes. A nil
// *AuthMetrics is valid and records nothing.
type AuthMetrics struct {
	attempts *prometheus.CounterVec
	usage    *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer, logger *logrus.Logger) *AuthMetrics {
	m := &AuthMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamecore",
			Name:      "auth_attempts_total",
			Help:      "Authentication decisions by guard and outcome",
		}, []string{"guard", "outcome"}),
		usage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamecore",
			Name:      "usage_records_total",
			Help:      "Usage recording attempts by outcome",
		}, []string{"outcome"}),
	}

	m.attempts = register(reg, m.attempts, logger)
	m.usage = register(reg, m.usage, logger)
	return m
}

// register reuses an already registered collector so tests and restarts
// sharing a registry do not panic.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, logger *logrus.Logger) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register metric")
	}
	return c
}

func (m *AuthMetrics) AuthAttempt(guard, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(guard, outcome).Inc()
}

func (m *AuthMetrics) UsageRecorded(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.usage.WithLabelValues(outcome).Inc()
}
