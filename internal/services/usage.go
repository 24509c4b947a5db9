package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultUsageTimeout = 5 * time.Second

// ErrTrackerClosed is reported for Track calls made after Drain started.
var ErrTrackerClosed = errors.New("usage tracker is closed")

// UsageTracker records API usage off the request path. Each Track call runs
// in its own goroutine, detached from the request's cancellation, and its
// outcome is only reported on the returned channel, in logs and in metrics.
type UsageTracker struct {
	recorder UsageRecorder
	logger   *logrus.Logger
	metrics  *AuthMetrics
	timeout  time.Duration

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewUsageTracker(recorder UsageRecorder, timeout time.Duration, logger *logrus.Logger, metrics *AuthMetrics) *UsageTracker {
	if timeout <= 0 {
		timeout = DefaultUsageTimeout
	}
	return &UsageTracker{
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// Track schedules one usage increment. The returned channel is buffered,
// receives exactly one value and is then closed; callers may ignore it.
func (t *UsageTracker) Track(ctx context.Context, keyID uuid.UUID, endpoint string) <-chan error {
	result := make(chan error, 1)
	ctx = context.WithoutCancel(ctx)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.metrics.UsageRecorded(ErrTrackerClosed)
		t.logger.WithFields(logrus.Fields{
			"api_key_id": keyID,
			"endpoint":   endpoint,
		}).Error("Usage tracked after shutdown started")
		result <- ErrTrackerClosed
		close(result)
		return result
	}
	t.inflight.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.inflight.Done()
		defer close(result)

		err := t.record(ctx, keyID, endpoint)
		t.metrics.UsageRecorded(err)
		if err != nil {
			t.logger.WithError(err).WithFields(logrus.Fields{
				"api_key_id": keyID,
				"endpoint":   endpoint,
			}).Error("Usage tracking failed")
		}
		result <- err
	}()

	return result
}

func (t *UsageTracker) record(ctx context.Context, keyID uuid.UUID, endpoint string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("usage recorder panicked: %v", p)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.recorder.RecordUsage(ctx, keyID, endpoint)
}

// Wait blocks until every scheduled recording has finished.
func (t *UsageTracker) Wait() {
	t.inflight.Wait()
}

// Drain stops accepting new recordings and waits, bounded by ctx, for the
// scheduled ones. Call it only once the HTTP server has stopped serving.
func (t *UsageTracker) Drain(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("usage tracker drain: %w", ctx.Err())
	}
}
