package notify

import (
	"errors"
	"sync"

	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/internal/utils"
	"github.com/rs/zerolog"
)

var (
	// ErrSinkClosed is returned by Emit after Close.
	ErrSinkClosed = errors.New("notification sink is closed")
	// ErrQueueFull is returned by Emit when every worker is busy and the queue is full.
	ErrQueueFull = errors.New("notification queue is full")
)

// Emitter is anything that delivers a notification request.
type Emitter interface {
	Emit(req models.NotificationRequest) error
}

// AsyncSink hands requests to a worker pool so callers never wait on delivery.
// Delivery failures are logged and counted, not returned. A full queue is
// reported to the caller as ErrQueueFull.
type AsyncSink struct {
	next    Emitter
	pool    *utils.WorkerPool
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSink wraps next with a pool of workers.
func NewAsyncSink(next Emitter, workers, queueSize int, logger zerolog.Logger, m *metrics.Metrics) *AsyncSink {
	return &AsyncSink{
		next:    next,
		pool:    utils.NewWorkerPool(workers, queueSize),
		logger:  logger,
		metrics: m,
	}
}

// Emit queues req for delivery without blocking.
func (s *AsyncSink) Emit(req models.NotificationRequest) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}

	queued := s.pool.TrySubmit(func() {
		if err := s.next.Emit(req); err != nil {
			s.metrics.SinkFailed()
			s.logger.Warn().
				Err(err).
				Str("report_id", req.Identifier).
				Msg("Notification delivery failed")
			return
		}
		s.logger.Debug().Str("report_id", req.Identifier).Msg("Notification delivered")
	})
	if !queued {
		return ErrQueueFull
	}
	return nil
}

// Close stops accepting requests and waits for queued deliveries to finish.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.pool.Shutdown()
	return nil
}
