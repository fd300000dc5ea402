package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/rs/zerolog"
)

// LocationService polls a location provider and forwards fixes to the pipeline.
type LocationService struct {
	// Configuration fields
	interval    time.Duration
	minDistance float64

	// Dependencies
	pipeline         EventSubmitter
	logger           zerolog.Logger
	locationProvider location.Provider
	metrics          *metrics.Metrics

	// Internal state management
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	last      location.Coordinate
	delivered bool
}

// NewLocationService creates a new LocationService. Fixes closer than
// minDistance meters to the last delivered fix are dropped; 0 delivers every fix.
func NewLocationService(interval time.Duration, minDistance float64, pipeline EventSubmitter,
	locationProvider location.Provider, logger zerolog.Logger, m *metrics.Metrics) *LocationService {
	return &LocationService{
		interval:         interval,
		minDistance:      minDistance,
		pipeline:         pipeline,
		logger:           logger,
		locationProvider: locationProvider,
		metrics:          m,
	}
}

// Start takes an immediate fix, then polls the provider on every interval.
func (l *LocationService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		l.poll()
		for {
			select {
			case <-ticker.C:
				l.poll()
			case <-l.ctx.Done():
				l.logger.Info().Msg("LocationService is stopping")
				return
			}
		}
	}()

	l.logger.Info().
		Dur("interval", l.interval).
		Float64("min_distance_meters", l.minDistance).
		Msg("LocationService started")
	return nil
}

// Stop gracefully stops the LocationService and closes the provider.
func (l *LocationService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}

	l.cancel()
	l.wg.Wait()
	l.running = false

	if err := l.locationProvider.Close(); err != nil {
		l.logger.Error().Err(err).Msg("Failed to close location provider")
		return err
	}

	l.logger.Info().Msg("LocationService stopped")
	return nil
}

// poll fetches one fix and submits it unless the movement filter drops it.
// Provider failures are logged and retried on the next tick.
func (l *LocationService) poll() {
	fix, err := l.locationProvider.GetLocation()
	if err != nil {
		l.metrics.PositionFix("error")
		l.logger.Error().Err(err).Msg("Failed to get location from provider")
		return
	}

	if l.delivered && l.minDistance > 0 && location.DistanceMeters(l.last, fix.Coordinate) < l.minDistance {
		l.metrics.PositionFix("filtered")
		return
	}

	if err := l.pipeline.Submit(PositionEvent(fix.Coordinate)); err != nil {
		l.logger.Error().Err(err).Msg("Failed to submit position")
		return
	}

	l.last = fix.Coordinate
	l.delivered = true
	l.metrics.PositionFix("accepted")
	l.logger.Debug().
		Float64("latitude", fix.Latitude).
		Float64("longitude", fix.Longitude).
		Float64("accuracy", fix.Accuracy).
		Msg("Position submitted")
}
