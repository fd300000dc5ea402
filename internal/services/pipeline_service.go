package services

import (
	"context"
	"errors"
	"sync"

	"github.com/benmeehan/proximity-agent/internal/feed"
	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/internal/proximity"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/rs/zerolog"
)

// ErrPipelineStopped is returned by Submit when the event loop is not running.
var ErrPipelineStopped = errors.New("pipeline is not running")

// EventKind identifies what an Event carries.
type EventKind int

// Event kinds accepted by the pipeline.
const (
	EventSnapshot EventKind = iota + 1 // a complete report snapshot
	EventPosition                      // a new device position
	EventClear                         // reset of the alerted set
)

// String returns the lowercase kind name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventPosition:
		return "position"
	case EventClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Event is the single message type consumed by the pipeline, regardless of
// which source produced it.
type Event struct {
	Kind     EventKind
	Reports  []models.Report
	Position location.Coordinate
}

// SnapshotEvent wraps a full report snapshot.
func SnapshotEvent(reports []models.Report) Event {
	return Event{Kind: EventSnapshot, Reports: reports}
}

// PositionEvent carries a device position fix.
func PositionEvent(pos location.Coordinate) Event {
	return Event{Kind: EventPosition, Position: pos}
}

// ClearEvent requests a reset of the alerted set.
func ClearEvent() Event {
	return Event{Kind: EventClear}
}

// EventSubmitter accepts events for the pipeline.
type EventSubmitter interface {
	Submit(ev Event) error
}

// PipelineStats is a point-in-time summary for heartbeats.
type PipelineStats struct {
	KnownReports   int
	AlertedReports int
	HasPosition    bool
}

// PipelineService owns the report feed and the proximity notifier and applies
// every event to them from a single goroutine.
type PipelineService struct {
	// Configuration fields
	suppressInitial bool

	// Dependencies
	feed     *feed.ReportFeed
	notifier *proximity.Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	// Internal state management
	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewPipelineService creates a pipeline. When suppressInitial is set, the
// first snapshot only primes the feed and produces no notifications.
func NewPipelineService(reportFeed *feed.ReportFeed, notifier *proximity.Notifier, suppressInitial bool,
	buffer int, logger zerolog.Logger, m *metrics.Metrics) *PipelineService {
	if buffer < 1 {
		buffer = 1
	}
	return &PipelineService{
		suppressInitial: suppressInitial,
		feed:            reportFeed,
		notifier:        notifier,
		logger:          logger,
		metrics:         m,
		events:          make(chan Event, buffer),
	}
}

// Start launches the event loop.
func (p *PipelineService) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.logger.Warn().Msg("PipelineService is already running")
		return errors.New("pipeline service is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run()
	}()

	p.logger.Info().
		Bool("suppress_initial_snapshot", p.suppressInitial).
		Float64("alert_radius_meters", p.notifier.Radius()).
		Msg("PipelineService started")
	return nil
}

// Stop ends the event loop after applying events that were already queued.
func (p *PipelineService) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.logger.Warn().Msg("PipelineService is not running")
		return errors.New("pipeline service is not running")
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("PipelineService stopped")
	return nil
}

// Submit queues an event. It blocks while the buffer is full.
func (p *PipelineService) Submit(ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return ErrPipelineStopped
	}

	select {
	case p.events <- ev:
		return nil
	case <-p.ctx.Done():
		return ErrPipelineStopped
	}
}

func (p *PipelineService) run() {
	for {
		select {
		case ev := <-p.events:
			p.Handle(ev)
		case <-p.ctx.Done():
			for {
				select {
				case ev := <-p.events:
					p.Handle(ev)
				default:
					return
				}
			}
		}
	}
}

// Handle applies one event synchronously. The event loop is its only caller
// in production; tests call it directly.
func (p *PipelineService) Handle(ev Event) {
	switch ev.Kind {
	case EventSnapshot:
		p.handleSnapshot(ev.Reports)
	case EventPosition:
		p.notifier.UpdatePosition(ev.Position)
	case EventClear:
		p.notifier.Clear()
		p.metrics.AlertedReset()
	default:
		p.logger.Warn().Int("kind", int(ev.Kind)).Msg("Ignoring unknown pipeline event")
	}
}

func (p *PipelineService) handleSnapshot(reports []models.Report) {
	initial := !p.feed.Primed()
	fresh := p.feed.ApplySnapshot(reports)
	suppressed := initial && p.suppressInitial

	p.metrics.SnapshotApplied(p.feed.Len(), len(fresh), suppressed)

	if suppressed {
		p.logger.Info().
			Int("reports", len(reports)).
			Msg("Initial snapshot applied, notifications suppressed for existing reports")
		return
	}
	if len(fresh) == 0 {
		return
	}

	res := p.notifier.Evaluate(fresh)
	for range res.Errors {
		p.metrics.SinkFailed()
	}
	p.metrics.Evaluated(len(res.Emitted), len(res.Deferred), len(res.OutOfRange), len(res.Skipped), p.notifier.AlertedCount())

	p.logger.Info().
		Int("new_reports", len(fresh)).
		Int("emitted", len(res.Emitted)).
		Int("deferred", len(res.Deferred)).
		Int("out_of_range", len(res.OutOfRange)).
		Int("delivery_failures", len(res.Errors)).
		Msg("Snapshot evaluated")
}

// RequestClear queues a reset of the alerted set.
func (p *PipelineService) RequestClear() error {
	return p.Submit(ClearEvent())
}

// Reports returns the latest snapshot.
func (p *PipelineService) Reports() []models.Report {
	return p.feed.Reports()
}

// Position returns the last known device position.
func (p *PipelineService) Position() (location.Coordinate, bool) {
	return p.notifier.Position()
}

// DistanceTo returns the distance in meters from the device to c.
func (p *PipelineService) DistanceTo(c location.Coordinate) (float64, bool) {
	return p.notifier.DistanceTo(c)
}

// AlertRadius returns the alert radius in meters.
func (p *PipelineService) AlertRadius() float64 {
	return p.notifier.Radius()
}

// Alerted reports whether id already produced a notification.
func (p *PipelineService) Alerted(id string) bool {
	return p.notifier.Alerted(id)
}

// Stats summarises the pipeline state.
func (p *PipelineService) Stats() PipelineStats {
	_, hasPosition := p.notifier.Position()
	return PipelineStats{
		KnownReports:   p.feed.Len(),
		AlertedReports: p.notifier.AlertedCount(),
		HasPosition:    hasPosition,
	}
}
