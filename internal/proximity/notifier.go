// Package proximity turns newly arrived reports and the current device
// position into at-most-once notification requests.
package proximity

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/rs/zerolog"
)

const (
	// AlertRadiusMeters is five statute miles.
	AlertRadiusMeters = 8046.72

	// boundaryTolerance absorbs floating point noise so a report placed exactly
	// on the radius is treated as inside it.
	boundaryTolerance = 1e-6
)

// Sink accepts notification requests for delivery.
type Sink interface {
	Emit(req models.NotificationRequest) error
}

// DistanceFunc measures the distance in meters between two coordinates.
type DistanceFunc func(a, b location.Coordinate) float64

// Result summarises a single Evaluate call. Slices hold report ids.
type Result struct {
	Emitted    []string
	Deferred   []string // no position known yet
	OutOfRange []string
	Skipped    []string // already alerted
	Errors     []error  // sink delivery failures, one per failed emit
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithRadius overrides the alert radius in meters.
func WithRadius(meters float64) Option {
	return func(n *Notifier) { n.radius = meters }
}

// WithDistanceFunc replaces the haversine distance.
func WithDistanceFunc(fn DistanceFunc) Option {
	return func(n *Notifier) { n.distance = fn }
}

// WithClock replaces time.Now for alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// Notifier owns the device position and the set of alerted reports.
// All mutating calls are serialized; read accessors may be called from any goroutine.
type Notifier struct {
	sink     Sink
	logger   zerolog.Logger
	radius   float64
	distance DistanceFunc
	now      func() time.Time

	mu       sync.RWMutex
	position location.Coordinate
	hasFix   bool
	alerted  *AlertedSet
}

// NewNotifier creates a Notifier delivering to sink.
func NewNotifier(sink Sink, logger zerolog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		sink:     sink,
		logger:   logger,
		radius:   AlertRadiusMeters,
		distance: location.DistanceMeters,
		now:      time.Now,
		alerted:  NewAlertedSet(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// UpdatePosition replaces the stored position. Coordinates are not validated
// and previously out-of-range reports are not re-evaluated.
func (n *Notifier) UpdatePosition(pos location.Coordinate) {
	n.mu.Lock()
	n.position = pos
	n.hasFix = true
	n.mu.Unlock()

	n.logger.Debug().
		Float64("latitude", pos.Latitude).
		Float64("longitude", pos.Longitude).
		Msg("Position updated")
}

// Position returns the last known position, if any.
func (n *Notifier) Position() (location.Coordinate, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position, n.hasFix
}

// Evaluate checks each report in order against the current position and emits
// one notification for every report within the alert radius that has not been
// alerted before. Reports are marked alerted under the lock and emitted after
// it is released, so a slow sink never blocks readers. Reports stay alerted
// even when the sink fails.
func (n *Notifier) Evaluate(reports []models.Report) Result {
	type pending struct {
		report models.Report
		miles  float64
	}

	var (
		res   Result
		queue []pending
	)

	n.mu.Lock()
	for _, r := range reports {
		if n.alerted.Has(r.ID) {
			res.Skipped = append(res.Skipped, r.ID)
			continue
		}

		if !n.hasFix {
			n.logger.Debug().Str("report_id", r.ID).Msg("No position yet, deferring report")
			res.Deferred = append(res.Deferred, r.ID)
			continue
		}

		meters := n.distance(n.position, r.Position)
		if !n.inRange(meters) {
			res.OutOfRange = append(res.OutOfRange, r.ID)
			continue
		}

		if !n.alerted.Add(r.ID, n.now()) {
			res.Skipped = append(res.Skipped, r.ID)
			continue
		}
		res.Emitted = append(res.Emitted, r.ID)
		queue = append(queue, pending{report: r, miles: location.RoundTo(location.MetersToMiles(meters), 1)})
	}
	n.mu.Unlock()

	for _, p := range queue {
		if err := n.sink.Emit(buildRequest(p.report, p.miles)); err != nil {
			n.logger.Warn().
				Err(err).
				Str("report_id", p.report.ID).
				Msg("Failed to deliver proximity notification")
			res.Errors = append(res.Errors, fmt.Errorf("emit %s: %w", p.report.ID, err))
			continue
		}

		n.logger.Info().
			Str("report_id", p.report.ID).
			Str("category", string(p.report.Category)).
			Float64("distance_miles", p.miles).
			Msg("Proximity notification emitted")
	}

	return res
}

// Clear forgets every alerted report. The position is kept.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	cleared := n.alerted.Len()
	n.alerted.Clear()
	n.logger.Info().Int("cleared", cleared).Msg("Alerted set cleared")
}

// Alerted reports whether a notification was already emitted for id.
func (n *Notifier) Alerted(id string) bool {
	return n.alerted.Has(id)
}

// AlertedCount returns the size of the alerted set.
func (n *Notifier) AlertedCount() int {
	return n.alerted.Len()
}

// Radius returns the alert radius in meters.
func (n *Notifier) Radius() float64 {
	return n.radius
}

// DistanceTo returns the distance in meters from the current position to c.
// ok is false when no position is known or the distance is not finite.
func (n *Notifier) DistanceTo(c location.Coordinate) (meters float64, ok bool) {
	pos, has := n.Position()
	if !has {
		return 0, false
	}
	meters = n.distance(pos, c)
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return 0, false
	}
	return meters, true
}

// inRange treats NaN and infinities as out of range.
func (n *Notifier) inRange(meters float64) bool {
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return false
	}
	return meters <= n.radius+boundaryTolerance
}

func buildRequest(r models.Report, miles float64) models.NotificationRequest {
	category := r.Category.Title()

	return models.NotificationRequest{
		Identifier: r.ID,
		Title:      fmt.Sprintf("%s reported nearby", category),
		Body:       fmt.Sprintf("%s reported %.1f mi away near %s", category, miles, r.LocationLabel),
		Payload: map[string]any{
			models.PayloadReportID:      r.ID,
			models.PayloadCategory:      string(r.Category),
			models.PayloadDistanceMiles: miles,
			models.PayloadLocationLabel: r.LocationLabel,
		},
	}
}
