package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/google/uuid"
)

// Category classifies the activity observed in a report.
type Category string

const (
	CategoryCheckpoint Category = "CHECKPOINT"
	CategoryPatrol     Category = "PATROL"
	CategoryRaid       Category = "RAID"
)

// Categories lists the closed set of report categories.
var Categories = []Category{CategoryCheckpoint, CategoryPatrol, CategoryRaid}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Title returns the category in title case for user-facing text ("Checkpoint").
func (c Category) Title() string {
	s := strings.ToLower(string(c))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Report is a single user-submitted observation of activity at a location.
// Reports are immutable once created.
type Report struct {
	ID            string              `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	Category      Category            `json:"category"`
	LocationLabel string              `json:"location_label"`
	Position      location.Coordinate `json:"position"`
	Narrative     string              `json:"narrative"`
	MediaRef      string              `json:"media_ref,omitempty"` // empty when no image is attached
}

// HasMedia reports whether an image is attached to the report.
func (r Report) HasMedia() bool {
	return r.MediaRef != ""
}

// SnapshotMessage is the payload delivered on the feed topic. It always carries
// the complete current set of visible reports, never a delta.
type SnapshotMessage struct {
	SchemaVersion string   `json:"schema_version"`
	Reports       []Report `json:"reports"`
}

// ErrInvalidReport is returned when a submission is missing required fields.
var ErrInvalidReport = errors.New("invalid report")

// ReportSubmission carries the user-supplied fields of a new report.
type ReportSubmission struct {
	Category      Category            `json:"category"`
	LocationLabel string              `json:"location_label"`
	Position      location.Coordinate `json:"position"`
	Narrative     string              `json:"narrative"`
	MediaRef      string              `json:"media_ref,omitempty"`
}

// NewReport validates a submission and builds a Report with a fresh id and the given creation time.
func NewReport(sub ReportSubmission, now time.Time) (Report, error) {
	category := Category(strings.ToUpper(strings.TrimSpace(string(sub.Category))))
	label := strings.TrimSpace(sub.LocationLabel)
	narrative := strings.TrimSpace(sub.Narrative)

	switch {
	case category == "":
		return Report{}, fmt.Errorf("%w: category is required", ErrInvalidReport)
	case !category.Valid():
		return Report{}, fmt.Errorf("%w: unknown category %q", ErrInvalidReport, sub.Category)
	case label == "":
		return Report{}, fmt.Errorf("%w: location label is required", ErrInvalidReport)
	case narrative == "":
		return Report{}, fmt.Errorf("%w: narrative is required", ErrInvalidReport)
	}

	return Report{
		ID:            uuid.New().String(),
		CreatedAt:     now.UTC(),
		Category:      category,
		LocationLabel: label,
		Position:      sub.Position,
		Narrative:     narrative,
		MediaRef:      strings.TrimSpace(sub.MediaRef),
	}, nil
}
