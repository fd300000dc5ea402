// Package feed tracks the latest complete set of reports and reports which
// identifiers are new since the previous snapshot.
package feed

import (
	"sync"

	"github.com/benmeehan/proximity-agent/internal/models"
)

// ReportFeed holds the last applied snapshot. It is safe for concurrent use.
type ReportFeed struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	reports []models.Report
	primed  bool
}

// NewReportFeed returns an empty feed. The first snapshot applied to it
// reports every entry as new.
func NewReportFeed() *ReportFeed {
	return &ReportFeed{ids: make(map[string]struct{})}
}

// ApplySnapshot replaces the stored snapshot with reports and returns the
// subset whose id was absent from the previous snapshot, in input order.
// Only identifier membership is compared; changed content under a known id
// does not make the report new again. Repeated ids within one snapshot are
// returned and stored once, keeping the first occurrence.
func (f *ReportFeed) ApplySnapshot(reports []models.Report) []models.Report {
	next := make(map[string]struct{}, len(reports))
	stored := make([]models.Report, 0, len(reports))
	fresh := make([]models.Report, 0)

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range reports {
		if _, dup := next[r.ID]; dup {
			continue
		}
		next[r.ID] = struct{}{}
		stored = append(stored, r)
		if _, known := f.ids[r.ID]; !known {
			fresh = append(fresh, r)
		}
	}

	f.ids = next
	f.reports = stored
	f.primed = true

	return fresh
}

// Reports returns a copy of the latest snapshot.
func (f *ReportFeed) Reports() []models.Report {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Report, len(f.reports))
	copy(out, f.reports)
	return out
}

// Len returns the number of distinct ids in the latest snapshot.
func (f *ReportFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Primed reports whether at least one snapshot has been applied.
func (f *ReportFeed) Primed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.primed
}
