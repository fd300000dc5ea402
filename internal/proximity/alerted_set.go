package proximity

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// AlertedSet records report ids that already produced a notification, with
// the time of emission. It lives in memory only.
type AlertedSet struct {
	entries cmap.ConcurrentMap[string, time.Time]
}

// NewAlertedSet returns an empty set.
func NewAlertedSet() *AlertedSet {
	return &AlertedSet{entries: cmap.New[time.Time]()}
}

// Has reports whether id has been alerted.
func (s *AlertedSet) Has(id string) bool {
	return s.entries.Has(id)
}

// Add records id as alerted at t. It returns false if id was already present.
func (s *AlertedSet) Add(id string, t time.Time) bool {
	return s.entries.SetIfAbsent(id, t)
}

// AlertedAt returns when id was alerted.
func (s *AlertedSet) AlertedAt(id string) (time.Time, bool) {
	return s.entries.Get(id)
}

// Len returns the number of alerted ids.
func (s *AlertedSet) Len() int {
	return s.entries.Count()
}

// Clear removes every entry.
func (s *AlertedSet) Clear() {
	s.entries.Clear()
}
