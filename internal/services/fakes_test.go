package services_test

import (
	"sync"

	"github.com/benmeehan/proximity-agent/internal/services"
)

// recordingSubmitter collects submitted events in order.
type recordingSubmitter struct {
	mu     sync.Mutex
	events []services.Event
	err    error
}

func (r *recordingSubmitter) Submit(ev services.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSubmitter) Events() []services.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]services.Event(nil), r.events...)
}
