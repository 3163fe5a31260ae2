package events

import (
	"context"
	"sync"
)

type Recorded struct {
	Subject string
	Data    interface{}
}

// Recorder keeps published events in memory. The CLI uses it for dry runs
// and tests use it to assert on emitted subjects.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func (r *Recorder) Publish(_ context.Context, subject string, data interface{}) error {
	r.mu.Lock()
	r.events = append(r.events, Recorded{Subject: subject, Data: data})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Subjects() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Subject)
	}
	return out
}
