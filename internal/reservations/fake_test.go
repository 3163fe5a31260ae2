package reservations

import (
	"context"
	"sort"
	"sync"

	"kairo-backend/internal/availability"
)

// memoryRepo mimics the Postgres exclusion constraint: inserts and updates
// that overlap an active reservation fail with ErrOverlap under the lock.
type memoryRepo struct {
	mu    sync.Mutex
	items map[string]Reservation
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]Reservation)}
}

func (m *memoryRepo) conflicts(r Reservation) bool {
	if r.Status == StatusCancelled {
		return false
	}
	for id, other := range m.items {
		if id == r.ID || other.Status == StatusCancelled {
			continue
		}
		if availability.Overlaps(r.Slot(), other.Slot()) {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Create(_ context.Context, r Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(r) {
		return ErrOverlap
	}
	m.items[r.ID] = r
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return Reservation{}, ErrNoRecord
	}
	return r, nil
}

func (m *memoryRepo) List(_ context.Context, f ListFilter) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Reservation{}
	for _, r := range m.items {
		if !f.From.IsZero() && r.StartTime.Before(f.From) {
			continue
		}
		if !f.Until.IsZero() && !r.StartTime.Before(f.Until) {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memoryRepo) Overlapping(_ context.Context, slot availability.Slot, excludeID string) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Reservation{}
	for id, r := range m.items {
		if id == excludeID || r.Status == StatusCancelled {
			continue
		}
		if availability.Overlaps(slot, r.Slot()) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, r Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[r.ID]; !ok {
		return ErrNoRecord
	}
	if m.conflicts(r) {
		return ErrOverlap
	}
	m.items[r.ID] = r
	return nil
}

type memoryExclusions struct {
	mu    sync.Mutex
	items []Exclusion
}

func (m *memoryExclusions) Covering(_ context.Context, firstDay, lastDay string) ([]Exclusion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Exclusion{}
	for _, e := range m.items {
		if e.StartDate <= lastDay && e.EndDate >= firstDay {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryExclusions) List(context.Context) ([]Exclusion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Exclusion{}, m.items...), nil
}

func (m *memoryExclusions) Create(_ context.Context, e Exclusion) error {
	m.mu.Lock()
	m.items = append(m.items, e)
	m.mu.Unlock()
	return nil
}

func (m *memoryExclusions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.items {
		if e.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrNoRecord
}

type recordingNotifier struct {
	mu        sync.Mutex
	created   []string
	cancelled []string
}

func (n *recordingNotifier) ReservationCreated(_ context.Context, r Reservation) error {
	n.mu.Lock()
	n.created = append(n.created, r.ID)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) ReservationCancelled(_ context.Context, r Reservation) error {
	n.mu.Lock()
	n.cancelled = append(n.cancelled, r.ID)
	n.mu.Unlock()
	return nil
}
