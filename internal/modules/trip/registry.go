// README: Trip registry; in-memory, mutex-protected source of truth for trip state.
package trip

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tripsim/internal/types"
)

// Registry owns every Trip record. It is constructed by the composition root
// and lives for the process lifetime; nothing is persisted.
type Registry struct {
	mu    sync.RWMutex
	trips map[types.ID]*Trip
}

func NewRegistry() *Registry {
	return &Registry{trips: make(map[types.ID]*Trip)}
}

func (r *Registry) Create(t Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trips[t.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTrip, t.ID)
	}
	stored := t.clone()
	r.trips[t.ID] = &stored
	return nil
}

func (r *Registry) Get(id types.ID) (Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[id]
	if !ok {
		return Trip{}, ErrNotFound
	}
	return t.clone(), nil
}

func (r *Registry) Events(id types.ID) ([]TelemetryEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]TelemetryEvent, len(t.Events))
	copy(out, t.Events)
	return out, nil
}

// AppendEvent adds ev to the trip's log. A missing trip is not fatal: it is
// logged and reported as ErrNotFound so the running driver can stop.
func (r *Registry) AppendEvent(id types.ID, ev TelemetryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[id]
	if !ok {
		log.Debug().Str("trip_id", string(id)).Msg("append skipped: trip no longer registered")
		return ErrNotFound
	}
	if t.Status != StatusActive {
		return ErrTripCompleted
	}
	if n := len(t.Events); n > 0 && !ev.Timestamp.After(t.Events[n-1].Timestamp) {
		return ErrOutOfOrder
	}
	t.Events = append(t.Events, ev)
	return nil
}

// Complete marks the trip completed. It reports whether anything changed;
// absent or already completed trips are left untouched.
func (r *Registry) Complete(id types.ID, end time.Time, summary RouteSummary) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[id]
	if !ok || !CanTransition(t.Status, StatusCompleted) {
		return false
	}
	t.Status = StatusCompleted
	t.EndTime = &end
	t.Summary = &summary
	return true
}

func (r *Registry) Remove(id types.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trips[id]; !ok {
		return false
	}
	delete(r.trips, id)
	return true
}

// List returns snapshots of every trip ordered by start time.
func (r *Registry) List() []Trip {
	r.mu.RLock()
	out := make([]Trip, 0, len(r.trips))
	for _, t := range r.trips {
		out = append(out, t.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trips)
}
