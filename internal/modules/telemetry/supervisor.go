// README: Supervisor owns every running driver: launch, cap, cancel, shutdown.
package telemetry

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"tripsim/internal/modules/profile"
	"tripsim/internal/modules/trip"
	"tripsim/internal/types"
)

// Factory builds the driver for a newly created trip.
type Factory func(tripID types.ID, domainCode string, p profile.Profile) *Driver

// NewFactory returns a Factory wiring drivers to store and publisher. A zero
// seed gives every driver an unpredictable generator; any other seed makes
// the n-th launched driver reproducible.
func NewFactory(store TripStore, publisher trip.Publisher, cfg DriverConfig, seed uint64) Factory {
	var launched atomic.Uint64
	return func(tripID types.ID, domainCode string, p profile.Profile) *Driver {
		s := seed
		if s == 0 {
			s = rand.Uint64()
		} else {
			s += launched.Add(1)
		}
		return NewDriver(tripID, domainCode, p, store, publisher, cfg, types.NewRand(s))
	}
}

// Handle tracks one launched driver.
type Handle struct {
	driver *Driver
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *Handle) TripID() types.ID { return h.driver.TripID() }

func (h *Handle) State() State { return h.driver.State() }

// Done is closed once the driver reached a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Cancel() { h.cancel() }

type Supervisor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	factory Factory
	slots   chan struct{}
	wg      conc.WaitGroup

	mu      sync.Mutex
	handles map[types.ID]*Handle
	closed  bool
}

// NewSupervisor derives every driver context from ctx. At most maxConcurrent
// drivers stream at once; a value <= 0 removes the cap.
func NewSupervisor(ctx context.Context, factory Factory, maxConcurrent int) *Supervisor {
	ctx, cancel := context.WithCancel(ctx)
	s := &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		factory: factory,
		handles: make(map[types.ID]*Handle),
	}
	if maxConcurrent > 0 {
		s.slots = make(chan struct{}, maxConcurrent)
	}
	return s
}

// Launch satisfies trip.Launcher.
func (s *Supervisor) Launch(tripID types.ID, domainCode string, p profile.Profile) {
	s.Start(tripID, domainCode, p)
}

// Start launches a driver and returns its handle without waiting. Drivers
// over the cap stay in StateStarting until a slot frees up.
func (s *Supervisor) Start(tripID types.ID, domainCode string, p profile.Profile) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[tripID]; ok {
		return h
	}

	ctx, cancel := context.WithCancel(s.ctx)
	h := &Handle{
		driver: s.factory(tripID, domainCode, p),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if s.closed {
		cancel()
		h.driver.setState(StateAborted)
		close(h.done)
		return h
	}
	s.handles[tripID] = h

	s.wg.Go(func() {
		defer close(h.done)
		defer s.forget(tripID, h)
		defer cancel()

		if !s.acquire(ctx) {
			h.driver.setState(StateAborted)
			return
		}
		defer s.release()

		state := h.driver.Run(ctx)
		log.Debug().Str("trip_id", string(tripID)).Str("state", string(state)).Msg("driver finished")
	})
	return h
}

func (s *Supervisor) acquire(ctx context.Context) bool {
	if s.slots == nil {
		return ctx.Err() == nil
	}
	select {
	case s.slots <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Supervisor) release() {
	if s.slots != nil {
		<-s.slots
	}
}

func (s *Supervisor) forget(tripID types.ID, h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[tripID] == h {
		delete(s.handles, tripID)
	}
}

// Cancel stops the driver for tripID. It reports whether one was running.
func (s *Supervisor) Cancel(tripID types.ID) bool {
	s.mu.Lock()
	h, ok := s.handles[tripID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// Handle looks up the running driver for tripID.
func (s *Supervisor) Handle(tripID types.ID) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[tripID]
	return h, ok
}

// Active lists trips whose driver has not finished, sorted.
func (s *Supervisor) Active() []types.ID {
	s.mu.Lock()
	out := make([]types.ID, 0, len(s.handles))
	for id := range s.handles {
		out = append(out, id)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Shutdown cancels every driver and waits for them, bounded by ctx. Later
// launches abort immediately.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pending := len(s.handles)
	s.mu.Unlock()

	log.Info().Int("drivers", pending).Msg("stopping telemetry drivers")
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := s.wg.WaitAndRecover(); r != nil {
			log.Error().Str("panic", r.String()).Msg("driver panicked")
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
