// README: Telemetry driver; walks one trip's synthesized route and streams events.
package telemetry

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tripsim/internal/modules/motion"
	"tripsim/internal/modules/profile"
	"tripsim/internal/modules/route"
	"tripsim/internal/modules/trip"
	"tripsim/internal/types"
)

type State string

const (
	StateStarting  State = "starting"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// TripStore is the part of the registry a driver writes to.
type TripStore interface {
	Get(id types.ID) (trip.Trip, error)
	AppendEvent(id types.ID, ev trip.TelemetryEvent) error
	Complete(id types.ID, end time.Time, summary trip.RouteSummary) bool
}

type DriverConfig struct {
	TelemetryTopic string
	PublishTimeout time.Duration
	PaceMin        time.Duration
	PaceMax        time.Duration
}

const (
	jitter     = 0.05
	minStepDur = time.Second
)

type Driver struct {
	tripID     types.ID
	domainCode string
	profile    profile.Profile
	store      TripStore
	publisher  trip.Publisher
	cfg        DriverConfig
	rng        *rand.Rand
	state      atomic.Value
	published  atomic.Int64
}

func NewDriver(tripID types.ID, domainCode string, p profile.Profile, store TripStore, publisher trip.Publisher, cfg DriverConfig, rng *rand.Rand) *Driver {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	if cfg.PaceMax < cfg.PaceMin {
		cfg.PaceMax = cfg.PaceMin
	}
	d := &Driver{
		tripID:     tripID,
		domainCode: domainCode,
		profile:    p,
		store:      store,
		publisher:  publisher,
		cfg:        cfg,
		rng:        rng,
	}
	d.state.Store(StateStarting)
	return d
}

func (d *Driver) TripID() types.ID { return d.tripID }

func (d *Driver) State() State { return d.state.Load().(State) }

// Published counts telemetry messages accepted by the publisher.
func (d *Driver) Published() int64 { return d.published.Load() }

func (d *Driver) setState(s State) State {
	d.state.Store(s)
	return s
}

// Run drives the trip to a terminal state and returns it. Cancelling ctx or
// evicting the trip from the store aborts the run before the next event.
func (d *Driver) Run(ctx context.Context) State {
	if d.State().Terminal() {
		return d.State()
	}
	logger := log.With().Str("trip_id", string(d.tripID)).Str("domain", d.domainCode).Logger()

	t, err := d.store.Get(d.tripID)
	if err != nil {
		logger.Debug().Err(err).Msg("trip gone before driver start")
		return d.setState(StateAborted)
	}

	p := d.profile
	points := route.Synthesize(p.Waypoints, p.Synth, d.rng)
	conditions := motion.SampleConditions(d.rng)
	model := motion.NewModel(p.Motion).WithConditions(conditions)
	current := motion.State{SpeedKmh: model.InitialSpeed()}
	clock := t.StartTime

	d.setState(StateStreaming)
	logger.Info().
		Str("profile", p.Name).
		Int("points", len(points)).
		Str("weather", string(conditions.Weather)).
		Str("traffic", string(conditions.Traffic)).
		Msg("driver streaming")

	for i, pt := range points {
		if ctx.Err() != nil {
			logger.Info().Int("index", i).Msg("driver cancelled")
			return d.setState(StateAborted)
		}

		current = model.Advance(current, i, points, p.Waypoints, d.rng)
		distance := 0.0
		if i > 0 {
			distance = types.HaversineKm(points[i-1], pt)
		}
		next := clock.Add(d.stepDuration(distance, current.SpeedKmh))

		ev := trip.TelemetryEvent{
			ID:        uuid.New(),
			TripID:    d.tripID,
			Timestamp: next,
			Position:  pt,
			SpeedKmh:  current.SpeedKmh,
			Event:     current.LastEvent,
			Location:  current.Location,
			Weather:   conditions.Weather,
			Traffic:   conditions.Traffic,
		}
		if err := d.store.AppendEvent(d.tripID, ev); err != nil {
			if errors.Is(err, trip.ErrNotFound) {
				logger.Info().Int("index", i).Msg("trip evicted, driver stopping")
			} else {
				logger.Error().Err(err).Int("index", i).Msg("event rejected, driver stopping")
			}
			return d.setState(StateAborted)
		}
		clock = next
		d.publish(ctx, logger, ev)

		if i < len(points)-1 && !d.pause(ctx) {
			logger.Info().Int("index", i).Msg("driver cancelled")
			return d.setState(StateAborted)
		}
	}

	summary := trip.NewRouteSummary(p.Origin(), p.Destination(), p.NominalKm, t.StartTime, clock)
	if !d.store.Complete(d.tripID, clock, summary) {
		return d.setState(StateAborted)
	}
	logger.Info().
		Float64("duration_hours", summary.DurationHours).
		Float64("avg_speed_kmh", summary.AvgSpeedKmh).
		Msg("trip completed")
	return d.setState(StateCompleted)
}

func (d *Driver) publish(ctx context.Context, logger zerolog.Logger, ev trip.TelemetryEvent) {
	payload, err := trip.NewTelemetryMessage(d.domainCode, ev).Encode()
	if err != nil {
		logger.Error().Err(err).Msg("encoding telemetry")
		return
	}
	pctx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()
	if err := d.publisher.Publish(pctx, d.cfg.TelemetryTopic, payload); err != nil {
		logger.Warn().Err(err).Str("topic", d.cfg.TelemetryTopic).Msg("telemetry not published")
		return
	}
	d.published.Add(1)
}

// stepDuration converts a hop into simulated seconds with a small jitter.
// It never returns less than one second so timestamps strictly increase.
func (d *Driver) stepDuration(distanceKm, speedKmh float64) time.Duration {
	if speedKmh <= 0 {
		return minStepDur
	}
	seconds := distanceKm / speedKmh * 3600
	seconds *= 1 + (d.rng.Float64()*2-1)*jitter
	dur := time.Duration(seconds * float64(time.Second))
	if dur < minStepDur {
		return minStepDur
	}
	return dur
}

// pause sleeps a random wall-clock interval between events. It reports false
// when ctx ends first.
func (d *Driver) pause(ctx context.Context) bool {
	wait := d.cfg.PaceMin
	if span := d.cfg.PaceMax - d.cfg.PaceMin; span > 0 {
		wait += time.Duration(d.rng.Int64N(int64(span) + 1))
	}
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
