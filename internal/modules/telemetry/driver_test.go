package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"tripsim/internal/modules/motion"
	"tripsim/internal/modules/profile"
	"tripsim/internal/modules/route"
	"tripsim/internal/modules/trip"
	"tripsim/internal/types"
)

var start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type memPublisher struct {
	mu       sync.Mutex
	err      error
	payloads [][]byte
	topics   []string
	onSend   func(n int)
}

func (p *memPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	p.topics = append(p.topics, topic)
	n := len(p.payloads)
	hook := p.onSend
	p.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func demoProfile(t *testing.T) profile.Profile {
	t.Helper()
	p, err := profile.Builtin().Get("demo")
	if err != nil {
		t.Fatalf("demo profile: %v", err)
	}
	return p
}

func registerTrip(t *testing.T, reg *trip.Registry, id types.ID) {
	t.Helper()
	if err := reg.Create(trip.Trip{ID: id, DomainCode: "AB12CD", StartTime: start, Status: trip.StatusActive}); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func newTestDriver(reg *trip.Registry, pub trip.Publisher, id types.ID, p profile.Profile, seed uint64) *Driver {
	cfg := DriverConfig{TelemetryTopic: "telemetria"}
	return NewDriver(id, "AB12CD", p, reg, pub, cfg, types.NewRand(seed))
}

func TestDriver_CompletesTrip(t *testing.T) {
	reg := trip.NewRegistry()
	pub := &memPublisher{}
	p := demoProfile(t)
	registerTrip(t, reg, "trip-1")

	d := newTestDriver(reg, pub, "trip-1", p, 7)
	if d.State() != StateStarting {
		t.Fatalf("initial state = %s", d.State())
	}
	if got := d.Run(context.Background()); got != StateCompleted {
		t.Fatalf("Run() = %s, want completed", got)
	}

	tr, err := reg.Get("trip-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tr.Status != trip.StatusCompleted || tr.EndTime == nil || tr.Summary == nil {
		t.Fatalf("trip not completed: %+v", tr)
	}

	want := route.PointCount(p.Waypoints, p.Synth)
	if len(tr.Events) != want {
		t.Fatalf("events = %d, want %d", len(tr.Events), want)
	}
	if tr.Events[0].Event != motion.EventDeparture || tr.Events[want-1].Event != motion.EventArrival {
		t.Errorf("boundary events = %d..%d", tr.Events[0].Event, tr.Events[want-1].Event)
	}
	if tr.Events[0].Location != "Base" || tr.Events[want-1].Location != "Punto final" {
		t.Errorf("boundary labels = %q..%q", tr.Events[0].Location, tr.Events[want-1].Location)
	}

	prev := start
	for i, ev := range tr.Events {
		if !ev.Timestamp.After(prev) {
			t.Fatalf("event %d timestamp %s not after %s", i, ev.Timestamp, prev)
		}
		if ev.SpeedKmh < 0 || ev.SpeedKmh > p.Motion.MaxKmh {
			t.Errorf("event %d speed %.2f out of bounds", i, ev.SpeedKmh)
		}
		if !ev.Event.Valid() {
			t.Errorf("event %d has unknown code %d", i, ev.Event)
		}
		prev = ev.Timestamp
	}
	if !tr.EndTime.Equal(tr.Events[want-1].Timestamp) {
		t.Errorf("end time %s != last event %s", tr.EndTime, tr.Events[want-1].Timestamp)
	}
	if tr.Summary.Origin != "Base" || tr.Summary.Destination != "Punto final" || tr.Summary.DistanceKm != p.NominalKm {
		t.Errorf("summary = %+v", tr.Summary)
	}
	hours := tr.EndTime.Sub(start).Hours()
	if diff := tr.Summary.AvgSpeedKmh - p.NominalKm/hours; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg speed = %.4f, want %.4f", tr.Summary.AvgSpeedKmh, p.NominalKm/hours)
	}

	if pub.count() != want || d.Published() != int64(want) {
		t.Fatalf("published %d (%d), want %d", pub.count(), d.Published(), want)
	}
	var first trip.TelemetryMessage
	if err := json.Unmarshal(pub.payloads[0], &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.DeviceID != "AB12CD" || first.UUID != tr.Events[0].ID.String() || pub.topics[0] != "telemetria" {
		t.Errorf("unexpected first message %+v on %s", first, pub.topics[0])
	}
}

func TestDriver_AbortsOnEviction(t *testing.T) {
	reg := trip.NewRegistry()
	pub := &memPublisher{}
	pub.onSend = func(n int) {
		if n == 3 {
			reg.Remove("trip-1")
		}
	}
	registerTrip(t, reg, "trip-1")

	d := newTestDriver(reg, pub, "trip-1", demoProfile(t), 11)
	if got := d.Run(context.Background()); got != StateAborted {
		t.Fatalf("Run() = %s, want aborted", got)
	}
	if pub.count() != 3 {
		t.Errorf("published %d messages after eviction, want 3", pub.count())
	}
}

func TestDriver_AbortsWhenTripMissingAtStart(t *testing.T) {
	reg := trip.NewRegistry()
	pub := &memPublisher{}
	d := newTestDriver(reg, pub, "ghost", demoProfile(t), 1)
	if got := d.Run(context.Background()); got != StateAborted {
		t.Fatalf("Run() = %s, want aborted", got)
	}
	if pub.count() != 0 {
		t.Errorf("published %d messages for missing trip", pub.count())
	}
}

func TestDriver_PublishFailureKeepsStreaming(t *testing.T) {
	reg := trip.NewRegistry()
	pub := &memPublisher{err: errors.New("broker down")}
	p := demoProfile(t)
	registerTrip(t, reg, "trip-1")

	d := newTestDriver(reg, pub, "trip-1", p, 3)
	if got := d.Run(context.Background()); got != StateCompleted {
		t.Fatalf("Run() = %s, want completed", got)
	}
	events, _ := reg.Events("trip-1")
	if len(events) != route.PointCount(p.Waypoints, p.Synth) {
		t.Errorf("events = %d, expected full route despite publish failures", len(events))
	}
	if d.Published() != 0 {
		t.Errorf("published = %d, want 0", d.Published())
	}
}

func TestDriver_CancelledContext(t *testing.T) {
	reg := trip.NewRegistry()
	pub := &memPublisher{}
	registerTrip(t, reg, "trip-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDriver(reg, pub, "trip-1", demoProfile(t), 5)
	if got := d.Run(ctx); got != StateAborted {
		t.Fatalf("Run() = %s, want aborted", got)
	}
	events, _ := reg.Events("trip-1")
	if len(events) != 0 || pub.count() != 0 {
		t.Errorf("cancelled driver produced %d events, %d messages", len(events), pub.count())
	}
	tr, _ := reg.Get("trip-1")
	if tr.Status != trip.StatusActive {
		t.Errorf("aborted trip status = %s, want active", tr.Status)
	}
}

func TestDriver_CancelDuringPacing(t *testing.T) {
	reg := trip.NewRegistry()
	pub := &memPublisher{}
	registerTrip(t, reg, "trip-1")

	ctx, cancel := context.WithCancel(context.Background())
	cfg := DriverConfig{TelemetryTopic: "telemetria", PaceMin: time.Hour, PaceMax: time.Hour}
	d := NewDriver("trip-1", "AB12CD", demoProfile(t), reg, pub, cfg, types.NewRand(9))
	// first pause would block for an hour; only cancellation lets Run return
	pub.onSend = func(n int) { cancel() }

	done := make(chan State, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case got := <-done:
		if got != StateAborted {
			t.Fatalf("Run() = %s, want aborted", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop on cancellation")
	}
	if pub.count() != 1 {
		t.Errorf("published %d, want 1", pub.count())
	}
}

func TestDriver_SameSeedSameTrack(t *testing.T) {
	p := demoProfile(t)
	run := func() []trip.TelemetryEvent {
		reg := trip.NewRegistry()
		registerTrip(t, reg, "trip-1")
		newTestDriver(reg, &memPublisher{}, "trip-1", p, 42).Run(context.Background())
		events, _ := reg.Events("trip-1")
		return events
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Position != b[i].Position || a[i].SpeedKmh != b[i].SpeedKmh || !a[i].Timestamp.Equal(b[i].Timestamp) {
			t.Fatalf("event %d differs", i)
		}
	}
}

func TestStepDuration_FloorAndJitter(t *testing.T) {
	d := NewDriver("x", "AB12CD", profile.Profile{}, nil, nil, DriverConfig{}, types.NewRand(1))
	if got := d.stepDuration(0, 50); got != time.Second {
		t.Errorf("zero distance = %s, want 1s", got)
	}
	if got := d.stepDuration(10, 0); got != time.Second {
		t.Errorf("zero speed = %s, want 1s", got)
	}
	for i := 0; i < 100; i++ {
		got := d.stepDuration(60, 60).Seconds()
		if got < 3600*0.95-1e-6 || got > 3600*1.05+1e-6 {
			t.Fatalf("jittered hour = %.1fs", got)
		}
	}
}
