package motion

import (
	"math"
	"testing"

	"tripsim/internal/modules/route"
	"tripsim/internal/types"
)

// straightLine returns n evenly spaced points along the equator, far from
// any waypoint in farWaypoints.
func straightLine(n int) []route.RoutePoint {
	pts := make([]route.RoutePoint, n)
	for i := range pts {
		pts[i] = route.RoutePoint{Lat: 0, Lng: float64(i) * 0.001}
	}
	return pts
}

var farWaypoints = []route.Waypoint{
	{Lat: 10, Lng: 0, Label: "Origen"},
	{Lat: 10, Lng: 1, Label: "Destino"},
}

func TestStep_Boundaries(t *testing.T) {
	m := NewModel(DefaultParams())
	pts := straightLine(5)
	rng := types.NewRand(1)

	speed, code, label := m.Step(0, pts, farWaypoints, 55, rng)
	if code != EventDeparture || speed != DefaultParams().DepartureKmh || label != "Origen" {
		t.Errorf("departure step = (%f, %s, %q)", speed, code, label)
	}

	speed, code, label = m.Step(len(pts)-1, pts, farWaypoints, 55, rng)
	if code != EventArrival || speed != DefaultParams().ArrivalKmh || label != "Destino" {
		t.Errorf("arrival step = (%f, %s, %q)", speed, code, label)
	}
}

func TestStep_ProximityUsesUrbanBand(t *testing.T) {
	p := DefaultParams()
	m := NewModel(p)
	pts := straightLine(5)
	waypoints := []route.Waypoint{
		{Lat: 0, Lng: 0, Label: "Depósito"},
		{Lat: 0, Lng: 0.002, Label: "Cruce"},
		{Lat: 0, Lng: 0.004, Label: "Sucursal"},
	}
	rng := types.NewRand(5)

	for i := 0; i < 50; i++ {
		speed, code, label := m.Step(2, pts, waypoints, 60, rng)
		if !code.IsUrban() {
			t.Fatalf("expected urban code, got %s", code)
		}
		if label != "Cruce" {
			t.Fatalf("expected nearest label Cruce, got %q", label)
		}
		lo := 60*0.9 + p.UrbanMinKmh*0.1
		hi := 60*0.9 + p.UrbanMaxKmh*0.1
		if speed < lo || speed > hi {
			t.Fatalf("speed %f outside smoothing band [%f, %f]", speed, lo, hi)
		}
	}
}

func TestStep_Curvature(t *testing.T) {
	p := DefaultParams()
	m := NewModel(p)
	rng := types.NewRand(9)

	tests := []struct {
		name      string
		next      route.RoutePoint
		prev      float64
		wantCode  EventCode
		wantSpeed float64
	}{
		{
			name:      "u-turn is sharp and floored",
			next:      route.RoutePoint{Lat: 0, Lng: 0},
			prev:      20,
			wantCode:  EventSharpTurn,
			wantSpeed: p.SharpFloorKmh,
		},
		{
			name:      "right angle is sharp",
			next:      route.RoutePoint{Lat: 0.001, Lng: 0.001},
			prev:      80,
			wantCode:  EventSharpTurn,
			wantSpeed: 80 * p.SharpFactor,
		},
		{
			name:      "45 degrees is moderate",
			next:      route.RoutePoint{Lat: 0.001, Lng: 0.002},
			prev:      60,
			wantCode:  EventModerateTurn,
			wantSpeed: 60 * p.ModerateFactor,
		},
		{
			name:      "straight below cruise accelerates",
			next:      route.RoutePoint{Lat: 0, Lng: 0.002},
			prev:      50,
			wantCode:  EventAccelerating,
			wantSpeed: 50 * p.AccelFactor,
		},
		{
			name:      "straight above cruise is capped",
			next:      route.RoutePoint{Lat: 0, Lng: 0.002},
			prev:      85,
			wantCode:  EventCruise,
			wantSpeed: p.MaxKmh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := []route.RoutePoint{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}, tt.next, {Lat: 5, Lng: 5}}
			speed, code, label := m.Step(1, pts, farWaypoints, tt.prev, rng)
			if code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
			if diff := speed - tt.wantSpeed; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("speed = %f, want %f", speed, tt.wantSpeed)
			}
			if label != LabelEnRoute {
				t.Errorf("label = %q, want %q", label, LabelEnRoute)
			}
		})
	}
}

func TestStep_SpeedBounds(t *testing.T) {
	p := DefaultParams()
	m := NewModel(p)
	waypoints := []route.Waypoint{
		{Lat: -34.6037, Lng: -58.3816, Label: "Buenos Aires"},
		{Lat: -34.1633, Lng: -58.9592, Label: "Campana"},
		{Lat: -34.0981, Lng: -59.0286, Label: "Zárate"},
	}
	opts := route.DefaultSynthOptions()
	opts.Noise, opts.Drift = 0.0005, 0.002 // exaggerated to force every branch

	for seed := uint64(0); seed < 5; seed++ {
		rng := types.NewRand(seed)
		pts := route.Synthesize(waypoints, opts, rng)
		state := State{SpeedKmh: m.InitialSpeed()}
		for i := range pts {
			state = m.Advance(state, i, pts, waypoints, rng)
			if state.SpeedKmh < 0 || state.SpeedKmh > p.MaxKmh {
				t.Fatalf("seed %d step %d: speed %f outside [0, %f]", seed, i, state.SpeedKmh, p.MaxKmh)
			}
			if !state.LastEvent.Valid() {
				t.Fatalf("seed %d step %d: invalid event code %d", seed, i, state.LastEvent)
			}
		}
	}
}

func TestStep_ClampsOutOfRangeInput(t *testing.T) {
	p := DefaultParams()
	m := NewModel(p)
	pts := []route.RoutePoint{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}, {Lat: 0, Lng: 0.002}, {Lat: 0, Lng: 0.003}}

	speed, _, _ := m.Step(1, pts, farWaypoints, -40, types.NewRand(2))
	if speed < p.MinKmh {
		t.Errorf("negative input produced %f, want >= %f", speed, p.MinKmh)
	}
	speed, _, _ = m.Step(1, pts, farWaypoints, 500, types.NewRand(2))
	if speed != p.MaxKmh {
		t.Errorf("huge input produced %f, want ceiling %f", speed, p.MaxKmh)
	}
}

func TestWithConditions_DiscountsDepartureOnce(t *testing.T) {
	p := DefaultParams()
	base := NewModel(p)
	c := Conditions{Weather: WeatherRain, Traffic: TrafficHigh}
	m := base.WithConditions(c)

	want := p.DepartureKmh * 0.8 * 0.75
	if got := m.InitialSpeed(); math.Abs(got-want) > 1e-9 {
		t.Errorf("InitialSpeed = %f, want %f", got, want)
	}
	if base.InitialSpeed() != p.DepartureKmh {
		t.Errorf("base model was mutated: %f", base.InitialSpeed())
	}

	// Straight-line acceleration is the same with or without conditions.
	pts := straightLine(4)
	a, _, _ := base.Step(1, pts, farWaypoints, 40, types.NewRand(1))
	b, _, _ := m.Step(1, pts, farWaypoints, 40, types.NewRand(1))
	if a != b {
		t.Errorf("conditions leaked into per-step rules: %f vs %f", a, b)
	}
}

func TestConditionsFactor(t *testing.T) {
	cases := []struct {
		c    Conditions
		want float64
	}{
		{Conditions{WeatherClear, TrafficLow}, 1.0},
		{Conditions{WeatherCloudy, TrafficMedium}, 0.95 * 0.9},
		{Conditions{WeatherRain, TrafficHigh}, 0.8 * 0.75},
	}
	for _, tc := range cases {
		if got := tc.c.Factor(); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%+v.Factor() = %v, want %v", tc.c, got, tc.want)
		}
	}
}

func TestSampleConditions_ClosedSet(t *testing.T) {
	rng := types.NewRand(11)
	seenW := map[Weather]bool{}
	seenT := map[Traffic]bool{}
	for i := 0; i < 300; i++ {
		c := SampleConditions(rng)
		seenW[c.Weather] = true
		seenT[c.Traffic] = true
	}
	if len(seenW) != 3 || len(seenT) != 3 {
		t.Errorf("expected all 3 weathers and traffics, got %v %v", seenW, seenT)
	}
}

func TestEventCodeString(t *testing.T) {
	if EventCruise.String() != "cruise" {
		t.Errorf("unexpected name %q", EventCruise.String())
	}
	if EventCode(99).String() != "unknown" || EventCode(99).Valid() {
		t.Errorf("code 99 should be unknown")
	}
}
