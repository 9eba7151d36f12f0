// README: Motion model; next speed and event code from route geometry and waypoint proximity.
package motion

import (
	"math"
	"math/rand/v2"

	"tripsim/internal/modules/route"
)

// LabelEnRoute names positions that are not near any waypoint.
const LabelEnRoute = "en ruta"

type Model struct {
	params       Params
	departureKmh float64
}

func NewModel(p Params) *Model {
	return &Model{params: p, departureKmh: p.DepartureKmh}
}

// WithConditions returns a copy whose departure baseline is discounted once
// by the trip's weather and traffic. Per-step rules are unaffected.
func (m *Model) WithConditions(c Conditions) *Model {
	cp := *m
	cp.departureKmh = m.params.DepartureKmh * c.Factor()
	return &cp
}

func (m *Model) Params() Params { return m.params }

// InitialSpeed is the speed a driver starts from before its first step.
func (m *Model) InitialSpeed() float64 {
	return m.clamp(m.departureKmh)
}

// Step computes the speed, event code and location label for route[index].
// It depends only on its arguments and the injected generator.
func (m *Model) Step(index int, points []route.RoutePoint, waypoints []route.Waypoint, prevSpeed float64, rng *rand.Rand) (float64, EventCode, string) {
	p := m.params
	last := len(points) - 1

	switch {
	case index <= 0:
		return m.clamp(m.departureKmh), EventDeparture, endpointLabel(waypoints, 0)
	case index >= last:
		return m.clamp(p.ArrivalKmh), EventArrival, endpointLabel(waypoints, len(waypoints)-1)
	}

	cur := points[index]
	if nearest, dist := route.Nearest(cur, waypoints); nearest >= 0 && dist < p.ProximityRadius {
		target := p.UrbanMinKmh + rng.Float64()*(p.UrbanMaxKmh-p.UrbanMinKmh)
		speed := prevSpeed*0.9 + target*0.1
		code := urbanBand[rng.IntN(len(urbanBand))]
		return m.clamp(speed), code, waypoints[nearest].Label
	}

	cos := turnCosine(points[index-1], cur, points[index+1])
	switch {
	case cos < p.SharpTurnCos:
		return m.clamp(math.Max(p.SharpFloorKmh, prevSpeed*p.SharpFactor)), EventSharpTurn, LabelEnRoute
	case cos < p.ModerateTurnCos:
		return m.clamp(prevSpeed * p.ModerateFactor), EventModerateTurn, LabelEnRoute
	}

	speed := m.clamp(math.Min(p.MaxKmh, prevSpeed*p.AccelFactor))
	if speed > p.CruiseKmh {
		return speed, EventCruise, LabelEnRoute
	}
	return speed, EventAccelerating, LabelEnRoute
}

// Advance applies Step to a carried state.
func (m *Model) Advance(s State, index int, points []route.RoutePoint, waypoints []route.Waypoint, rng *rand.Rand) State {
	speed, code, label := m.Step(index, points, waypoints, s.SpeedKmh, rng)
	return State{SpeedKmh: speed, LastEvent: code, Location: label}
}

func (m *Model) clamp(v float64) float64 {
	lo := math.Max(0, m.params.MinKmh)
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > m.params.MaxKmh {
		return m.params.MaxKmh
	}
	return v
}

// turnCosine is the cosine of the heading change at b. Degenerate vectors
// count as straight.
func turnCosine(a, b, c route.RoutePoint) float64 {
	inLat, inLng := b.Lat-a.Lat, b.Lng-a.Lng
	outLat, outLng := c.Lat-b.Lat, c.Lng-b.Lng
	inLen := math.Hypot(inLat, inLng)
	outLen := math.Hypot(outLat, outLng)
	if inLen == 0 || outLen == 0 {
		return 1
	}
	return (inLat*outLat + inLng*outLng) / (inLen * outLen)
}

func endpointLabel(waypoints []route.Waypoint, i int) string {
	if i < 0 || i >= len(waypoints) {
		return ""
	}
	return waypoints[i].Label
}
