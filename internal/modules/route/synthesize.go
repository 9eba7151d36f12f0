// README: Route synthesizer; densifies sparse waypoints into a noisy polyline.
package route

import (
	"math"
	"math/rand/v2"

	"tripsim/internal/types"
)

// SynthOptions tunes point density and positional noise.
type SynthOptions struct {
	// MinPoints is the lower bound of interpolation points per segment.
	MinPoints int `json:"min_points" yaml:"min_points"`
	// Scale converts Euclidean segment length (degrees) into a point count.
	Scale float64 `json:"scale" yaml:"scale"`
	// Noise is the half-width of the uniform GPS jitter, in degrees.
	Noise float64 `json:"noise" yaml:"noise"`
	// Drift is the half-width of the lane drift, shaped by a bell envelope.
	Drift float64 `json:"drift" yaml:"drift"`
}

const defaultMinPoints = 3

// DefaultSynthOptions matches inter-city resolution.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{
		MinPoints: defaultMinPoints,
		Scale:     2000,
		Noise:     0.00002,
		Drift:     0.00008,
	}
}

func (o SynthOptions) minPoints() int {
	if o.MinPoints <= 0 {
		return defaultMinPoints
	}
	return o.MinPoints
}

// SegmentPoints returns how many points the segment a→b is expanded into.
func SegmentPoints(a, b Waypoint, opts SynthOptions) int {
	n := int(types.Euclidean(a.Point(), b.Point()) * opts.Scale)
	if lo := opts.minPoints(); n < lo {
		return lo
	}
	return n
}

// PointCount is the exact length Synthesize produces for waypoints.
func PointCount(waypoints []Waypoint, opts SynthOptions) int {
	total := 0
	for i := 0; i+1 < len(waypoints); i++ {
		total += SegmentPoints(waypoints[i], waypoints[i+1], opts)
	}
	return total
}

// Synthesize expands waypoints into a dense route. Every segment contributes
// points for ratios j/n with j in [0, n), so the end waypoint of a segment is
// never emitted by that segment; the next segment starts at it instead. Fewer
// than two waypoints yield an empty route.
func Synthesize(waypoints []Waypoint, opts SynthOptions, rng *rand.Rand) []RoutePoint {
	if len(waypoints) < 2 {
		return nil
	}

	out := make([]RoutePoint, 0, PointCount(waypoints, opts))
	for i := 0; i+1 < len(waypoints); i++ {
		a, b := waypoints[i], waypoints[i+1]
		n := SegmentPoints(a, b, opts)
		for j := 0; j < n; j++ {
			ratio := float64(j) / float64(n)
			bell := DriftEnvelope(ratio)
			out = append(out, RoutePoint{
				Lat: a.Lat + (b.Lat-a.Lat)*ratio + symmetric(rng, opts.Noise) + symmetric(rng, opts.Drift)*bell,
				Lng: a.Lng + (b.Lng-a.Lng)*ratio + symmetric(rng, opts.Noise) + symmetric(rng, opts.Drift)*bell,
			})
		}
	}
	return out
}

// DriftEnvelope peaks at 0.5 mid-segment and is zero at both waypoints.
func DriftEnvelope(ratio float64) float64 {
	return 0.5 * (1 - math.Abs(2*ratio-1))
}

func symmetric(rng *rand.Rand, halfWidth float64) float64 {
	if halfWidth <= 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * halfWidth
}
