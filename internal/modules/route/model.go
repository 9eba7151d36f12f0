// README: Route geometry value objects (waypoints and synthesized route points).
package route

import "tripsim/internal/types"

// Waypoint is a named reference coordinate that shapes a route profile.
type Waypoint struct {
	Lat   float64 `json:"lat" yaml:"lat"`
	Lng   float64 `json:"lng" yaml:"lng"`
	Label string  `json:"label" yaml:"label"`
}

func (w Waypoint) Point() types.Point {
	return types.Point{Lat: w.Lat, Lng: w.Lng}
}

// RoutePoint is one simulated position on a synthesized route.
type RoutePoint = types.Point

// Nearest returns the index of the waypoint closest to p and its Euclidean
// distance in degrees. It returns -1 for an empty slice.
func Nearest(p RoutePoint, waypoints []Waypoint) (int, float64) {
	best, bestDist := -1, 0.0
	for i, w := range waypoints {
		d := types.Euclidean(p, w.Point())
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
