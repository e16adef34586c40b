package models

// Waypoint is a coordinate on a route with the cumulative distance and
// travel time from the route start.
type Waypoint struct {
	Location    Location `bson:"location" json:"location"`
	DistanceM   float64  `bson:"distance_m" json:"distance_m"` // cumulative meters
	DurationSec float64  `bson:"duration_sec" json:"duration_sec"`
}

// Route is an ordered sequence of waypoints returned by the routing
// provider, with precomputed totals.
type Route struct {
	Waypoints     []Waypoint `bson:"waypoints" json:"waypoints"`
	TotalDistance float64    `bson:"total_distance" json:"total_distance"` // meters
	TotalDuration float64    `bson:"total_duration" json:"total_duration"` // seconds
	SegmentSpeeds []float64  `bson:"segment_speeds,omitempty" json:"segment_speeds,omitempty"`
}

// Points returns the bare coordinates of the route in order.
func (r *Route) Points() []Location {
	pts := make([]Location, len(r.Waypoints))
	for i, w := range r.Waypoints {
		pts[i] = w.Location
	}
	return pts
}
