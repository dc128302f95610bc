package routing

import (
	"context"
)

// Capability is the contract every request kind implements: consume a snapshot
// handle and typed parameters, produce a status and a result.
//
// Implementations are constructed once at startup with their static
// configuration (e.g. maximum allowed locations) and reused across all
// queries. They must be safe to call concurrently against the same snapshot
// instance and must not retain the snapshot reference beyond the call.
type Capability[P any] interface {
	HandleRequest(ctx context.Context, snapshot *DatasetHandle, params P) (Status, Result)
}

// RouteParameters select a route query through the supplied coordinates in order.
type RouteParameters struct {
	Coordinates []Coordinate
}

// TableParameters select a duration/distance matrix query. Empty Sources or
// Destinations mean "all coordinates".
type TableParameters struct {
	Coordinates  []Coordinate
	Sources      []int
	Destinations []int
}

// NearestParameters select the Number road segments nearest to Coordinate.
type NearestParameters struct {
	Coordinate Coordinate
	Number     int
}

// TripParameters select a round-trip query visiting all coordinates.
type TripParameters struct {
	Coordinates []Coordinate
}

// MatchParameters select a map-matching query for a recorded GPS trace.
// Timestamps, when present, must carry one Unix timestamp per coordinate.
type MatchParameters struct {
	Coordinates []Coordinate
	Timestamps  []int64
}

// TileParameters address one WebMercator tile of the road network.
type TileParameters struct {
	Z uint32
	X uint32
	Y uint32
}
