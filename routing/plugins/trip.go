package plugins

import (
	"context"
	"fmt"
	"math"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// Trip computes a round trip visiting all supplied coordinates.
type Trip struct {
	maxLocations int
}

// NewTrip creates the trip capability. maxLocations of zero or below means unlimited.
func NewTrip(maxLocations int) *Trip {
	return &Trip{maxLocations: maxLocations}
}

type tripResult struct {
	Code      string          `json:"code"`
	Waypoints []waypoint      `json:"waypoints"`
	Trips     []routeDocument `json:"trips"`
}

// HandleRequest orders the coordinates with a greedy nearest-neighbour tour
// over the duration matrix and routes along the tour, returning to the start.
func (p *Trip) HandleRequest(_ context.Context, snapshot *routing.DatasetHandle, params routing.TripParameters) (routing.Status, routing.Result) {
	if status, result, ok := validateCoordinates(params.Coordinates, 2, p.maxLocations); !ok {
		return status, result
	}

	contents := snapshot.Contents()

	snapped, failedAt := snapAll(contents, params.Coordinates)
	if failedAt >= 0 {
		return queryError(codeNoSegment, fmt.Sprintf("could not snap coordinate %d to the road network", failedAt))
	}

	matrix := contents.Matrix(snapped, snapped)

	tour, ok := nearestNeighbourTour(matrix.Durations)
	if !ok {
		return queryError(codeNoTrips, "no round trip connects all coordinates")
	}

	trip := routing.Path{}
	for i := 0; i < len(tour); i++ {
		from := snapped[tour[i]]
		to := snapped[tour[(i+1)%len(tour)]]

		leg, routed := contents.Route(from, to)
		if !routed {
			return queryError(codeNoTrips, "no round trip connects all coordinates")
		}

		trip.Distance += leg.Distance
		trip.Duration += leg.Duration

		geometry := leg.Geometry
		if len(trip.Geometry) > 0 && len(geometry) > 0 {
			geometry = geometry[1:]
		}
		trip.Geometry = append(trip.Geometry, geometry...)
	}

	waypoints := make([]waypoint, 0, len(tour))
	for _, idx := range tour {
		waypoints = append(waypoints, waypointFromSnapped(snapped[idx]))
	}

	return success(tripResult{
		Code:      codeOk,
		Waypoints: waypoints,
		Trips:     []routeDocument{routeFromPath(trip)},
	})
}

// nearestNeighbourTour starts at index 0 and always visits the cheapest
// unvisited coordinate next. It fails when some coordinate is unreachable.
func nearestNeighbourTour(durations [][]float64) ([]int, bool) {
	visited := make([]bool, len(durations))
	tour := make([]int, 0, len(durations))

	current := 0
	visited[0] = true
	tour = append(tour, 0)

	for len(tour) < len(durations) {
		next := -1
		best := math.Inf(1)

		for candidate, done := range visited {
			if done {
				continue
			}

			if durations[current][candidate] < best {
				next = candidate
				best = durations[current][candidate]
			}
		}

		if next < 0 || math.IsInf(best, 1) {
			return nil, false
		}

		visited[next] = true
		tour = append(tour, next)
		current = next
	}

	return tour, true
}

var _ routing.Capability[routing.TripParameters] = (*Trip)(nil)
