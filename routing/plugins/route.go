package plugins

import (
	"context"
	"fmt"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// Route computes a route through the supplied coordinates in order.
type Route struct {
	maxLocations int
}

// NewRoute creates the route capability. maxLocations of zero or below means unlimited.
func NewRoute(maxLocations int) *Route {
	return &Route{maxLocations: maxLocations}
}

type routeResult struct {
	Code      string          `json:"code"`
	Waypoints []waypoint      `json:"waypoints"`
	Routes    []routeDocument `json:"routes"`
}

// HandleRequest validates the parameters, snaps the coordinates, and routes
// leg by leg through them.
func (p *Route) HandleRequest(_ context.Context, snapshot *routing.DatasetHandle, params routing.RouteParameters) (routing.Status, routing.Result) {
	if status, result, ok := validateCoordinates(params.Coordinates, 2, p.maxLocations); !ok {
		return status, result
	}

	contents := snapshot.Contents()

	snapped, failedAt := snapAll(contents, params.Coordinates)
	if failedAt >= 0 {
		return queryError(codeNoSegment, fmt.Sprintf("could not snap coordinate %d to the road network", failedAt))
	}

	total := routing.Path{}
	for i := 0; i+1 < len(snapped); i++ {
		leg, ok := contents.Route(snapped[i], snapped[i+1])
		if !ok {
			return queryError(codeNoRoute, fmt.Sprintf("no route between coordinates %d and %d", i, i+1))
		}

		total.Distance += leg.Distance
		total.Duration += leg.Duration

		// drop the shared node between consecutive legs
		geometry := leg.Geometry
		if len(total.Geometry) > 0 && len(geometry) > 0 {
			geometry = geometry[1:]
		}
		total.Geometry = append(total.Geometry, geometry...)
	}

	waypoints := make([]waypoint, 0, len(snapped))
	for _, point := range snapped {
		waypoints = append(waypoints, waypointFromSnapped(point))
	}

	return success(routeResult{
		Code:      codeOk,
		Waypoints: waypoints,
		Routes:    []routeDocument{routeFromPath(total)},
	})
}

// Ensure Route implements the capability contract.
var _ routing.Capability[routing.RouteParameters] = (*Route)(nil)
