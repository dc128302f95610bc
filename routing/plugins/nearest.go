package plugins

import (
	"context"
	"fmt"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// Nearest returns the road network points nearest to one coordinate.
type Nearest struct {
	maxResults int
}

// NewNearest creates the nearest capability. maxResults of zero or below means unlimited.
func NewNearest(maxResults int) *Nearest {
	return &Nearest{maxResults: maxResults}
}

type nearestResult struct {
	Code      string     `json:"code"`
	Waypoints []waypoint `json:"waypoints"`
}

// HandleRequest snaps the coordinate and returns up to Number nearest waypoints.
func (p *Nearest) HandleRequest(_ context.Context, snapshot *routing.DatasetHandle, params routing.NearestParameters) (routing.Status, routing.Result) {
	if !params.Coordinate.IsValid() {
		return invalidOptions(codeInvalidCoordinate, "coordinate out of WGS84 bounds")
	}

	if params.Number < 1 {
		return invalidOptions(codeInvalidOptions, "number of results must be at least 1")
	}

	if p.maxResults > 0 && params.Number > p.maxResults {
		return invalidOptions(codeTooBig, fmt.Sprintf("too many results requested, maximum is %d", p.maxResults))
	}

	points := snapshot.Contents().SnapN(params.Coordinate, params.Number)
	if len(points) == 0 {
		return queryError(codeNoSegment, "could not snap coordinate to the road network")
	}

	waypoints := make([]waypoint, len(points))
	for i, point := range points {
		waypoints[i] = waypointFromSnapped(point)
	}

	return success(nearestResult{
		Code:      codeOk,
		Waypoints: waypoints,
	})
}

var _ routing.Capability[routing.NearestParameters] = (*Nearest)(nil)
