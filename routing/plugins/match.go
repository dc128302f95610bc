package plugins

import (
	"context"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// Match snaps a recorded GPS trace onto the road network.
type Match struct {
	maxTracePoints int
}

// NewMatch creates the match capability. maxTracePoints of zero or below means unlimited.
func NewMatch(maxTracePoints int) *Match {
	return &Match{maxTracePoints: maxTracePoints}
}

type matchResult struct {
	Code        string          `json:"code"`
	Tracepoints []*waypoint     `json:"tracepoints"`
	Matchings   []routeDocument `json:"matchings"`
}

// HandleRequest snaps every trace point individually; points that cannot be
// matched become null tracepoints, and consecutive matched points are joined
// into one matching. A trace without any matched point reports NoMatch.
func (p *Match) HandleRequest(_ context.Context, snapshot *routing.DatasetHandle, params routing.MatchParameters) (routing.Status, routing.Result) {
	if status, result, ok := validateCoordinates(params.Coordinates, 2, p.maxTracePoints); !ok {
		return status, result
	}

	if len(params.Timestamps) > 0 && len(params.Timestamps) != len(params.Coordinates) {
		return invalidOptions(codeInvalidOptions, "timestamps must match coordinates one to one")
	}

	contents := snapshot.Contents()

	tracepoints := make([]*waypoint, len(params.Coordinates))
	snapped := make([]routing.SnappedPoint, len(params.Coordinates))
	matchedAny := false

	for i, c := range params.Coordinates {
		point, ok := contents.Snap(c)
		if !ok {
			continue
		}

		wp := waypointFromSnapped(point)
		tracepoints[i] = &wp
		snapped[i] = point
		matchedAny = true
	}

	if !matchedAny {
		return queryError(codeNoMatch, "no trace point could be matched to the road network")
	}

	matching := routing.Path{}
	for i := 0; i+1 < len(tracepoints); i++ {
		if tracepoints[i] == nil || tracepoints[i+1] == nil {
			continue
		}

		leg, routed := contents.Route(snapped[i], snapped[i+1])
		if !routed {
			continue
		}

		matching.Distance += leg.Distance
		matching.Duration += leg.Duration

		geometry := leg.Geometry
		if len(matching.Geometry) > 0 && len(geometry) > 0 {
			geometry = geometry[1:]
		}
		matching.Geometry = append(matching.Geometry, geometry...)
	}

	matchings := []routeDocument{}
	if len(matching.Geometry) > 0 {
		matchings = append(matchings, routeFromPath(matching))
	}

	return success(matchResult{
		Code:        codeOk,
		Tracepoints: tracepoints,
		Matchings:   matchings,
	})
}

var _ routing.Capability[routing.MatchParameters] = (*Match)(nil)
