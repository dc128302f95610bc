package plugins

import (
	"context"
	"fmt"
	"math"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// Table computes a duration/distance matrix between coordinates.
type Table struct {
	maxLocations int
}

// NewTable creates the table capability. maxLocations of zero or below means unlimited.
func NewTable(maxLocations int) *Table {
	return &Table{maxLocations: maxLocations}
}

type tableResult struct {
	Code         string       `json:"code"`
	Sources      []waypoint   `json:"sources"`
	Destinations []waypoint   `json:"destinations"`
	Durations    [][]*float64 `json:"durations"`
	Distances    [][]*float64 `json:"distances"`
}

// HandleRequest validates the parameters and computes the matrix over the
// selected source and destination subsets.
func (p *Table) HandleRequest(_ context.Context, snapshot *routing.DatasetHandle, params routing.TableParameters) (routing.Status, routing.Result) {
	if status, result, ok := validateCoordinates(params.Coordinates, 1, p.maxLocations); !ok {
		return status, result
	}

	sources, sourcesOK := subset(params.Coordinates, params.Sources)
	destinations, destinationsOK := subset(params.Coordinates, params.Destinations)

	if !sourcesOK || !destinationsOK {
		return invalidOptions(codeInvalidOptions, "source or destination index out of range")
	}

	contents := snapshot.Contents()

	snappedSources, failedAt := snapAll(contents, sources)
	if failedAt >= 0 {
		return queryError(codeNoSegment, fmt.Sprintf("could not snap source %d to the road network", failedAt))
	}

	snappedDestinations, failedAt := snapAll(contents, destinations)
	if failedAt >= 0 {
		return queryError(codeNoSegment, fmt.Sprintf("could not snap destination %d to the road network", failedAt))
	}

	matrix := contents.Matrix(snappedSources, snappedDestinations)

	return success(tableResult{
		Code:         codeOk,
		Sources:      waypointsFromSnapped(snappedSources),
		Destinations: waypointsFromSnapped(snappedDestinations),
		Durations:    nullableRows(matrix.Durations),
		Distances:    nullableRows(matrix.Distances),
	})
}

// subset picks the indexed coordinates; an empty index list means all of them.
func subset(coordinates []routing.Coordinate, indexes []int) ([]routing.Coordinate, bool) {
	if len(indexes) == 0 {
		return coordinates, true
	}

	picked := make([]routing.Coordinate, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(coordinates) {
			return nil, false
		}

		picked = append(picked, coordinates[idx])
	}

	return picked, true
}

func waypointsFromSnapped(points []routing.SnappedPoint) []waypoint {
	waypoints := make([]waypoint, 0, len(points))
	for _, p := range points {
		waypoints = append(waypoints, waypointFromSnapped(p))
	}

	return waypoints
}

// nullableRows converts +Inf (unreachable) entries to JSON null.
func nullableRows(rows [][]float64) [][]*float64 {
	converted := make([][]*float64, len(rows))

	for i, row := range rows {
		converted[i] = make([]*float64, len(row))
		for j, value := range row {
			if math.IsInf(value, 1) {
				continue
			}

			v := value
			converted[i][j] = &v
		}
	}

	return converted
}

var _ routing.Capability[routing.TableParameters] = (*Table)(nil)
