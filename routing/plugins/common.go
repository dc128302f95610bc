package plugins

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// Result codes shared by all capabilities. The code travels inside the result
// document; the routing.Status next to it carries the same classification for
// callers that do not parse the body.
const (
	codeOk                = "Ok"
	codeInvalidOptions    = "InvalidOptions"
	codeTooBig            = "TooBig"
	codeInvalidCoordinate = "InvalidCoordinate"
	codeNoSegment         = "NoSegment"
	codeNoRoute           = "NoRoute"
	codeNoTrips           = "NoTrips"
	codeNoMatch           = "NoMatch"
	codeTileNotFound      = "TileNotFound"
)

type errorDocument struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// waypoint is the JSON shape of one coordinate snapped onto the road network.
type waypoint struct {
	Name     string     `json:"name"`
	Location [2]float64 `json:"location"`
	Distance float64    `json:"distance"`
}

func waypointFromSnapped(p routing.SnappedPoint) waypoint {
	return waypoint{
		Name:     p.Name,
		Location: [2]float64{p.Location.Lon, p.Location.Lat},
		Distance: p.Distance,
	}
}

type routeDocument struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Geometry [][2]float64 `json:"geometry"`
}

func routeFromPath(p routing.Path) routeDocument {
	geometry := make([][2]float64, 0, len(p.Geometry))
	for _, c := range p.Geometry {
		geometry = append(geometry, [2]float64{c.Lon, c.Lat})
	}

	return routeDocument{Distance: p.Distance, Duration: p.Duration, Geometry: geometry}
}

func invalidOptions(code, message string) (routing.Status, routing.Result) {
	return routing.StatusInvalidOptions, mustMarshal(errorDocument{Code: code, Message: message})
}

func queryError(code, message string) (routing.Status, routing.Result) {
	return routing.StatusError, mustMarshal(errorDocument{Code: code, Message: message})
}

func success(doc any) (routing.Status, routing.Result) {
	encoded, marshalErr := jsoniter.ConfigFastest.Marshal(doc)
	if marshalErr != nil {
		return queryError(codeNoRoute, "encoding result failed")
	}

	return routing.StatusOk, encoded
}

// mustMarshal encodes the small, static error documents; these cannot fail to marshal.
func mustMarshal(doc any) routing.Result {
	encoded, marshalErr := jsoniter.ConfigFastest.Marshal(doc)
	if marshalErr != nil {
		panic(marshalErr)
	}

	return encoded
}

// validateCoordinates rejects empty and out-of-bounds coordinate lists and
// enforces the capability's static location limit. A limit of zero or below
// means unlimited.
func validateCoordinates(coordinates []routing.Coordinate, minimum, limit int) (routing.Status, routing.Result, bool) {
	if len(coordinates) < minimum {
		status, result := invalidOptions(codeInvalidOptions, fmt.Sprintf("at least %d coordinates required", minimum))
		return status, result, false
	}

	if limit > 0 && len(coordinates) > limit {
		status, result := invalidOptions(codeTooBig, fmt.Sprintf("too many coordinates, maximum is %d", limit))
		return status, result, false
	}

	for _, c := range coordinates {
		if !c.IsValid() {
			status, result := invalidOptions(codeInvalidCoordinate, "coordinate out of WGS84 bounds")
			return status, result, false
		}
	}

	return routing.StatusOk, nil, true
}

// snapAll matches every coordinate onto the road network or reports the index
// of the first coordinate that could not be matched.
func snapAll(contents routing.Contents, coordinates []routing.Coordinate) ([]routing.SnappedPoint, int) {
	snapped := make([]routing.SnappedPoint, 0, len(coordinates))

	for i, c := range coordinates {
		point, ok := contents.Snap(c)
		if !ok {
			return nil, i
		}

		snapped = append(snapped, point)
	}

	return snapped, -1
}
