package plugins_test

import (
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosrv/live-dataset-routing-go/routing"
	"github.com/geosrv/live-dataset-routing-go/routing/plugins"
	"github.com/geosrv/live-dataset-routing-go/testutil/fixtures"
)

var (
	alpha   = routing.Coordinate{Lon: 13.400, Lat: 52.520}
	bravo   = routing.Coordinate{Lon: 13.410, Lat: 52.520}
	charlie = routing.Coordinate{Lon: 13.405, Lat: 52.525}

	offNetwork = routing.Coordinate{Lon: 13.9, Lat: 52.52}
	outOfRange = routing.Coordinate{Lon: 181, Lat: 0}
)

func triangleHandle(t *testing.T) *routing.DatasetHandle {
	t.Helper()

	handle, err := routing.NewDatasetHandle(fixtures.TriangleGraph("berlin", 1))
	require.NoError(t, err)
	t.Cleanup(handle.Release)

	return handle
}

func disconnectedHandle(t *testing.T) *routing.DatasetHandle {
	t.Helper()

	handle, err := routing.NewDatasetHandle(fixtures.DisconnectedGraph("island", 1))
	require.NoError(t, err)
	t.Cleanup(handle.Release)

	return handle
}

func decodeErrorResult(t *testing.T, result routing.Result) (code, message string) {
	t.Helper()

	var doc struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	return doc.Code, doc.Message
}

func Test_Route_Validation(t *testing.T) {
	handle := triangleHandle(t)

	tests := []struct {
		name           string
		plugin         *plugins.Route
		coordinates    []routing.Coordinate
		expectedStatus routing.Status
		expectedCode   string
	}{
		{
			name:           "too_few_coordinates",
			plugin:         plugins.NewRoute(0),
			coordinates:    []routing.Coordinate{alpha},
			expectedStatus: routing.StatusInvalidOptions,
			expectedCode:   "InvalidOptions",
		},
		{
			name:           "over_location_limit",
			plugin:         plugins.NewRoute(2),
			coordinates:    []routing.Coordinate{alpha, bravo, charlie},
			expectedStatus: routing.StatusInvalidOptions,
			expectedCode:   "TooBig",
		},
		{
			name:           "coordinate_out_of_bounds",
			plugin:         plugins.NewRoute(0),
			coordinates:    []routing.Coordinate{alpha, outOfRange},
			expectedStatus: routing.StatusInvalidOptions,
			expectedCode:   "InvalidCoordinate",
		},
		{
			name:           "coordinate_off_the_network",
			plugin:         plugins.NewRoute(0),
			coordinates:    []routing.Coordinate{alpha, offNetwork},
			expectedStatus: routing.StatusError,
			expectedCode:   "NoSegment",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, result := tc.plugin.HandleRequest(context.Background(), handle, routing.RouteParameters{
				Coordinates: tc.coordinates,
			})

			assert.Equal(t, tc.expectedStatus, status)
			code, _ := decodeErrorResult(t, result)
			assert.Equal(t, tc.expectedCode, code)
		})
	}
}

func Test_Route_SuccessfulQuery(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewRoute(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.RouteParameters{
		Coordinates: []routing.Coordinate{alpha, bravo},
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Code      string `json:"code"`
		Waypoints []struct {
			Name string `json:"name"`
		} `json:"waypoints"`
		Routes []struct {
			Distance float64      `json:"distance"`
			Duration float64      `json:"duration"`
			Geometry [][2]float64 `json:"geometry"`
		} `json:"routes"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	assert.Equal(t, "Ok", doc.Code)
	require.Len(t, doc.Waypoints, 2)
	assert.Equal(t, "alpha", doc.Waypoints[0].Name)
	require.Len(t, doc.Routes, 1)
	assert.InDelta(t, 60, doc.Routes[0].Duration, 0.001)
	assert.Len(t, doc.Routes[0].Geometry, 3)
}

func Test_Route_NoRouteBetweenIslands(t *testing.T) {
	handle := disconnectedHandle(t)
	plugin := plugins.NewRoute(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.RouteParameters{
		Coordinates: []routing.Coordinate{
			{Lon: 13.400, Lat: 52.520},
			{Lon: 13.500, Lat: 52.520},
		},
	})

	assert.Equal(t, routing.StatusError, status)
	code, _ := decodeErrorResult(t, result)
	assert.Equal(t, "NoRoute", code)
}

func Test_Table_SubsetSelection(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewTable(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.TableParameters{
		Coordinates:  []routing.Coordinate{alpha, bravo, charlie},
		Sources:      []int{0},
		Destinations: []int{1, 2},
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Code         string       `json:"code"`
		Sources      []any        `json:"sources"`
		Destinations []any        `json:"destinations"`
		Durations    [][]*float64 `json:"durations"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	assert.Len(t, doc.Sources, 1)
	assert.Len(t, doc.Destinations, 2)
	require.Len(t, doc.Durations, 1)
	require.Len(t, doc.Durations[0], 2)
	require.NotNil(t, doc.Durations[0][0])
	assert.InDelta(t, 60, *doc.Durations[0][0], 0.001)
}

func Test_Table_IndexOutOfRange(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewTable(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.TableParameters{
		Coordinates: []routing.Coordinate{alpha, bravo},
		Sources:     []int{5},
	})

	assert.Equal(t, routing.StatusInvalidOptions, status)
	code, _ := decodeErrorResult(t, result)
	assert.Equal(t, "InvalidOptions", code)
}

func Test_Table_UnreachablePairsAreNull(t *testing.T) {
	handle := disconnectedHandle(t)
	plugin := plugins.NewTable(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.TableParameters{
		Coordinates: []routing.Coordinate{
			{Lon: 13.400, Lat: 52.520},
			{Lon: 13.500, Lat: 52.520},
		},
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Durations [][]*float64 `json:"durations"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	require.Len(t, doc.Durations, 2)
	assert.NotNil(t, doc.Durations[0][0], "self pair is reachable")
	assert.Nil(t, doc.Durations[0][1], "cross-island pair is null")
	assert.Nil(t, doc.Durations[1][0])
	assert.NotNil(t, doc.Durations[1][1])
}

func Test_Nearest_Validation(t *testing.T) {
	handle := triangleHandle(t)

	tests := []struct {
		name           string
		plugin         *plugins.Nearest
		params         routing.NearestParameters
		expectedStatus routing.Status
		expectedCode   string
	}{
		{
			name:           "invalid_coordinate",
			plugin:         plugins.NewNearest(0),
			params:         routing.NearestParameters{Coordinate: outOfRange, Number: 1},
			expectedStatus: routing.StatusInvalidOptions,
			expectedCode:   "InvalidCoordinate",
		},
		{
			name:           "number_below_one",
			plugin:         plugins.NewNearest(0),
			params:         routing.NearestParameters{Coordinate: alpha, Number: 0},
			expectedStatus: routing.StatusInvalidOptions,
			expectedCode:   "InvalidOptions",
		},
		{
			name:           "number_over_limit",
			plugin:         plugins.NewNearest(3),
			params:         routing.NearestParameters{Coordinate: alpha, Number: 10},
			expectedStatus: routing.StatusInvalidOptions,
			expectedCode:   "TooBig",
		},
		{
			name:           "off_network",
			plugin:         plugins.NewNearest(0),
			params:         routing.NearestParameters{Coordinate: offNetwork, Number: 1},
			expectedStatus: routing.StatusError,
			expectedCode:   "NoSegment",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, result := tc.plugin.HandleRequest(context.Background(), handle, tc.params)

			assert.Equal(t, tc.expectedStatus, status)
			code, _ := decodeErrorResult(t, result)
			assert.Equal(t, tc.expectedCode, code)
		})
	}
}

func Test_Nearest_SuccessfulQuery(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewNearest(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.NearestParameters{
		Coordinate: routing.Coordinate{Lon: 13.4001, Lat: 52.5199},
		Number:     1,
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Code      string `json:"code"`
		Waypoints []struct {
			Name     string  `json:"name"`
			Distance float64 `json:"distance"`
		} `json:"waypoints"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	assert.Equal(t, "Ok", doc.Code)
	require.Len(t, doc.Waypoints, 1)
	assert.Equal(t, "alpha", doc.Waypoints[0].Name)
}

func Test_Nearest_ReturnsRequestedNumberOfWaypoints(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewNearest(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.NearestParameters{
		Coordinate: alpha,
		Number:     3,
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Code      string `json:"code"`
		Waypoints []struct {
			Name     string  `json:"name"`
			Distance float64 `json:"distance"`
		} `json:"waypoints"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	require.Len(t, doc.Waypoints, 3)
	assert.Equal(t, "alpha", doc.Waypoints[0].Name)
	assert.Equal(t, "charlie", doc.Waypoints[1].Name, "charlie is closer to alpha than bravo")
	assert.Equal(t, "bravo", doc.Waypoints[2].Name)
	assert.True(t, doc.Waypoints[0].Distance <= doc.Waypoints[1].Distance)
	assert.True(t, doc.Waypoints[1].Distance <= doc.Waypoints[2].Distance)
}

func Test_Nearest_CapsAtAvailableNodes(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewNearest(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.NearestParameters{
		Coordinate: alpha,
		Number:     50,
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Waypoints []struct {
			Name string `json:"name"`
		} `json:"waypoints"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	assert.Len(t, doc.Waypoints, 3, "only the nodes within snapping range exist")
}

func Test_Trip_RoundTripVisitsAllCoordinates(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewTrip(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.TripParameters{
		Coordinates: []routing.Coordinate{alpha, bravo, charlie},
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Code      string `json:"code"`
		Waypoints []struct {
			Name string `json:"name"`
		} `json:"waypoints"`
		Trips []struct {
			Duration float64 `json:"duration"`
		} `json:"trips"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	assert.Equal(t, "Ok", doc.Code)
	assert.Len(t, doc.Waypoints, 3)
	require.Len(t, doc.Trips, 1)
	assert.Greater(t, doc.Trips[0].Duration, 0.0)
}

func Test_Trip_FailsAcrossIslands(t *testing.T) {
	handle := disconnectedHandle(t)
	plugin := plugins.NewTrip(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.TripParameters{
		Coordinates: []routing.Coordinate{
			{Lon: 13.400, Lat: 52.520},
			{Lon: 13.500, Lat: 52.520},
		},
	})

	assert.Equal(t, routing.StatusError, status)
	code, _ := decodeErrorResult(t, result)
	assert.Equal(t, "NoTrips", code)
}

func Test_Match_TimestampMismatch(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewMatch(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.MatchParameters{
		Coordinates: []routing.Coordinate{alpha, bravo},
		Timestamps:  []int64{1000},
	})

	assert.Equal(t, routing.StatusInvalidOptions, status)
	code, _ := decodeErrorResult(t, result)
	assert.Equal(t, "InvalidOptions", code)
}

func Test_Match_UnmatchedPointsBecomeNull(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewMatch(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.MatchParameters{
		Coordinates: []routing.Coordinate{alpha, offNetwork, bravo},
	})

	require.Equal(t, routing.StatusOk, status)

	var doc struct {
		Code        string `json:"code"`
		Tracepoints []*struct {
			Name string `json:"name"`
		} `json:"tracepoints"`
	}
	require.NoError(t, jsoniter.Unmarshal(result, &doc))

	require.Len(t, doc.Tracepoints, 3)
	assert.NotNil(t, doc.Tracepoints[0])
	assert.Nil(t, doc.Tracepoints[1], "off-network point becomes a null tracepoint")
	assert.NotNil(t, doc.Tracepoints[2])
}

func Test_Match_NothingMatches(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewMatch(0)

	status, result := plugin.HandleRequest(context.Background(), handle, routing.MatchParameters{
		Coordinates: []routing.Coordinate{offNetwork, {Lon: 13.95, Lat: 52.52}},
	})

	assert.Equal(t, routing.StatusError, status)
	code, _ := decodeErrorResult(t, result)
	assert.Equal(t, "NoMatch", code)
}

func Test_Tile_FoundAndNotFound(t *testing.T) {
	handle := triangleHandle(t)
	plugin := plugins.NewTile()

	t.Run("world_tile_contains_features", func(t *testing.T) {
		status, result := plugin.HandleRequest(context.Background(), handle, routing.TileParameters{Z: 0, X: 0, Y: 0})

		require.Equal(t, routing.StatusOk, status)
		assert.NotEmpty(t, result)
	})

	t.Run("empty_tile_reports_not_found", func(t *testing.T) {
		status, result := plugin.HandleRequest(context.Background(), handle, routing.TileParameters{Z: 10, X: 0, Y: 0})

		assert.Equal(t, routing.StatusError, status)
		code, _ := decodeErrorResult(t, result)
		assert.Equal(t, "TileNotFound", code)
	})
}
