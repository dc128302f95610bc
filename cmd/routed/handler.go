package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"

	"github.com/geosrv/live-dataset-routing-go/routing"
	"github.com/geosrv/live-dataset-routing-go/routing/queryengine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler exposes the query engine over an OSRM-style HTTP API.
type Handler struct {
	engine *queryengine.Engine
}

func NewHandler(engine *queryengine.Engine) *Handler {
	return &Handler{engine: engine}
}

// Router builds the HTTP route table. The {profile} segment is accepted for
// URL compatibility but ignored; one engine serves one dataset.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/route/v1/{profile}/{coordinates}", h.handleRoute).Methods(http.MethodGet)
	r.HandleFunc("/table/v1/{profile}/{coordinates}", h.handleTable).Methods(http.MethodGet)
	r.HandleFunc("/nearest/v1/{profile}/{coordinates}", h.handleNearest).Methods(http.MethodGet)
	r.HandleFunc("/trip/v1/{profile}/{coordinates}", h.handleTrip).Methods(http.MethodGet)
	r.HandleFunc("/match/v1/{profile}/{coordinates}", h.handleMatch).Methods(http.MethodGet)
	r.HandleFunc("/tile/v1/{profile}/{z}/{x}/{y}.json", h.handleTile).Methods(http.MethodGet)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(mux.Vars(r)["coordinates"])
	if err != nil {
		writeParseError(w, err)
		return
	}

	status, result, err := h.engine.Route(r.Context(), routing.RouteParameters{Coordinates: coords})
	writeQueryResponse(w, r, status, result, err)
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(mux.Vars(r)["coordinates"])
	if err != nil {
		writeParseError(w, err)
		return
	}

	sources, err := parseIndexList(r.URL.Query().Get("sources"))
	if err != nil {
		writeParseError(w, fmt.Errorf("sources: %w", err))
		return
	}
	destinations, err := parseIndexList(r.URL.Query().Get("destinations"))
	if err != nil {
		writeParseError(w, fmt.Errorf("destinations: %w", err))
		return
	}

	status, result, err := h.engine.Table(r.Context(), routing.TableParameters{
		Coordinates:  coords,
		Sources:      sources,
		Destinations: destinations,
	})
	writeQueryResponse(w, r, status, result, err)
}

func (h *Handler) handleNearest(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(mux.Vars(r)["coordinates"])
	if err != nil {
		writeParseError(w, err)
		return
	}
	if len(coords) != 1 {
		writeParseError(w, fmt.Errorf("nearest takes exactly one coordinate, got %d", len(coords)))
		return
	}

	number := 1
	if raw := r.URL.Query().Get("number"); raw != "" {
		number, err = strconv.Atoi(raw)
		if err != nil {
			writeParseError(w, fmt.Errorf("number: %w", err))
			return
		}
	}

	status, result, err := h.engine.Nearest(r.Context(), routing.NearestParameters{
		Coordinate: coords[0],
		Number:     number,
	})
	writeQueryResponse(w, r, status, result, err)
}

func (h *Handler) handleTrip(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(mux.Vars(r)["coordinates"])
	if err != nil {
		writeParseError(w, err)
		return
	}

	status, result, err := h.engine.Trip(r.Context(), routing.TripParameters{Coordinates: coords})
	writeQueryResponse(w, r, status, result, err)
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(mux.Vars(r)["coordinates"])
	if err != nil {
		writeParseError(w, err)
		return
	}

	timestamps, err := parseTimestamps(r.URL.Query().Get("timestamps"))
	if err != nil {
		writeParseError(w, fmt.Errorf("timestamps: %w", err))
		return
	}

	status, result, err := h.engine.Match(r.Context(), routing.MatchParameters{
		Coordinates: coords,
		Timestamps:  timestamps,
	})
	writeQueryResponse(w, r, status, result, err)
}

func (h *Handler) handleTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	z, err := parseTileIndex(vars["z"])
	if err != nil {
		writeParseError(w, fmt.Errorf("z: %w", err))
		return
	}
	x, err := parseTileIndex(vars["x"])
	if err != nil {
		writeParseError(w, fmt.Errorf("x: %w", err))
		return
	}
	y, err := parseTileIndex(vars["y"])
	if err != nil {
		writeParseError(w, fmt.Errorf("y: %w", err))
		return
	}

	status, result, err := h.engine.Tile(r.Context(), routing.TileParameters{Z: z, X: x, Y: y})
	writeQueryResponse(w, r, status, result, err)
}

// parseCoordinates parses the OSRM path segment "lon,lat;lon,lat;...".
func parseCoordinates(raw string) ([]routing.Coordinate, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty coordinate list")
	}

	parts := strings.Split(raw, ";")
	coords := make([]routing.Coordinate, 0, len(parts))

	for _, part := range parts {
		lonLat := strings.Split(part, ",")
		if len(lonLat) != 2 {
			return nil, fmt.Errorf("malformed coordinate %q, want lon,lat", part)
		}

		lon, err := strconv.ParseFloat(lonLat[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed longitude %q", lonLat[0])
		}
		lat, err := strconv.ParseFloat(lonLat[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed latitude %q", lonLat[1])
		}

		coords = append(coords, routing.Coordinate{Lon: lon, Lat: lat})
	}

	return coords, nil
}

// parseIndexList parses "0;2;5" into indices. Empty input means "all".
func parseIndexList(raw string) ([]int, error) {
	if raw == "" || raw == "all" {
		return nil, nil
	}

	parts := strings.Split(raw, ";")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("malformed index %q", part)
		}
		indices = append(indices, idx)
	}

	return indices, nil
}

func parseTimestamps(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ";")
	timestamps := make([]int64, 0, len(parts))
	for _, part := range parts {
		ts, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed timestamp %q", part)
		}
		timestamps = append(timestamps, ts)
	}

	return timestamps, nil
}

func parseTileIndex(raw string) (uint32, error) {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed tile index %q", raw)
	}
	return uint32(v), nil
}

func writeParseError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	body, _ := json.Marshal(map[string]string{
		"code":    "InvalidQuery",
		"message": err.Error(),
	})
	_, _ = w.Write(body)
}

func writeQueryResponse(w http.ResponseWriter, r *http.Request, status routing.Status, result routing.Result, err error) {
	w.Header().Set("Content-Type", "application/json")

	switch status {
	case routing.StatusOk:
		w.WriteHeader(http.StatusOK)
	case routing.StatusInvalidOptions:
		w.WriteHeader(http.StatusBadRequest)
	default:
		log.WithError(err).WithField("path", r.URL.Path).Error("query failed")
		w.WriteHeader(http.StatusInternalServerError)
	}

	if len(result) == 0 {
		result = routing.Result(`{"code":"Error","message":"no result"}`)
	}
	_, _ = w.Write(result)
}
