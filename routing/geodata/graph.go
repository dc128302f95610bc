package geodata

import (
	"container/heap"
	"errors"
	"math"
	"sort"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

const (
	// maxSnapRadiusMeters bounds how far an input coordinate may lie from the
	// road network and still be matched onto it.
	maxSnapRadiusMeters = 1000.0

	maxTileZoom = 20
)

var (
	// ErrEmptyRegionName is returned when a graph is built without a region name.
	ErrEmptyRegionName = errors.New("empty region name supplied")

	// ErrNoNodes is returned when a graph is built without any nodes.
	ErrNoNodes = errors.New("graph must contain at least one node")

	// ErrInvalidNodeCoordinate is returned when a node carries an out-of-bounds coordinate.
	ErrInvalidNodeCoordinate = errors.New("node coordinate out of WGS84 bounds")

	// ErrEdgeOutOfRange is returned when an edge references a node that does not exist.
	ErrEdgeOutOfRange = errors.New("edge references a node outside the graph")

	// ErrNegativeEdgeWeight is returned when an edge carries a negative distance or duration.
	ErrNegativeEdgeWeight = errors.New("edge distance and duration must not be negative")
)

// Node is one vertex of the road graph.
type Node struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	Name string  `json:"name,omitempty"`
}

// Edge is one directed, weighted road segment between two nodes.
type Edge struct {
	From     routing.NodeID `json:"from"`
	To       routing.NodeID `json:"to"`
	Distance float64        `json:"distance"` // meters
	Duration float64        `json:"duration"` // seconds
	Name     string         `json:"name,omitempty"`
}

type halfEdge struct {
	to       routing.NodeID
	distance float64
	duration float64
}

// Graph is one immutable in-memory snapshot of the road network.
// It implements routing.Contents and is safe for concurrent queries.
type Graph struct {
	regionName string
	version    uint64
	nodes      []Node
	adjacency  [][]halfEdge
	closed     atomic.Bool
}

// BuildGraph validates the node and edge set and assembles an immutable graph.
func BuildGraph(regionName string, version uint64, nodes []Node, edges []Edge) (*Graph, error) {
	if regionName == "" {
		return nil, ErrEmptyRegionName
	}

	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}

	for _, n := range nodes {
		c := routing.Coordinate{Lon: n.Lon, Lat: n.Lat}
		if !c.IsValid() {
			return nil, ErrInvalidNodeCoordinate
		}
	}

	adjacency := make([][]halfEdge, len(nodes))
	for _, e := range edges {
		if int(e.From) >= len(nodes) || int(e.To) >= len(nodes) {
			return nil, ErrEdgeOutOfRange
		}

		if e.Distance < 0 || e.Duration < 0 {
			return nil, ErrNegativeEdgeWeight
		}

		adjacency[e.From] = append(adjacency[e.From], halfEdge{to: e.To, distance: e.Distance, duration: e.Duration})
	}

	return &Graph{
		regionName: regionName,
		version:    version,
		nodes:      nodes,
		adjacency:  adjacency,
	}, nil
}

// RegionName returns the name of the region this snapshot covers.
func (g *Graph) RegionName() string {
	return g.regionName
}

// Version returns the monotonically increasing snapshot version.
func (g *Graph) Version() uint64 {
	return g.version
}

// Close marks the snapshot as torn down. Called exactly once by the last
// DatasetHandle holder; queries against a closed graph are a lifecycle bug.
func (g *Graph) Close() {
	g.closed.Store(true)
}

// Closed reports whether the snapshot has been torn down.
func (g *Graph) Closed() bool {
	return g.closed.Load()
}

// Snap matches a coordinate onto the nearest graph node within the snap radius.
func (g *Graph) Snap(c routing.Coordinate) (routing.SnappedPoint, bool) {
	if !c.IsValid() {
		return routing.SnappedPoint{}, false
	}

	best := -1
	bestDistance := math.Inf(1)

	for i, n := range g.nodes {
		d := c.GreatCircleDistance(routing.Coordinate{Lon: n.Lon, Lat: n.Lat})
		if d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	if best < 0 || bestDistance > maxSnapRadiusMeters {
		return routing.SnappedPoint{}, false
	}

	node := g.nodes[best]

	return routing.SnappedPoint{
		Node:     routing.NodeID(best),
		Location: routing.Coordinate{Lon: node.Lon, Lat: node.Lat},
		Name:     node.Name,
		Distance: bestDistance,
	}, true
}

// SnapN matches a coordinate onto the up to n nearest graph nodes within the
// snap radius, ordered by ascending distance.
func (g *Graph) SnapN(c routing.Coordinate, n int) []routing.SnappedPoint {
	if n < 1 || !c.IsValid() {
		return nil
	}

	candidates := make([]routing.SnappedPoint, 0, len(g.nodes))

	for i, node := range g.nodes {
		d := c.GreatCircleDistance(routing.Coordinate{Lon: node.Lon, Lat: node.Lat})
		if d > maxSnapRadiusMeters {
			continue
		}

		candidates = append(candidates, routing.SnappedPoint{
			Node:     routing.NodeID(i),
			Location: routing.Coordinate{Lon: node.Lon, Lat: node.Lat},
			Name:     node.Name,
			Distance: d,
		})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Distance != candidates[b].Distance {
			return candidates[a].Distance < candidates[b].Distance
		}
		return candidates[a].Node < candidates[b].Node
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}

	return candidates
}

// Route computes the duration-shortest path between two snapped points.
func (g *Graph) Route(from, to routing.SnappedPoint) (routing.Path, bool) {
	durations, distances, parents := g.shortestPaths(from.Node)

	if math.IsInf(durations[to.Node], 1) {
		return routing.Path{}, false
	}

	var reversed []routing.Coordinate
	for at := to.Node; ; at = parents[at] {
		n := g.nodes[at]
		reversed = append(reversed, routing.Coordinate{Lon: n.Lon, Lat: n.Lat})
		if at == from.Node {
			break
		}
	}

	geometry := make([]routing.Coordinate, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		geometry = append(geometry, reversed[i])
	}

	return routing.Path{
		Distance: distances[to.Node],
		Duration: durations[to.Node],
		Geometry: geometry,
	}, true
}

// Matrix computes pairwise durations and distances via one single-source
// search per source. Unreachable pairs stay +Inf.
func (g *Graph) Matrix(sources, destinations []routing.SnappedPoint) routing.Matrix {
	m := routing.Matrix{
		Durations: make([][]float64, len(sources)),
		Distances: make([][]float64, len(sources)),
	}

	for i, src := range sources {
		durations, distances, _ := g.shortestPaths(src.Node)

		m.Durations[i] = make([]float64, len(destinations))
		m.Distances[i] = make([]float64, len(destinations))

		for j, dst := range destinations {
			m.Durations[i][j] = durations[dst.Node]
			m.Distances[i][j] = distances[dst.Node]
		}
	}

	return m
}

type tileFeature struct {
	Name     string       `json:"name,omitempty"`
	Geometry [][2]float64 `json:"geometry"`
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
}

type tileDocument struct {
	Z        uint32        `json:"z"`
	X        uint32        `json:"x"`
	Y        uint32        `json:"y"`
	Features []tileFeature `json:"features"`
}

// Tile encodes the road segments intersecting the given WebMercator tile.
// It reports false for out-of-range addresses and for tiles without any segment.
func (g *Graph) Tile(z, x, y uint32) ([]byte, bool) {
	if z > maxTileZoom || x >= 1<<z || y >= 1<<z {
		return nil, false
	}

	doc := tileDocument{Z: z, X: x, Y: y}

	for from, outgoing := range g.adjacency {
		for _, e := range outgoing {
			a := g.nodes[from]
			b := g.nodes[e.to]

			if !coordinateInTile(a.Lon, a.Lat, z, x, y) && !coordinateInTile(b.Lon, b.Lat, z, x, y) {
				continue
			}

			doc.Features = append(doc.Features, tileFeature{
				Name:     a.Name,
				Geometry: [][2]float64{{a.Lon, a.Lat}, {b.Lon, b.Lat}},
				Distance: e.distance,
				Duration: e.duration,
			})
		}
	}

	if len(doc.Features) == 0 {
		return nil, false
	}

	encoded, marshalErr := jsoniter.ConfigFastest.Marshal(doc)
	if marshalErr != nil {
		return nil, false
	}

	return encoded, true
}

// coordinateInTile reports whether a coordinate falls into tile z/x/y using
// the standard WebMercator tiling scheme.
func coordinateInTile(lon, lat float64, z, x, y uint32) bool {
	n := float64(uint32(1) << z)

	tileX := (lon + 180) / 360 * n

	latRad := lat * math.Pi / 180
	tileY := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n

	return uint32(tileX) == x && uint32(tileY) == y
}

// shortestPaths runs a single-source Dijkstra over edge durations and returns
// per-node durations, distances, and parent links.
func (g *Graph) shortestPaths(source routing.NodeID) ([]float64, []float64, []routing.NodeID) {
	durations := make([]float64, len(g.nodes))
	distances := make([]float64, len(g.nodes))
	parents := make([]routing.NodeID, len(g.nodes))

	for i := range durations {
		durations[i] = math.Inf(1)
		distances[i] = math.Inf(1)
	}

	durations[source] = 0
	distances[source] = 0
	parents[source] = source

	pq := &nodeQueue{{node: source, duration: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		current := heap.Pop(pq).(queuedNode)
		if current.duration > durations[current.node] {
			continue
		}

		for _, e := range g.adjacency[current.node] {
			candidate := current.duration + e.duration
			if candidate < durations[e.to] {
				durations[e.to] = candidate
				distances[e.to] = distances[current.node] + e.distance
				parents[e.to] = current.node
				heap.Push(pq, queuedNode{node: e.to, duration: candidate})
			}
		}
	}

	return durations, distances, parents
}

// Ensure Graph implements routing.Contents.
var _ routing.Contents = (*Graph)(nil)

type queuedNode struct {
	node     routing.NodeID
	duration float64
}

type nodeQueue []queuedNode

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].duration < q[j].duration }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(queuedNode)) }
func (q *nodeQueue) Pop() any {
	old := *q
	last := old[len(old)-1]
	*q = old[:len(old)-1]
	return last
}
