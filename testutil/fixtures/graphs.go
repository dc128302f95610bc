package fixtures

import (
	"github.com/geosrv/live-dataset-routing-go/routing/geodata"
)

// The fixture graphs live in a tiny synthetic city near (13.40 E, 52.52 N).
// Distances are metres, durations seconds.

// TriangleNodes returns three mutually connected intersections.
func TriangleNodes() []geodata.Node {
	return []geodata.Node{
		{Lon: 13.400, Lat: 52.520, Name: "alpha"},
		{Lon: 13.410, Lat: 52.520, Name: "bravo"},
		{Lon: 13.405, Lat: 52.525, Name: "charlie"},
	}
}

// TriangleEdges connects the triangle bidirectionally. The direct alpha-bravo
// edge is slower than the detour through charlie, which routing tests exploit.
func TriangleEdges() []geodata.Edge {
	return []geodata.Edge{
		{From: 0, To: 1, Distance: 680, Duration: 100, Name: "main street"},
		{From: 1, To: 0, Distance: 680, Duration: 100, Name: "main street"},
		{From: 0, To: 2, Distance: 640, Duration: 30, Name: "north road"},
		{From: 2, To: 0, Distance: 640, Duration: 30, Name: "north road"},
		{From: 1, To: 2, Distance: 640, Duration: 30, Name: "east road"},
		{From: 2, To: 1, Distance: 640, Duration: 30, Name: "east road"},
	}
}

// TriangleGraph builds the triangle fixture with the given region and version.
func TriangleGraph(regionName string, version uint64) *geodata.Graph {
	graph, err := geodata.BuildGraph(regionName, version, TriangleNodes(), TriangleEdges())
	if err != nil {
		panic("fixtures: building triangle graph: " + err.Error())
	}

	return graph
}

// DisconnectedGraph builds two node pairs with no edge between the pairs,
// for unreachable-route and partial-matrix cases.
func DisconnectedGraph(regionName string, version uint64) *geodata.Graph {
	nodes := []geodata.Node{
		{Lon: 13.400, Lat: 52.520, Name: "west-a"},
		{Lon: 13.401, Lat: 52.520, Name: "west-b"},
		{Lon: 13.500, Lat: 52.520, Name: "east-a"},
		{Lon: 13.501, Lat: 52.520, Name: "east-b"},
	}
	edges := []geodata.Edge{
		{From: 0, To: 1, Distance: 68, Duration: 10, Name: "west lane"},
		{From: 1, To: 0, Distance: 68, Duration: 10, Name: "west lane"},
		{From: 2, To: 3, Distance: 68, Duration: 10, Name: "east lane"},
		{From: 3, To: 2, Distance: 68, Duration: 10, Name: "east lane"},
	}

	graph, err := geodata.BuildGraph(regionName, version, nodes, edges)
	if err != nil {
		panic("fixtures: building disconnected graph: " + err.Error())
	}

	return graph
}
