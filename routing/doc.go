// Package routing provides the core abstractions and types for a routing-query
// engine that executes concurrent queries against a large, read-only,
// periodically-replaced geographic dataset.
//
// This package defines the fundamental contracts used across the engine
// implementations: the reference-counted DatasetHandle, the snapshot Contents
// view, the SnapshotWatchdog and GateBarrier coordination interfaces, typed
// request parameters, and common error definitions.
//
// Key types:
//   - DatasetHandle: shared-ownership reference to one immutable dataset snapshot
//   - Contents: the read-only query surface of a snapshot
//   - Capability: the contract every request kind (route, table, nearest, trip,
//     match, tile) implements
//   - SnapshotWatchdog: detection and loading of newly published snapshots
//   - GateBarrier: the mutual-exclusion/notification primitive behind query
//     admission, in-process or cross-process
//
// Common usage pattern:
//
//	contents, _ := geodata.LoadSnapshotFile("berlin.snap")
//	engine, err := queryengine.NewEmbeddedEngine(contents)
//	if err != nil {
//		// handle error
//	}
//
//	status, result, err := engine.Route(ctx, routing.RouteParameters{
//		Coordinates: []routing.Coordinate{{Lon: 13.388, Lat: 52.517}, {Lon: 13.397, Lat: 52.529}},
//	})
package routing
