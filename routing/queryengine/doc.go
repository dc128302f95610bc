// Package queryengine implements the query dispatcher and the concurrent
// query admission / live-dataset-swap coordinator of the routing engine.
//
// An Engine ties together the admission gate, the snapshot watchdog, the
// current-snapshot slot, and one capability per request kind. Two deployment
// modes exist:
//
//   - Embedded: the engine exclusively owns a single, non-rotating snapshot.
//     Dispatch calls the capability directly; the gate and watchdog are absent
//     by construction.
//   - Shared: an external publisher may replace the dataset at any time.
//     Every dispatch registers with the admission gate, opportunistically
//     rotates onto a newly published snapshot, and executes against a
//     per-query retained handle, so a rotation never changes or tears down the
//     snapshot a running query observes.
//
// Usage examples:
//
//	// Embedded mode
//	engine, _ := queryengine.NewEmbeddedEngineFromFile("berlin.snap")
//
//	// Shared mode with cross-process coordination
//	engine, _ := queryengine.NewSharedEngine(ctx, watchdog,
//		queryengine.WithGateBarrier(barrier),
//		queryengine.WithLogger(logger),
//	)
//
//	status, result, err := engine.Route(ctx, params)
package queryengine
