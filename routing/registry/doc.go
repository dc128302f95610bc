// Package registry provides the PostgreSQL-backed snapshot publisher/consumer
// collaborators for shared-mode deployments: the snapshot registry itself, the
// watchdog that detects and loads newly published snapshots, and the
// cross-process gate barrier built on advisory locks.
//
// The registry stores one row per published snapshot; snapshot payloads live
// in snapshot files on a filesystem reachable by every consumer. The publisher
// (cmd/datastore) inserts rows with increasing versions per region; consumers
// never mutate rows.
//
// Required schema (created by Registry.InitSchema):
//
//	CREATE TABLE IF NOT EXISTS snapshots (
//	    snapshot_id  UUID PRIMARY KEY,
//	    region_name  TEXT NOT NULL,
//	    version      BIGINT NOT NULL,
//	    path         TEXT NOT NULL,
//	    published_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE IF NOT EXISTS query_gate (
//	    region_name     TEXT PRIMARY KEY,
//	    running_queries BIGINT NOT NULL DEFAULT 0
//	);
//
// Usage:
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	reg, _ := registry.NewRegistryFromPGXPool(pool)
//	watchdog := registry.NewWatchdog(reg, "berlin")
//	watchdog.Start(ctx)
//
//	barrier, _ := registry.NewAdvisoryBarrier(pool, "berlin")
//	engine, _ := queryengine.NewSharedEngine(ctx, watchdog, queryengine.WithGateBarrier(barrier))
package registry
