// Package plugins implements the six request capabilities of the routing
// engine: route, table, nearest, trip, match, and tile.
//
// Each capability is constructed once at startup with its static limits, is
// stateless with respect to snapshots, and conforms to the routing.Capability
// contract, which is what allows the query engine to dispatch generically over
// all of them. Capabilities validate parameters first, then query the snapshot
// contents, and encode results as JSON documents.
package plugins
