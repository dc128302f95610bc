// Package geodata provides the in-memory snapshot contents queried by the
// request capabilities, and the snapshot file codec used by the embedded
// loader, the registry watchdog, and the datastore publisher.
//
// A Graph is built once, is immutable afterwards, and implements
// routing.Contents. Snapshot files are zstd-compressed JSON documents carrying
// the region name, version, and the full node/edge set.
package geodata
