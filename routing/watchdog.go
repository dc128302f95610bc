package routing

import (
	"context"
)

// SnapshotWatchdog detects and materializes newly published dataset snapshots.
// The engine only ever consults the watchdog from inside the admission gate's
// rotation scope, so implementations do not need to serialize these two calls
// against each other.
type SnapshotWatchdog interface {
	// HasNewRegion reports whether a snapshot newer than the one last loaded
	// through this watchdog has been published. It must be cheap and must not
	// block; it is called on the hot path of every shared-mode query.
	HasNewRegion() bool

	// MaybeLoadNewRegion materializes the newest published snapshot.
	// It returns nil, nil when, despite HasNewRegion having been true, loading
	// did not produce a usable handle, e.g. this loader lost a race with
	// another one. The returned handle's single reference belongs to the caller.
	MaybeLoadNewRegion(ctx context.Context) (*DatasetHandle, error)
}
