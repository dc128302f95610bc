package routing

import (
	"errors"
)

var (
	// ErrNilSnapshotContents is returned when a DatasetHandle is built around nil contents.
	ErrNilSnapshotContents = errors.New("nil snapshot contents supplied")

	// ErrNilWatchdog is returned when a shared-mode engine is constructed without a watchdog.
	ErrNilWatchdog = errors.New("nil snapshot watchdog supplied")

	// ErrNoPublishedSnapshot is returned when shared mode is requested but no
	// published snapshot is reachable through the watchdog.
	ErrNoPublishedSnapshot = errors.New("no published snapshot reachable, has the datastore published a region yet")

	// ErrInvalidDatasetPath is returned when embedded mode is requested with a
	// dataset path that does not point at a loadable snapshot file.
	ErrInvalidDatasetPath = errors.New("invalid dataset path supplied")

	// ErrGateUnavailable is returned when the admission gate's underlying
	// synchronization primitive cannot be acquired.
	ErrGateUnavailable = errors.New("query admission gate unavailable")

	// ErrLoadingSnapshotFailed is returned when the watchdog detected a new
	// region but materializing its snapshot failed.
	ErrLoadingSnapshotFailed = errors.New("loading new snapshot failed")
)
