package routing

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NodeID identifies one node of a snapshot's road graph.
type NodeID uint32

// SnappedPoint is an input coordinate matched onto the road network.
type SnappedPoint struct {
	Node     NodeID
	Location Coordinate
	Name     string
	Distance float64 // meters between the input coordinate and Location
}

// Path is one routed leg between two snapped points.
type Path struct {
	Distance float64 // meters
	Duration float64 // seconds
	Geometry []Coordinate
}

// Matrix holds pairwise durations and distances between snapped points.
// Unreachable pairs are +Inf.
type Matrix struct {
	Durations [][]float64
	Distances [][]float64
}

// Contents is the read-only query surface of one dataset snapshot.
// Implementations must be safe for concurrent use; a snapshot is never
// mutated after publication.
type Contents interface {
	RegionName() string
	Version() uint64
	Snap(c Coordinate) (SnappedPoint, bool)
	// SnapN returns up to n snapped points ordered by ascending distance
	// from c. An empty slice means nothing within snapping range.
	SnapN(c Coordinate, n int) []SnappedPoint
	Route(from, to SnappedPoint) (Path, bool)
	Matrix(sources, destinations []SnappedPoint) Matrix
	Tile(z, x, y uint32) ([]byte, bool)
	Close()
}

// DatasetHandle is an immutable, shared-ownership reference to one dataset
// snapshot. Ownership may be held simultaneously by any number of in-flight
// queries and by the dispatcher's current-snapshot slot; the snapshot is torn
// down when the last holder releases it.
//
// Retain and Release follow the usual reference-counting discipline: misuse
// (Retain after teardown, Release below zero) is a programming error and
// panics, it is not a recoverable runtime condition.
type DatasetHandle struct {
	id       uuid.UUID
	contents Contents
	refs     atomic.Int32
}

// NewDatasetHandle wraps contents into a handle with a reference count of one,
// owned by the caller.
func NewDatasetHandle(contents Contents) (*DatasetHandle, error) {
	if contents == nil {
		return nil, ErrNilSnapshotContents
	}

	h := &DatasetHandle{
		id:       uuid.New(),
		contents: contents,
	}
	h.refs.Store(1)

	return h, nil
}

// ID returns the unique identity of this handle, used for log correlation.
func (h *DatasetHandle) ID() uuid.UUID {
	return h.id
}

// Contents returns the snapshot's query surface. The caller must hold a
// reference for the whole time it uses the returned value.
func (h *DatasetHandle) Contents() Contents {
	return h.contents
}

// Retain registers an additional holder and returns the handle.
func (h *DatasetHandle) Retain() *DatasetHandle {
	if h.refs.Add(1) <= 1 {
		panic("routing: Retain on a torn-down DatasetHandle")
	}

	return h
}

// Release drops one holder. The last Release tears the snapshot down exactly once.
func (h *DatasetHandle) Release() {
	refs := h.refs.Add(-1)
	switch {
	case refs == 0:
		h.contents.Close()
	case refs < 0:
		panic("routing: DatasetHandle reference count below zero")
	}
}

// RefCount returns the current number of holders.
func (h *DatasetHandle) RefCount() int {
	return int(h.refs.Load())
}
