package testdoubles

import (
	"sync"
	"sync/atomic"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// BlockingContents wraps dataset contents so tests can hold a query mid-flight.
// When armed with HoldQueries, every Snap and SnapN call parks until
// ReleaseQueries is called. Close calls are counted to verify teardown
// happens exactly once.
type BlockingContents struct {
	inner      routing.Contents
	mu         sync.Mutex
	hold       chan struct{}
	started    chan struct{}
	closeCalls atomic.Int32
}

// NewBlockingContents creates a new BlockingContents wrapping inner.
func NewBlockingContents(inner routing.Contents) *BlockingContents {
	return &BlockingContents{
		inner:   inner,
		started: make(chan struct{}, 64),
	}
}

// HoldQueries parks subsequent snap calls until ReleaseQueries.
func (c *BlockingContents) HoldQueries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hold = make(chan struct{})
}

// ReleaseQueries unparks all held and future snap calls.
func (c *BlockingContents) ReleaseQueries() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hold != nil {
		close(c.hold)
		c.hold = nil
	}
}

// WaitQueryStarted blocks until one snap call has entered the contents.
func (c *BlockingContents) WaitQueryStarted() {
	<-c.started
}

func (c *BlockingContents) RegionName() string { return c.inner.RegionName() }
func (c *BlockingContents) Version() uint64    { return c.inner.Version() }

// park announces that a query reached the contents and blocks while held.
func (c *BlockingContents) park() {
	c.mu.Lock()
	hold := c.hold
	c.mu.Unlock()

	select {
	case c.started <- struct{}{}:
	default:
	}

	if hold != nil {
		<-hold
	}
}

func (c *BlockingContents) Snap(coordinate routing.Coordinate) (routing.SnappedPoint, bool) {
	c.park()
	return c.inner.Snap(coordinate)
}

func (c *BlockingContents) SnapN(coordinate routing.Coordinate, n int) []routing.SnappedPoint {
	c.park()
	return c.inner.SnapN(coordinate, n)
}

func (c *BlockingContents) Route(from, to routing.SnappedPoint) (routing.Path, bool) {
	return c.inner.Route(from, to)
}

func (c *BlockingContents) Matrix(sources, destinations []routing.SnappedPoint) routing.Matrix {
	return c.inner.Matrix(sources, destinations)
}

func (c *BlockingContents) Tile(z, x, y uint32) ([]byte, bool) {
	return c.inner.Tile(z, x, y)
}

func (c *BlockingContents) Close() {
	c.closeCalls.Add(1)
	c.inner.Close()
}

// CloseCalls returns how often Close was called.
func (c *BlockingContents) CloseCalls() int {
	return int(c.closeCalls.Load())
}

var _ routing.Contents = (*BlockingContents)(nil)
