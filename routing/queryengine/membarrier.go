package queryengine

import (
	"context"
	"sync"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// MemoryBarrier is the in-process routing.GateBarrier implementation: a plain
// mutex pair plus a condition variable with the same semantics as the
// cross-process variants. It is the default for shared-mode engines whose
// publisher runs in the same process.
type MemoryBarrier struct {
	pending sync.Mutex
	query   sync.Mutex
	queries int
	zero    *sync.Cond
}

// NewMemoryBarrier creates an in-process gate barrier.
func NewMemoryBarrier() *MemoryBarrier {
	b := &MemoryBarrier{}
	b.zero = sync.NewCond(&b.query)

	return b
}

// LockPending acquires the outer pending scope.
func (b *MemoryBarrier) LockPending(_ context.Context) error {
	b.pending.Lock()
	return nil
}

// UnlockPending releases the outer pending scope.
func (b *MemoryBarrier) UnlockPending() {
	b.pending.Unlock()
}

// LockQuery acquires the inner query scope.
func (b *MemoryBarrier) LockQuery(_ context.Context) error {
	b.query.Lock()
	return nil
}

// UnlockQuery releases the inner query scope.
func (b *MemoryBarrier) UnlockQuery() {
	b.query.Unlock()
}

// IncrementQueries adds one in-flight query. Caller must hold the query scope.
func (b *MemoryBarrier) IncrementQueries() (int, error) {
	b.queries++
	return b.queries, nil
}

// DecrementQueries removes one in-flight query. Caller must hold the query scope.
func (b *MemoryBarrier) DecrementQueries() (int, error) {
	b.queries--
	return b.queries, nil
}

// NotifyNoRunningQueries wakes all WaitNoRunningQueries callers.
func (b *MemoryBarrier) NotifyNoRunningQueries() {
	b.zero.Broadcast()
}

// WaitNoRunningQueries blocks until no query is in flight or ctx is done.
func (b *MemoryBarrier) WaitNoRunningQueries(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		b.query.Lock()
		b.zero.Broadcast()
		b.query.Unlock()
	})
	defer stop()

	b.query.Lock()
	defer b.query.Unlock()

	for b.queries != 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.zero.Wait()
	}

	return nil
}

// Ensure MemoryBarrier implements the barrier contract.
var _ routing.GateBarrier = (*MemoryBarrier)(nil)
