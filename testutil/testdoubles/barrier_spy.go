package testdoubles

import (
	"context"
	"sync"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// BarrierSpy is a fully working in-process GateBarrier that additionally
// records every call, so tests can assert on the admission protocol itself.
// Errors can be injected to simulate an unavailable gate.
type BarrierSpy struct {
	pending sync.Mutex
	query   sync.Mutex

	mu            sync.Mutex
	queries       int
	calls         []string
	notifications int
	pendingErr    error
	queryErr      error
	counterErr    error
}

// NewBarrierSpy creates a new BarrierSpy instance.
func NewBarrierSpy() *BarrierSpy {
	return &BarrierSpy{}
}

// FailPendingLock makes subsequent LockPending calls return err.
func (b *BarrierSpy) FailPendingLock(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingErr = err
}

// FailQueryLock makes subsequent LockQuery calls return err.
func (b *BarrierSpy) FailQueryLock(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queryErr = err
}

// FailCounter makes subsequent Increment/DecrementQueries calls return err.
func (b *BarrierSpy) FailCounter(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counterErr = err
}

func (b *BarrierSpy) LockPending(_ context.Context) error {
	if err := b.injected(&b.pendingErr); err != nil {
		b.recordCall("LockPending!")
		return err
	}

	b.pending.Lock()
	b.recordCall("LockPending")
	return nil
}

func (b *BarrierSpy) UnlockPending() {
	b.recordCall("UnlockPending")
	b.pending.Unlock()
}

func (b *BarrierSpy) LockQuery(_ context.Context) error {
	if err := b.injected(&b.queryErr); err != nil {
		b.recordCall("LockQuery!")
		return err
	}

	b.query.Lock()
	b.recordCall("LockQuery")
	return nil
}

func (b *BarrierSpy) UnlockQuery() {
	b.recordCall("UnlockQuery")
	b.query.Unlock()
}

func (b *BarrierSpy) IncrementQueries() (int, error) {
	if err := b.injected(&b.counterErr); err != nil {
		b.recordCall("IncrementQueries!")
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.queries++
	b.calls = append(b.calls, "IncrementQueries")
	return b.queries, nil
}

func (b *BarrierSpy) DecrementQueries() (int, error) {
	if err := b.injected(&b.counterErr); err != nil {
		b.recordCall("DecrementQueries!")
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.queries--
	b.calls = append(b.calls, "DecrementQueries")
	return b.queries, nil
}

func (b *BarrierSpy) NotifyNoRunningQueries() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notifications++
	b.calls = append(b.calls, "NotifyNoRunningQueries")
}

func (b *BarrierSpy) WaitNoRunningQueries(ctx context.Context) error {
	b.recordCall("WaitNoRunningQueries")

	for {
		b.mu.Lock()
		queries := b.queries
		b.mu.Unlock()

		if queries == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Queries returns the current in-flight counter value.
func (b *BarrierSpy) Queries() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.queries
}

// Notifications returns how often NotifyNoRunningQueries was called.
func (b *BarrierSpy) Notifications() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.notifications
}

// Calls returns a copy of the recorded call sequence. Failed calls are
// recorded with a trailing "!".
func (b *BarrierSpy) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.calls...)
}

func (b *BarrierSpy) recordCall(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, name)
}

func (b *BarrierSpy) injected(slot *error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return *slot
}

var _ routing.GateBarrier = (*BarrierSpy)(nil)
