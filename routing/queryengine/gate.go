package queryengine

import (
	"context"
	"errors"
	"sync"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// currentSnapshotSlot is the dispatcher's single mutable reference to the
// snapshot in use for new queries. Exactly one writer path exists (the
// rotation check); the slot always owns one reference to the handle it holds.
// Reads and the swap are guarded by the gate's rotation mutex.
type currentSnapshotSlot struct {
	handle *routing.DatasetHandle
}

// admissionGate makes concurrent query execution and snapshot rotation
// mutually safe without serializing query execution itself. The barrier
// carries the two nested mutual-exclusion scopes and the in-flight counter;
// the rotation mutex serializes the snapshot check-and-swap so there is
// always exactly one loader per newly published region in this process.
type admissionGate struct {
	barrier  routing.GateBarrier
	rotation sync.Mutex
}

func newAdmissionGate(barrier routing.GateBarrier) *admissionGate {
	return &admissionGate{barrier: barrier}
}

// enter registers the calling query as in-flight. Acquiring the pending scope
// first means a rotation or publisher holding it stalls new entrants; the
// registration is complete, and visible to any later rotation decision,
// before enter returns.
func (g *admissionGate) enter(ctx context.Context) error {
	if lockErr := g.barrier.LockPending(ctx); lockErr != nil {
		return errors.Join(routing.ErrGateUnavailable, lockErr)
	}

	if lockErr := g.barrier.LockQuery(ctx); lockErr != nil {
		g.barrier.UnlockPending()
		return errors.Join(routing.ErrGateUnavailable, lockErr)
	}

	g.barrier.UnlockPending()

	_, incrementErr := g.barrier.IncrementQueries()
	g.barrier.UnlockQuery()

	if incrementErr != nil {
		return errors.Join(routing.ErrGateUnavailable, incrementErr)
	}

	return nil
}

// leave deregisters the calling query. It must run exactly once per
// successful enter, on every exit path. The 1 -> 0 transition fires the
// no-running-queries notification exactly once.
func (g *admissionGate) leave() error {
	if lockErr := g.barrier.LockQuery(context.Background()); lockErr != nil {
		return errors.Join(routing.ErrGateUnavailable, lockErr)
	}
	defer g.barrier.UnlockQuery()

	remaining, decrementErr := g.barrier.DecrementQueries()
	if decrementErr != nil {
		return errors.Join(routing.ErrGateUnavailable, decrementErr)
	}

	if remaining == 0 {
		g.barrier.NotifyNoRunningQueries()
	}

	return nil
}

// tryRotate asks the watchdog for a newer snapshot and, if one is available,
// swaps the slot onto it. The slot's reference to the outgoing handle is
// transferred to the caller, which must release it after observing it; the
// outgoing snapshot's teardown then happens whenever its remaining in-flight
// holders release it, so rotation never waits for running queries and running
// queries never observe the swap. A nil handle from the watchdog despite
// HasNewRegion means this loader was overtaken; the slot stays unchanged.
func (g *admissionGate) tryRotate(
	ctx context.Context,
	watchdog routing.SnapshotWatchdog,
	slot *currentSnapshotSlot,
) (outgoing, incoming *routing.DatasetHandle, err error) {

	g.rotation.Lock()
	defer g.rotation.Unlock()

	if !watchdog.HasNewRegion() {
		return nil, nil, nil
	}

	incoming, loadErr := watchdog.MaybeLoadNewRegion(ctx)
	if loadErr != nil {
		return nil, nil, errors.Join(routing.ErrLoadingSnapshotFailed, loadErr)
	}

	if incoming == nil {
		return nil, nil, nil
	}

	outgoing = slot.handle
	slot.handle = incoming

	return outgoing, incoming, nil
}

// retainCurrent reads the slot and registers the calling query as a holder of
// that exact handle. The query keeps using it for its entire execution even
// if the slot is rotated underneath it; the caller must release the returned
// handle when the query finishes.
func (g *admissionGate) retainCurrent(slot *currentSnapshotSlot) *routing.DatasetHandle {
	g.rotation.Lock()
	defer g.rotation.Unlock()

	return slot.handle.Retain()
}
