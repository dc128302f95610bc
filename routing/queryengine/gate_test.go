package queryengine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosrv/live-dataset-routing-go/routing"
	"github.com/geosrv/live-dataset-routing-go/testutil/fixtures"
	"github.com/geosrv/live-dataset-routing-go/testutil/testdoubles"
)

func newTriangleHandle(t *testing.T, version uint64) *routing.DatasetHandle {
	t.Helper()

	handle, err := routing.NewDatasetHandle(fixtures.TriangleGraph("berlin", version))
	require.NoError(t, err)

	return handle
}

func Test_AdmissionGate_Enter_ProtocolOrder(t *testing.T) {
	barrier := testdoubles.NewBarrierSpy()
	gate := newAdmissionGate(barrier)

	require.NoError(t, gate.enter(context.Background()))

	assert.Equal(t, []string{
		"LockPending",
		"LockQuery",
		"UnlockPending",
		"IncrementQueries",
		"UnlockQuery",
	}, barrier.Calls())
	assert.Equal(t, 1, barrier.Queries())
}

func Test_AdmissionGate_EnterLeave_CounterAndNotification(t *testing.T) {
	barrier := testdoubles.NewBarrierSpy()
	gate := newAdmissionGate(barrier)
	ctx := context.Background()

	// Three overlapping queries enter, then leave one by one. Only the final
	// 1 -> 0 transition may fire the notification.
	require.NoError(t, gate.enter(ctx))
	require.NoError(t, gate.enter(ctx))
	require.NoError(t, gate.enter(ctx))
	assert.Equal(t, 3, barrier.Queries())

	require.NoError(t, gate.leave())
	assert.Equal(t, 0, barrier.Notifications())

	require.NoError(t, gate.leave())
	assert.Equal(t, 0, barrier.Notifications())

	require.NoError(t, gate.leave())
	assert.Equal(t, 0, barrier.Queries())
	assert.Equal(t, 1, barrier.Notifications())
}

func Test_AdmissionGate_ConcurrentEnterLeave_DrainsToZero(t *testing.T) {
	barrier := testdoubles.NewBarrierSpy()
	gate := newAdmissionGate(barrier)

	const workers = 64

	var wg sync.WaitGroup
	var failures atomic.Int32

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			if enterErr := gate.enter(context.Background()); enterErr != nil {
				failures.Add(1)
				return
			}

			if leaveErr := gate.leave(); leaveErr != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 0, barrier.Queries(), "counter must return to exactly zero regardless of interleaving")
	assert.GreaterOrEqual(t, barrier.Notifications(), 1, "the final 1 -> 0 transition fires a notification")

	// A publisher waiting on a drained gate must not block.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, barrier.WaitNoRunningQueries(ctx))
}

func Test_AdmissionGate_Enter_PendingLockFails(t *testing.T) {
	barrier := testdoubles.NewBarrierSpy()
	gateErr := errors.New("pending lock lost")
	barrier.FailPendingLock(gateErr)

	gate := newAdmissionGate(barrier)

	err := gate.enter(context.Background())

	assert.ErrorIs(t, err, routing.ErrGateUnavailable)
	assert.ErrorIs(t, err, gateErr)
	assert.Equal(t, 0, barrier.Queries())
}

func Test_AdmissionGate_Enter_QueryLockFails_ReleasesPending(t *testing.T) {
	barrier := testdoubles.NewBarrierSpy()
	gateErr := errors.New("query lock lost")
	barrier.FailQueryLock(gateErr)

	gate := newAdmissionGate(barrier)

	err := gate.enter(context.Background())

	assert.ErrorIs(t, err, routing.ErrGateUnavailable)
	assert.Equal(t, []string{"LockPending", "LockQuery!", "UnlockPending"}, barrier.Calls())
}

func Test_AdmissionGate_Enter_CounterFails(t *testing.T) {
	barrier := testdoubles.NewBarrierSpy()
	counterErr := errors.New("counter row gone")
	barrier.FailCounter(counterErr)

	gate := newAdmissionGate(barrier)

	err := gate.enter(context.Background())

	assert.ErrorIs(t, err, routing.ErrGateUnavailable)
	assert.ErrorIs(t, err, counterErr)
	// The query scope must be released even when the counter update fails.
	assert.Contains(t, barrier.Calls(), "UnlockQuery")
}

func Test_AdmissionGate_TryRotate_NoNewRegion(t *testing.T) {
	gate := newAdmissionGate(testdoubles.NewBarrierSpy())
	watchdog := testdoubles.NewWatchdogStub()

	current := newTriangleHandle(t, 1)
	defer current.Release()
	slot := &currentSnapshotSlot{handle: current}

	outgoing, incoming, err := gate.tryRotate(context.Background(), watchdog, slot)

	require.NoError(t, err)
	assert.Nil(t, outgoing)
	assert.Nil(t, incoming)
	assert.Same(t, current, slot.handle)
	assert.Equal(t, 0, watchdog.LoadCalls(), "no load attempt without a new region")
}

func Test_AdmissionGate_TryRotate_Overtaken(t *testing.T) {
	gate := newAdmissionGate(testdoubles.NewBarrierSpy())

	// HasNewRegion fires, but by load time another loader already swapped.
	watchdog := &overtakenWatchdog{}

	current := newTriangleHandle(t, 1)
	defer current.Release()
	slot := &currentSnapshotSlot{handle: current}

	outgoing, incoming, err := gate.tryRotate(context.Background(), watchdog, slot)

	require.NoError(t, err)
	assert.Nil(t, outgoing)
	assert.Nil(t, incoming)
	assert.Same(t, current, slot.handle, "slot stays unchanged when overtaken")
}

func Test_AdmissionGate_TryRotate_LoadFails(t *testing.T) {
	gate := newAdmissionGate(testdoubles.NewBarrierSpy())

	loadErr := errors.New("snapshot file unreadable")
	watchdog := testdoubles.NewWatchdogStub()
	watchdog.FailNextLoad(loadErr)

	current := newTriangleHandle(t, 1)
	defer current.Release()
	slot := &currentSnapshotSlot{handle: current}

	outgoing, incoming, err := gate.tryRotate(context.Background(), watchdog, slot)

	assert.ErrorIs(t, err, routing.ErrLoadingSnapshotFailed)
	assert.ErrorIs(t, err, loadErr)
	assert.Nil(t, outgoing)
	assert.Nil(t, incoming)
	assert.Same(t, current, slot.handle)
}

func Test_AdmissionGate_TryRotate_SwapsAndTransfersReference(t *testing.T) {
	gate := newAdmissionGate(testdoubles.NewBarrierSpy())

	oldHandle := newTriangleHandle(t, 1)
	newHandle := newTriangleHandle(t, 2)
	watchdog := testdoubles.NewWatchdogStub(newHandle)

	slot := &currentSnapshotSlot{handle: oldHandle}

	outgoing, incoming, err := gate.tryRotate(context.Background(), watchdog, slot)

	require.NoError(t, err)
	assert.Same(t, oldHandle, outgoing)
	assert.Same(t, newHandle, incoming)
	assert.Same(t, newHandle, slot.handle)

	// The slot's reference moved to the caller: nothing was released yet.
	assert.Equal(t, 1, outgoing.RefCount())

	outgoing.Release()
	newHandle.Release()
}

func Test_AdmissionGate_RetainCurrent_AddsHolder(t *testing.T) {
	gate := newAdmissionGate(testdoubles.NewBarrierSpy())

	handle := newTriangleHandle(t, 1)
	slot := &currentSnapshotSlot{handle: handle}

	retained := gate.retainCurrent(slot)

	assert.Same(t, handle, retained)
	assert.Equal(t, 2, handle.RefCount())

	retained.Release()
	handle.Release()
}

// overtakenWatchdog reports a new region but always loses the load race.
type overtakenWatchdog struct{}

func (w *overtakenWatchdog) HasNewRegion() bool { return true }

func (w *overtakenWatchdog) MaybeLoadNewRegion(_ context.Context) (*routing.DatasetHandle, error) {
	return nil, nil
}
