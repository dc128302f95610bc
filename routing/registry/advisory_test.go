package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewAdvisoryBarrier_When_NilPoolSupplied(t *testing.T) {
	_, buildErr := NewAdvisoryBarrier(context.Background(), nil, "berlin")

	assert.ErrorIs(t, buildErr, ErrNilPool)
}

func Test_LockKey_IsStableAndScoped(t *testing.T) {
	assert.Equal(t, lockKey("berlin", lockScopePending), lockKey("berlin", lockScopePending),
		"the same region and scope must always map to the same key")
	assert.NotEqual(t, lockKey("berlin", lockScopePending), lockKey("berlin", lockScopeQuery),
		"pending and query scopes must not share a lock")
	assert.NotEqual(t, lockKey("berlin", lockScopePending), lockKey("hamburg", lockScopePending),
		"regions must not contend on each other's locks")
}

func Test_LockKey_SeparatorPreventsScopeBleed(t *testing.T) {
	// "ber" + "linpending" must not collide with "berlin" + "pending"
	assert.NotEqual(t, lockKey("ber", "linpending"), lockKey("berlin", "pending"))
}

func Test_AdjustCounter_When_QueryScopeNotHeld(t *testing.T) {
	// The counter runs on the held query-scope session rather than a freshly
	// acquired pool connection, so calling it without the scope must fail
	// instead of reaching for the pool.
	b := &AdvisoryBarrier{}

	_, incrementErr := b.IncrementQueries()
	assert.ErrorIs(t, incrementErr, ErrBarrierNotLocked)

	_, decrementErr := b.DecrementQueries()
	assert.ErrorIs(t, decrementErr, ErrBarrierNotLocked)
}

func Test_ReleaseLock_When_ScopeNotHeld(t *testing.T) {
	b := &AdvisoryBarrier{}

	assert.PanicsWithValue(t, ErrBarrierNotLocked, func() { b.releaseLock(nil, 1) })
}

func Test_UnlockPending_When_NeverLocked(t *testing.T) {
	b := &AdvisoryBarrier{}

	assert.Panics(t, b.UnlockPending)
	assert.Panics(t, b.UnlockQuery)
}
