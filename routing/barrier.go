package routing

import (
	"context"
)

// GateBarrier is the mutual-exclusion and notification primitive behind the
// query admission gate. Its scope may span process boundaries; in-process
// deployments use a plain mutex/condition implementation with identical
// semantics, cross-process deployments coordinate through a shared medium
// (e.g. database advisory locks).
//
// Two nested scopes exist. The pending scope is the outer one: a rotation or
// an external publisher holds it to stall new entrants. The query scope is the
// inner one: it guards the in-flight counter and the snapshot slot swap.
// Entering a query acquires pending, then query, then releases pending before
// incrementing, which makes every registration visible to any rotation
// decision that follows it.
type GateBarrier interface {
	LockPending(ctx context.Context) error
	UnlockPending()

	LockQuery(ctx context.Context) error
	UnlockQuery()

	// IncrementQueries and DecrementQueries mutate the in-flight counter and
	// return its new value. The caller must hold the query scope.
	IncrementQueries() (int, error)
	DecrementQueries() (int, error)

	// NotifyNoRunningQueries signals holders of WaitNoRunningQueries.
	// The gate fires it exactly once per 1 -> 0 transition, under the query scope.
	NotifyNoRunningQueries()

	// WaitNoRunningQueries blocks until the in-flight counter is zero or the
	// context is done. Used by publishers, never by the query path.
	WaitNoRunningQueries(ctx context.Context) error
}
