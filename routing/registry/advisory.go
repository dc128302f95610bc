package registry

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

const (
	waitPollInterval = 50 * time.Millisecond

	lockScopePending = "pending"
	lockScopeQuery   = "query"
)

var (
	// ErrNilPool is returned when an advisory barrier is built around a nil pool.
	ErrNilPool = errors.New("nil pgx pool supplied")

	// ErrBarrierNotLocked is returned when a scope is released without being held.
	ErrBarrierNotLocked = errors.New("advisory barrier scope released without being held")
)

// AdvisoryBarrier implements routing.GateBarrier across process boundaries
// using PostgreSQL advisory locks. Each scope is one session-scoped advisory
// lock held on a dedicated pooled connection; the in-flight counter lives in
// the query_gate table so every process observes the same value. Counter
// updates run on the held query-scope session, so the barrier uses at most
// two pooled connections at a time.
//
// Lock keys are derived from the region name, so engines serving different
// regions through the same database never contend with each other.
type AdvisoryBarrier struct {
	pool       *pgxpool.Pool
	regionName string
	pendingKey int64
	queryKey   int64

	mu          sync.Mutex // guards the held-connection fields
	pendingConn *pgxpool.Conn
	queryConn   *pgxpool.Conn
}

// NewAdvisoryBarrier creates a cross-process gate barrier for one region and
// verifies that its counter row exists.
func NewAdvisoryBarrier(ctx context.Context, pool *pgxpool.Pool, regionName string) (*AdvisoryBarrier, error) {
	if pool == nil {
		return nil, ErrNilPool
	}

	if regionName == "" {
		return nil, ErrEmptyRegionSupplied
	}

	b := &AdvisoryBarrier{
		pool:       pool,
		regionName: regionName,
		pendingKey: lockKey(regionName, lockScopePending),
		queryKey:   lockKey(regionName, lockScopeQuery),
	}

	const ensureRow = `INSERT INTO ` + gateTableName + ` (region_name, running_queries)
		VALUES ($1, 0) ON CONFLICT (region_name) DO NOTHING`

	if _, execErr := pool.Exec(ctx, ensureRow, regionName); execErr != nil {
		return nil, errors.Join(routing.ErrGateUnavailable, execErr)
	}

	return b, nil
}

// lockKey derives a stable advisory lock key from the region name and scope.
func lockKey(regionName, scope string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(regionName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(scope))

	return int64(h.Sum64())
}

// LockPending acquires the cross-process pending scope.
func (b *AdvisoryBarrier) LockPending(ctx context.Context) error {
	conn, lockErr := b.acquireLock(ctx, b.pendingKey)
	if lockErr != nil {
		return lockErr
	}

	b.mu.Lock()
	b.pendingConn = conn
	b.mu.Unlock()

	return nil
}

// UnlockPending releases the cross-process pending scope.
func (b *AdvisoryBarrier) UnlockPending() {
	b.mu.Lock()
	conn := b.pendingConn
	b.pendingConn = nil
	b.mu.Unlock()

	b.releaseLock(conn, b.pendingKey)
}

// LockQuery acquires the cross-process query scope.
func (b *AdvisoryBarrier) LockQuery(ctx context.Context) error {
	conn, lockErr := b.acquireLock(ctx, b.queryKey)
	if lockErr != nil {
		return lockErr
	}

	b.mu.Lock()
	b.queryConn = conn
	b.mu.Unlock()

	return nil
}

// UnlockQuery releases the cross-process query scope.
func (b *AdvisoryBarrier) UnlockQuery() {
	b.mu.Lock()
	conn := b.queryConn
	b.queryConn = nil
	b.mu.Unlock()

	b.releaseLock(conn, b.queryKey)
}

// IncrementQueries adds one in-flight query to the shared counter.
// Caller must hold the query scope.
func (b *AdvisoryBarrier) IncrementQueries() (int, error) {
	return b.adjustCounter(+1)
}

// DecrementQueries removes one in-flight query from the shared counter.
// Caller must hold the query scope.
func (b *AdvisoryBarrier) DecrementQueries() (int, error) {
	return b.adjustCounter(-1)
}

// adjustCounter runs the UPDATE on the held query-scope session. Reusing that
// connection keeps the barrier at two pooled connections during admission, so
// it cannot starve itself on pools smaller than three.
func (b *AdvisoryBarrier) adjustCounter(delta int) (int, error) {
	const adjust = `UPDATE ` + gateTableName + `
		SET running_queries = running_queries + $1
		WHERE region_name = $2
		RETURNING running_queries`

	b.mu.Lock()
	conn := b.queryConn
	b.mu.Unlock()

	if conn == nil {
		return 0, ErrBarrierNotLocked
	}

	var running int
	row := conn.QueryRow(context.Background(), adjust, delta, b.regionName)
	if scanErr := row.Scan(&running); scanErr != nil {
		return 0, errors.Join(routing.ErrGateUnavailable, scanErr)
	}

	return running, nil
}

// NotifyNoRunningQueries announces the 1 -> 0 transition to other processes.
// Waiters poll the shared counter, so the notification is advisory only; it
// exists for external listeners on the region's channel.
func (b *AdvisoryBarrier) NotifyNoRunningQueries() {
	_, _ = b.pool.Exec(context.Background(), `SELECT pg_notify('routing_no_running_queries', $1)`, b.regionName)
}

// WaitNoRunningQueries blocks until the shared counter is zero or ctx is done.
func (b *AdvisoryBarrier) WaitNoRunningQueries(ctx context.Context) error {
	const read = `SELECT running_queries FROM ` + gateTableName + ` WHERE region_name = $1`

	for {
		var running int
		row := b.pool.QueryRow(ctx, read, b.regionName)
		if scanErr := row.Scan(&running); scanErr != nil {
			return errors.Join(routing.ErrGateUnavailable, scanErr)
		}

		if running == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}

// acquireLock takes a dedicated pooled connection and blocks on its advisory lock.
func (b *AdvisoryBarrier) acquireLock(ctx context.Context, key int64) (*pgxpool.Conn, error) {
	conn, acquireErr := b.pool.Acquire(ctx)
	if acquireErr != nil {
		return nil, errors.Join(routing.ErrGateUnavailable, acquireErr)
	}

	if _, execErr := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); execErr != nil {
		conn.Release()
		return nil, errors.Join(routing.ErrGateUnavailable, execErr)
	}

	return conn, nil
}

// releaseLock drops the advisory lock and returns the connection to the pool.
func (b *AdvisoryBarrier) releaseLock(conn *pgxpool.Conn, key int64) {
	if conn == nil {
		panic(ErrBarrierNotLocked)
	}

	// unlock on the session that holds the lock; closing the connection would
	// release it as well, so failures here only cost us the pooled session
	_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
	conn.Release()
}

// Ensure AdvisoryBarrier implements the barrier contract.
var _ routing.GateBarrier = (*AdvisoryBarrier)(nil)
