package queryengine

import (
	"context"
	"errors"
	"time"

	"github.com/geosrv/live-dataset-routing-go/routing"
	"github.com/geosrv/live-dataset-routing-go/routing/geodata"
	"github.com/geosrv/live-dataset-routing-go/routing/plugins"
)

const (
	logMsgSnapshotRotated         = "rotated onto new dataset snapshot"
	logMsgRotationCheckFailed     = "checking for a new dataset snapshot failed"
	logMsgOutgoingStillReferenced = "outgoing snapshot still referenced, teardown deferred"
	logMsgQueryCompleted          = "query completed"
	logMsgGateLeaveFailed         = "deregistering query from admission gate failed"
	logMsgInitialSnapshotLoaded   = "initial dataset snapshot loaded"

	logAttrError       = "error"
	logAttrOperation   = "operation"
	logAttrStatus      = "status"
	logAttrDurationMS  = "duration_ms"
	logAttrSnapshotID  = "snapshot_id"
	logAttrRegion      = "region"
	logAttrVersion     = "version"
	logAttrHolderCount = "holder_count"

	metricQueryDuration  = "routing_query_duration_seconds"
	metricQueriesTotal   = "routing_queries_total"
	metricRotationsTotal = "routing_snapshot_rotations_total"
	metricGateErrors     = "routing_gate_errors_total"

	operationRoute   = "route"
	operationTable   = "table"
	operationNearest = "nearest"
	operationTrip    = "trip"
	operationMatch   = "match"
	operationTile    = "tile"
)

// capabilityLimits carries the static per-capability configuration consumed
// once at construction time. Zero values mean unlimited.
type capabilityLimits struct {
	maxLocationsRoute   int
	maxLocationsTable   int
	maxResultsNearest   int
	maxLocationsTrip    int
	maxTracePointsMatch int
}

// Engine is the only code path by which a client request reaches a request
// capability. It couples the admission gate, the snapshot watchdog, the
// current-snapshot slot, and one capability per request kind for exactly one
// call per dispatch.
type Engine struct {
	shared   bool
	gate     *admissionGate
	watchdog routing.SnapshotWatchdog
	slot     *currentSnapshotSlot

	route   routing.Capability[routing.RouteParameters]
	table   routing.Capability[routing.TableParameters]
	nearest routing.Capability[routing.NearestParameters]
	trip    routing.Capability[routing.TripParameters]
	match   routing.Capability[routing.MatchParameters]
	tile    routing.Capability[routing.TileParameters]

	limits  capabilityLimits
	barrier routing.GateBarrier

	logger           routing.Logger
	metricsCollector routing.MetricsCollector
	tracingCollector routing.TracingCollector
	contextualLogger routing.ContextualLogger
}

// NewEmbeddedEngine creates an engine that exclusively owns the given snapshot
// contents for its whole lifetime. No rotation ever happens; dispatch reaches
// the capability without touching any gate or watchdog.
func NewEmbeddedEngine(contents routing.Contents, options ...Option) (*Engine, error) {
	handle, handleErr := routing.NewDatasetHandle(contents)
	if handleErr != nil {
		return nil, handleErr
	}

	e := &Engine{
		shared: false,
		slot:   &currentSnapshotSlot{handle: handle},
	}

	if optionErr := e.applyOptions(options); optionErr != nil {
		return nil, optionErr
	}

	e.registerCapabilities()

	return e, nil
}

// NewEmbeddedEngineFromFile creates an embedded engine from a snapshot file.
// An unreadable or invalid file is a fatal construction error.
func NewEmbeddedEngineFromFile(path string, options ...Option) (*Engine, error) {
	graph, loadErr := geodata.LoadSnapshotFile(path)
	if loadErr != nil {
		return nil, errors.Join(routing.ErrInvalidDatasetPath, loadErr)
	}

	return NewEmbeddedEngine(graph, options...)
}

// NewSharedEngine creates an engine against a dataset an external publisher
// may replace at any time. Construction fails with a descriptive error when
// no published snapshot is reachable through the watchdog; no
// partially-initialized engine is ever returned.
func NewSharedEngine(ctx context.Context, watchdog routing.SnapshotWatchdog, options ...Option) (*Engine, error) {
	if watchdog == nil {
		return nil, routing.ErrNilWatchdog
	}

	e := &Engine{
		shared:   true,
		watchdog: watchdog,
	}

	if optionErr := e.applyOptions(options); optionErr != nil {
		return nil, optionErr
	}

	if e.barrier == nil {
		e.barrier = NewMemoryBarrier()
	}
	e.gate = newAdmissionGate(e.barrier)

	initial, loadErr := watchdog.MaybeLoadNewRegion(ctx)
	if loadErr != nil {
		return nil, errors.Join(routing.ErrNoPublishedSnapshot, loadErr)
	}

	if initial == nil {
		return nil, routing.ErrNoPublishedSnapshot
	}

	e.slot = &currentSnapshotSlot{handle: initial}

	e.registerCapabilities()

	e.logOperation(
		logMsgInitialSnapshotLoaded,
		logAttrSnapshotID, initial.ID().String(),
		logAttrRegion, initial.Contents().RegionName(),
		logAttrVersion, initial.Contents().Version(),
	)

	return e, nil
}

func (e *Engine) applyOptions(options []Option) error {
	for _, option := range options {
		if optionErr := option(e); optionErr != nil {
			return optionErr
		}
	}

	return nil
}

func (e *Engine) registerCapabilities() {
	e.route = plugins.NewRoute(e.limits.maxLocationsRoute)
	e.table = plugins.NewTable(e.limits.maxLocationsTable)
	e.nearest = plugins.NewNearest(e.limits.maxResultsNearest)
	e.trip = plugins.NewTrip(e.limits.maxLocationsTrip)
	e.match = plugins.NewMatch(e.limits.maxTracePointsMatch)
	e.tile = plugins.NewTile()
}

// Close releases the engine's reference to the current snapshot. The snapshot
// itself is torn down once its last in-flight holder releases it.
func (e *Engine) Close() {
	e.slot.handle.Release()
}

// Route dispatches a route query.
func (e *Engine) Route(ctx context.Context, params routing.RouteParameters) (routing.Status, routing.Result, error) {
	return runQuery(ctx, e, operationRoute, params, e.route)
}

// Table dispatches a duration/distance matrix query.
func (e *Engine) Table(ctx context.Context, params routing.TableParameters) (routing.Status, routing.Result, error) {
	return runQuery(ctx, e, operationTable, params, e.table)
}

// Nearest dispatches a nearest-segment query.
func (e *Engine) Nearest(ctx context.Context, params routing.NearestParameters) (routing.Status, routing.Result, error) {
	return runQuery(ctx, e, operationNearest, params, e.nearest)
}

// Trip dispatches a round-trip query.
func (e *Engine) Trip(ctx context.Context, params routing.TripParameters) (routing.Status, routing.Result, error) {
	return runQuery(ctx, e, operationTrip, params, e.trip)
}

// Match dispatches a map-matching query.
func (e *Engine) Match(ctx context.Context, params routing.MatchParameters) (routing.Status, routing.Result, error) {
	return runQuery(ctx, e, operationMatch, params, e.match)
}

// Tile dispatches a tile query.
func (e *Engine) Tile(ctx context.Context, params routing.TileParameters) (routing.Status, routing.Result, error) {
	return runQuery(ctx, e, operationTile, params, e.tile)
}

// runQuery abstracts the query admission and snapshot selection away from the
// individual request kinds; it works the same for every capability.
//
// Shared mode: register with the gate, opportunistically rotate onto a newly
// published snapshot, retain the current snapshot into a local handle, and
// execute against that exact handle no matter what rotations happen
// concurrently. Deregistration and the handle release run on every exit path.
func runQuery[P any](
	ctx context.Context,
	e *Engine,
	operation string,
	params P,
	capability routing.Capability[P],
) (routing.Status, routing.Result, error) {

	ctx, span := e.startDispatchSpan(ctx, operation)

	if !e.shared {
		start := time.Now()
		status, result := capability.HandleRequest(ctx, e.slot.handle, params)
		e.observeQuery(ctx, operation, status, time.Since(start))
		e.finishDispatchSpan(span, status)

		return status, result, nil
	}

	if enterErr := e.gate.enter(ctx); enterErr != nil {
		e.recordGateError(ctx, operation)
		e.finishDispatchSpan(span, routing.StatusError)

		return routing.StatusError, nil, enterErr
	}

	defer func() {
		if leaveErr := e.gate.leave(); leaveErr != nil {
			e.logError(logMsgGateLeaveFailed, leaveErr, logAttrOperation, operation)
		}
	}()

	e.rotateIfNeeded(ctx)

	snapshot := e.gate.retainCurrent(e.slot)
	defer snapshot.Release()

	start := time.Now()
	status, result := capability.HandleRequest(ctx, snapshot, params)
	e.observeQuery(ctx, operation, status, time.Since(start))
	e.finishDispatchSpan(span, status)

	return status, result, nil
}

// rotateIfNeeded performs the opportunistic rotation check of one dispatch.
// Rotation failures never fail the query: the current snapshot stays valid,
// so the failure is logged and the dispatch proceeds against it.
func (e *Engine) rotateIfNeeded(ctx context.Context) {
	outgoing, incoming, rotateErr := e.gate.tryRotate(ctx, e.watchdog, e.slot)
	if rotateErr != nil {
		e.logError(logMsgRotationCheckFailed, rotateErr)
		return
	}

	if outgoing == nil {
		return
	}

	e.logOperation(
		logMsgSnapshotRotated,
		logAttrSnapshotID, incoming.ID().String(),
		logAttrRegion, incoming.Contents().RegionName(),
		logAttrVersion, incoming.Contents().Version(),
	)
	e.recordRotationMetrics(ctx)

	// under deferred release, in-flight holders of the outgoing snapshot are
	// legitimate; the old exactly-one-reference expectation is kept observable
	if holders := outgoing.RefCount(); holders > 1 {
		e.logOperation(
			logMsgOutgoingStillReferenced,
			logAttrSnapshotID, outgoing.ID().String(),
			logAttrHolderCount, holders,
		)
	}

	outgoing.Release()
}
