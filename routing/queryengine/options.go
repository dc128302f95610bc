package queryengine

import (
	"errors"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// ErrNilGateBarrier is returned when a nil barrier is supplied to WithGateBarrier.
var ErrNilGateBarrier = errors.New("nil gate barrier supplied")

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

// WithGateBarrier sets the synchronization primitive behind the admission
// gate. Use registry.AdvisoryBarrier for deployments where the publisher runs
// in a separate process; the default MemoryBarrier covers single-process
// deployments. Only consulted in shared mode.
func WithGateBarrier(barrier routing.GateBarrier) Option {
	return func(e *Engine) error {
		if barrier == nil {
			return ErrNilGateBarrier
		}

		e.barrier = barrier

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: per-dispatch gate interactions (development use)
// Info level: snapshot rotations, query completions (production-safe)
// Warn level: non-critical issues like deferred snapshot teardown
// Error level: failed rotation checks and gate failures.
func WithLogger(logger routing.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// The collector will receive per-operation query durations and counts,
// rotation counts, and gate error counts.
func WithMetrics(collector routing.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
// The collector will receive one span per dispatch including operation name,
// status, and error tracking.
func WithTracing(collector routing.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
// The contextual logger will receive log messages with context information
// including automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger routing.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMaxLocationsRoute limits the number of coordinates a route query may carry.
func WithMaxLocationsRoute(maxLocations int) Option {
	return func(e *Engine) error {
		e.limits.maxLocationsRoute = maxLocations
		return nil
	}
}

// WithMaxLocationsTable limits the number of coordinates a table query may carry.
func WithMaxLocationsTable(maxLocations int) Option {
	return func(e *Engine) error {
		e.limits.maxLocationsTable = maxLocations
		return nil
	}
}

// WithMaxResultsNearest limits the number of results a nearest query may request.
func WithMaxResultsNearest(maxResults int) Option {
	return func(e *Engine) error {
		e.limits.maxResultsNearest = maxResults
		return nil
	}
}

// WithMaxLocationsTrip limits the number of coordinates a trip query may carry.
func WithMaxLocationsTrip(maxLocations int) Option {
	return func(e *Engine) error {
		e.limits.maxLocationsTrip = maxLocations
		return nil
	}
}

// WithMaxTracePointsMatch limits the number of trace points a match query may carry.
func WithMaxTracePointsMatch(maxTracePoints int) Option {
	return func(e *Engine) error {
		e.limits.maxTracePointsMatch = maxTracePoints
		return nil
	}
}
