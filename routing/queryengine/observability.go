package queryengine

import (
	"context"
	"math"
	"time"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

const (
	spanDispatch      = "routing.dispatch"
	spanAttrOperation = "operation"
	spanAttrStatus    = "status"

	statusError = "error"
)

// logOperation logs operational information at info level if the logger is configured.
func (e *Engine) logOperation(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

// logError logs error information at the error level if the logger is configured.
func (e *Engine) logError(message string, err error, args ...any) {
	if e.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		e.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (e *Engine) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// observeQuery records the completion of one dispatch across all configured
// observability sinks: contextual or plain logging, duration histogram, and
// per-operation counter.
func (e *Engine) observeQuery(ctx context.Context, operation string, status routing.Status, duration time.Duration) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgQueryCompleted,
			logAttrOperation, operation,
			logAttrStatus, status.String(),
			logAttrDurationMS, e.toMilliseconds(duration))
	} else if e.logger != nil {
		e.logger.Info(logMsgQueryCompleted,
			logAttrOperation, operation,
			logAttrStatus, status.String(),
			logAttrDurationMS, e.toMilliseconds(duration))
	}

	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrStatus:    status.String(),
	}

	if contextualCollector, ok := e.metricsCollector.(routing.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricQueryDuration, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, metricQueriesTotal, labels)
	} else {
		e.metricsCollector.RecordDuration(metricQueryDuration, duration, labels)
		e.metricsCollector.IncrementCounter(metricQueriesTotal, labels)
	}
}

// recordRotationMetrics counts one completed snapshot rotation.
func (e *Engine) recordRotationMetrics(ctx context.Context) {
	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(routing.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricRotationsTotal, nil)
	} else {
		e.metricsCollector.IncrementCounter(metricRotationsTotal, nil)
	}
}

// recordGateError counts one failed gate interaction.
func (e *Engine) recordGateError(ctx context.Context, operation string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrStatus:    statusError,
	}

	if contextualCollector, ok := e.metricsCollector.(routing.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricGateErrors, labels)
	} else {
		e.metricsCollector.IncrementCounter(metricGateErrors, labels)
	}
}

// startDispatchSpan starts a tracing span for one dispatch if the tracing collector is configured.
func (e *Engine) startDispatchSpan(ctx context.Context, operation string) (context.Context, routing.SpanContext) {
	if e.tracingCollector != nil {
		return e.tracingCollector.StartSpan(ctx, spanDispatch, map[string]string{
			spanAttrOperation: operation,
		})
	}

	return ctx, nil
}

// finishDispatchSpan finishes a dispatch span if the tracing collector is configured.
func (e *Engine) finishDispatchSpan(spanCtx routing.SpanContext, status routing.Status) {
	if e.tracingCollector != nil && spanCtx != nil {
		e.tracingCollector.FinishSpan(spanCtx, status.String(), map[string]string{
			spanAttrStatus: status.String(),
		})
	}
}
