// Package testdoubles provides test doubles (spies and stubs) for the
// routing interfaces:
//   - LoggerSpy: captures logging calls for verification
//   - MetricsCollectorSpy: captures metrics recording calls
//   - WatchdogStub: a programmable SnapshotWatchdog
//   - BarrierSpy: a working in-process GateBarrier that records every call
//   - BlockingContents: dataset contents whose queries block on demand
//
// These doubles enable testing of admission, rotation, and observability
// behavior without a database or telemetry backend.
package testdoubles
