// Package fixtures provides tiny in-memory road networks for tests.
//
// The graphs are small enough to verify routing results by hand while still
// exercising shortest-path selection, snapping, and unreachable pairs.
package fixtures
