// Package sim provides the discrete-event simulation engine for a
// three-stage production line (cutting → cell processing → packaging).
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - clock.go: the virtual clock and the heap-ordered event queue
//   - line.go: the production-line topology and its four logical processes
//   - controller.go: lifecycle, pacing, and snapshot publication
//
// # Architecture
//
// The engine is strictly single-threaded cooperative multiplexing. Four
// logical processes (arrival generator, cell loop, pack loop, failure
// generator) are chains of scheduled continuations; exactly one continuation
// executes at a time, driven by Clock.Step. Processes suspend only at
// Resource.Acquire and BoundedBuffer.Put/Get, and suspension is always an
// enqueued continuation, never a blocked goroutine.
//
// The Controller owns one Clock, one RandomStream, one ProductionLine, and
// one MetricsAccumulator. Reconfiguration discards and rebuilds all of them
// atomically; there is no hot parameter update. Distinct controllers share
// no mutable state.
//
// Determinism: with identical configuration and seed, the full sequence of
// snapshots and the final metrics are bit-for-bit identical across runs.
// Equal-timestamp events fire in schedule order.
package sim
