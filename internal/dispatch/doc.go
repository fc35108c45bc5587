// Package dispatch is the event dispatch core: a bounded, allocation-free
// publish/subscribe mechanism with one consumer and two priority classes.
// It is structured into small files by concern:
//
//   - dispatcher.go: Dispatcher lifecycle (New, Init, Start, Stop) and the
//     dispatch loop.
//   - observable.go: Observable[T], the per-payload-type facade owning the
//     observer table and publish entry points.
//   - isr.go: the never-blocking publish path and the work-requested signal.
//   - queue.go: fixed-capacity FIFO queues and the envelope type.
//   - slab.go: per-type payload storage and payload shape validation.
//   - errors.go: error codes reported to the error sink, lifecycle sentinels.
//   - options.go: Option functions and package defaults.
//   - types.go: Observer, Priority, Stats.
//
// Ordering:
//
//   - Strict FIFO within each priority class.
//   - The high-priority queue is drained completely before each normal item.
//   - No ordering is promised across Observables beyond the shared loop.
//
// Storage is fixed once Init and NewObservable return: both queues and every
// payload slab are sized up front, so steady-state publishing does not touch
// the heap. A published value is copied once into its slab slot; observers get
// a pointer into that slot which is valid only while OnEvent runs.
//
// Publish and PublishHighPriority wait at most the configured publish timeout
// (default 2ms) for room in a full queue. The FromISR variants never wait.
// Failures are never returned to the caller; they are reported through the
// single error callback and counted in Stats.
package dispatch
