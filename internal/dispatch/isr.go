package dispatch

import (
	"context"
	"runtime"
)

// PublishFromISR copies v into the normal-priority queue without ever waiting
// or allocating. It is the entry point for contexts that must not block:
// signal handlers, cgo callbacks, tight producer loops.
//
// workRequested is true when the event was queued and the dispatcher was
// parked waiting for work just before the enqueue. The caller should then
// call Dispatcher.Yield once so the consumer gets scheduled promptly. On
// failure the event is dropped and reported exactly as for Publish.
//
// Go has no interrupt context, so this differs from Publish only in never
// waiting for queue room; both are safe from any goroutine.
func (o *Observable[T]) PublishFromISR(v T) (workRequested bool) {
	parked := o.d.parked.Load()
	if !o.publish(context.Background(), &v, PriorityNormal, false) {
		return false
	}
	return parked
}

// PublishHighPriorityFromISR is PublishFromISR targeting the high-priority queue.
func (o *Observable[T]) PublishHighPriorityFromISR(v T) (workRequested bool) {
	parked := o.d.parked.Load()
	if !o.publish(context.Background(), &v, PriorityHigh, false) {
		return false
	}
	return parked
}

// Yield gives the dispatcher goroutine a chance to run. Call it once after a
// FromISR publish returned workRequested.
func (d *Dispatcher) Yield() {
	runtime.Gosched()
}
