package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Observable is the subscribe/publish facade for one payload type. It owns a
// fixed table of MaxObservers observers and the slab its published values are
// copied into. Create one per payload type at init and keep it for the life of
// the Dispatcher.
type Observable[T any] struct {
	d    *Dispatcher
	name string
	slab *slab[T]

	mu        sync.RWMutex
	observers [MaxObservers]Observer[T]
	count     int
}

// NewObservable validates T and allocates its payload storage on d. T must be
// a flat value type (no pointers, slices, maps, strings, channels, functions or
// interfaces) no larger than the dispatcher's max payload size; otherwise an
// InvalidModel condition is reported and an error wrapping ErrInvalidModel is
// returned.
func NewObservable[T any](d *Dispatcher) (*Observable[T], error) {
	if d == nil {
		return nil, ErrNilDispatcher
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := validatePayload(t, d.opts.maxPayloadSize); err != nil {
		d.report(Error{Code: InvalidModel, Payload: t.String()})
		return nil, err
	}
	return &Observable[T]{
		d:    d,
		name: t.String(),
		slab: newSlab[T](slabSize(d.opts.highCapacity, d.opts.normalCapacity)),
	}, nil
}

// MustObservable is NewObservable for init code; it panics on error.
func MustObservable[T any](d *Dispatcher) *Observable[T] {
	o, err := NewObservable[T](d)
	if err != nil {
		panic(err)
	}
	return o
}

// Name returns the payload type name.
func (o *Observable[T]) Name() string { return o.name }

// Dispatcher returns the dispatcher this Observable publishes to.
func (o *Observable[T]) Dispatcher() *Dispatcher { return o.d }

// Subscribe registers obs. It returns false if the table already holds
// MaxObservers entries, or if obs is nil or not comparable. A false return is
// a configuration defect, not a condition to retry.
//
// Observers are matched with ==, so use pointer observers such as the ones
// NewObserver returns. A struct observer whose interface fields hold slices,
// maps or funcs is rejected.
func (o *Observable[T]) Subscribe(obs Observer[T]) bool {
	if !comparableObserver(obs) {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.count >= MaxObservers {
		return false
	}
	o.observers[o.count] = obs
	o.count++
	return true
}

// MustSubscribe is Subscribe for init code; it panics when the table is full.
func (o *Observable[T]) MustSubscribe(obs Observer[T]) {
	if !o.Subscribe(obs) {
		panic(fmt.Sprintf("dispatch: cannot subscribe to %s: observer table full (%d) or observer invalid", o.name, MaxObservers))
	}
}

// Unsubscribe removes the first entry equal to obs, keeping the order of the
// remaining entries. It returns false if obs was not subscribed.
func (o *Observable[T]) Unsubscribe(obs Observer[T]) bool {
	if !comparableObserver(obs) {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := 0; i < o.count; i++ {
		if !sameObserver(o.observers[i], obs) {
			continue
		}
		copy(o.observers[i:o.count], o.observers[i+1:o.count])
		o.count--
		o.observers[o.count] = nil
		return true
	}
	return false
}

// Len returns the number of subscribed observers.
func (o *Observable[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.count
}

// Observers returns the subscribed observers in notification order.
func (o *Observable[T]) Observers() []Observer[T] {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Observer[T], o.count)
	copy(out, o.observers[:o.count])
	return out
}

// Publish copies v into the normal-priority queue. If the queue is full it
// waits up to the dispatcher's publish timeout, or until ctx is done, then
// drops the event and reports QueueFull. Call from goroutines only, never from
// an observer callback of the same dispatcher with a non-zero timeout.
func (o *Observable[T]) Publish(ctx context.Context, v T) {
	o.publish(ctx, &v, PriorityNormal, true)
}

// PublishHighPriority is Publish targeting the high-priority queue.
func (o *Observable[T]) PublishHighPriority(ctx context.Context, v T) {
	o.publish(ctx, &v, PriorityHigh, true)
}

func (o *Observable[T]) publish(ctx context.Context, v *T, p Priority, wait bool) bool {
	d := o.d
	d.inflight.Add(1)
	defer d.inflight.Add(-1)
	q, code := d.queueFor(p)
	if q == nil {
		d.report(Error{Code: code, Payload: o.name, Priority: p})
		return false
	}
	slot, ok := o.slab.acquire()
	if !ok {
		d.report(Error{Code: QueueFull, Payload: o.name, Priority: p})
		return false
	}
	o.slab.slots[slot] = *v

	e := envelope{target: o, slot: slot}
	var sent bool
	if wait {
		if ctx == nil {
			ctx = context.Background()
		}
		sent = q.push(ctx, e, d.opts.publishTimeout)
	} else {
		sent = q.tryPush(e)
	}
	if !sent {
		o.slab.release(slot)
		d.report(Error{Code: QueueFull, Payload: o.name, Priority: p})
		return false
	}
	d.published.Add(1)
	return true
}

// deliver implements target. It runs on the dispatcher's consumer only.
func (o *Observable[T]) deliver(slot uint32) (int, bool) {
	if int(slot) >= len(o.slab.slots) {
		return 0, false
	}
	n := o.notify(&o.slab.slots[slot])
	return n, o.slab.release(slot)
}

// notify invokes every currently subscribed observer with v. The table is
// copied first so observers may subscribe or unsubscribe from the callback.
func (o *Observable[T]) notify(v *T) int {
	o.mu.RLock()
	observers := o.observers
	n := o.count
	o.mu.RUnlock()

	for i := 0; i < n; i++ {
		o.call(observers[i], v)
	}
	return n
}

func (o *Observable[T]) call(obs Observer[T], v *T) {
	defer func() {
		if r := recover(); r != nil {
			o.d.report(Error{Code: ObserverPanic, Payload: o.name, Panic: r})
		}
	}()
	obs.OnEvent(v)
}

func (o *Observable[T]) typeName() string { return o.name }

// sameObserver reports a == b. An == on a value whose interface fields hold
// an uncomparable type panics at run time; such values are never equal.
func sameObserver[T any](a, b Observer[T]) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// comparableObserver reports whether obs can be matched by Unsubscribe.
func comparableObserver[T any](obs Observer[T]) bool {
	return obs != nil && reflect.TypeOf(obs).Comparable() && sameObserver(obs, obs)
}
