package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// target is implemented by every Observable[T]. It lets a single queue carry
// events of any payload type without boxing the payload itself.
type target interface {
	// deliver notifies the observers of the value in slot and releases it.
	// It returns the number of observers invoked and false if the slot was
	// not a valid in-flight slot.
	deliver(slot uint32) (int, bool)
	typeName() string
}

// envelope is the queue item: which Observable and which of its slots.
type envelope struct {
	target target
	slot   uint32
}

// queue is a fixed-capacity FIFO. The buffered channel provides mutual
// exclusion between producers and the single consumer.
type queue struct {
	ch       chan envelope
	priority Priority
	maxDepth atomic.Int64
}

func newQueue(capacity int, p Priority) *queue {
	return &queue{
		ch:       make(chan envelope, capacity),
		priority: p,
	}
}

// tryPush enqueues without waiting.
func (q *queue) tryPush(e envelope) bool {
	select {
	case q.ch <- e:
		q.observeDepth()
		return true
	default:
		return false
	}
}

// push enqueues, waiting up to timeout or until ctx is done for room.
func (q *queue) push(ctx context.Context, e envelope, timeout time.Duration) bool {
	if q.tryPush(e) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case q.ch <- e:
		q.observeDepth()
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}

// tryPop dequeues without waiting.
func (q *queue) tryPop() (envelope, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return envelope{}, false
	}
}

func (q *queue) observeDepth() {
	d := int64(len(q.ch))
	for {
		cur := q.maxDepth.Load()
		if d <= cur || q.maxDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

func (q *queue) depth() int    { return len(q.ch) }
func (q *queue) capacity() int { return cap(q.ch) }
