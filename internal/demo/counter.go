package demo

import (
	"sync/atomic"

	"evcore/internal/dispatch"
	"evcore/pkg/types"
)

// Counter counts timer ticks and publishes a CounterModel on every change.
// When the count reaches the limit it wraps to zero and OverflowCount goes up.
// A button press resets the count.
//
// Counter callbacks run on the dispatcher goroutine, so it publishes with
// the never-blocking path: waiting on a full queue from there would wait on
// itself.
type Counter struct {
	out      *dispatch.Observable[types.CounterModel]
	limit    uint32
	count    atomic.Uint32
	overflow atomic.Uint32
	reset    *dispatch.FuncObserver[types.ButtonEvent]
}

// NewCounter returns a Counter publishing to out. A zero limit never wraps.
func NewCounter(out *dispatch.Observable[types.CounterModel], limit uint32) *Counter {
	c := &Counter{out: out, limit: limit}
	c.reset = dispatch.NewObserver(func(ev *types.ButtonEvent) {
		if ev.Pressed {
			c.count.Store(0)
			c.publish()
		}
	})
	return c
}

// OnEvent implements dispatch.Observer for timer ticks.
func (c *Counter) OnEvent(*types.TimerTick) {
	n := c.count.Add(1)
	if c.limit != 0 && n >= c.limit {
		c.count.Store(0)
		c.overflow.Add(1)
	}
	c.publish()
}

// ResetObserver returns the observer that resets the count on button press.
func (c *Counter) ResetObserver() *dispatch.FuncObserver[types.ButtonEvent] {
	return c.reset
}

// Snapshot returns the current model.
func (c *Counter) Snapshot() types.CounterModel {
	return types.CounterModel{Count: c.count.Load(), OverflowCount: c.overflow.Load()}
}

func (c *Counter) publish() {
	if c.out != nil {
		c.out.PublishFromISR(c.Snapshot())
	}
}
