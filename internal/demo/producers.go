package demo

import (
	"context"
	"time"

	"evcore/internal/dispatch"
	"evcore/pkg/types"
)

// Ticker publishes a TimerTick every interval from a task context.
type Ticker struct {
	out      *dispatch.Observable[types.TimerTick]
	interval time.Duration
	seq      uint64
}

func NewTicker(out *dispatch.Observable[types.TimerTick], interval time.Duration) *Ticker {
	return &Ticker{out: out, interval: interval}
}

// Run publishes until ctx is done. It always returns nil.
func (t *Ticker) Run(ctx context.Context) error {
	start := time.Now()
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tk.C:
			t.seq++
			t.out.Publish(ctx, types.TimerTick{Seq: t.seq, ElapsedNanos: now.Sub(start).Nanoseconds()})
		}
	}
}

// ButtonSimulator toggles a button every interval through the never-blocking
// high-priority path, the way an edge interrupt would, and yields when the
// dispatcher was parked.
type ButtonSimulator struct {
	out      *dispatch.Observable[types.ButtonEvent]
	pin      uint8
	interval time.Duration
	pressed  bool
	now      func() time.Time
}

func NewButtonSimulator(out *dispatch.Observable[types.ButtonEvent], pin uint8, interval time.Duration) *ButtonSimulator {
	return &ButtonSimulator{out: out, pin: pin, interval: interval, now: time.Now}
}

// Edge publishes one edge and reports whether the dispatcher was woken.
func (b *ButtonSimulator) Edge() bool {
	b.pressed = !b.pressed
	ev := types.ButtonEvent{Pin: b.pin, Pressed: b.pressed, TimestampNanos: b.now().UnixNano()}
	if b.out.PublishHighPriorityFromISR(ev) {
		b.out.Dispatcher().Yield()
		return true
	}
	return false
}

// Run emits edges until ctx is done. It always returns nil.
func (b *ButtonSimulator) Run(ctx context.Context) error {
	for sleepCtx(ctx, b.interval) {
		b.Edge()
	}
	return nil
}

// SensorSampler reads a channel every interval. Readings at or above the
// threshold go to the high-priority queue.
type SensorSampler struct {
	out       *dispatch.Observable[types.SensorReading]
	channel   uint8
	interval  time.Duration
	threshold int32
	source    func() int32
	now       func() time.Time
}

func NewSensorSampler(out *dispatch.Observable[types.SensorReading], channel uint8, interval time.Duration, thresholdMV int32, source func() int32) *SensorSampler {
	return &SensorSampler{out: out, channel: channel, interval: interval, threshold: thresholdMV, source: source, now: time.Now}
}

// Sample takes one reading and publishes it. It reports whether the reading
// crossed the threshold.
func (s *SensorSampler) Sample(ctx context.Context) bool {
	r := types.SensorReading{Channel: s.channel, Millivolts: s.source(), TimestampNanos: s.now().UnixNano()}
	if r.Millivolts >= s.threshold {
		s.out.PublishHighPriority(ctx, r)
		return true
	}
	s.out.Publish(ctx, r)
	return false
}

// Run samples until ctx is done. It always returns nil.
func (s *SensorSampler) Run(ctx context.Context) error {
	for sleepCtx(ctx, s.interval) {
		s.Sample(ctx)
	}
	return nil
}

// Triangle returns a source sweeping from lo to hi and back in steps.
func Triangle(lo, hi int32, steps int) func() int32 {
	if steps < 1 {
		steps = 1
	}
	span := hi - lo
	i, dir := 0, 1
	return func() int32 {
		v := lo + span*int32(i)/int32(steps)
		i += dir
		if i >= steps || i <= 0 {
			dir = -dir
		}
		return v
	}
}
