package types

// CounterModel is published by the counter service whenever its count changes.
type CounterModel struct {
	// Current count, reset to zero on overflow.
	Count uint32
	// Number of times Count wrapped past its limit.
	OverflowCount uint32
}

// TimerTick is published on every tick of a periodic timer.
type TimerTick struct {
	// Monotonic tick sequence starting at 1.
	Seq uint64
	// Time since the timer started, in nanoseconds.
	ElapsedNanos int64
}

// SensorReading is one sample from an analog input channel.
type SensorReading struct {
	Channel uint8
	// Sample value in millivolts.
	Millivolts int32
	// Sample time, unix nanoseconds.
	TimestampNanos int64
}

// ButtonEvent is a debounced edge on a digital input.
type ButtonEvent struct {
	Pin     uint8
	Pressed bool
	// Edge time, unix nanoseconds.
	TimestampNanos int64
}
