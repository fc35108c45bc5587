package dispatch

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when the corresponding Option is not given.
const (
	DefaultHighCapacity   = 4
	DefaultNormalCapacity = 8
	DefaultPublishTimeout = 2 * time.Millisecond
	DefaultMaxPayloadSize = 64
)

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	highCapacity   int
	normalCapacity int
	publishTimeout time.Duration
	maxPayloadSize uintptr
	logger         zerolog.Logger
	errorFunc      ErrorFunc
}

func defaultOptions() options {
	return options{
		highCapacity:   DefaultHighCapacity,
		normalCapacity: DefaultNormalCapacity,
		publishTimeout: DefaultPublishTimeout,
		maxPayloadSize: DefaultMaxPayloadSize,
		logger:         zerolog.Nop(),
	}
}

// WithHighCapacity sets the high-priority queue capacity.
func WithHighCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.highCapacity = n
		}
	}
}

// WithNormalCapacity sets the normal-priority queue capacity.
func WithNormalCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.normalCapacity = n
		}
	}
}

// WithPublishTimeout bounds how long Publish and PublishHighPriority wait for
// room in a full queue. Zero makes them fail immediately.
func WithPublishTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.publishTimeout = d
		}
	}
}

// WithMaxPayloadSize sets the largest payload, in bytes, an Observable accepts.
func WithMaxPayloadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPayloadSize = uintptr(n)
		}
	}
}

// WithLogger installs a structured logger for lifecycle and error events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithErrorCallback registers the error callback at construction time.
func WithErrorCallback(fn ErrorFunc) Option {
	return func(o *options) {
		o.errorFunc = fn
	}
}
