package demo

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LogObserver writes every event it sees at debug level.
type LogObserver[T any] struct {
	log  zerolog.Logger
	seen atomic.Uint64
}

func NewLogObserver[T any](l zerolog.Logger, topic string) *LogObserver[T] {
	return &LogObserver[T]{log: l.With().Str("topic", topic).Logger()}
}

func (o *LogObserver[T]) OnEvent(v *T) {
	n := o.seen.Add(1)
	o.log.Debug().Uint64("n", n).Interface("event", *v).Msg("event")
}

// Seen returns the number of events observed.
func (o *LogObserver[T]) Seen() uint64 { return o.seen.Load() }
