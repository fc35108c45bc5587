package dispatch

import (
	"errors"
	"fmt"
)

// Lifecycle errors returned by Dispatcher methods.
var (
	// ErrAlreadyInitialized is returned when Init is called more than once.
	ErrAlreadyInitialized = errors.New("dispatcher is already initialized")

	// ErrNotInitialized is returned when Start or Step precede Init.
	ErrNotInitialized = errors.New("dispatcher is not initialized")

	// ErrAlreadyRunning is returned when Start is called on a running dispatcher,
	// or Step is called while the dispatch goroutine owns the queues.
	ErrAlreadyRunning = errors.New("dispatcher is already running")

	// ErrNotRunning is returned when Stop is called on a dispatcher that has
	// not been initialized or has already stopped.
	ErrNotRunning = errors.New("dispatcher is not running")

	// ErrStopped is returned when Start or Step are called after Stop.
	ErrStopped = errors.New("dispatcher has been stopped")

	// ErrNilDispatcher is returned when an Observable is created without a dispatcher.
	ErrNilDispatcher = errors.New("nil dispatcher")
)

// Sentinels matched by errors.Is against an Error of the same code.
var (
	ErrQueueFull     = errors.New("event queue is full")
	ErrQueueNotReady = errors.New("event queue is not ready")
	ErrInvalidModel  = errors.New("invalid event model")
	ErrNoObservers   = errors.New("no observers subscribed")
	ErrObserverPanic = errors.New("observer panicked")
)

// ErrorCode classifies a condition reported to the error callback.
type ErrorCode int

const (
	// QueueFull: the target queue had no room; the event was dropped.
	QueueFull ErrorCode = iota + 1

	// QueueNotReady: publish before Init. Startup ordering defect.
	QueueNotReady

	// InvalidModel: an integrity check failed. Never expected in a correct build.
	InvalidModel

	// NoObservers: an event was consumed with nobody subscribed. Informational.
	NoObservers

	// ObserverPanic: an observer panicked; the remaining observers still ran.
	ObserverPanic

	// DispatcherStopped: publish after Stop, typically from an observer
	// running in the final drain. The event was dropped.
	DispatcherStopped
)

// String returns the snake_case name used in logs and metric labels.
func (c ErrorCode) String() string {
	switch c {
	case QueueFull:
		return "queue_full"
	case QueueNotReady:
		return "queue_not_ready"
	case InvalidModel:
		return "invalid_model"
	case NoObservers:
		return "no_observers"
	case ObserverPanic:
		return "observer_panic"
	case DispatcherStopped:
		return "dispatcher_stopped"
	default:
		return "unknown"
	}
}

// Fatal reports whether the code indicates a defect the host should stop on.
func (c ErrorCode) Fatal() bool {
	return c == QueueNotReady || c == InvalidModel
}

// Informational reports whether the code is expected during normal operation.
func (c ErrorCode) Informational() bool {
	return c == NoObservers || c == DispatcherStopped
}

func (c ErrorCode) sentinel() error {
	switch c {
	case QueueFull:
		return ErrQueueFull
	case QueueNotReady:
		return ErrQueueNotReady
	case InvalidModel:
		return ErrInvalidModel
	case NoObservers:
		return ErrNoObservers
	case ObserverPanic:
		return ErrObserverPanic
	case DispatcherStopped:
		return ErrStopped
	default:
		return nil
	}
}

// Codes lists every ErrorCode in declaration order.
func Codes() []ErrorCode {
	return []ErrorCode{QueueFull, QueueNotReady, InvalidModel, NoObservers, ObserverPanic, DispatcherStopped}
}

// Error describes one condition delivered to the error callback.
type Error struct {
	Code ErrorCode

	// Payload is the Go type name of the event payload, if known.
	Payload string

	Priority Priority

	// Panic holds the recovered value for ObserverPanic.
	Panic any
}

// Error implements the error interface.
func (e Error) Error() string {
	msg := e.Code.String()
	if e.Payload != "" {
		msg += " (" + e.Payload + ", " + e.Priority.String() + ")"
	}
	if e.Panic != nil {
		msg += ": " + fmt.Sprint(e.Panic)
	}
	return msg
}

// Is matches the sentinel for the error's code.
func (e Error) Is(target error) bool {
	s := e.Code.sentinel()
	return s != nil && target == s
}

// ErrorFunc receives every reported condition. It may run on a publisher's
// goroutine, including the never-blocking path, so it must not block.
type ErrorFunc func(e Error)
