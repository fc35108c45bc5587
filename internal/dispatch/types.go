package dispatch

// MaxObservers is the capacity of every Observable's observer table.
const MaxObservers = 4

// Priority selects the queue an event is published to.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Observer receives events of one payload type.
//
// The pointer refers to storage owned by the dispatcher and is valid only
// until OnEvent returns. Observers that need the value later must copy *v.
// OnEvent runs on the dispatcher goroutine and should return quickly.
type Observer[T any] interface {
	OnEvent(v *T)
}

// FuncObserver adapts a function to Observer. Create it with NewObserver and
// keep the returned pointer: it is the handle Unsubscribe matches against.
type FuncObserver[T any] struct {
	fn func(v *T)
}

// NewObserver wraps fn as an Observer.
func NewObserver[T any](fn func(v *T)) *FuncObserver[T] {
	return &FuncObserver[T]{fn: fn}
}

// OnEvent implements Observer.
func (o *FuncObserver[T]) OnEvent(v *T) {
	if o.fn != nil {
		o.fn(v)
	}
}

// Stats contains dispatcher counters. Values are read without a common lock
// and may be slightly inconsistent with each other under load.
type Stats struct {
	// Published is the number of events accepted into a queue.
	Published uint64

	// Dispatched is the number of events taken off a queue and delivered.
	Dispatched uint64

	// Notifications is the number of observer callbacks invoked.
	Notifications uint64

	// Dropped is the number of events rejected with QueueFull.
	Dropped uint64

	// NotReady is the number of publishes rejected with QueueNotReady.
	NotReady uint64

	// NoObservers is the number of events consumed with nobody subscribed.
	NoObservers uint64

	// InvalidModel is the number of failed integrity checks.
	InvalidModel uint64

	// ObserverPanics is the number of recovered observer panics.
	ObserverPanics uint64

	// AfterStop is the number of publishes rejected because the dispatcher
	// had stopped.
	AfterStop uint64

	HighDepth      int
	NormalDepth    int
	MaxHighDepth   int
	MaxNormalDepth int
	HighCapacity   int
	NormalCapacity int
}
