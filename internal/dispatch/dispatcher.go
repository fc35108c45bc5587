package dispatch

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type state int32

const (
	stateCreated state = iota
	stateReady
	stateRunning
	stateStopped
)

// Dispatcher is the single consumer of the high- and normal-priority queues.
// Construct it with New, call Init before the first publish, then either Start
// the dispatch goroutine or drive it with Step.
type Dispatcher struct {
	opts options
	log  zerolog.Logger

	// mu serializes lifecycle transitions and Step.
	mu    sync.Mutex
	state atomic.Int32

	high   *queue
	normal *queue

	// parked is true while the dispatch goroutine is blocked waiting for work.
	parked atomic.Bool
	// inflight counts publishers between their state check and their send.
	inflight atomic.Int64
	stop   chan struct{}
	done   chan struct{}

	errFn atomic.Pointer[ErrorFunc]

	published     atomic.Uint64
	dispatched    atomic.Uint64
	notifications atomic.Uint64
	dropped       atomic.Uint64
	notReady      atomic.Uint64
	noObservers   atomic.Uint64
	invalidModel  atomic.Uint64
	panics        atomic.Uint64
	afterStop     atomic.Uint64
}

// New creates a Dispatcher. Queue capacities are fixed here and never change.
func New(opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Dispatcher{
		opts: o,
		log:  o.logger.With().Str("component", "dispatch").Logger(),
	}
	if o.errorFunc != nil {
		d.SetErrorCallback(o.errorFunc)
	}
	return d
}

// Init allocates both queues. Publishing before Init reports QueueNotReady.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if state(d.state.Load()) != stateCreated {
		return ErrAlreadyInitialized
	}
	d.high = newQueue(d.opts.highCapacity, PriorityHigh)
	d.normal = newQueue(d.opts.normalCapacity, PriorityNormal)
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.state.Store(int32(stateReady))
	d.log.Info().
		Int("high_capacity", d.opts.highCapacity).
		Int("normal_capacity", d.opts.normalCapacity).
		Dur("publish_timeout", d.opts.publishTimeout).
		Msg("dispatcher initialized")
	return nil
}

// Start runs the dispatch loop on its own goroutine until Stop is called or
// ctx is done. Either way the loop drains what is queued before exiting.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch state(d.state.Load()) {
	case stateCreated:
		return ErrNotInitialized
	case stateRunning:
		return ErrAlreadyRunning
	case stateStopped:
		return ErrStopped
	}
	d.state.Store(int32(stateRunning))
	go d.run(ctx)
	d.log.Info().Msg("dispatcher started")
	return nil
}

// Stop stops accepting events, drains the queues and waits for the dispatch
// goroutine to finish or ctx to be done. A dispatcher that was initialized
// but never started is drained on the caller's goroutine.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	switch state(d.state.Load()) {
	case stateReady:
		d.state.Store(int32(stateStopped))
		n := d.drainStopped()
		close(d.stop)
		close(d.done)
		d.mu.Unlock()
		d.log.Info().Int("drained", n).Msg("dispatcher stopped")
		return nil
	case stateRunning:
		d.state.Store(int32(stateStopped))
		close(d.stop)
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		return ErrNotRunning
	}

	select {
	case <-d.done:
		d.log.Info().Msg("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the dispatcher has stopped and drained its queues.
// It returns nil before Init.
func (d *Dispatcher) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Step runs one dispatch cycle on the caller's goroutine without blocking:
// every queued high-priority event, then at most one normal-priority event.
// It returns the number of events dispatched. Step is refused while the
// dispatch goroutine is running. It must not be called from an observer.
func (d *Dispatcher) Step() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.canStep(); err != nil {
		return 0, err
	}
	return d.cycle(), nil
}

// Drain runs dispatch cycles on the caller's goroutine until both queues are
// empty and returns the number of events dispatched. Same restrictions as Step.
func (d *Dispatcher) Drain() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.canStep(); err != nil {
		return 0, err
	}
	return d.drain(), nil
}

func (d *Dispatcher) canStep() error {
	switch state(d.state.Load()) {
	case stateCreated:
		return ErrNotInitialized
	case stateRunning:
		return ErrAlreadyRunning
	case stateStopped:
		return ErrStopped
	}
	return nil
}

// IsRunning reports whether the dispatch goroutine is running.
func (d *Dispatcher) IsRunning() bool {
	return state(d.state.Load()) == stateRunning
}

// Ready reports whether publishes are currently accepted.
func (d *Dispatcher) Ready() bool {
	s := state(d.state.Load())
	return s == stateReady || s == stateRunning
}

// SetErrorCallback registers the error callback, replacing any previous one.
// A nil fn removes it.
func (d *Dispatcher) SetErrorCallback(fn ErrorFunc) {
	if fn == nil {
		d.errFn.Store(nil)
		return
	}
	d.errFn.Store(&fn)
}

// Stats returns the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Published:      d.published.Load(),
		Dispatched:     d.dispatched.Load(),
		Notifications:  d.notifications.Load(),
		Dropped:        d.dropped.Load(),
		NotReady:       d.notReady.Load(),
		NoObservers:    d.noObservers.Load(),
		InvalidModel:   d.invalidModel.Load(),
		ObserverPanics: d.panics.Load(),
		AfterStop:      d.afterStop.Load(),
		HighCapacity:   d.opts.highCapacity,
		NormalCapacity: d.opts.normalCapacity,
	}
	if state(d.state.Load()) != stateCreated {
		s.HighDepth = d.high.depth()
		s.NormalDepth = d.normal.depth()
		s.MaxHighDepth = int(d.high.maxDepth.Load())
		s.MaxNormalDepth = int(d.normal.maxDepth.Load())
	}
	return s
}

// PublishTimeout returns the bounded wait used by Publish.
func (d *Dispatcher) PublishTimeout() time.Duration {
	return d.opts.publishTimeout
}

// queueFor returns the queue for p, or nil and the code to report when
// publishes are not accepted. Callers hold an inflight reference.
func (d *Dispatcher) queueFor(p Priority) (*queue, ErrorCode) {
	switch state(d.state.Load()) {
	case stateCreated:
		return nil, QueueNotReady
	case stateStopped:
		return nil, DispatcherStopped
	}
	if p == PriorityHigh {
		return d.high, 0
	}
	return d.normal, 0
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	defer d.parked.Store(false)

	for {
		select {
		case <-d.stop:
			d.finish("stop")
			return
		case <-ctx.Done():
			d.finish("context done")
			return
		default:
		}

		if d.cycle() > 0 {
			continue
		}

		// Both queues were empty: park until either has work.
		d.parked.Store(true)
		select {
		case e := <-d.high.ch:
			d.parked.Store(false)
			d.dispatch(e, PriorityHigh)
		case e := <-d.normal.ch:
			d.parked.Store(false)
			// A high-priority event may have arrived while we were waking.
			d.drainHigh()
			d.dispatch(e, PriorityNormal)
		case <-d.stop:
			d.parked.Store(false)
			d.finish("stop")
			return
		case <-ctx.Done():
			d.parked.Store(false)
			d.finish("context done")
			return
		}
	}
}

// finish marks the dispatcher stopped and drains whatever is still queued.
func (d *Dispatcher) finish(reason string) {
	d.state.CompareAndSwap(int32(stateRunning), int32(stateStopped))
	n := d.drainStopped()
	d.log.Debug().Str("reason", reason).Int("drained", n).Msg("dispatch loop exiting")
}

// cycle dispatches every queued high-priority event and then at most one
// normal-priority event.
func (d *Dispatcher) cycle() int {
	n := d.drainHigh()
	if e, ok := d.normal.tryPop(); ok {
		d.dispatch(e, PriorityNormal)
		n++
	}
	return n
}

func (d *Dispatcher) drainHigh() int {
	n := 0
	for {
		e, ok := d.high.tryPop()
		if !ok {
			return n
		}
		d.dispatch(e, PriorityHigh)
		n++
	}
}

func (d *Dispatcher) drain() int {
	total := 0
	for {
		n := d.cycle()
		if n == 0 {
			return total
		}
		total += n
	}
}

// drainStopped drains a stopped dispatcher until no publisher that saw it
// running is left. Such a publisher may be waiting for room, so the queues
// keep draining while it finishes. Once inflight reads zero after the state
// changed, every later publisher sees the stopped state and enqueues nothing.
func (d *Dispatcher) drainStopped() int {
	n := 0
	for {
		n += d.drain()
		if d.inflight.Load() == 0 {
			return n + d.drain()
		}
		runtime.Gosched()
	}
}

func (d *Dispatcher) dispatch(e envelope, p Priority) {
	if e.target == nil {
		d.report(Error{Code: InvalidModel, Priority: p})
		return
	}
	n, ok := e.target.deliver(e.slot)
	if !ok {
		d.report(Error{Code: InvalidModel, Payload: e.target.typeName(), Priority: p})
		return
	}
	d.dispatched.Add(1)
	d.notifications.Add(uint64(n))
	if n == 0 {
		d.report(Error{Code: NoObservers, Payload: e.target.typeName(), Priority: p})
	}
}

// report counts e and hands it to the error callback.
func (d *Dispatcher) report(e Error) {
	switch e.Code {
	case QueueFull:
		d.dropped.Add(1)
	case QueueNotReady:
		d.notReady.Add(1)
	case InvalidModel:
		d.invalidModel.Add(1)
	case NoObservers:
		d.noObservers.Add(1)
	case ObserverPanic:
		d.panics.Add(1)
	case DispatcherStopped:
		d.afterStop.Add(1)
	}
	if e.Code.Fatal() || e.Code == ObserverPanic {
		d.log.Error().Str("code", e.Code.String()).Str("payload", e.Payload).
			Str("priority", e.Priority.String()).Interface("panic", e.Panic).Msg("dispatch error")
	}
	fn := d.errFn.Load()
	if fn == nil {
		return
	}
	func() {
		defer func() { _ = recover() }()
		(*fn)(e)
	}()
}
