// Package selftest runs the dispatcher acceptance scenarios against fresh
// dispatchers so an installed binary can verify itself.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"evcore/internal/dispatch"
	"evcore/pkg/types"
)

// Scenario is one named check.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, log zerolog.Logger) error
}

// Result is the outcome of one Scenario.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Report collects results in run order.
type Report struct {
	Results []Result
}

// Failed returns the number of failed scenarios.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Err joins every scenario failure, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Scenarios returns the built-in scenarios.
func Scenarios() []Scenario {
	return []Scenario{
		{"two_observers_one_cycle", twoObserversOneCycle},
		{"subscribe_capacity", subscribeCapacity},
		{"high_before_normal", highBeforeNormal},
		{"normal_overflow", normalOverflow},
		{"isr_never_blocks", isrNeverBlocks},
		{"stop_drains", stopDrains},
	}
}

// Run executes scenarios in order, logging each result. Scenarios still run
// after a failure; ctx cancellation stops the run.
func Run(ctx context.Context, log zerolog.Logger, scenarios []Scenario) Report {
	var rep Report
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			rep.Results = append(rep.Results, Result{Name: sc.Name, Err: ctx.Err()})
			continue
		}
		start := time.Now()
		err := sc.Run(ctx, log.With().Str("scenario", sc.Name).Logger())
		res := Result{Name: sc.Name, Err: err, Duration: time.Since(start)}
		rep.Results = append(rep.Results, res)
		if err != nil {
			log.Error().Str("scenario", sc.Name).Err(err).Dur("dur", res.Duration).Msg("selftest failed")
		} else {
			log.Info().Str("scenario", sc.Name).Dur("dur", res.Duration).Msg("selftest passed")
		}
	}
	return rep
}

// errorLog records sink reports for one scenario.
type errorLog struct {
	mu    sync.Mutex
	codes map[dispatch.ErrorCode]int
}

func newErrorLog() *errorLog { return &errorLog{codes: map[dispatch.ErrorCode]int{}} }

func (l *errorLog) handle(e dispatch.Error) {
	l.mu.Lock()
	l.codes[e.Code]++
	l.mu.Unlock()
}

func (l *errorLog) count(c dispatch.ErrorCode) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.codes[c]
}

func newDispatcher(log zerolog.Logger, errs *errorLog, opts ...dispatch.Option) (*dispatch.Dispatcher, error) {
	opts = append([]dispatch.Option{dispatch.WithLogger(log), dispatch.WithErrorCallback(errs.handle)}, opts...)
	d := dispatch.New(opts...)
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

func twoObserversOneCycle(_ context.Context, log zerolog.Logger) error {
	errs := newErrorLog()
	d, err := newDispatcher(log, errs)
	if err != nil {
		return err
	}
	counter, err := dispatch.NewObservable[types.CounterModel](d)
	if err != nil {
		return err
	}
	var seen [2][]uint32
	for i := range seen {
		i := i
		if !counter.Subscribe(dispatch.NewObserver(func(v *types.CounterModel) { seen[i] = append(seen[i], v.Count) })) {
			return fmt.Errorf("subscribe %d rejected", i)
		}
	}
	counter.Publish(context.Background(), types.CounterModel{Count: 5})
	if _, err := d.Step(); err != nil {
		return err
	}
	for i, s := range seen {
		if len(s) != 1 || s[0] != 5 {
			return fmt.Errorf("observer %d saw %v, want [5]", i, s)
		}
	}
	return nil
}

func subscribeCapacity(_ context.Context, log zerolog.Logger) error {
	d, err := newDispatcher(log, newErrorLog())
	if err != nil {
		return err
	}
	o, err := dispatch.NewObservable[types.CounterModel](d)
	if err != nil {
		return err
	}
	handles := make([]*dispatch.FuncObserver[types.CounterModel], dispatch.MaxObservers+1)
	for i := range handles {
		handles[i] = dispatch.NewObserver(func(*types.CounterModel) {})
	}
	for i := 0; i < dispatch.MaxObservers; i++ {
		if !o.Subscribe(handles[i]) {
			return fmt.Errorf("subscribe %d rejected below capacity", i)
		}
	}
	if o.Subscribe(handles[dispatch.MaxObservers]) {
		return fmt.Errorf("subscribe beyond %d accepted", dispatch.MaxObservers)
	}
	if !o.Unsubscribe(handles[0]) || !o.Subscribe(handles[dispatch.MaxObservers]) {
		return errors.New("unsubscribe did not free exactly one slot")
	}
	if o.Unsubscribe(dispatch.NewObserver(func(*types.CounterModel) {})) {
		return errors.New("unsubscribe of unknown observer succeeded")
	}
	return nil
}

type ordered struct {
	High bool
	Seq  int32
}

func highBeforeNormal(_ context.Context, log zerolog.Logger) error {
	d, err := newDispatcher(log, newErrorLog(), dispatch.WithHighCapacity(4))
	if err != nil {
		return err
	}
	o, err := dispatch.NewObservable[ordered](d)
	if err != nil {
		return err
	}
	var got []ordered
	o.MustSubscribe(dispatch.NewObserver(func(v *ordered) { got = append(got, *v) }))

	ctx := context.Background()
	for i := int32(0); i < 4; i++ {
		o.PublishHighPriority(ctx, ordered{High: true, Seq: i})
	}
	o.Publish(ctx, ordered{Seq: 4})
	if _, err := d.Step(); err != nil {
		return err
	}
	if len(got) != 5 {
		return fmt.Errorf("dispatched %d events in one cycle, want 5", len(got))
	}
	for i, v := range got {
		if v.Seq != int32(i) || v.High != (i < 4) {
			return fmt.Errorf("position %d got %+v", i, v)
		}
	}
	return nil
}

func normalOverflow(_ context.Context, log zerolog.Logger) error {
	errs := newErrorLog()
	d, err := newDispatcher(log, errs, dispatch.WithNormalCapacity(8), dispatch.WithPublishTimeout(0))
	if err != nil {
		return err
	}
	o, err := dispatch.NewObservable[ordered](d)
	if err != nil {
		return err
	}
	var got []int32
	o.MustSubscribe(dispatch.NewObserver(func(v *ordered) { got = append(got, v.Seq) }))

	for i := int32(0); i < 9; i++ {
		o.Publish(context.Background(), ordered{Seq: i})
	}
	if n := errs.count(dispatch.QueueFull); n != 1 {
		return fmt.Errorf("QueueFull reported %d times, want 1", n)
	}
	if _, err := d.Drain(); err != nil {
		return err
	}
	if len(got) != 8 {
		return fmt.Errorf("delivered %d events, want 8", len(got))
	}
	for i, s := range got {
		if s != int32(i) {
			return fmt.Errorf("delivery %d has seq %d", i, s)
		}
	}
	return nil
}

func isrNeverBlocks(ctx context.Context, log zerolog.Logger) error {
	errs := newErrorLog()
	d, err := newDispatcher(log, errs, dispatch.WithHighCapacity(2), dispatch.WithPublishTimeout(time.Hour))
	if err != nil {
		return err
	}
	o, err := dispatch.NewObservable[types.ButtonEvent](d)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			o.PublishHighPriorityFromISR(types.ButtonEvent{Pin: uint8(i), Pressed: true})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		return errors.New("never-blocking publish blocked on a full queue")
	case <-ctx.Done():
		return ctx.Err()
	}
	if n := errs.count(dispatch.QueueFull); n != 1 {
		return fmt.Errorf("QueueFull reported %d times, want 1", n)
	}
	return nil
}

func stopDrains(ctx context.Context, log zerolog.Logger) error {
	d, err := newDispatcher(log, newErrorLog())
	if err != nil {
		return err
	}
	o, err := dispatch.NewObservable[types.TimerTick](d)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	n := 0
	o.MustSubscribe(dispatch.NewObserver(func(*types.TimerTick) { mu.Lock(); n++; mu.Unlock() }))

	for i := uint64(1); i <= 5; i++ {
		o.Publish(ctx, types.TimerTick{Seq: i})
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if n != 5 {
		return fmt.Errorf("delivered %d of 5 queued events before stop returned", n)
	}
	return nil
}
