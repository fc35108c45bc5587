// Package demo holds small producers and consumers that exercise the
// dispatcher the way firmware services would: a periodic timer, a counter
// service, a button "interrupt" and a sampled sensor. They are clients of
// the dispatch package and use only its public API.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"evcore/internal/config"
	"evcore/internal/dispatch"
	"evcore/pkg/types"
)

// Observables groups one Observable per demo payload type.
type Observables struct {
	Ticks   *dispatch.Observable[types.TimerTick]
	Counts  *dispatch.Observable[types.CounterModel]
	Buttons *dispatch.Observable[types.ButtonEvent]
	Sensors *dispatch.Observable[types.SensorReading]
}

// NewObservables registers every demo payload type on d.
func NewObservables(d *dispatch.Dispatcher) (Observables, error) {
	var o Observables
	var err error
	if o.Ticks, err = dispatch.NewObservable[types.TimerTick](d); err != nil {
		return o, fmt.Errorf("ticks: %w", err)
	}
	if o.Counts, err = dispatch.NewObservable[types.CounterModel](d); err != nil {
		return o, fmt.Errorf("counts: %w", err)
	}
	if o.Buttons, err = dispatch.NewObservable[types.ButtonEvent](d); err != nil {
		return o, fmt.Errorf("buttons: %w", err)
	}
	if o.Sensors, err = dispatch.NewObservable[types.SensorReading](d); err != nil {
		return o, fmt.Errorf("sensors: %w", err)
	}
	return o, nil
}

// System is the full demo: producers, the counter service and log observers.
type System struct {
	Observables
	Counter *Counter

	ticker  *Ticker
	button  *ButtonSimulator
	sampler *SensorSampler
}

// NewSystem wires the demo onto d. All subscriptions happen here, before any
// producer runs.
func NewSystem(d *dispatch.Dispatcher, cfg config.DemoConfig, log zerolog.Logger) (*System, error) {
	obs, err := NewObservables(d)
	if err != nil {
		return nil, err
	}
	s := &System{
		Observables: obs,
		Counter:     NewCounter(obs.Counts, cfg.CounterLimit),
		ticker:      NewTicker(obs.Ticks, cfg.TickInterval()),
		button:      NewButtonSimulator(obs.Buttons, 2, cfg.ButtonInterval()),
		sampler:     NewSensorSampler(obs.Sensors, 0, cfg.SensorInterval(), cfg.SensorThresholdMV, Triangle(500, 3300, 40)),
	}

	subs := []bool{
		obs.Ticks.Subscribe(s.Counter),
		obs.Counts.Subscribe(NewLogObserver[types.CounterModel](log, "counter")),
		obs.Buttons.Subscribe(NewLogObserver[types.ButtonEvent](log, "button")),
		obs.Buttons.Subscribe(s.Counter.ResetObserver()),
		obs.Sensors.Subscribe(NewLogObserver[types.SensorReading](log, "sensor")),
	}
	for i, ok := range subs {
		if !ok {
			return nil, fmt.Errorf("demo subscription %d rejected", i)
		}
	}
	return s, nil
}

// Run starts every producer and blocks until ctx is done.
func (s *System) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.ticker.Run(ctx) })
	g.Go(func() error { return s.button.Run(ctx) })
	g.Go(func() error { return s.sampler.Run(ctx) })
	return g.Wait()
}

// sleepCtx waits d or until ctx is done, reporting whether it slept fully.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
