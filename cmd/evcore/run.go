package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"evcore/internal/config"
	"evcore/internal/demo"
	"evcore/internal/diagnostics"
	"evcore/internal/dispatch"
	"evcore/internal/httpapi"
)

// errFatalReport ends "evcore run" after a fatal dispatch condition.
var errFatalReport = errors.New("fatal dispatch condition reported")

type runFlags struct {
	addr        string
	noDemo      bool
	noHTTP      bool
	corsOrigins string
	duration    time.Duration
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the dispatcher, demo producers and diagnostics server",
		Example: "  evcore run\n" +
			"  evcore run --addr :9464 --cors-origins http://localhost:5173\n" +
			"  evcore run -c evcore.yaml --no-demo",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if f.addr != "" {
				cfg.Diagnostics.Addr = f.addr
			}
			if f.noDemo {
				cfg.Demo.Disabled = true
			}
			if f.noHTTP {
				cfg.Diagnostics.Disabled = true
			}
			if origins := config.SplitCSV(f.corsOrigins); len(origins) > 0 {
				cfg.Diagnostics.CORS.Enabled = true
				cfg.Diagnostics.CORS.AllowedOrigins = origins
				cfg.ApplyDefaults()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if f.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, f.duration)
				defer cancel()
			}
			return a.run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "Diagnostics listen address (overrides config)")
	cmd.Flags().BoolVar(&f.noDemo, "no-demo", false, "Do not start the demo producers")
	cmd.Flags().BoolVar(&f.noHTTP, "no-http", false, "Do not start the diagnostics server")
	cmd.Flags().StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated CORS origins; enables CORS")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "Stop after this long (0 runs until signaled)")
	return cmd
}

func (a *app) run(ctx context.Context, cfg config.Config) error {
	log := a.log
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sink := diagnostics.NewSink(
		diagnostics.WithSinkLogger(log),
		diagnostics.WithLogRate(cfg.Diagnostics.ErrorLogRate, cfg.Diagnostics.ErrorLogBurst),
		diagnostics.WithOnFatal(func(e dispatch.Error) { cancel(fmt.Errorf("%w: %v", errFatalReport, e)) }),
	)
	d := dispatch.New(
		dispatch.WithHighCapacity(cfg.Dispatch.HighCapacity),
		dispatch.WithNormalCapacity(cfg.Dispatch.NormalCapacity),
		dispatch.WithPublishTimeout(cfg.Dispatch.PublishTimeout()),
		dispatch.WithMaxPayloadSize(cfg.Dispatch.MaxPayloadSize),
		dispatch.WithLogger(log),
		dispatch.WithErrorCallback(sink.Handle),
	)
	if err := d.Init(); err != nil {
		return err
	}
	collector := diagnostics.NewCollector(d)
	if err := prometheus.Register(collector); err != nil {
		return fmt.Errorf("register collector: %w", err)
	}
	defer prometheus.Unregister(collector)

	var sys *demo.System
	if !cfg.Demo.Disabled {
		var err error
		if sys, err = demo.NewSystem(d, cfg.Demo, log); err != nil {
			return fmt.Errorf("demo: %w", err)
		}
	}
	// The loop outlives ctx so producers stop before Stop drains the queues.
	if err := d.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if sys != nil {
		g.Go(func() error { return sys.Run(gctx) })
	}
	if !cfg.Diagnostics.Disabled {
		httpapi.SetLogger(log.With().Str("component", "http").Logger())
		srv, ln, err := newDiagnosticsServer(cfg, diagnostics.NewService(d, sink))
		if err != nil {
			cancel(err)
			_ = g.Wait()
			_ = d.Stop(context.Background())
			return err
		}
		httpapi.SetBaseContext(gctx)
		log.Info().Str("addr", ln.Addr().String()).Msg("diagnostics listening")
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.Diagnostics.ShutdownTimeout())
			defer shutCancel()
			return srv.Shutdown(shutCtx)
		})
	}
	log.Info().
		Int("high_capacity", cfg.Dispatch.HighCapacity).
		Int("normal_capacity", cfg.Dispatch.NormalCapacity).
		Bool("demo", sys != nil).
		Msg("evcore running")

	<-gctx.Done()
	runErr := g.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Diagnostics.ShutdownTimeout())
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		log.Warn().Err(err).Msg("dispatcher stop")
	}
	st := d.Stats()
	log.Info().
		Uint64("published", st.Published).
		Uint64("dispatched", st.Dispatched).
		Uint64("dropped", st.Dropped).
		Uint64("errors", sink.Total()).
		Msg("evcore stopped")

	if cause := context.Cause(ctx); errors.Is(cause, errFatalReport) {
		return cause
	}
	return runErr
}

func newDiagnosticsServer(cfg config.Config, svc httpapi.Service) (*http.Server, net.Listener, error) {
	c := cfg.Diagnostics.CORS
	httpapi.SetCORSOptions(c.Enabled, c.AllowedOrigins, c.AllowedMethods, c.AllowedHeaders)
	ln, err := net.Listen("tcp", cfg.Diagnostics.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", cfg.Diagnostics.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv, ln, nil
}
