package diagnostics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"evcore/internal/dispatch"
	"evcore/pkg/types"
)

var dispatchErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "evcore",
		Subsystem: "dispatch",
		Name:      "errors_total",
		Help:      "Conditions reported to the dispatcher error sink",
	},
	[]string{"code"},
)

func init() {
	prometheus.MustRegister(dispatchErrorsTotal)
}

// record is the last reported condition.
type record struct {
	err dispatch.Error
	at  time.Time
}

// Sink is the process error sink. Install Handle with
// Dispatcher.SetErrorCallback. Handle may run on any publisher goroutine,
// so it only touches atomics, the rate limiter and the logger.
type Sink struct {
	log     zerolog.Logger
	limiter *rate.Limiter
	onFatal func(dispatch.Error)

	counts     [len(codeIndex)]atomic.Uint64
	suppressed atomic.Uint64
	last       atomic.Pointer[record]
	now        func() time.Time
}

// codeIndex maps an ErrorCode to its counter slot.
var codeIndex = [...]dispatch.ErrorCode{
	dispatch.QueueFull,
	dispatch.QueueNotReady,
	dispatch.InvalidModel,
	dispatch.NoObservers,
	dispatch.ObserverPanic,
	dispatch.DispatcherStopped,
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithSinkLogger sets the logger used for error lines.
func WithSinkLogger(l zerolog.Logger) SinkOption {
	return func(s *Sink) { s.log = l.With().Str("component", "error_sink").Logger() }
}

// WithLogRate limits error log lines to perSecond with the given burst.
// Counting and metrics are never limited.
func WithLogRate(perSecond float64, burst int) SinkOption {
	return func(s *Sink) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithOnFatal registers fn for QueueNotReady and InvalidModel. It runs on
// the reporting goroutine and must not block.
func WithOnFatal(fn func(dispatch.Error)) SinkOption {
	return func(s *Sink) { s.onFatal = fn }
}

// NewSink returns a Sink logging at most 5 lines per second by default.
func NewSink(opts ...SinkOption) *Sink {
	s := &Sink{
		log:     zerolog.Nop(),
		limiter: rate.NewLimiter(5, 10),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle is the dispatch.ErrorFunc.
func (s *Sink) Handle(e dispatch.Error) {
	if i := indexOf(e.Code); i >= 0 {
		s.counts[i].Add(1)
	}
	dispatchErrorsTotal.WithLabelValues(e.Code.String()).Inc()
	s.last.Store(&record{err: e, at: s.now()})

	if s.limiter.Allow() {
		ev := s.event(e.Code)
		ev.Str("code", e.Code.String()).
			Str("payload", e.Payload).
			Str("priority", e.Priority.String())
		if e.Panic != nil {
			ev.Interface("panic", e.Panic)
		}
		ev.Msg("dispatch condition")
	} else {
		s.suppressed.Add(1)
	}

	if e.Code.Fatal() && s.onFatal != nil {
		s.onFatal(e)
	}
}

func (s *Sink) event(c dispatch.ErrorCode) *zerolog.Event {
	switch {
	case c.Fatal():
		return s.log.Error()
	case c.Informational():
		return s.log.Debug()
	default:
		return s.log.Warn()
	}
}

// Count returns the number of reports seen for code.
func (s *Sink) Count(code dispatch.ErrorCode) uint64 {
	if i := indexOf(code); i >= 0 {
		return s.counts[i].Load()
	}
	return 0
}

// Total returns the number of reports across all codes.
func (s *Sink) Total() uint64 {
	var n uint64
	for i := range s.counts {
		n += s.counts[i].Load()
	}
	return n
}

// FatalCount returns the number of fatal reports.
func (s *Sink) FatalCount() uint64 {
	var n uint64
	for i, c := range codeIndex {
		if c.Fatal() {
			n += s.counts[i].Load()
		}
	}
	return n
}

// Snapshot returns the per-code counts in the /errors response shape.
func (s *Sink) Snapshot() types.ErrorsResponse {
	out := types.ErrorsResponse{
		Errors:         make([]types.ErrorCount, 0, len(codeIndex)),
		SuppressedLogs: s.suppressed.Load(),
	}
	for i, c := range codeIndex {
		out.Errors = append(out.Errors, types.ErrorCount{
			Code:  c.String(),
			Count: s.counts[i].Load(),
			Fatal: c.Fatal(),
		})
	}
	if r := s.last.Load(); r != nil {
		out.LastError = r.err.Error()
		out.LastErrorAt = r.at.UTC().Format(time.RFC3339)
	}
	return out
}

func indexOf(c dispatch.ErrorCode) int {
	for i, k := range codeIndex {
		if k == c {
			return i
		}
	}
	return -1
}
