package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// sinkRecorder collects every reported Error.
type sinkRecorder struct {
	mu   sync.Mutex
	errs []Error
}

func (r *sinkRecorder) record(e Error) {
	r.mu.Lock()
	r.errs = append(r.errs, e)
	r.mu.Unlock()
}

func (r *sinkRecorder) count(code ErrorCode) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.errs {
		if e.Code == code {
			n++
		}
	}
	return n
}

// newTestDispatcher returns an initialized, not started dispatcher whose
// errors go to the returned recorder.
func newTestDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *sinkRecorder) {
	t.Helper()
	rec := &sinkRecorder{}
	opts = append([]Option{WithErrorCallback(rec.record)}, opts...)
	d := New(opts...)
	require.NoError(t, d.Init())
	return d, rec
}

// collector is an observer that copies every value it sees.
type collector[T any] struct {
	mu   sync.Mutex
	seen []T
}

func (c *collector[T]) OnEvent(v *T) {
	c.mu.Lock()
	c.seen = append(c.seen, *v)
	c.mu.Unlock()
}

func (c *collector[T]) values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.seen...)
}

// tagged is a payload carrying its priority class and sequence number.
type tagged struct {
	High bool
	Seq  int32
}
