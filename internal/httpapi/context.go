package httpapi

import (
	"context"
	"sync/atomic"
)

type ctxHolder struct{ ctx context.Context }

// serverBaseCtx is canceled on shutdown so open streams end.
var serverBaseCtx atomic.Pointer[ctxHolder]

// SetBaseContext sets the process-level context that bounds streaming
// handlers. A nil ctx resets it to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx.Store(&ctxHolder{ctx: ctx})
}

func baseContext() context.Context {
	if h := serverBaseCtx.Load(); h != nil {
		return h.ctx
	}
	return context.Background()
}

// joinContexts returns a context derived from a that is also canceled when b
// is done. The cancel func releases the link to b.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
