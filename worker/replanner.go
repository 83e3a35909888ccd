package worker

import (
	"context"
	"sync"
)

// Replanner keeps at most one request in flight. Submitting a new request
// cancels the previous one; a cancelled or superseded request never
// delivers a response.
type Replanner struct {
	Pool *Pool

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Submit starts req and returns a channel that receives its response, or is
// closed without a value if req is superseded or ctx ends first.
func (r *Replanner) Submit(ctx context.Context, req Request) <-chan Response {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	r.cancel = cancel
	r.mu.Unlock()

	pool := r.Pool
	if pool == nil {
		pool = &Pool{}
	}

	ch := make(chan Response, 1)
	go func() {
		defer close(ch)
		defer cancel()
		resp := pool.Plan(ctx, req)
		if !r.current(gen) || ctx.Err() != nil {
			return
		}
		ch <- resp
	}()
	return ch
}

// Cancel stops the in-flight request, if any.
func (r *Replanner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
}

func (r *Replanner) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen == gen
}
