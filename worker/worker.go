// Package worker runs planning requests off the caller's goroutine. Every
// request gets its own Planner, so concurrent requests share nothing.
package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"rhythmpath/planner"
	"rhythmpath/trajectory"
)

// Request is one planning job.
type Request struct {
	ID           int
	Config       planner.Config
	Notes        []planner.NoteEvent
	MaxSolutions int
}

// Response carries either the solutions or the planning error of a Request.
type Response struct {
	ID      int
	Results []trajectory.PlanResult
	Err     error
}

// Pool plans requests concurrently on at most Workers goroutines.
type Pool struct {
	Workers int // defaults to runtime.NumCPU()

	OnDone func(Response) // optional, called once per finished request
}

// Plan runs a single request on the calling goroutine.
func (p *Pool) Plan(ctx context.Context, req Request) Response {
	logger := log.FromContext(ctx).With("request", req.ID)

	pl, err := planner.New(req.Config, req.Notes)
	if err != nil {
		return Response{ID: req.ID, Err: err}
	}
	pl.SetLogger(logger)

	logger.Debug("planning", "notes", len(req.Notes), "seed", req.Config.Seed)
	results, err := pl.GenerateContext(ctx, max(req.MaxSolutions, 1))
	if err != nil {
		logger.Debug("planning failed", "err", err)
		return Response{ID: req.ID, Err: err}
	}
	logger.Debug("planned", "solutions", len(results))
	return Response{ID: req.ID, Results: results}
}

// PlanAll runs every request and returns the responses in request order.
// Planning failures stay in their Response; the returned error is only set
// when ctx ends before all requests finish.
func (p *Pool) PlanAll(ctx context.Context, reqs []Request) ([]Response, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]Response, len(reqs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i] = Response{ID: req.ID, Err: err}
				return err
			}
			resp := p.Plan(gctx, req)
			out[i] = resp
			if p.OnDone != nil {
				mu.Lock()
				p.OnDone(resp)
				mu.Unlock()
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
