package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"

	"rhythmpath/planner"
	"rhythmpath/worker"
)

type batchOptions struct {
	planOptions
	seeds   int
	workers int
}

// batchRequests builds one request per seed, starting at the base seed.
func batchRequests(cfg planner.Config, notes []planner.NoteEvent, seeds int) []worker.Request {
	reqs := make([]worker.Request, seeds)
	for i := range reqs {
		c := cfg
		c.Seed = cfg.Seed + int64(i)
		reqs[i] = worker.Request{ID: i, Config: c, Notes: notes, MaxSolutions: 1}
	}
	return reqs
}

// batchPlan handles the batch command
func batchPlan(ctx context.Context, opts batchOptions) error {
	logger := log.FromContext(ctx)

	if opts.seeds <= 0 {
		return fmt.Errorf("invalid seed count %d (must be > 0)", opts.seeds)
	}
	cfg, notes, presetName, err := buildInput(opts.planOptions)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext(ctx)
	defer cancel()

	bar := progressbar.NewOptions(opts.seeds,
		progressbar.OptionSetDescription("Planning seeds"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	pool := &worker.Pool{
		Workers: opts.workers,
		OnDone:  func(worker.Response) { bar.Add(1) },
	}

	fmt.Printf("Planning %d seeds from %d with preset %s\n", opts.seeds, cfg.Seed, presetName)
	startTime := time.Now()
	responses, err := pool.PlanAll(ctx, batchRequests(cfg, notes, opts.seeds))
	bar.Finish()
	fmt.Printf("\n")
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("Batch cancelled.\n")
			return nil
		}
		return fmt.Errorf("batch failed: %w", err)
	}

	solved := 0
	var best *worker.Response
	for i := range responses {
		resp := &responses[i]
		seed := cfg.Seed + int64(resp.ID)
		if resp.Err != nil {
			logger.Debug("seed failed", "seed", seed, "err", resp.Err)
			fmt.Printf("  seed %-6d ✗ %v\n", seed, resp.Err)
			continue
		}
		solved++
		b := resp.Results[0].Bounds(0)
		fmt.Printf("  seed %-6d ✓ bounds %.0fx%.0f\n", seed, b.Width(), b.Height())
		if best == nil || area(resp) < area(best) {
			best = resp
		}
	}

	fmt.Printf("\n%d of %d seeds solved in %v\n", solved, opts.seeds, time.Since(startTime).Truncate(time.Millisecond))
	if best == nil {
		return fmt.Errorf("no seed produced a trajectory")
	}

	bestSeed := cfg.Seed + int64(best.ID)
	fmt.Printf("Most compact: seed %d\n", bestSeed)
	if opts.outputFile != "" {
		c := cfg
		c.Seed = bestSeed
		if err := encodeFile(opts.outputFile, PlanFile{
			Preset:    presetName,
			Config:    c,
			Notes:     notes,
			Solutions: best.Results,
		}); err != nil {
			return err
		}
		fmt.Printf("Output file: %s\n", opts.outputFile)
	}
	return nil
}

func area(r *worker.Response) float64 {
	b := r.Results[0].Bounds(0)
	return b.Width() * b.Height()
}
