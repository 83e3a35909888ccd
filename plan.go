package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"

	"rhythmpath/geom"
	"rhythmpath/planner"
	"rhythmpath/trajectory"
)

type planOptions struct {
	inputFile  string
	outputFile string
	preset     string
	configFile string
	seed       int64
	solutions  int
	replay     string // stored plan to reproduce
	replayIdx  int
	startX     float64
	startY     float64
}

// interruptContext returns a context cancelled on the first SIGINT/SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			fmt.Printf("\nReceived interrupt signal, cancelling...\n")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// buildInput resolves the config and notes for a plan or render run, either
// from a notes file plus preset or from a stored plan being replayed.
func buildInput(opts planOptions) (planner.Config, []planner.NoteEvent, string, error) {
	if opts.replay != "" {
		stored, err := loadPlan(opts.replay)
		if err != nil {
			return planner.Config{}, nil, "", err
		}
		cfg, notes, err := replayInput(stored, opts.replayIdx)
		return cfg, notes, stored.Preset, err
	}

	if opts.inputFile == "" {
		return planner.Config{}, nil, "", fmt.Errorf("either --input or --replay is required")
	}
	preset, err := resolvePreset(opts.preset, opts.configFile)
	if err != nil {
		return planner.Config{}, nil, "", err
	}
	notes, err := loadNotes(opts.inputFile)
	if err != nil {
		return planner.Config{}, nil, "", fmt.Errorf("failed to load notes: %w", err)
	}

	cfg := preset.Config(geom.V(opts.startX, opts.startY))
	cfg.Seed = opts.seed
	name := opts.preset
	if name == "" {
		name = "classic"
	}
	return cfg, notes, name, nil
}

// runPlanner plans with a spinner fed by the step callback.
func runPlanner(ctx context.Context, cfg planner.Config, notes []planner.NoteEvent, maxSolutions int) ([]trajectory.PlanResult, error) {
	logger := log.FromContext(ctx)

	p, err := planner.New(cfg, notes)
	if err != nil {
		return nil, err
	}
	p.SetLogger(logger)

	bar := progressbar.NewOptions(len(notes),
		progressbar.OptionSetDescription("Planning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)

	// The bar shows the current search depth, so it moves backwards on
	// backtracking.
	p.SetStepCallback(func(s trajectory.Step) {
		bar.Set(s.Index + 1)
	})

	results, err := p.GenerateContext(ctx, maxSolutions)
	bar.Finish()
	fmt.Printf("\n")
	return results, err
}

// planSequence handles the plan command
func planSequence(ctx context.Context, opts planOptions) error {
	logger := log.FromContext(ctx)

	cfg, notes, presetName, err := buildInput(opts)
	if err != nil {
		return err
	}

	mode := "search"
	if opts.replay != "" {
		mode = "replay"
	}
	fmt.Printf("Notes: %d (%.2fs)\n", len(notes), notes[len(notes)-1].Time)
	fmt.Printf("Preset: %s, mode: %s, seed: %d\n", presetName, mode, cfg.Seed)
	fmt.Printf("Parameters - size: %.1f, speed: %.1f, wall: %.1fx%.1f, path: %.1f, min: %.1f\n",
		cfg.CharacterSize, cfg.Speed, cfg.WallLength, cfg.WallThickness, cfg.PathWidth, cfg.MinDistance)

	ctx, cancel := interruptContext(ctx)
	defer cancel()

	startTime := time.Now()
	results, err := runPlanner(ctx, cfg, notes, opts.solutions)
	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("Planning cancelled.\n")
			return nil
		}
		var unsolvable *planner.UnsolvableSequenceError
		if errors.As(err, &unsolvable) {
			logger.Error("no trajectory", "notes", unsolvable.Notes, "deepest", unsolvable.Deepest, "replay", unsolvable.Replay)
			fmt.Println(unsolvableHint(unsolvable))
		}
		return fmt.Errorf("planning failed: %w", err)
	}

	out := PlanFile{
		Preset:    presetName,
		Config:    cfg,
		Notes:     notes,
		Solutions: results,
	}
	if err := encodeFile(opts.outputFile, out); err != nil {
		return err
	}

	fmt.Printf("\nPlanning completed successfully!\n")
	fmt.Printf("Duration: %v\n", duration.Truncate(time.Millisecond))
	fmt.Printf("Solutions: %d\n", len(results))
	for i, r := range results {
		b := r.Bounds(0)
		fmt.Printf("  #%d: %.2fs, bounds %.0fx%.0f, axes %s\n",
			i, r.Duration(), b.Width(), b.Height(), strings.Join(r.Directions(), ""))
	}
	fmt.Printf("Output file: %s\n", opts.outputFile)
	fmt.Printf("\nTo render the first solution:\n")
	fmt.Printf("  rhythmpath render --replay %s -o frame.png --time 1.0\n", opts.outputFile)
	return nil
}

// unsolvableHint suggests what to change after an exhausted search.
func unsolvableHint(e *planner.UnsolvableSequenceError) string {
	if e.Replay {
		return "The stored directions no longer fit these notes; plan again without --replay."
	}
	return fmt.Sprintf("Stuck after %d of %d notes. Try a smaller preset (small, tight) or a different --seed.", e.Deepest, e.Notes)
}
