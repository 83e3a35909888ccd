package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"

	"rhythmpath/trajectory"
)

type renderOptions struct {
	planOptions
	outputImage string
	skinFile    string
	frameDir    string
	time        float64
	fps         float64
	width       int
	height      int
	parallel    bool
}

// planForRender produces the trajectory to draw: a quick deterministic
// replay when a stored plan is given, a fresh search otherwise.
func planForRender(ctx context.Context, opts planOptions) (trajectory.PlanResult, RenderOptions, error) {
	cfg, notes, _, err := buildInput(opts)
	if err != nil {
		return trajectory.PlanResult{}, RenderOptions{}, err
	}
	results, err := runPlanner(ctx, cfg, notes, 1)
	if err != nil {
		return trajectory.PlanResult{}, RenderOptions{}, fmt.Errorf("planning failed: %w", err)
	}
	return results[0], DefaultRenderOptions(cfg.CharacterSize, cfg.WallThickness), nil
}

// renderPlan handles the render command
func renderPlan(ctx context.Context, opts renderOptions) error {
	logger := log.FromContext(ctx)

	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d (both must be > 0)", opts.width, opts.height)
	}
	if opts.frameDir != "" && opts.fps <= 0 {
		return fmt.Errorf("invalid fps %.2f (must be > 0)", opts.fps)
	}

	ctx, cancel := interruptContext(ctx)
	defer cancel()

	plan, ropts, err := planForRender(ctx, opts.planOptions)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("Rendering cancelled.\n")
			return nil
		}
		return err
	}
	ropts.Width, ropts.Height = opts.width, opts.height
	if opts.skinFile != "" {
		skin, err := loadImage(opts.skinFile)
		if err != nil {
			return fmt.Errorf("failed to load ball skin: %w", err)
		}
		ropts.Skin = skin
	}

	renderer, err := NewFrameRenderer(plan, ropts)
	if err != nil {
		return fmt.Errorf("failed to set up renderer: %w", err)
	}

	fmt.Printf("Render parameters:\n")
	fmt.Printf("  Frame size: %dx%d\n", opts.width, opts.height)
	fmt.Printf("  Duration: %s\n", formatFloat(plan.Duration()))

	if opts.frameDir == "" {
		fmt.Printf("  Time: %s\n", formatFloat(opts.time))
		if err := renderer.SaveFrame(opts.time, opts.outputImage); err != nil {
			return err
		}
		fmt.Printf("\n✓ Frame saved to %s\n", opts.outputImage)
		return nil
	}

	return exportFrames(ctx, logger, renderer, opts)
}

func exportFrames(ctx context.Context, logger *log.Logger, renderer *FrameRenderer, opts renderOptions) error {
	var exporter interface {
		Export(context.Context, string) error
		SetProgressCallback(func(int))
		FrameCount() int
	}
	var mt *MultiThreadedExporter
	if opts.parallel {
		mt = NewMultiThreadedExporter(renderer, opts.fps)
		exporter = mt
	} else {
		exporter = NewFrameExporter(renderer, opts.fps)
	}

	fmt.Printf("  FPS: %s\n", formatFloat(opts.fps))
	fmt.Printf("  Frames: %d -> %s\n\n", exporter.FrameCount(), opts.frameDir)

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	exporter.SetProgressCallback(func(progress int) {
		bar.Set(progress)
	})

	startTime := time.Now()
	var err error
	if mt != nil {
		err = mt.ExportParallel(ctx, opts.frameDir)
	} else {
		err = exporter.Export(ctx, opts.frameDir)
	}
	bar.Finish()
	fmt.Printf("\n")

	if err != nil {
		if ctx.Err() != nil {
			fmt.Printf("Export cancelled.\n")
			return nil
		}
		return fmt.Errorf("export failed: %w", err)
	}

	logger.Info("frames exported", "dir", opts.frameDir, "took", time.Since(startTime).Truncate(time.Millisecond))
	fmt.Printf("✓ Encode with: ffmpeg -framerate %g -i %s/frame_%%05d.png out.mp4\n", opts.fps, opts.frameDir)
	return nil
}

// formatFloat formats a float64 with appropriate precision
func formatFloat(f float64) string {
	if f > 1000 {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.2f", f)
}
