package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// FrameExporter writes a PNG sequence of a rendered plan
type FrameExporter struct {
	renderer *FrameRenderer
	fps      float64

	// Progress tracking
	progressCallback func(int)
	cancelCallback   func() bool
}

// NewFrameExporter creates an exporter sampling the plan fps times a second
func NewFrameExporter(renderer *FrameRenderer, fps float64) *FrameExporter {
	return &FrameExporter{
		renderer: renderer,
		fps:      fps,
	}
}

// SetProgressCallback sets a callback function for progress updates (0-100)
func (exp *FrameExporter) SetProgressCallback(callback func(int)) {
	exp.progressCallback = callback
}

// SetCancelCallback sets a callback function to check for cancellation
func (exp *FrameExporter) SetCancelCallback(callback func() bool) {
	exp.cancelCallback = callback
}

// FrameCount returns the number of frames covering the plan, both ends
// included.
func (exp *FrameExporter) FrameCount() int {
	if exp.fps <= 0 {
		return 1
	}
	return int(math.Floor(exp.renderer.Duration()*exp.fps)) + 1
}

func (exp *FrameExporter) frameTime(i int) float64 {
	if exp.fps <= 0 {
		return 0
	}
	return float64(i) / exp.fps
}

func framePath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i))
}

func (exp *FrameExporter) cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if exp.cancelCallback != nil && exp.cancelCallback() {
		return context.Canceled
	}
	return nil
}

func (exp *FrameExporter) report(done, total int) {
	if exp.progressCallback != nil && total > 0 {
		exp.progressCallback(100 * done / total)
	}
}

// Export renders every frame into dir, one at a time
func (exp *FrameExporter) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create frame directory: %w", err)
	}

	total := exp.FrameCount()
	for i := 0; i < total; i++ {
		if err := exp.cancelled(ctx); err != nil {
			return err
		}
		if err := exp.renderer.SaveFrame(exp.frameTime(i), framePath(dir, i)); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		exp.report(i+1, total)
	}
	return nil
}
