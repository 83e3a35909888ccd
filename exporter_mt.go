package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// FrameJob is a single frame to render
type FrameJob struct {
	frameIndex int
	time       float64
}

// FrameResult holds one encoded frame
type FrameResult struct {
	frameIndex int
	data       []byte
	err        error
}

// MultiThreadedExporter renders and encodes frames on several goroutines and
// writes them out in frame order
type MultiThreadedExporter struct {
	*FrameExporter
	numWorkers int
}

// NewMultiThreadedExporter creates a new multi-threaded exporter
func NewMultiThreadedExporter(renderer *FrameRenderer, fps float64) *MultiThreadedExporter {
	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8 // each worker holds a supersampled canvas
	}

	return &MultiThreadedExporter{
		FrameExporter: NewFrameExporter(renderer, fps),
		numWorkers:    numWorkers,
	}
}

// SetNumWorkers allows customizing the number of worker goroutines
func (mt *MultiThreadedExporter) SetNumWorkers(numWorkers int) {
	if numWorkers > 0 && numWorkers <= 16 {
		mt.numWorkers = numWorkers
	}
}

// ExportParallel renders every frame into dir using the worker pool. The
// first render or write error aborts the export.
func (mt *MultiThreadedExporter) ExportParallel(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create frame directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := mt.FrameCount()
	jobs := make(chan FrameJob, mt.numWorkers*2)
	results := make(chan FrameResult, mt.numWorkers*2)

	var wg sync.WaitGroup
	for i := 0; i < mt.numWorkers; i++ {
		wg.Add(1)
		go mt.frameWorker(ctx, &wg, jobs, results)
	}

	// Generate jobs
	go func() {
		defer close(jobs)
		for i := 0; i < total; i++ {
			if mt.cancelled(ctx) != nil {
				return
			}
			select {
			case jobs <- FrameJob{frameIndex: i, time: mt.frameTime(i)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Frame buffer to keep the written sequence contiguous
	frameBuffer := make(map[int][]byte)
	nextFrameToWrite := 0
	var firstErr error

	for result := range results {
		if firstErr != nil {
			continue
		}
		if result.err != nil {
			firstErr = fmt.Errorf("frame %d: %w", result.frameIndex, result.err)
			cancel()
			continue
		}

		frameBuffer[result.frameIndex] = result.data
		for {
			data, exists := frameBuffer[nextFrameToWrite]
			if !exists {
				break
			}
			if err := os.WriteFile(framePath(dir, nextFrameToWrite), data, 0o644); err != nil {
				firstErr = fmt.Errorf("failed to write frame %d: %w", nextFrameToWrite, err)
				cancel()
				break
			}
			delete(frameBuffer, nextFrameToWrite)
			nextFrameToWrite++
			mt.report(nextFrameToWrite, total)
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if nextFrameToWrite < total {
		if err := mt.cancelled(ctx); err != nil {
			return err
		}
		return context.Canceled
	}
	return nil
}

// frameWorker renders and PNG-encodes frames until jobs is drained
func (mt *MultiThreadedExporter) frameWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan FrameJob, results chan<- FrameResult) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}

			var buf bytes.Buffer
			err := imaging.Encode(&buf, mt.renderer.Render(job.time), imaging.PNG)

			select {
			case results <- FrameResult{frameIndex: job.frameIndex, data: buf.Bytes(), err: err}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
