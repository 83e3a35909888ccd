package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"rhythmpath/geom"
	"rhythmpath/planner"
	"rhythmpath/playback"
	"rhythmpath/trajectory"
	"rhythmpath/worker"
)

const maxServerSolutions = 16

// PlanServer serves planning over HTTP. Requests run on a worker.Pool and
// at most Workers of them plan at once; the rest wait for a slot.
type PlanServer struct {
	pool    *worker.Pool
	logger  *log.Logger
	timeout time.Duration
	slots   chan struct{}
	nextID  atomic.Int64
}

// PlanRequest is the body of POST /api/plan.
type PlanRequest struct {
	Preset    string              `json:"preset"`
	Seed      int64               `json:"seed"`
	Solutions int                 `json:"solutions"`
	Start     geom.Vec2           `json:"start"`
	Notes     []planner.NoteEvent `json:"notes"`
}

// PresetEntry is one element of GET /api/presets. Key is the value to send
// as PlanRequest.Preset.
type PresetEntry struct {
	Key string `json:"key"`
	PlannerPreset
}

// PositionRequest is the body of POST /api/positions.
type PositionRequest struct {
	Solution trajectory.PlanResult `json:"solution"`
	Times    []float64             `json:"times"`
}

// NewPlanServer creates a server planning on at most workers goroutines.
// Every request is cut off after timeout.
func NewPlanServer(logger *log.Logger, workers int, timeout time.Duration) *PlanServer {
	if workers <= 0 {
		workers = 4
	}
	s := &PlanServer{
		pool:    &worker.Pool{Workers: workers},
		logger:  logger,
		timeout: timeout,
		slots:   make(chan struct{}, workers),
	}
	return s
}

// Handler builds the gin router
func (s *PlanServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logRequests)

	r.GET("/api/presets", s.getPresets)
	r.POST("/api/plan", s.plan)
	r.POST("/api/positions", s.positions)
	return r
}

func (s *PlanServer) logRequests(c *gin.Context) {
	started := time.Now()
	c.Next()
	s.logger.Info("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"took", time.Since(started).Truncate(time.Microsecond))
}

func (s *PlanServer) getPresets(c *gin.Context) {
	presets := GetPresets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]PresetEntry, 0, len(names))
	for _, name := range names {
		out = append(out, PresetEntry{Key: name, PlannerPreset: presets[name]})
	}
	c.JSON(http.StatusOK, gin.H{"presets": out})
}

func (s *PlanServer) plan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if len(req.Notes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no notes"})
		return
	}
	if req.Preset == "" {
		req.Preset = "classic"
	}
	preset, ok := GetPresetByName(req.Preset)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("preset '%s' not found", req.Preset)})
		return
	}
	solutions := min(max(req.Solutions, 1), maxServerSolutions)

	cfg := preset.Config(req.Start)
	cfg.Seed = req.Seed
	notes := withDeltas(req.Notes)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server busy"})
		return
	}

	resp := s.pool.Plan(log.WithContext(ctx, s.logger), worker.Request{
		ID:           int(s.nextID.Add(1)),
		Config:       cfg,
		Notes:        notes,
		MaxSolutions: solutions,
	})
	if resp.Err != nil {
		status, body := planErrorResponse(resp.Err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, PlanFile{
		Preset:    req.Preset,
		Config:    cfg,
		Notes:     notes,
		Solutions: resp.Results,
	})
}

func (s *PlanServer) positions(c *gin.Context) {
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	out := make([]playback.Position, len(req.Times))
	for i, t := range req.Times {
		out[i] = playback.PositionAt(req.Solution, t)
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

// planErrorResponse maps a planning error to a status code and JSON body.
func planErrorResponse(err error) (int, gin.H) {
	var unsolvable *planner.UnsolvableSequenceError
	switch {
	case errors.As(err, &unsolvable):
		return http.StatusUnprocessableEntity, gin.H{
			"error":   err.Error(),
			"deepest": unsolvable.Deepest,
			"notes":   unsolvable.Notes,
		}
	case errors.Is(err, planner.ErrInvalidConfig), errors.Is(err, geom.ErrInvalidSegment):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, gin.H{"error": "planning timed out"}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, gin.H{"error": "planning cancelled"}
	}
	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, addr string, workers int, timeout time.Duration) error {
	logger := log.FromContext(ctx)
	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:    addr,
		Handler: NewPlanServer(logger, workers, timeout).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("listening", "addr", addr, "workers", workers, "timeout", timeout)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
