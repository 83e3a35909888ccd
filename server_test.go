package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhythmpath/geom"
	"rhythmpath/planner"
	"rhythmpath/playback"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewPlanServer(log.New(io.Discard), 2, 10*time.Second).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func serverNotes() []planner.NoteEvent {
	return []planner.NoteEvent{
		{Time: 0.3, Midi: 60}, {Time: 0.6, Midi: 62}, {Time: 1.0, Midi: 64},
		{Time: 1.2, Midi: 65}, {Time: 1.7, Midi: 67},
	}
}

func TestServerPresets(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Presets []PresetEntry `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Presets, len(GetPresets()))
	for i := 1; i < len(body.Presets); i++ {
		assert.Less(t, body.Presets[i-1].Key, body.Presets[i].Key)
	}

	// Every key is accepted back by the plan endpoint's preset lookup.
	for _, e := range body.Presets {
		want, ok := GetPresetByName(e.Key)
		require.True(t, ok, e.Key)
		assert.Equal(t, want, e.PlannerPreset)
	}
	assert.Contains(t, rec.Body.String(), `"key":"classic"`)
}

func TestServerPlan(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/plan", PlanRequest{
		Seed:      9,
		Solutions: 2,
		Notes:     serverNotes(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got PlanFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "classic", got.Preset)
	assert.Equal(t, int64(9), got.Config.Seed)
	require.Len(t, got.Solutions, 2)
	assert.InDelta(t, 0.3, got.Notes[0].Delta, 1e-9)

	// Same request through the planner directly gives the same answer.
	cfg := GetDefaultPreset("").Config(geom.V(0, 0))
	cfg.Seed = 9
	p, err := planner.New(cfg, planner.FillDeltas(serverNotes()))
	require.NoError(t, err)
	want, err := p.GenerateMultiple(2)
	require.NoError(t, err)
	for i := range want {
		assert.Equal(t, want[i].Directions(), got.Solutions[i].Directions())
	}
}

func TestServerPlanBadRequests(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"no notes", PlanRequest{}},
		{"unknown preset", PlanRequest{Preset: "nope", Notes: serverNotes()}},
		{"not json", "{"},
		{"invalid note time", PlanRequest{Notes: []planner.NoteEvent{{Time: -1, Delta: 0.5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/plan", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestServerPositions(t *testing.T) {
	plan, _ := testPlan(t)
	h := newTestServer(t)

	times := []float64{-1, 0.1, 0.8, 100}
	rec := doJSON(t, h, http.MethodPost, "/api/positions", PositionRequest{Solution: plan, Times: times})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Positions []playback.Position `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Positions, len(times))
	for i, tm := range times {
		want := playback.PositionAt(plan, tm)
		assert.Equal(t, want.SegmentIndex, body.Positions[i].SegmentIndex)
		assert.InDelta(t, want.Pos.X, body.Positions[i].Pos.X, 1e-9)
		assert.InDelta(t, want.Pos.Y, body.Positions[i].Pos.Y, 1e-9)
	}
}

func TestPlanErrorResponse(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&planner.UnsolvableSequenceError{Notes: 6, Deepest: 2}, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: speed", planner.ErrInvalidConfig), http.StatusBadRequest},
		{fmt.Errorf("segment 3: %w", geom.ErrInvalidSegment), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, body := planErrorResponse(tt.err)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, body["error"])
		})
	}

	_, body := planErrorResponse(&planner.UnsolvableSequenceError{Notes: 6, Deepest: 2})
	assert.Equal(t, 2, body["deepest"])
	assert.Equal(t, 6, body["notes"])
}
