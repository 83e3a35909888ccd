package planner

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhythmpath/geom"
	"rhythmpath/trajectory"
)

func evenNotes(n int, delta float64) []NoteEvent {
	notes := make([]NoteEvent, n)
	for i := range notes {
		notes[i] = NoteEvent{
			Time:  float64(i+1) * delta,
			Delta: delta,
			Midi:  60 + i%12,
		}
	}
	return notes
}

func mustPlanner(t *testing.T, cfg Config, notes []NoteEvent) *Planner {
	t.Helper()
	p, err := New(cfg, notes)
	require.NoError(t, err)
	return p
}

// assertNoSelfIntersection rebuilds every polygon from the result and checks
// each wall against all other walls and every corridor against all walls
// except its own.
func assertNoSelfIntersection(t *testing.T, cfg Config, res trajectory.PlanResult) {
	t.Helper()
	walls := make([]geom.Polygon, len(res.Walls))
	for i, w := range res.Walls {
		p, err := geom.Corridor(w.Start, w.End, cfg.WallThickness)
		require.NoError(t, err)
		walls[i] = p
	}
	corridors := make([]geom.Polygon, len(res.Segments))
	for i, s := range res.Segments {
		p, err := geom.Corridor(s.StartPos, s.EndPos, cfg.PathWidth)
		require.NoError(t, err)
		corridors[i] = p
	}

	for i := range walls {
		for j := 0; j < i; j++ {
			assert.False(t, geom.Intersects(walls[j], walls[i]), "wall %d hits wall %d", i, j)
		}
	}
	for i := range corridors {
		for j := range walls {
			if i == j {
				continue
			}
			assert.False(t, geom.Intersects(walls[j], corridors[i]), "corridor %d hits wall %d", i, j)
		}
	}
}

func assertContiguous(t *testing.T, res trajectory.PlanResult) {
	t.Helper()
	require.NotEmpty(t, res.Segments)
	assert.Equal(t, 0.0, res.Segments[0].StartTime)
	for i := 0; i+1 < len(res.Segments); i++ {
		assert.Equal(t, res.Segments[i].EndTime, res.Segments[i+1].StartTime)
		assert.Equal(t, res.Segments[i].EndPos, res.Segments[i+1].StartPos)
	}
	for i, s := range res.Segments {
		assert.Equal(t, res.Path[i], s.StartPos)
		assert.Equal(t, res.Path[i+1], s.EndPos)
	}
}

func TestGenerateTwoNoteScenario(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	cfg.InitialHeading = Heading{DX: 1, DY: 1}
	require.Equal(t, 40.0, cfg.MinDistance)

	notes := []NoteEvent{
		{Time: 0, Delta: 0, Midi: 60},
		{Time: 0.5, Delta: 0.5, Midi: 64},
	}
	res, err := mustPlanner(t, cfg, notes).Generate()
	require.NoError(t, err)

	require.Len(t, res.Path, 3)
	require.Len(t, res.Walls, 2)
	require.Len(t, res.Segments, 2)

	// first leg: zero delta, floored to the minimum distance
	s0 := res.Segments[0]
	assert.Equal(t, 0.0, s0.StartTime)
	assert.Equal(t, 0.0, s0.EndTime)
	assert.Equal(t, geom.V(0, 0), s0.StartPos)
	d := 40 / math.Sqrt2
	assert.InDelta(t, d, s0.EndPos.X, 1e-9)
	assert.InDelta(t, d, s0.EndPos.Y, 1e-9)

	// second leg runs 0.5s at 200/s
	s1 := res.Segments[1]
	assert.Equal(t, 0.0, s1.StartTime)
	assert.Equal(t, 0.5, s1.EndTime)
	assert.InDelta(t, 100, s1.EndPos.Sub(s1.StartPos).Len(), 1e-9)

	// wall 0 is perpendicular to the reflected axis and offset past the ball
	w := res.Walls[0]
	off := cfg.CharacterSize/2 + cfg.WallThickness/2
	if w.Axis == string(Vertical) {
		assert.Equal(t, w.Start.X, w.End.X)
		assert.InDelta(t, d+off, w.Start.X, 1e-9)
		assert.InDelta(t, cfg.WallLength, w.End.Y-w.Start.Y, 1e-9)
	} else {
		assert.Equal(t, w.Start.Y, w.End.Y)
		assert.InDelta(t, d+off, w.Start.Y, 1e-9)
		assert.InDelta(t, cfg.WallLength, w.End.X-w.Start.X, 1e-9)
	}
	assertNoSelfIntersection(t, cfg, res)
}

func TestGenerateInvariants(t *testing.T) {
	cfg := DefaultConfig(geom.V(100, 100), 240, 16)
	cfg.Seed = 7

	notes := FillDeltas([]NoteEvent{
		{Time: 0.2, Midi: 60}, {Time: 0.45, Midi: 62}, {Time: 0.6, Midi: 64},
		{Time: 0.9, Midi: 65}, {Time: 1.0, Midi: 67}, {Time: 1.5, Midi: 69},
		{Time: 1.55, Midi: 71}, {Time: 1.8, Midi: 72}, {Time: 2.4, Midi: 71},
		{Time: 2.5, Midi: 69}, {Time: 2.75, Midi: 67}, {Time: 3.0, Midi: 65},
	})
	res, err := mustPlanner(t, cfg, notes).Generate()
	require.NoError(t, err)

	assert.Len(t, res.Path, len(notes)+1)
	assert.Len(t, res.Walls, len(notes))
	assert.Len(t, res.Segments, len(notes))
	assert.Equal(t, cfg.StartPos, res.Path[0])
	assertContiguous(t, res)
	assertNoSelfIntersection(t, cfg, res)
	assert.InDelta(t, 3.0, res.Duration(), 1e-9)

	for i, s := range res.Segments {
		want := math.Max(notes[i].Delta*cfg.Speed, cfg.MinDistance)
		assert.InDelta(t, want, s.EndPos.Sub(s.StartPos).Len(), 1e-9, "leg %d", i)
		assert.Equal(t, s.EndTime, res.Walls[i].HitTime)
	}
}

func TestReflectionRule(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	cfg.Seed = 3
	res, err := mustPlanner(t, cfg, evenNotes(10, 0.4)).Generate()
	require.NoError(t, err)

	sgn := func(v float64) float64 { return math.Copysign(1, v) }
	for i := 0; i+1 < len(res.Segments); i++ {
		a := res.Segments[i].EndPos.Sub(res.Segments[i].StartPos)
		b := res.Segments[i+1].EndPos.Sub(res.Segments[i+1].StartPos)
		switch res.Walls[i].Axis {
		case string(Vertical):
			assert.True(t, res.Walls[i].Vertical())
			assert.Equal(t, -sgn(a.X), sgn(b.X), "leg %d", i)
			assert.Equal(t, sgn(a.Y), sgn(b.Y), "leg %d", i)
		case string(Horizontal):
			assert.False(t, res.Walls[i].Vertical())
			assert.Equal(t, sgn(a.X), sgn(b.X), "leg %d", i)
			assert.Equal(t, -sgn(a.Y), sgn(b.Y), "leg %d", i)
		default:
			t.Fatalf("wall %d has axis %q", i, res.Walls[i].Axis)
		}
	}
}

func TestSeedDeterminism(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	cfg.Seed = 42
	notes := evenNotes(15, 0.3)

	p := mustPlanner(t, cfg, notes)
	a, err := p.Generate()
	require.NoError(t, err)
	b, err := p.Generate()
	require.NoError(t, err)
	assert.Equal(t, a, b, "same planner, same seed")

	c, err := mustPlanner(t, cfg, notes).Generate()
	require.NoError(t, err)
	assert.Equal(t, a, c, "fresh planner, same seed")
}

func TestReplayIsDeterministic(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	cfg.Seed = 11
	notes := evenNotes(12, 0.35)
	orig, err := mustPlanner(t, cfg, notes).Generate()
	require.NoError(t, err)

	replayNotes, err := AssignDirections(notes, orig.Directions())
	require.NoError(t, err)
	dx, dy := orig.InitialHeading()

	replayCfg := cfg
	replayCfg.InitialHeading = Heading{DX: dx, DY: dy}
	replayCfg.RandomFn = func() float64 {
		t.Fatal("replay must not draw random numbers")
		return 0
	}

	p := mustPlanner(t, replayCfg, replayNotes)
	a, err := p.Generate()
	require.NoError(t, err)
	b, err := p.Generate()
	require.NoError(t, err)

	assert.Equal(t, orig, a)
	assert.Equal(t, a, b)
}

func TestReplayConflictIsUnsolvable(t *testing.T) {
	cfg := Config{
		Speed: 200, CharacterSize: 20, WallThickness: 5, WallLength: 1000,
		PathWidth: 20, MinDistance: 10, InitialHeading: Heading{DX: 1, DY: 1},
	}
	// a long vertical wall followed by a long horizontal wall must cross
	notes := []NoteEvent{
		{Time: 0.01, Delta: 0.01, Midi: 60, Direction: Vertical},
		{Time: 0.02, Delta: 0.01, Midi: 62, Direction: Horizontal},
	}
	_, err := mustPlanner(t, cfg, notes).Generate()

	var unsolvable *UnsolvableSequenceError
	require.True(t, errors.As(err, &unsolvable))
	assert.True(t, unsolvable.Replay)
	assert.Equal(t, 1, unsolvable.Deepest)
	assert.ErrorIs(t, err, ErrUnsolvable)
}

func TestUnsolvableSequence(t *testing.T) {
	cfg := Config{
		Speed: 200, CharacterSize: 20, WallThickness: 5, WallLength: 1000,
		PathWidth: 20, MinDistance: 10,
	}
	notes := evenNotes(6, 0.01)

	for seed := int64(0); seed < 4; seed++ {
		cfg.Seed = seed
		sols, err := mustPlanner(t, cfg, notes).GenerateMultiple(3)
		assert.Nil(t, sols)

		var unsolvable *UnsolvableSequenceError
		require.True(t, errors.As(err, &unsolvable), "seed %d: %v", seed, err)
		assert.Equal(t, 6, unsolvable.Notes)
		assert.Equal(t, 2, unsolvable.Deepest)
		assert.False(t, unsolvable.Replay)
	}
}

func TestInvalidSegment(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	cfg.MinDistance = 0
	notes := []NoteEvent{{Time: 0, Delta: 0, Midi: 60}}

	_, err := mustPlanner(t, cfg, notes).Generate()
	assert.ErrorIs(t, err, geom.ErrInvalidSegment)
	assert.NotErrorIs(t, err, ErrUnsolvable)
}

func TestGenerateMultipleDistinct(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	cfg.Seed = 5
	notes := evenNotes(6, 0.5)

	sols, err := mustPlanner(t, cfg, notes).GenerateMultiple(3)
	require.NoError(t, err)
	require.Len(t, sols, 3)

	for i := range sols {
		assertContiguous(t, sols[i])
		assertNoSelfIntersection(t, cfg, sols[i])
		for j := 0; j < i; j++ {
			assert.NotEqual(t, sols[i].Directions(), sols[j].Directions())
		}
	}
}

func TestGenerateMultipleSolutionsAreIndependent(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	sols, err := mustPlanner(t, cfg, evenNotes(4, 0.5)).GenerateMultiple(2)
	require.NoError(t, err)
	require.Len(t, sols, 2)

	before := sols[1].Path[1]
	sols[0].Path[1] = geom.V(-1e9, -1e9)
	assert.Equal(t, before, sols[1].Path[1])
}

func TestEmptySequence(t *testing.T) {
	cfg := DefaultConfig(geom.V(5, 6), 200, 20)
	res, err := mustPlanner(t, cfg, nil).Generate()
	require.NoError(t, err)
	assert.Equal(t, []geom.Vec2{geom.V(5, 6)}, res.Path)
	assert.Empty(t, res.Walls)
	assert.Empty(t, res.Segments)
}

func TestGenerateContextCancelled(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mustPlanner(t, cfg, evenNotes(5, 0.5)).GenerateContext(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepCallback(t *testing.T) {
	cfg := DefaultConfig(geom.V(0, 0), 200, 20)
	notes := evenNotes(8, 0.4)
	p := mustPlanner(t, cfg, notes)

	var steps []trajectory.Step
	p.SetStepCallback(func(s trajectory.Step) { steps = append(steps, s) })
	res, err := p.Generate()
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(steps), len(notes))
	last := steps[len(steps)-1]
	assert.Equal(t, len(notes)-1, last.Index)
	assert.Equal(t, res.Path[len(res.Path)-1], last.To)
}

func TestNewValidation(t *testing.T) {
	good := DefaultConfig(geom.V(0, 0), 200, 20)
	tests := []struct {
		name  string
		mut   func(*Config)
		notes []NoteEvent
	}{
		{"zero speed", func(c *Config) { c.Speed = 0 }, nil},
		{"negative size", func(c *Config) { c.CharacterSize = -1 }, nil},
		{"thick walls", func(c *Config) { c.WallThickness = c.WallLength + 1 }, nil},
		{"zero path", func(c *Config) { c.PathWidth = 0 }, nil},
		{"negative min", func(c *Config) { c.MinDistance = -1 }, nil},
		{"nan start", func(c *Config) { c.StartPos.X = math.NaN() }, nil},
		{"bad heading", func(c *Config) { c.InitialHeading = Heading{DX: 2, DY: 1} }, nil},
		{"midi range", nil, []NoteEvent{{Time: 0, Delta: 0, Midi: 128}}},
		{"negative delta", nil, []NoteEvent{{Time: 1, Delta: -1, Midi: 60}}},
		{"bad direction", nil, []NoteEvent{{Time: 1, Delta: 1, Midi: 60, Direction: "X"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := good
			if tc.mut != nil {
				tc.mut(&cfg)
			}
			_, err := New(cfg, tc.notes)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(good, evenNotes(3, 0.2))
	assert.NoError(t, err)
}

func TestFillDeltas(t *testing.T) {
	in := []NoteEvent{{Time: 0.5}, {Time: 0.75}, {Time: 0.75}, {Time: 2}}
	out := FillDeltas(in)
	assert.Equal(t, []float64{0.5, 0.25, 0, 1.25}, []float64{out[0].Delta, out[1].Delta, out[2].Delta, out[3].Delta})
	assert.Zero(t, in[1].Delta, "input is not modified")
}

func TestAssignDirections(t *testing.T) {
	notes := evenNotes(2, 0.5)
	out, err := AssignDirections(notes, []string{"H", "V"})
	require.NoError(t, err)
	assert.Equal(t, Horizontal, out[0].Direction)
	assert.Equal(t, Vertical, out[1].Direction)
	assert.Equal(t, Auto, notes[0].Direction)

	_, err = AssignDirections(notes, []string{"H"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = AssignDirections(notes, []string{"H", "Q"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
