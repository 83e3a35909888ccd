package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"rhythmpath/geom"
	"rhythmpath/trajectory"
)

var segs = []trajectory.Segment{
	{StartTime: 0, EndTime: 1, StartPos: geom.V(0, 0), EndPos: geom.V(10, 10)},
	{StartTime: 1, EndTime: 1, StartPos: geom.V(10, 10), EndPos: geom.V(20, 0)},
	{StartTime: 1, EndTime: 3, StartPos: geom.V(20, 0), EndPos: geom.V(0, 20)},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		t     float64
		index int
		local float64
		pos   geom.Vec2
	}{
		{"before start", -5, 0, 0, geom.V(0, 0)},
		{"at start", 0, 0, 0, geom.V(0, 0)},
		{"midway first", 0.5, 0, 0.5, geom.V(5, 5)},
		{"boundary skips zero length", 1, 2, 0, geom.V(20, 0)},
		{"quarter of last", 1.5, 2, 0.25, geom.V(15, 5)},
		{"at end", 3, 2, 1, geom.V(0, 20)},
		{"after end", math.Inf(1), 2, 1, geom.V(0, 20)},
		{"nan", math.NaN(), 0, 0, geom.V(0, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Resolve(segs, tc.t)
			assert.Equal(t, tc.index, p.SegmentIndex)
			assert.InDelta(t, tc.local, p.LocalT, 1e-12)
			assert.InDelta(t, tc.pos.X, p.Pos.X, 1e-9)
			assert.InDelta(t, tc.pos.Y, p.Pos.Y, 1e-9)
		})
	}
}

func TestResolveEmpty(t *testing.T) {
	assert.Equal(t, Position{SegmentIndex: -1}, Resolve(nil, 1))
}

func TestResolveAllZeroDuration(t *testing.T) {
	s := []trajectory.Segment{
		{StartPos: geom.V(0, 0), EndPos: geom.V(3, 3)},
		{StartPos: geom.V(3, 3), EndPos: geom.V(6, 0)},
	}
	for _, tm := range []float64{0, 0.1} {
		p := Resolve(s, tm)
		assert.Equal(t, 1, p.SegmentIndex)
		assert.Equal(t, geom.V(6, 0), p.Pos)
		assert.Equal(t, 1.0, p.LocalT)
	}

	p := Resolve(s, -1)
	assert.Equal(t, 0, p.SegmentIndex)
	assert.Equal(t, geom.V(0, 0), p.Pos)
}

func TestResolveLeadingZeroDuration(t *testing.T) {
	// First note at time 0: the opening leg takes no time.
	p1 := geom.V(28.28, 28.28)
	s := []trajectory.Segment{
		{StartTime: 0, EndTime: 0, StartPos: geom.V(0, 0), EndPos: p1},
		{StartTime: 0, EndTime: 0.5, StartPos: p1, EndPos: geom.V(98.99, -42.42)},
	}

	at0 := Resolve(s, 0)
	assert.Equal(t, 1, at0.SegmentIndex)
	assert.Equal(t, 0.0, at0.LocalT)
	assert.Equal(t, p1, at0.Pos)

	after := Resolve(s, 1e-12)
	assert.Equal(t, 1, after.SegmentIndex)
	assert.InDelta(t, p1.X, after.Pos.X, 1e-6)
	assert.InDelta(t, p1.Y, after.Pos.Y, 1e-6)

	before := Resolve(s, -0.1)
	assert.Equal(t, 0, before.SegmentIndex)
	assert.Equal(t, geom.V(0, 0), before.Pos)
}

func TestResolveIsPure(t *testing.T) {
	assert.Equal(t, Resolve(segs, 2.2), Resolve(segs, 2.2))
}

func TestPositionAt(t *testing.T) {
	empty := trajectory.PlanResult{Path: []geom.Vec2{geom.V(4, 2)}}
	p := PositionAt(empty, 10)
	assert.Equal(t, geom.V(4, 2), p.Pos)
	assert.Equal(t, -1, p.SegmentIndex)

	full := trajectory.PlanResult{
		Path:     []geom.Vec2{geom.V(0, 0), geom.V(10, 10), geom.V(20, 0), geom.V(0, 20)},
		Segments: segs,
	}
	assert.Equal(t, Resolve(segs, 0.5), PositionAt(full, 0.5))
}

func TestActiveWalls(t *testing.T) {
	r := trajectory.PlanResult{Walls: []trajectory.Wall{
		{HitTime: 1}, {HitTime: 1.2}, {HitTime: 3},
	}}
	assert.Equal(t, []int{0, 1}, ActiveWalls(r, 1.25, 0.3))
	assert.Equal(t, []int{1}, ActiveWalls(r, 1.4, 0.3))
	assert.Nil(t, ActiveWalls(r, 0.5, 0.3))
}
