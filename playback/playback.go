// Package playback maps a clock time onto the ball position of a planned
// trajectory.
package playback

import (
	"math"
	"sort"

	"rhythmpath/geom"
	"rhythmpath/trajectory"
)

// Position is where the ball is at some time.
type Position struct {
	Pos          geom.Vec2 `json:"pos"`
	SegmentIndex int       `json:"segmentIndex"` // -1 when there are no segments
	LocalT       float64   `json:"localT"`       // progress through the segment, 0..1
}

// Resolve finds the ball position at time t: the segment with
// StartTime <= t < EndTime. segments must be contiguous and ordered by time,
// as produced by trajectory.Materialize. Times before the first segment (and
// NaN) clamp to its start, times at or after the last end clamp to its end.
// Zero-duration segments never match, so a leading one is skipped at t == 0.
func Resolve(segments []trajectory.Segment, t float64) Position {
	if len(segments) == 0 {
		return Position{SegmentIndex: -1}
	}
	first := segments[0]
	if math.IsNaN(t) || t < first.StartTime {
		return Position{Pos: first.StartPos, SegmentIndex: 0}
	}

	i := sort.Search(len(segments), func(i int) bool {
		return segments[i].EndTime > t
	})
	if i == len(segments) {
		last := len(segments) - 1
		return Position{Pos: segments[last].EndPos, SegmentIndex: last, LocalT: 1}
	}

	s := segments[i]
	local := 0.0
	if d := s.Duration(); d > 0 {
		local = (t - s.StartTime) / d
	}
	local = min(max(local, 0), 1)
	return Position{
		Pos:          s.StartPos.Lerp(s.EndPos, local),
		SegmentIndex: i,
		LocalT:       local,
	}
}

// PositionAt is Resolve over a whole plan. A plan without segments holds
// the ball at its start point.
func PositionAt(r trajectory.PlanResult, t float64) Position {
	if len(r.Segments) == 0 {
		p := Position{SegmentIndex: -1}
		if len(r.Path) > 0 {
			p.Pos = r.Path[0]
		}
		return p
	}
	return Resolve(r.Segments, t)
}

// ActiveWalls returns the indices of walls hit within window seconds before
// t, most recent last. The renderer uses it for the hit glow.
func ActiveWalls(r trajectory.PlanResult, t, window float64) []int {
	var out []int
	for i, w := range r.Walls {
		if w.HitTime <= t && t-w.HitTime < window {
			out = append(out, i)
		}
	}
	return out
}
