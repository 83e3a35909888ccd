// Package trajectory turns the planner's committed steps into the arrays
// consumed by rendering and playback.
package trajectory

import (
	"rhythmpath/geom"
)

// Wall is the reflective barrier placed at a bounce point.
type Wall struct {
	Start    geom.Vec2 `json:"start" yaml:"start"`
	End      geom.Vec2 `json:"end" yaml:"end"`
	HitColor string    `json:"hitColor" yaml:"hitColor"`
	Axis     string    `json:"axis" yaml:"axis"`       // "H" or "V"
	HitTime  float64   `json:"hitTime" yaml:"hitTime"` // seconds
}

// Vertical reports whether the wall runs along the y axis.
func (w Wall) Vertical() bool {
	return w.Start.X == w.End.X
}

// Segment is one timed leg of the trajectory.
type Segment struct {
	StartTime float64   `json:"startTime" yaml:"startTime"`
	EndTime   float64   `json:"endTime" yaml:"endTime"`
	StartPos  geom.Vec2 `json:"startPos" yaml:"startPos"`
	EndPos    geom.Vec2 `json:"endPos" yaml:"endPos"`
}

// Duration returns EndTime - StartTime.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// PlanResult is one complete trajectory. len(Path) == len(Walls)+1 ==
// len(Segments)+1.
type PlanResult struct {
	Path     []geom.Vec2 `json:"path" yaml:"path"`
	Walls    []Wall      `json:"walls" yaml:"walls"`
	Segments []Segment   `json:"segments" yaml:"segments"`
}

// Step is one committed bounce as recorded by the planner.
type Step struct {
	Index    int
	From, To geom.Vec2
	Axis     string
	Delta    float64 // seconds spent on the leg
	WallFrom geom.Vec2
	WallTo   geom.Vec2
}

// Materialize builds a PlanResult from the committed steps. midis holds the
// pitch of every note in the sequence, used for the colour centre; steps
// index into it.
func Materialize(start geom.Vec2, steps []Step, midis []int) PlanResult {
	center := CenterMidi(midis)

	res := PlanResult{
		Path:     make([]geom.Vec2, 0, len(steps)+1),
		Walls:    make([]Wall, 0, len(steps)),
		Segments: make([]Segment, 0, len(steps)),
	}
	res.Path = append(res.Path, start)

	t := 0.0
	for _, s := range steps {
		end := t + s.Delta
		midi := 60
		if s.Index >= 0 && s.Index < len(midis) {
			midi = midis[s.Index]
		}

		res.Path = append(res.Path, s.To)
		res.Segments = append(res.Segments, Segment{
			StartTime: t,
			EndTime:   end,
			StartPos:  s.From,
			EndPos:    s.To,
		})
		res.Walls = append(res.Walls, Wall{
			Start:    s.WallFrom,
			End:      s.WallTo,
			HitColor: HitColor(midi, center),
			Axis:     s.Axis,
			HitTime:  end,
		})
		t = end
	}
	return res
}

// Duration returns the end time of the last segment.
func (r PlanResult) Duration() float64 {
	if len(r.Segments) == 0 {
		return 0
	}
	return r.Segments[len(r.Segments)-1].EndTime
}

// Bounds returns the path bounding box grown by pad, the input for camera
// fitting.
func (r PlanResult) Bounds(pad float64) geom.Rect {
	b, _ := geom.BoundsOf(r.Path)
	return b.Expand(pad)
}

// Directions returns the reflection axis of every wall, for replaying the
// same trajectory later.
func (r PlanResult) Directions() []string {
	out := make([]string, len(r.Walls))
	for i, w := range r.Walls {
		out[i] = w.Axis
	}
	return out
}

// InitialHeading returns the sign pair of the first leg, or zeros for an
// empty plan. Together with Directions it reproduces the plan exactly.
func (r PlanResult) InitialHeading() (dx, dy int) {
	if len(r.Segments) == 0 {
		return 0, 0
	}
	d := r.Segments[0].EndPos.Sub(r.Segments[0].StartPos)
	return sign(d.X), sign(d.Y)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
