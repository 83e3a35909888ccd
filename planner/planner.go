// Package planner searches for a bouncing-ball trajectory in which every
// note lands on a wall and no leg or wall runs through earlier geometry.
//
// The search is a depth-first backtrack over the reflection axis of each
// bounce. Every stack frame records the commit that created it, so undoing a
// frame is a single pop of the frame and of the collision index.
package planner

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/charmbracelet/log"

	"rhythmpath/collide"
	"rhythmpath/geom"
	"rhythmpath/trajectory"
)

// ctx.Err is polled every ctxCheckInterval search iterations.
const ctxCheckInterval = 256

// Planner plans trajectories for one note sequence and config. A Planner
// holds no search state between calls; each Generate call owns its own
// stack, collision index and, unless Config.RandomFn is set, a random
// source seeded from Config.Seed.
type Planner struct {
	cfg    Config
	notes  []NoteEvent
	midis  []int
	replay bool // every note carries a direction

	onStep func(trajectory.Step)
	logger *log.Logger
}

// frame is one entry of the search stack: the note it is trying to place,
// where the ball is, and which axes were already tried from here.
type frame struct {
	index   int
	pos     geom.Vec2
	heading Heading
	tried   [2]Direction
	nTried  int
	commit  *commit // nil for the root frame
}

// commit is an accepted bounce; popping its frame undoes exactly this.
type commit struct {
	step     trajectory.Step
	corridor geom.Polygon
	wall     geom.Polygon
}

// New validates cfg and notes and returns a planner for them. The notes
// slice is copied.
func New(cfg Config, notes []NoteEvent) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	p := &Planner{
		cfg:    cfg,
		notes:  make([]NoteEvent, len(notes)),
		midis:  make([]int, len(notes)),
		replay: len(notes) > 0,
	}
	copy(p.notes, notes)
	for i, n := range notes {
		p.midis[i] = n.Midi
		if n.Direction == Auto {
			p.replay = false
		}
	}
	return p, nil
}

// SetStepCallback registers fn to be called after every accepted bounce,
// including ones later undone by backtracking.
func (p *Planner) SetStepCallback(fn func(trajectory.Step)) {
	p.onStep = fn
}

// SetLogger enables debug logging of commits, rejections and backtracks.
func (p *Planner) SetLogger(l *log.Logger) {
	p.logger = l
}

// Generate returns the first valid trajectory.
func (p *Planner) Generate() (trajectory.PlanResult, error) {
	sols, err := p.GenerateMultiple(1)
	if err != nil {
		return trajectory.PlanResult{}, err
	}
	return sols[0], nil
}

// GenerateMultiple returns up to maxSolutions distinct trajectories.
func (p *Planner) GenerateMultiple(maxSolutions int) ([]trajectory.PlanResult, error) {
	return p.GenerateContext(context.Background(), maxSolutions)
}

// GenerateContext is GenerateMultiple with cancellation. The search returns
// ctx.Err() once ctx is done.
func (p *Planner) GenerateContext(ctx context.Context, maxSolutions int) ([]trajectory.PlanResult, error) {
	if maxSolutions < 1 {
		maxSolutions = 1
	}
	if p.cfg.PathWidth > p.cfg.WallLength {
		p.warn("path width exceeds wall length, corridors will overrun walls",
			"pathWidth", p.cfg.PathWidth, "wallLength", p.cfg.WallLength)
	}

	random := p.cfg.RandomFn
	if random == nil {
		random = rand.New(rand.NewSource(p.cfg.Seed)).Float64
	}

	var (
		index     collide.Index
		solutions []trajectory.PlanResult
		deepest   int
	)
	stack := []*frame{{
		index:   0,
		pos:     p.cfg.StartPos,
		heading: p.initialHeading(random),
	}}

	pop := func() {
		top := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		stack = stack[:len(stack)-1]
		if top.commit != nil {
			index.PopLast()
		}
	}

	for iter := 0; len(stack) > 0; iter++ {
		if iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		top := stack[len(stack)-1]
		if top.index >= len(p.notes) {
			solutions = append(solutions, p.materialize(stack))
			p.debug("solution", "n", len(solutions))
			if len(solutions) >= maxSolutions {
				break
			}
			pop()
			continue
		}

		axis, ok := p.nextAxis(top, random)
		if !ok {
			p.debug("backtrack", "note", top.index)
			pop()
			continue
		}
		top.tried[top.nTried] = axis
		top.nTried++

		c, err := p.candidate(top, axis)
		if err != nil {
			return nil, err
		}
		if err := index.Admits(c.corridor, c.wall); err != nil {
			p.debug("reject", "note", top.index, "axis", axis, "reason", err)
			continue
		}

		index.PushCorridor(c.corridor)
		index.PushWall(c.wall)
		child := &frame{
			index:   top.index + 1,
			pos:     c.step.To,
			heading: top.heading.reflect(axis),
			commit:  c,
		}
		stack = append(stack, child)
		deepest = max(deepest, child.index)

		if p.onStep != nil {
			p.onStep(c.step)
		}
	}

	if len(solutions) == 0 {
		return nil, &UnsolvableSequenceError{Notes: len(p.notes), Deepest: deepest, Replay: p.replay}
	}
	return solutions, nil
}

func (p *Planner) initialHeading(random func() float64) Heading {
	if !p.cfg.InitialHeading.IsZero() {
		return p.cfg.InitialHeading
	}
	i := int(random() * float64(len(headings)))
	return headings[min(max(i, 0), len(headings)-1)]
}

// nextAxis picks the next reflection axis to try from f. A note with an
// assigned direction allows exactly that one; otherwise the first pick is
// random and the retry takes the other axis.
func (p *Planner) nextAxis(f *frame, random func() float64) (Direction, bool) {
	if d := p.notes[f.index].Direction; d != Auto {
		return d, f.nTried == 0
	}
	switch f.nTried {
	case 0:
		if random() > 0.5 {
			return Horizontal, true
		}
		return Vertical, true
	case 1:
		return f.tried[0].other(), true
	}
	return Auto, false
}

// candidate computes the leg, wall and polygons for bouncing off axis at the
// end of f's next leg.
func (p *Planner) candidate(f *frame, axis Direction) (*commit, error) {
	note := p.notes[f.index]
	dist := math.Max(note.Delta*p.cfg.Speed, p.cfg.MinDistance)
	step := dist / math.Sqrt2

	dx, dy := float64(f.heading.DX), float64(f.heading.DY)
	next := f.pos.Add(geom.V(dx*step, dy*step))

	// the wall sits past the ball along the incoming direction
	off := p.cfg.wallOffset()
	half := p.cfg.WallLength / 2
	var wa, wb geom.Vec2
	if axis == Vertical {
		x := next.X + dx*off
		wa, wb = geom.V(x, next.Y-half), geom.V(x, next.Y+half)
	} else {
		y := next.Y + dy*off
		wa, wb = geom.V(next.X-half, y), geom.V(next.X+half, y)
	}

	corridor, err := geom.Corridor(f.pos, next, p.cfg.PathWidth)
	if err != nil {
		return nil, fmt.Errorf("note %d: leg: %w", f.index, err)
	}
	wall, err := geom.Corridor(wa, wb, p.cfg.WallThickness)
	if err != nil {
		return nil, fmt.Errorf("note %d: wall: %w", f.index, err)
	}

	return &commit{
		step: trajectory.Step{
			Index:    f.index,
			From:     f.pos,
			To:       next,
			Axis:     string(axis),
			Delta:    note.Delta,
			WallFrom: wa,
			WallTo:   wb,
		},
		corridor: corridor,
		wall:     wall,
	}, nil
}

func (p *Planner) materialize(stack []*frame) trajectory.PlanResult {
	steps := make([]trajectory.Step, 0, len(stack)-1)
	for _, f := range stack[1:] {
		steps = append(steps, f.commit.step)
	}
	return trajectory.Materialize(p.cfg.StartPos, steps, p.midis)
}

func (p *Planner) debug(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, kv...)
	}
}

func (p *Planner) warn(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, kv...)
	}
}
