package planner

import (
	"fmt"
	"math"
)

// Direction is the reflection axis of a bounce.
type Direction string

const (
	// Auto lets the planner search both axes.
	Auto Direction = ""
	// Horizontal walls reverse vertical travel.
	Horizontal Direction = "H"
	// Vertical walls reverse horizontal travel.
	Vertical Direction = "V"
)

func (d Direction) other() Direction {
	if d == Horizontal {
		return Vertical
	}
	return Horizontal
}

func (d Direction) valid() bool {
	return d == Auto || d == Horizontal || d == Vertical
}

// NoteEvent is one onset the ball must bounce on.
type NoteEvent struct {
	Time      float64   `json:"time" yaml:"time"`   // absolute onset, seconds
	Delta     float64   `json:"delta" yaml:"delta"` // since previous onset (from 0 for the first)
	Midi      int       `json:"midi" yaml:"midi"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// FillDeltas returns a copy of notes with Delta recomputed from Time.
// Notes are expected in ascending time order; they are not re-sorted.
func FillDeltas(notes []NoteEvent) []NoteEvent {
	out := make([]NoteEvent, len(notes))
	prev := 0.0
	for i, n := range notes {
		n.Delta = math.Max(0, n.Time-prev)
		out[i] = n
		prev = n.Time
	}
	return out
}

// AssignDirections returns a copy of notes with the given axes attached, for
// replaying a stored trajectory. dirs must have one entry per note.
func AssignDirections(notes []NoteEvent, dirs []string) ([]NoteEvent, error) {
	if len(dirs) != len(notes) {
		return nil, fmt.Errorf("%w: %d directions for %d notes", ErrInvalidConfig, len(dirs), len(notes))
	}
	out := make([]NoteEvent, len(notes))
	for i, n := range notes {
		n.Direction = Direction(dirs[i])
		if !n.Direction.valid() {
			return nil, fmt.Errorf("%w: note %d: direction %q", ErrInvalidConfig, i, dirs[i])
		}
		out[i] = n
	}
	return out, nil
}

func validateNotes(notes []NoteEvent) error {
	for i, n := range notes {
		switch {
		case math.IsNaN(n.Time) || math.IsInf(n.Time, 0) || n.Time < 0:
			return fmt.Errorf("%w: note %d: time %v", ErrInvalidConfig, i, n.Time)
		case math.IsNaN(n.Delta) || math.IsInf(n.Delta, 0) || n.Delta < 0:
			return fmt.Errorf("%w: note %d: delta %v", ErrInvalidConfig, i, n.Delta)
		case n.Midi < 0 || n.Midi > 127:
			return fmt.Errorf("%w: note %d: midi %d out of range", ErrInvalidConfig, i, n.Midi)
		case !n.Direction.valid():
			return fmt.Errorf("%w: note %d: direction %q", ErrInvalidConfig, i, n.Direction)
		}
	}
	return nil
}
