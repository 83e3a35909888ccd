package planner

import (
	"errors"
	"fmt"
)

// ErrUnsolvable matches any *UnsolvableSequenceError with errors.Is.
var ErrUnsolvable = errors.New("no valid trajectory")

// UnsolvableSequenceError is returned when the search space is exhausted
// without placing every note.
type UnsolvableSequenceError struct {
	Notes   int // length of the sequence
	Deepest int // most notes ever placed on one branch
	Replay  bool
}

func (e *UnsolvableSequenceError) Error() string {
	if e.Replay {
		return fmt.Sprintf("no valid trajectory: assigned directions collide after %d of %d notes", e.Deepest, e.Notes)
	}
	return fmt.Sprintf("no valid trajectory: placed at most %d of %d notes", e.Deepest, e.Notes)
}

func (e *UnsolvableSequenceError) Is(target error) bool {
	return target == ErrUnsolvable
}
