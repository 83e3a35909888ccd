package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rhythmpath/planner"
	"rhythmpath/trajectory"
)

// NotesFile is the on-disk note sequence.
type NotesFile struct {
	Notes []planner.NoteEvent `json:"notes" yaml:"notes"`
}

// PlanFile is the on-disk output of the plan command.
type PlanFile struct {
	Preset    string                  `json:"preset" yaml:"preset"`
	Config    planner.Config          `json:"config" yaml:"config"`
	Notes     []planner.NoteEvent     `json:"notes" yaml:"notes"`
	Solutions []trajectory.PlanResult `json:"solutions" yaml:"solutions"`
}

// decodeFile reads JSON or YAML into v, chosen by the file extension.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported file type %q (use .json, .yaml or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// encodeFile writes v as JSON or YAML, chosen by the file extension.
func encodeFile(path string, v any) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(v, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported file type %q (use .json, .yaml or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// loadNotes reads a notes file. When no note carries a delta, deltas are
// derived from the onset times.
func loadNotes(path string) ([]planner.NoteEvent, error) {
	var f NotesFile
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	if len(f.Notes) == 0 {
		return nil, fmt.Errorf("%s contains no notes", path)
	}
	return withDeltas(f.Notes), nil
}

// withDeltas derives deltas from onset times when no note carries one.
func withDeltas(notes []planner.NoteEvent) []planner.NoteEvent {
	for _, n := range notes {
		if n.Delta != 0 {
			return notes
		}
	}
	return planner.FillDeltas(notes)
}

// loadPlan reads a file written by the plan command.
func loadPlan(path string) (PlanFile, error) {
	var f PlanFile
	if err := decodeFile(path, &f); err != nil {
		return f, err
	}
	if len(f.Solutions) == 0 {
		return f, fmt.Errorf("%s contains no solutions", path)
	}
	return f, nil
}

// replayInput rebuilds the config and notes that reproduce solution i of a
// stored plan without any random choice.
func replayInput(f PlanFile, i int) (planner.Config, []planner.NoteEvent, error) {
	if i < 0 || i >= len(f.Solutions) {
		return planner.Config{}, nil, fmt.Errorf("solution %d out of range (plan has %d)", i, len(f.Solutions))
	}
	if len(f.Notes) == 0 {
		return planner.Config{}, nil, fmt.Errorf("stored plan has no notes")
	}
	sol := f.Solutions[i]
	notes, err := planner.AssignDirections(f.Notes, sol.Directions())
	if err != nil {
		return planner.Config{}, nil, fmt.Errorf("stored plan does not match its notes: %w", err)
	}
	cfg := f.Config
	if dx, dy := sol.InitialHeading(); dx != 0 {
		cfg.InitialHeading = planner.Heading{DX: dx, DY: dy}
	}
	return cfg, notes, nil
}
