package planner

import (
	"errors"
	"fmt"
	"math"

	"rhythmpath/geom"
)

// ErrInvalidConfig wraps every configuration or note validation failure.
var ErrInvalidConfig = errors.New("invalid planner config")

// Heading is the sign pair of diagonal travel. Each component is +1 or -1;
// the zero Heading means "pick one at random".
type Heading struct {
	DX int `json:"dx" yaml:"dx"`
	DY int `json:"dy" yaml:"dy"`
}

// IsZero reports whether no heading was set.
func (h Heading) IsZero() bool {
	return h.DX == 0 && h.DY == 0
}

func (h Heading) valid() bool {
	return (h.DX == 1 || h.DX == -1) && (h.DY == 1 || h.DY == -1)
}

// reflect flips dx off a vertical wall and dy off a horizontal one.
func (h Heading) reflect(axis Direction) Heading {
	switch axis {
	case Vertical:
		h.DX = -h.DX
	case Horizontal:
		h.DY = -h.DY
	}
	return h
}

// headings lists the four diagonals in the order the initial pick uses.
var headings = [4]Heading{
	{DX: 1, DY: 1},
	{DX: 1, DY: -1},
	{DX: -1, DY: -1},
	{DX: -1, DY: 1},
}

// Config holds the tuning constants of one planning run.
type Config struct {
	StartPos      geom.Vec2 `json:"startPos" yaml:"startPos"`
	Speed         float64   `json:"speed" yaml:"speed"`                 // units per second
	CharacterSize float64   `json:"characterSize" yaml:"characterSize"` // ball diameter
	WallThickness float64   `json:"wallThickness" yaml:"wallThickness"`
	WallLength    float64   `json:"wallLength" yaml:"wallLength"`
	PathWidth     float64   `json:"pathWidth" yaml:"pathWidth"`
	MinDistance   float64   `json:"minDistance" yaml:"minDistance"` // floor on leg length

	// Seed drives the default random source. Ignored when RandomFn is set.
	Seed int64 `json:"seed" yaml:"seed"`
	// RandomFn returns values in [0,1). Optional.
	RandomFn func() float64 `json:"-" yaml:"-"`
	// InitialHeading fixes the first leg's direction. Optional.
	InitialHeading Heading `json:"initialHeading" yaml:"initialHeading"`
}

// DefaultConfig derives the wall and corridor dimensions from the ball size:
// walls a quarter of the size thick and one size long, a corridor one size
// wide, and legs at least two sizes long.
func DefaultConfig(start geom.Vec2, speed, characterSize float64) Config {
	return Config{
		StartPos:      start,
		Speed:         speed,
		CharacterSize: characterSize,
		WallThickness: characterSize / 4,
		WallLength:    characterSize,
		PathWidth:     characterSize,
		MinDistance:   characterSize * 2,
	}
}

// wallOffset is the distance from the ball centre to the wall centre line.
func (c Config) wallOffset() float64 {
	return c.CharacterSize/2 + c.WallThickness/2
}

// Validate checks the structural preconditions of the config.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"startPos.x", c.StartPos.X},
		{"startPos.y", c.StartPos.Y},
		{"speed", c.Speed},
		{"characterSize", c.CharacterSize},
		{"wallThickness", c.WallThickness},
		{"wallLength", c.WallLength},
		{"pathWidth", c.PathWidth},
		{"minDistance", c.MinDistance},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidConfig, f.name, f.v)
		}
	}

	switch {
	case c.Speed <= 0:
		return fmt.Errorf("%w: speed must be > 0, got %g", ErrInvalidConfig, c.Speed)
	case c.CharacterSize <= 0:
		return fmt.Errorf("%w: characterSize must be > 0, got %g", ErrInvalidConfig, c.CharacterSize)
	case c.WallThickness <= 0:
		return fmt.Errorf("%w: wallThickness must be > 0, got %g", ErrInvalidConfig, c.WallThickness)
	case c.WallLength < c.WallThickness:
		return fmt.Errorf("%w: wallThickness %g exceeds wallLength %g", ErrInvalidConfig, c.WallThickness, c.WallLength)
	case c.PathWidth <= 0:
		return fmt.Errorf("%w: pathWidth must be > 0, got %g", ErrInvalidConfig, c.PathWidth)
	case c.MinDistance < 0:
		return fmt.Errorf("%w: minDistance must be >= 0, got %g", ErrInvalidConfig, c.MinDistance)
	case !c.InitialHeading.IsZero() && !c.InitialHeading.valid():
		return fmt.Errorf("%w: initialHeading must use ±1 components, got %+v", ErrInvalidConfig, c.InitialHeading)
	}
	return nil
}
