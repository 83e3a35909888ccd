// Package geom holds the 2D primitives used by the planner: vectors, convex
// polygons and a separating axis intersection test.
package geom

import "math"

// Vec2 is a point or direction in the abstract drawing plane.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// V is shorthand for Vec2{x, y}.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{v.X * f, v.Y * f}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Len returns the euclidean length.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns the unit vector; the zero vector stays zero.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Perp rotates v by 90 degrees counter-clockwise.
func (v Vec2) Perp() Vec2 {
	return Vec2{-v.Y, v.X}
}

// Lerp interpolates from v to o, u in [0,1].
func (v Vec2) Lerp(o Vec2, u float64) Vec2 {
	return Vec2{v.X + (o.X-v.X)*u, v.Y + (o.Y-v.Y)*u}
}

// Equal reports exact equality.
func (v Vec2) Equal(o Vec2) bool {
	return v.X == o.X && v.Y == o.Y
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min Vec2 `json:"min" yaml:"min"`
	Max Vec2 `json:"max" yaml:"max"`
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the middle of the box.
func (r Rect) Center() Vec2 {
	return r.Min.Lerp(r.Max, 0.5)
}

// Expand grows the box by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		Min: Vec2{r.Min.X - margin, r.Min.Y - margin},
		Max: Vec2{r.Max.X + margin, r.Max.Y + margin},
	}
}

// BoundsOf returns the smallest box containing all points. ok is false for
// an empty input.
func BoundsOf(points []Vec2) (r Rect, ok bool) {
	if len(points) == 0 {
		return Rect{}, false
	}
	r = Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r, true
}
