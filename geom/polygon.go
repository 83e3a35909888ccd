package geom

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon is the penetration depth below which two polygons are treated as
// merely touching.
const Epsilon = 0.1

// ErrInvalidSegment is returned when a polygon is requested for a
// zero-length segment or a non-positive width.
var ErrInvalidSegment = errors.New("invalid segment")

// Polygon is an immutable convex polygon. The zero value has no points and
// never intersects anything.
type Polygon struct {
	points []Vec2
}

// NewPolygon copies points into a new polygon. Points must describe a convex
// outline in either winding order.
func NewPolygon(points ...Vec2) Polygon {
	pts := make([]Vec2, len(points))
	copy(pts, points)
	return Polygon{points: pts}
}

// Corridor returns the rectangle of the given width centred on p1->p2.
func Corridor(p1, p2 Vec2, width float64) (Polygon, error) {
	d := p2.Sub(p1)
	if d.Len() == 0 {
		return Polygon{}, fmt.Errorf("%w: zero length at (%g, %g)", ErrInvalidSegment, p1.X, p1.Y)
	}
	if !(width > 0) {
		return Polygon{}, fmt.Errorf("%w: width %g", ErrInvalidSegment, width)
	}

	n := d.Normalize().Perp().Scale(width / 2)
	return NewPolygon(
		p1.Add(n),
		p1.Sub(n),
		p2.Sub(n),
		p2.Add(n),
	), nil
}

// Points returns a copy of the vertices.
func (p Polygon) Points() []Vec2 {
	out := make([]Vec2, len(p.points))
	copy(out, p.points)
	return out
}

// Len returns the vertex count.
func (p Polygon) Len() int {
	return len(p.points)
}

// Bounds returns the axis-aligned box of the polygon.
func (p Polygon) Bounds() Rect {
	r, _ := BoundsOf(p.points)
	return r
}

// Contains reports whether q lies inside or on the polygon.
func (p Polygon) Contains(q Vec2) bool {
	if len(p.points) < 3 {
		return false
	}
	sign := 0.0
	for i := range p.points {
		a := p.points[i]
		b := p.points[(i+1)%len(p.points)]
		cross := (b.X-a.X)*(q.Y-a.Y) - (b.Y-a.Y)*(q.X-a.X)
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

// normals returns the unit edge normals.
func (p Polygon) normals() []Vec2 {
	out := make([]Vec2, 0, len(p.points))
	for i := range p.points {
		edge := p.points[(i+1)%len(p.points)].Sub(p.points[i])
		if n := edge.Perp().Normalize(); n.Len() != 0 {
			out = append(out, n)
		}
	}
	return out
}

func (p Polygon) project(axis Vec2) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, pt := range p.points {
		d := pt.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// Overlap runs the separating axis test over the edge normals of both
// polygons. It returns false when some axis separates them; otherwise the
// smallest penetration depth over all axes.
func Overlap(a, b Polygon) (float64, bool) {
	if a.Len() == 0 || b.Len() == 0 {
		return 0, false
	}

	depth := math.Inf(1)
	for _, axes := range [2][]Vec2{a.normals(), b.normals()} {
		for _, axis := range axes {
			aMin, aMax := a.project(axis)
			bMin, bMax := b.project(axis)
			if aMin > bMax || bMin > aMax {
				return 0, false
			}
			depth = math.Min(depth, axisOverlap(aMin, aMax, bMin, bMax))
		}
	}
	return depth, true
}

// axisOverlap measures penetration along one axis. When one range contains
// the other, the shorter way out is taken.
func axisOverlap(aMin, aMax, bMin, bMax float64) float64 {
	if aMin < bMin {
		if aMax < bMax {
			return aMax - bMin
		}
	} else if aMax > bMax {
		return bMax - aMin
	}
	return math.Min(aMax-bMin, bMax-aMin)
}

// Intersects reports whether a and b overlap by more than Epsilon.
func Intersects(a, b Polygon) bool {
	depth, hit := Overlap(a, b)
	return hit && depth > Epsilon
}
