// Package collide keeps the corridors and walls committed so far and answers
// whether a candidate would hit any of them.
package collide

import (
	"fmt"

	"rhythmpath/geom"
)

// Kind selects which committed list a query scans.
type Kind uint8

const (
	Corridors Kind = iota
	Walls
)

func (k Kind) String() string {
	switch k {
	case Corridors:
		return "corridors"
	case Walls:
		return "walls"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Check names one of the three validations run by Admits.
type Check string

const (
	CorridorVsWall Check = "corridor-wall"
	WallVsWall     Check = "wall-wall"
	WallVsCorridor Check = "wall-corridor"
)

// Conflict is returned by Admits when a candidate hits committed geometry.
type Conflict struct {
	Check Check
	Index int // position of the committed polygon that was hit
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("collision: %s with #%d", c.Check, c.Index)
}

// Index is an append-only stack of committed polygons. The zero value is
// ready to use. It is not safe for concurrent use; each planning run owns
// its own Index.
type Index struct {
	corridors []geom.Polygon
	walls     []geom.Polygon
}

// PushCorridor commits a path corridor.
func (x *Index) PushCorridor(p geom.Polygon) {
	x.corridors = append(x.corridors, p)
}

// PushWall commits a wall.
func (x *Index) PushWall(p geom.Polygon) {
	x.walls = append(x.walls, p)
}

// PopLast drops the most recent corridor and the most recent wall.
func (x *Index) PopLast() {
	if n := len(x.corridors); n > 0 {
		x.corridors[n-1] = geom.Polygon{}
		x.corridors = x.corridors[:n-1]
	}
	if n := len(x.walls); n > 0 {
		x.walls[n-1] = geom.Polygon{}
		x.walls = x.walls[:n-1]
	}
}

// Len returns the number of committed corridors and walls.
func (x *Index) Len() (corridors, walls int) {
	return len(x.corridors), len(x.walls)
}

// WouldCollide reports whether candidate intersects any polygon of the
// given kind.
func (x *Index) WouldCollide(candidate geom.Polygon, against Kind) bool {
	return x.firstHit(candidate, against) >= 0
}

func (x *Index) firstHit(candidate geom.Polygon, against Kind) int {
	list := x.corridors
	if against == Walls {
		list = x.walls
	}
	for i, p := range list {
		if geom.Intersects(p, candidate) {
			return i
		}
	}
	return -1
}

// Admits runs the commit checks in order: the new corridor against walls,
// the new wall against walls, then the new wall against corridors. Corridors
// are never checked against each other; consecutive legs share an endpoint.
func (x *Index) Admits(corridor, wall geom.Polygon) error {
	if i := x.firstHit(corridor, Walls); i >= 0 {
		return &Conflict{Check: CorridorVsWall, Index: i}
	}
	if i := x.firstHit(wall, Walls); i >= 0 {
		return &Conflict{Check: WallVsWall, Index: i}
	}
	if i := x.firstHit(wall, Corridors); i >= 0 {
		return &Conflict{Check: WallVsCorridor, Index: i}
	}
	return nil
}
