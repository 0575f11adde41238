// Package hexcoord implements axial hex-grid coordinate math: distance,
// neighbor directions, and key encoding shared by the RBAC adjacency model
// and the board data model.
package hexcoord

import "fmt"

// Coord is an axial hex coordinate (q, r).
type Coord struct {
	Q int
	R int
}

// Key returns the canonical string key for a coordinate, used to index
// hex cells and as the wire representation of a hex id.
func (c Coord) Key() string {
	return fmt.Sprintf("%d,%d", c.Q, c.R)
}

func (c Coord) Add(d Coord) Coord {
	return Coord{Q: c.Q + d.Q, R: c.R + d.R}
}

// Direction labels, in the fixed tie-break order used by RBAC zone
// evaluation.
type Direction string

const (
	DirE  Direction = "E"
	DirNE Direction = "NE"
	DirNW Direction = "NW"
	DirW  Direction = "W"
	DirSW Direction = "SW"
	DirSE Direction = "SE"
)

// OrderedDirections is the fixed tie-break order: E, NE, NW, W, SW, SE.
var OrderedDirections = []Direction{DirE, DirNE, DirNW, DirW, DirSW, DirSE}

// neighborOffsets maps each direction to its axial offset.
var neighborOffsets = map[Direction]Coord{
	DirE:  {Q: 1, R: 0},
	DirNE: {Q: 1, R: -1},
	DirNW: {Q: 0, R: -1},
	DirW:  {Q: -1, R: 0},
	DirSW: {Q: -1, R: 1},
	DirSE: {Q: 0, R: 1},
}

// Neighbor returns the coordinate one step from c in direction d.
func Neighbor(c Coord, d Direction) Coord {
	return c.Add(neighborOffsets[d])
}

// Neighbors returns all six neighbors of c in OrderedDirections order.
func Neighbors(c Coord) []Coord {
	out := make([]Coord, 0, 6)
	for _, d := range OrderedDirections {
		out = append(out, Neighbor(c, d))
	}
	return out
}

// Distance computes the cubic hex metric between two axial coordinates:
// (|dq| + |dr| + |dq+dr|) / 2.
func Distance(a, b Coord) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	return (abs(dq) + abs(dr) + abs(dq+dr)) / 2
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DirectionTo returns the direction label from origin toward target when
// target is an immediate neighbor of origin (distance exactly 1), in the
// fixed OrderedDirections order. The second return value is false when
// target is not adjacent to origin.
func DirectionTo(origin, target Coord) (Direction, bool) {
	offset := Coord{Q: target.Q - origin.Q, R: target.R - origin.R}
	for _, d := range OrderedDirections {
		if neighborOffsets[d] == offset {
			return d, true
		}
	}
	return "", false
}

// StepToward returns the neighbor of origin that lies on a shortest path
// toward target, breaking ties using OrderedDirections. Used to resolve
// the RBAC zone direction when an agent is not an immediate neighbor of a
// tool (see the internal/rbac open-question note in DESIGN.md).
func StepToward(origin, target Coord) (Coord, Direction) {
	if origin == target {
		return origin, DirE
	}
	best := Neighbor(origin, OrderedDirections[0])
	bestDir := OrderedDirections[0]
	bestDist := Distance(best, target)
	for _, d := range OrderedDirections[1:] {
		n := Neighbor(origin, d)
		dist := Distance(n, target)
		if dist < bestDist {
			best = n
			bestDir = d
			bestDist = dist
		}
	}
	return best, bestDir
}

// ParseKey parses a canonical "q,r" key back into a Coord.
func ParseKey(key string) (Coord, error) {
	var c Coord
	_, err := fmt.Sscanf(key, "%d,%d", &c.Q, &c.R)
	if err != nil {
		return Coord{}, fmt.Errorf("hexcoord: invalid key %q: %w", key, err)
	}
	return c, nil
}
