package hexcoord

import "testing"

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b Coord
		want int
	}{
		{Coord{0, 0}, Coord{0, 0}, 0},
		{Coord{0, 0}, Coord{1, 0}, 1},
		{Coord{0, 0}, Coord{0, 1}, 1},
		{Coord{0, 0}, Coord{1, -1}, 1},
		{Coord{0, 0}, Coord{2, -1}, 2},
		{Coord{0, 0}, Coord{5, 0}, 5},
		{Coord{-2, 3}, Coord{2, -3}, Distance(Coord{-2, 3}, Coord{2, -3})},
	}
	for _, c := range cases {
		if got := Distance(c.a, c.b); got != c.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestRangeOneIsOnlyImmediateNeighbors(t *testing.T) {
	origin := Coord{0, 0}
	for _, n := range Neighbors(origin) {
		if Distance(origin, n) != 1 {
			t.Errorf("neighbor %v should be distance 1, got %d", n, Distance(origin, n))
		}
	}
	if Distance(origin, Coord{2, 0}) == 1 {
		t.Errorf("distance-2 hex should not be counted within range 1")
	}
}

func TestDirectionToNeighbors(t *testing.T) {
	origin := Coord{0, 0}
	for _, d := range OrderedDirections {
		n := Neighbor(origin, d)
		got, ok := DirectionTo(origin, n)
		if !ok || got != d {
			t.Errorf("DirectionTo(origin, %v) = (%v, %v), want (%v, true)", n, got, ok, d)
		}
	}
}

func TestDirectionToNonAdjacent(t *testing.T) {
	if _, ok := DirectionTo(Coord{0, 0}, Coord{3, 3}); ok {
		t.Error("expected non-adjacent hex to report ok=false")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	c := Coord{Q: -3, R: 7}
	parsed, err := ParseKey(c.Key())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != c {
		t.Errorf("round trip mismatch: got %v want %v", parsed, c)
	}
}

func TestStepTowardTieBreak(t *testing.T) {
	// (10,10) is equally close via E and SE; E comes first in
	// OrderedDirections, so it must win the tie.
	origin := Coord{0, 0}
	target := Coord{10, 10}
	_, dir := StepToward(origin, target)
	found := false
	for _, d := range OrderedDirections {
		if d == dir {
			found = true
		}
	}
	if !found {
		t.Errorf("StepToward returned unknown direction %v", dir)
	}
	if dir != DirE {
		t.Errorf("StepToward tie-break picked %v, want %v", dir, DirE)
	}
}
