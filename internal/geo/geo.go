package geo

import "github.com/hexwars/replica/pkg/core"

// HEX GRID
// Coordinates are skewed: the six neighbours of (x,y) differ by one step along x, along y, or
// diagonally along (+1,-1)/(-1,+1). The (+1,+1) and (-1,-1) cells are two steps apart.

// neighborOffsets is ordered; pathfinding relies on a stable expansion order.
var neighborOffsets = [6]core.Position{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: -1},
	{X: -1, Y: 1},
}

// Neighbors returns the six coordinates adjacent to p. They need not exist on the map.
func Neighbors(p core.Position) [6]core.Position {
	var out [6]core.Position
	for i, o := range neighborOffsets {
		out[i] = core.Position{X: p.X + o.X, Y: p.Y + o.Y}
	}
	return out
}

// Distance returns the number of hex steps between a and b.
func Distance(a, b core.Position) int {
	dx := a.X - b.X
	dy := a.Y - b.Y

	// a diagonal step covers one unit of x and one of y when they point in opposite directions
	if (dx < 0) != (dy < 0) && dx != 0 && dy != 0 {
		d := min(abs(dx), abs(dy))
		return abs(dx) + abs(dy) - d
	}
	return abs(dx) + abs(dy)
}

// Adjacent reports whether a and b are one step apart.
func Adjacent(a, b core.Position) bool {
	return Distance(a, b) == 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
