// Package world provides the hex grid: axial coordinates, offset conversion
// strategies, bounds, adjacency, and the static cells and buildings on it.
package world

import "fmt"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Add returns h offset by d.
func (h HexCoord) Add(d HexCoord) HexCoord {
	return HexCoord{Q: h.Q + d.Q, R: h.R + d.R}
}

func (h HexCoord) String() string {
	return fmt.Sprintf("(%d,%d)", h.Q, h.R)
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
// The order is the canonical enumeration order used by movement and interaction.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = h.Add(dir)
	}
	return result
}

// IsNeighbor reports whether b is one step away from a.
func IsNeighbor(a, b HexCoord) bool {
	for _, n := range a.Neighbors() {
		if n == b {
			return true
		}
	}
	return false
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	// Cube coordinates: x = q, z = r, y = -x - z.
	dx := abs(a.Q - b.Q)
	dz := abs(a.R - b.R)
	dy := abs(a.S() - b.S())
	return (dx + dy + dz) / 2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
