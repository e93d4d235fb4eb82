package world

import "fmt"

// Grid is a square block of gridSize × gridSize offset cells, addressed in
// axial coordinates through its CoordinateSystem.
type Grid struct {
	System CoordinateSystem
	Size   int
}

// NewGrid creates a grid of the given size using system.
func NewGrid(system CoordinateSystem, size int) *Grid {
	return &Grid{System: system, Size: size}
}

// InBounds returns true if the coordinate's offset form lies within the grid.
func (g *Grid) InBounds(c HexCoord) bool {
	col, row := g.System.ToOffset(c)
	return col >= 0 && col < g.Size && row >= 0 && row < g.Size
}

// CellCount returns the number of cells in the grid.
func (g *Grid) CellCount() int {
	return g.Size * g.Size
}

// ValidCoords enumerates every cell in row-major offset order.
func (g *Grid) ValidCoords() []HexCoord {
	coords := make([]HexCoord, 0, g.CellCount())
	for row := 0; row < g.Size; row++ {
		for col := 0; col < g.Size; col++ {
			coords = append(coords, g.System.FromOffset(col, row))
		}
	}
	return coords
}

// GenerateValidLocations returns one fresh Location per grid cell.
// Used once when a world is generated from scratch.
func (g *Grid) GenerateValidLocations() []Location {
	coords := g.ValidCoords()
	locations := make([]Location, len(coords))
	for i, c := range coords {
		locations[i] = NewLocation(c)
	}
	return locations
}

// InBoundsNeighbors returns the neighbors of c that lie on the grid, in
// canonical direction order.
func (g *Grid) InBoundsNeighbors(c HexCoord) []HexCoord {
	out := make([]HexCoord, 0, len(HexNeighborDirections))
	for _, n := range c.Neighbors() {
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%s, size=%d, cells=%d)", g.System.Name(), g.Size, g.CellCount())
}
