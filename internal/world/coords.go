package world

import (
	"fmt"
	"strings"
)

// CoordinateSystem converts between axial and offset (col, row) coordinates.
// One system is chosen at startup and fixed for the life of the world.
type CoordinateSystem interface {
	Name() string
	ToOffset(c HexCoord) (col, row int)
	FromOffset(col, row int) HexCoord
}

// Coordinate system names accepted by ParseCoordinateSystem.
const (
	SystemOddR  = "odd-r"
	SystemEvenR = "even-r"
	SystemAxial = "axial"
)

// OddR is the "shoved" layout where odd rows are pushed right by half a cell.
type OddR struct{}

func (OddR) Name() string { return SystemOddR }

func (OddR) ToOffset(c HexCoord) (int, int) {
	return c.Q + (c.R-(c.R&1))/2, c.R
}

func (OddR) FromOffset(col, row int) HexCoord {
	return HexCoord{Q: col - (row-(row&1))/2, R: row}
}

// EvenR is the "shoved" layout where even rows are pushed right by half a cell.
type EvenR struct{}

func (EvenR) Name() string { return SystemEvenR }

func (EvenR) ToOffset(c HexCoord) (int, int) {
	return c.Q + (c.R+(c.R&1))/2, c.R
}

func (EvenR) FromOffset(col, row int) HexCoord {
	return HexCoord{Q: col - (row+(row&1))/2, R: row}
}

// Axial treats (q, r) as (col, row) directly; the grid becomes a rhombus.
type Axial struct{}

func (Axial) Name() string { return SystemAxial }

func (Axial) ToOffset(c HexCoord) (int, int) {
	return c.Q, c.R
}

func (Axial) FromOffset(col, row int) HexCoord {
	return HexCoord{Q: col, R: row}
}

// ParseCoordinateSystem returns the system registered under name (case-insensitive).
func ParseCoordinateSystem(name string) (CoordinateSystem, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SystemOddR:
		return OddR{}, nil
	case SystemEvenR:
		return EvenR{}, nil
	case SystemAxial:
		return Axial{}, nil
	}
	return nil, fmt.Errorf("unknown hex coordinate system %q (use %s, %s or %s)",
		name, SystemOddR, SystemEvenR, SystemAxial)
}
