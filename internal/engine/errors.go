package engine

import "errors"

var (
	// ErrConfiguration is returned when world generation asks for more
	// entities than the grid has cells.
	ErrConfiguration = errors.New("configuration error")
	// ErrOccupied is returned when a create targets a cell that is already taken.
	ErrOccupied = errors.New("cell occupied")
	// ErrOutOfBounds is returned when a create targets a cell outside the grid.
	ErrOutOfBounds = errors.New("cell out of bounds")
)
