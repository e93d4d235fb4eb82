package world

import "github.com/google/uuid"

// Location is a grid cell with a stable identity. Occupants are never
// embedded; they are joined by coordinate when a location is read.
type Location struct {
	ID    string   `json:"id"`
	Coord HexCoord `json:"coord"`
}

// NewLocation creates a location with a fresh id.
func NewLocation(c HexCoord) Location {
	return Location{ID: uuid.NewString(), Coord: c}
}

// Building is an immovable structure. Its cell is never a movement target.
type Building struct {
	ID       string   `json:"id"`
	Position HexCoord `json:"position"`
}

// NewBuilding creates a building with a fresh id.
func NewBuilding(c HexCoord) Building {
	return Building{ID: uuid.NewString(), Position: c}
}
