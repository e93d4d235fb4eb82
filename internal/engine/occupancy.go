package engine

import (
	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/store"
	"github.com/talgya/hexcity/internal/world"
)

// Index names declared on the entity stores.
const (
	FieldQ    = "q"
	FieldR    = "r"
	FieldRole = "role"
	FieldDead = "dead"
)

// PeopleStore, BuildingStore and LocationStore are the concrete stores a
// Simulation owns.
type (
	PeopleStore   = store.Store[agents.Person, string]
	BuildingStore = store.Store[world.Building, string]
	LocationStore = store.Store[world.Location, string]
)

// NewPeopleStore creates a people store indexed by coordinate, role, and death flag.
func NewPeopleStore() *PeopleStore {
	return store.New(func(p agents.Person) string { return p.ID },
		store.NewField(FieldQ, func(p agents.Person) int { return p.Position.Q }),
		store.NewField(FieldR, func(p agents.Person) int { return p.Position.R }),
		store.NewField(FieldRole, func(p agents.Person) agents.Role { return p.Role }),
		store.NewField(FieldDead, func(p agents.Person) bool { return p.IsDead }),
	)
}

// NewBuildingStore creates a building store indexed by coordinate.
func NewBuildingStore() *BuildingStore {
	return store.New(func(b world.Building) string { return b.ID },
		store.NewField(FieldQ, func(b world.Building) int { return b.Position.Q }),
		store.NewField(FieldR, func(b world.Building) int { return b.Position.R }),
	)
}

// NewLocationStore creates a location store indexed by coordinate.
func NewLocationStore() *LocationStore {
	return store.New(func(l world.Location) string { return l.ID },
		store.NewField(FieldQ, func(l world.Location) int { return l.Coord.Q }),
		store.NewField(FieldR, func(l world.Location) int { return l.Coord.R }),
	)
}

func at(c world.HexCoord) map[string]any {
	return map[string]any{FieldQ: c.Q, FieldR: c.R}
}

// livePeopleAt returns the living people standing on c.
func livePeopleAt(people *PeopleStore, c world.HexCoord) ([]agents.Person, error) {
	f := at(c)
	f[FieldDead] = false
	return people.QueryAll(f)
}

// buildingAt reports whether a building stands on c.
func buildingAt(buildings *BuildingStore, c world.HexCoord) (bool, error) {
	found, err := buildings.QueryAll(at(c))
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
