// Movement: each living person steps to a random free neighboring cell.
package engine

import (
	"math/rand"
	"sync"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/world"
)

// MovementResolver picks the next cell for a person.
type MovementResolver struct {
	grid      *world.Grid
	people    *PeopleStore
	buildings *BuildingStore

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewMovementResolver creates a resolver that reads occupancy from the given stores.
func NewMovementResolver(grid *world.Grid, people *PeopleStore, buildings *BuildingStore, rng *rand.Rand) *MovementResolver {
	return &MovementResolver{
		grid:      grid,
		people:    people,
		buildings: buildings,
		rng:       rng,
	}
}

// Resolve returns p after one movement step: its lifespan is aged and, if it
// is still alive, it moves to the first free in-bounds neighbor found in a
// freshly shuffled direction order. With no free neighbor it stays put.
// Occupancy is read from the stores at call time, so callers must apply each
// result before resolving the next person.
func (m *MovementResolver) Resolve(p agents.Person) (agents.Person, error) {
	if p.IsDead {
		return p, nil
	}
	if p.Age() {
		return p, nil
	}

	for _, dir := range m.shuffledDirections() {
		next := p.Position.Add(dir)
		if !m.grid.InBounds(next) {
			continue
		}
		free, err := m.isFree(next)
		if err != nil {
			return p, err
		}
		if free {
			p.Position = next
			break
		}
	}
	return p, nil
}

func (m *MovementResolver) isFree(c world.HexCoord) (bool, error) {
	occupants, err := livePeopleAt(m.people, c)
	if err != nil {
		return false, err
	}
	if len(occupants) > 0 {
		return false, nil
	}
	blocked, err := buildingAt(m.buildings, c)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

func (m *MovementResolver) shuffledDirections() [6]world.HexCoord {
	dirs := world.HexNeighborDirections
	m.mu.Lock()
	m.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
	m.mu.Unlock()
	return dirs
}
