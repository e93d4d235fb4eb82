package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/world"
)

func newTestSim(t *testing.T, system world.CoordinateSystem, size int) *Simulation {
	t.Helper()
	return NewSimulation(world.NewGrid(system, size), Options{Rand: rand.New(rand.NewSource(42))})
}

// put inserts a person straight into the store, bypassing cell validation.
func put(t *testing.T, s *Simulation, id string, role agents.Role, q, r int) agents.Person {
	t.Helper()
	p := agents.Person{ID: id, Role: role, Position: world.HexCoord{Q: q, R: r}}
	require.NoError(t, s.People.Create(p))
	return p
}

func get(t *testing.T, s *Simulation, id string) agents.Person {
	t.Helper()
	p, err := s.People.Read(id)
	require.NoError(t, err)
	return p
}

func putBuilding(t *testing.T, s *Simulation, q, r int) {
	t.Helper()
	require.NoError(t, s.Buildings.Create(world.NewBuilding(world.HexCoord{Q: q, R: r})))
}
