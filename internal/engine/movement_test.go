package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/world"
)

func TestMoveToAdjacentCell(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 10)
	p := put(t, s, "p", agents.RoleCitizen, 5, 5)

	next, err := s.Movement.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, 1, world.Distance(p.Position, next.Position))
	assert.True(t, s.Grid.InBounds(next.Position))
}

func TestStayWhenSurroundedByPeople(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 10)
	p := put(t, s, "p", agents.RoleCitizen, 5, 5)
	for i, n := range p.Position.Neighbors() {
		put(t, s, fmt.Sprintf("n%d", i), agents.RoleCitizen, n.Q, n.R)
	}

	next, err := s.Movement.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, p.Position, next.Position)
}

func TestStayWhenSurroundedByBuildings(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 10)
	p := put(t, s, "p", agents.RoleCitizen, 5, 5)
	for _, n := range p.Position.Neighbors() {
		putBuilding(t, s, n.Q, n.R)
	}

	next, err := s.Movement.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, p.Position, next.Position)
}

func TestDeadNeighborsDoNotBlock(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 10)
	p := put(t, s, "p", agents.RoleCitizen, 5, 5)
	for i, n := range p.Position.Neighbors() {
		body := agents.Person{ID: fmt.Sprintf("n%d", i), Position: n, IsDead: true}
		require.NoError(t, s.People.Create(body))
	}

	next, err := s.Movement.Resolve(p)
	require.NoError(t, err)
	assert.NotEqual(t, p.Position, next.Position)
}

func TestOnlyFreeNeighborIsChosen(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 10)
	p := put(t, s, "p", agents.RoleCitizen, 5, 5)
	free := world.HexCoord{Q: 4, R: 6}
	for _, n := range p.Position.Neighbors() {
		if n != free {
			putBuilding(t, s, n.Q, n.R)
		}
	}

	for i := 0; i < 20; i++ {
		next, err := s.Movement.Resolve(p)
		require.NoError(t, err)
		assert.Equal(t, free, next.Position)
	}
}

func TestNeverLeavesGrid(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 1)
	p := put(t, s, "p", agents.RoleCitizen, 0, 0)

	for i := 0; i < 20; i++ {
		next, err := s.Movement.Resolve(p)
		require.NoError(t, err)
		assert.Equal(t, p.Position, next.Position)
	}
}

func TestDirectionsAreShuffled(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 10)
	p := put(t, s, "p", agents.RoleCitizen, 5, 5)

	seen := map[world.HexCoord]bool{}
	for i := 0; i < 300; i++ {
		next, err := s.Movement.Resolve(p)
		require.NoError(t, err)
		seen[next.Position] = true
	}
	assert.Len(t, seen, 6, "every direction should eventually be picked first")
}

func TestLifespanCountsDownEvenWhenStuck(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 1)
	p := agents.Person{ID: "p", Lifespan: 3}
	require.NoError(t, s.People.Create(p))

	next, err := s.Movement.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Lifespan)
	assert.False(t, next.IsDead)
}

func TestLifespanExpiry(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 10)
	p := agents.Person{ID: "p", Position: world.HexCoord{Q: 3, R: 3}, Lifespan: 1}
	require.NoError(t, s.People.Create(p))

	moved, expired := s.Move()
	assert.Equal(t, 0, moved)
	assert.Equal(t, 1, expired)

	got := get(t, s, "p")
	assert.True(t, got.IsDead)
	assert.Equal(t, p.Position, got.Position)

	// Dead people are excluded from later phases.
	moved, expired = s.Move()
	assert.Zero(t, moved)
	assert.Zero(t, expired)
	assert.Equal(t, 0, get(t, s, "p").Lifespan)
}

func TestDeadPersonDoesNotMove(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 10)
	p := agents.Person{ID: "p", Position: world.HexCoord{Q: 3, R: 3}, IsDead: true}

	next, err := s.Movement.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, p, next)
}

func TestMovementPhaseSafety(t *testing.T) {
	for _, sys := range []world.CoordinateSystem{world.OddR{}, world.EvenR{}, world.Axial{}} {
		t.Run(sys.Name(), func(t *testing.T) {
			s := newTestSim(t, sys, 8)
			require.NoError(t, s.Populate(PopulationConfig{People: 40, Buildings: 10, Seed: 3}))

			buildings, err := s.Buildings.QueryAll(nil)
			require.NoError(t, err)
			blocked := map[world.HexCoord]bool{}
			for _, b := range buildings {
				blocked[b.Position] = true
			}

			for tick := 0; tick < 30; tick++ {
				s.Move()

				occupied := map[world.HexCoord]string{}
				for _, p := range s.Roster() {
					require.True(t, s.Grid.InBounds(p.Position), "%s out of bounds at %v", p.ID, p.Position)
					if p.IsDead {
						continue
					}
					require.False(t, blocked[p.Position], "%s on a building at %v", p.ID, p.Position)
					other, taken := occupied[p.Position]
					require.False(t, taken, "%s and %s share %v", p.ID, other, p.Position)
					occupied[p.Position] = p.ID
				}
			}
		})
	}
}
