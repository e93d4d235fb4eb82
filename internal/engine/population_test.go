package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/world"
)

func TestPopulateTooManyEntities(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 2)

	err := s.Populate(PopulationConfig{People: 3, Buildings: 2})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Zero(t, s.People.Len())
	assert.Zero(t, s.Locations.Len())
}

func TestPopulateFillsDistinctCells(t *testing.T) {
	s := newTestSim(t, world.EvenR{}, 2)
	require.NoError(t, s.Populate(PopulationConfig{
		People:    3,
		Buildings: 1,
		Seed:      5,
		Spawn:     agents.SpawnConfig{KillerProbability: 0.5, LifespanMin: 70, LifespanMax: 100},
	}))

	assert.Equal(t, 4, s.Locations.Len())
	assert.Equal(t, 3, s.People.Len())
	assert.Equal(t, 1, s.Buildings.Len())

	used := map[world.HexCoord]bool{}
	for _, p := range s.Roster() {
		assert.True(t, s.Grid.InBounds(p.Position))
		assert.False(t, used[p.Position])
		assert.False(t, p.IsDead)
		assert.GreaterOrEqual(t, p.Lifespan, 70)
		used[p.Position] = true
	}
	buildings, err := s.Buildings.QueryAll(nil)
	require.NoError(t, err)
	assert.False(t, used[buildings[0].Position])
}

func TestPopulateLocationsUnique(t *testing.T) {
	s := newTestSim(t, world.OddR{}, 6)
	require.NoError(t, s.Populate(PopulationConfig{People: 10}))

	locs, err := s.Locations.QueryAll(nil)
	require.NoError(t, err)
	require.Len(t, locs, 36)
	for _, l := range locs {
		same, err := s.Locations.QueryAll(map[string]any{FieldQ: l.Coord.Q, FieldR: l.Coord.R})
		require.NoError(t, err)
		assert.Len(t, same, 1)
	}
}

func TestSnapshotRestorePreservesIDs(t *testing.T) {
	src := newTestSim(t, world.OddR{}, 5)
	require.NoError(t, src.Populate(PopulationConfig{People: 6, Buildings: 2, Seed: 11}))
	src.Step(7)
	snap := src.Snapshot()
	assert.Equal(t, uint64(7), snap.Tick)

	dst := newTestSim(t, world.OddR{}, 5)
	require.NoError(t, dst.Restore(snap))

	assert.Equal(t, snap.People, dst.Roster())
	assert.Equal(t, snap, dst.Snapshot())
	assert.Equal(t, uint64(7), dst.CurrentTick())
}

func TestRestoreWithoutLocationsGeneratesGrid(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 3)
	require.NoError(t, s.Restore(Snapshot{People: []agents.Person{{ID: "x", Role: agents.RoleCitizen}}}))

	assert.Equal(t, 9, s.Locations.Len())
	_, err := s.People.Read("x")
	assert.NoError(t, err)
}
