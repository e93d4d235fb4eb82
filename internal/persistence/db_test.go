package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/engine"
	"github.com/talgya/hexcity/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot() engine.Snapshot {
	return engine.Snapshot{
		Tick: 42,
		People: []agents.Person{
			{ID: "b", Position: world.HexCoord{Q: 1, R: 2}, Role: agents.RoleKiller, Lifespan: 30},
			{ID: "a", Position: world.HexCoord{Q: 0, R: 0}, Role: agents.RoleCitizen, IsDead: true},
			{ID: "c", Position: world.HexCoord{Q: -1, R: 3}, Role: agents.RolePolice},
		},
		Buildings: []world.Building{
			{ID: "h1", Position: world.HexCoord{Q: 2, R: 2}},
		},
		Locations: []world.Location{
			{ID: "l2", Coord: world.HexCoord{Q: 1, R: 0}},
			{ID: "l1", Coord: world.HexCoord{Q: 0, R: 0}},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	has, err := db.HasWorldState(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	snap := testSnapshot()
	require.NoError(t, db.SaveWorldState(ctx, snap))

	has, err = db.HasWorldState(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := db.LoadWorldState(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSaveReplacesPreviousState(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.SaveWorldState(ctx, testSnapshot()))

	next := engine.Snapshot{
		Tick:      50,
		People:    []agents.Person{{ID: "z", Role: agents.RoleCitizen}},
		Buildings: []world.Building{},
		Locations: []world.Location{{ID: "l1", Coord: world.HexCoord{}}},
	}
	require.NoError(t, db.SaveWorldState(ctx, next))

	got, err := db.LoadWorldState(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestLoadEmptyDatabase(t *testing.T) {
	db := openTestDB(t)

	snap, err := db.LoadWorldState(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Tick)
	assert.Empty(t, snap.People)
}

func TestCheckpointSkipsUnchangedWorld(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	snap := testSnapshot()
	require.NoError(t, db.Checkpoint(ctx, snap))
	digest, err := db.GetMeta(MetaStateDigest)
	require.NoError(t, err)

	snap.Tick = 60
	require.NoError(t, db.Checkpoint(ctx, snap))
	tick, err := db.GetMeta(MetaLastTick)
	require.NoError(t, err)
	assert.Equal(t, "60", tick)

	again, err := db.GetMeta(MetaStateDigest)
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	snap.People[0].IsDead = true
	snap.Tick = 70
	require.NoError(t, db.Checkpoint(ctx, snap))
	got, err := db.LoadWorldState(ctx)
	require.NoError(t, err)
	assert.True(t, got.People[0].IsDead)
	assert.Equal(t, uint64(70), got.Tick)
}

func TestStateDigest(t *testing.T) {
	snap := testSnapshot()
	base := StateDigest(snap)

	reordered := testSnapshot()
	reordered.People[0], reordered.People[2] = reordered.People[2], reordered.People[0]
	reordered.Tick = 1
	assert.Equal(t, base, StateDigest(reordered), "order and tick do not matter")

	moved := testSnapshot()
	moved.People[1].Position = world.HexCoord{Q: 5, R: 5}
	assert.NotEqual(t, base, StateDigest(moved))

	built := testSnapshot()
	built.Buildings = append(built.Buildings, world.Building{ID: "h2"})
	assert.NotEqual(t, base, StateDigest(built))
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetMeta("missing")
	assert.Error(t, err)

	require.NoError(t, db.SaveMeta("k", "v1"))
	require.NoError(t, db.SaveMeta("k", "v2"))
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestDBIsCheckpointer(t *testing.T) {
	var _ engine.Checkpointer = (*DB)(nil)
}
