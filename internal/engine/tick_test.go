package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/world"
)

type recorder struct {
	mu          sync.Mutex
	published   []uint64
	checkpoints []uint64
	err         error
}

func (r *recorder) Publish(_ context.Context, tick uint64, people []agents.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, tick)
	return r.err
}

func (r *recorder) Checkpoint(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints = append(r.checkpoints, snap.Tick)
	return r.err
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published), len(r.checkpoints)
}

func TestStepPhasesAndCheckpointInterval(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 10)
	put(t, s, "k", agents.RoleKiller, 0, 0)
	put(t, s, "c", agents.RoleCitizen, 1, 0)

	rec := &recorder{}
	e := NewEngine(s)
	e.Publisher = rec
	e.Checkpointer = rec
	e.CheckpointEvery = 3

	var reports []TickReport
	e.OnTick = func(r TickReport) { reports = append(reports, r) }

	for i := 0; i < 7; i++ {
		e.Step(context.Background())
	}

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7}, rec.published)
	assert.Equal(t, []uint64{3, 6}, rec.checkpoints)
	require.Len(t, reports, 7)
	assert.Equal(t, 1, reports[0].Eliminated, "interaction runs before movement")
	assert.Equal(t, uint64(7), e.Tick())
	assert.Equal(t, uint64(7), s.CurrentTick())
}

func TestCollaboratorErrorsDoNotStopTicks(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 4)
	rec := &recorder{err: errors.New("boom")}
	e := NewEngine(s)
	e.Publisher = rec
	e.Checkpointer = rec
	e.CheckpointEvery = 1

	e.Step(context.Background())
	e.Step(context.Background())

	p, c := rec.counts()
	assert.Equal(t, 2, p)
	assert.Equal(t, 2, c)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 4)
	rec := &recorder{}
	e := NewEngine(s)
	e.Interval = 5 * time.Millisecond
	e.Publisher = rec

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		p, _ := rec.counts()
		return p >= 3
	}, time.Second, time.Millisecond)
	assert.True(t, e.Running())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	assert.False(t, e.Running())

	p, _ := rec.counts()
	assert.Equal(t, int(e.Tick()), p, "every started tick completed its publish")
}

func TestPausedEngineDoesNotTick(t *testing.T) {
	s := newTestSim(t, world.Axial{}, 4)
	e := NewEngine(s)
	e.Interval = time.Millisecond
	e.SetSpeed(0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, e.Tick())

	e.SetSpeed(-3)
	assert.Zero(t, e.Speed())
}
