// Package engine provides the simulation state, the per-tick movement and
// interaction resolvers, and the tick loop that drives them.
package engine

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/talgya/hexcity/internal/agents"
)

// Publisher receives the roster after every tick.
type Publisher interface {
	Publish(ctx context.Context, tick uint64, people []agents.Person) error
}

// Checkpointer durably stores a world snapshot.
type Checkpointer interface {
	Checkpoint(ctx context.Context, snap Snapshot) error
}

// Engine drives the simulation forward.
type Engine struct {
	Sim             *Simulation
	Interval        time.Duration // Base tick interval (default 1 second)
	CheckpointEvery uint64        // Checkpoint every N ticks; 0 disables
	Publisher       Publisher
	Checkpointer    Checkpointer

	// OnTick, if set, runs after each tick's phases complete.
	OnTick func(report TickReport)

	tick    atomic.Uint64 // Current tick counter (monotonic, never resets)
	speed   atomic.Uint64 // float64 bits. Multiplier: 1.0 = real-time, 0 = paused
	running atomic.Bool
}

// NewEngine creates a simulation engine with default settings.
func NewEngine(sim *Simulation) *Engine {
	e := &Engine{
		Sim:      sim,
		Interval: time.Second,
	}
	e.SetSpeed(1.0)
	return e
}

// Tick returns the last completed tick.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// SetTick sets the tick counter, used when resuming from a checkpoint.
func (e *Engine) SetTick(t uint64) { e.tick.Store(t) }

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the speed multiplier. 0 pauses the loop.
func (e *Engine) SetSpeed(v float64) {
	if v < 0 {
		v = 0
	}
	e.speed.Store(math.Float64bits(v))
}

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Run starts the simulation loop. It blocks until ctx is cancelled; the tick
// in flight always completes before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "interval", e.Interval)

	for {
		speed := e.Speed()
		if speed <= 0 {
			// Paused. Wait briefly and check again.
			if !wait(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		e.Step(ctx)

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if !wait(ctx, target-elapsed) {
			break
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick())
	return nil
}

// wait sleeps for d or until ctx is done. Returns false if ctx is done.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Step advances the simulation by one tick: interaction, movement, publish,
// and on every CheckpointEvery-th tick a checkpoint.
func (e *Engine) Step(ctx context.Context) TickReport {
	tick := e.tick.Add(1)

	report := e.Sim.Step(tick)
	slog.Debug("tick",
		"tick", tick,
		"eliminated", report.Eliminated,
		"moved", report.Moved,
		"expired", report.Expired,
	)

	if e.Publisher != nil {
		if err := e.Publisher.Publish(ctx, tick, e.Sim.Roster()); err != nil {
			slog.Warn("publish failed", "tick", tick, "error", err)
		}
	}

	if e.Checkpointer != nil && e.CheckpointEvery > 0 && tick%e.CheckpointEvery == 0 {
		stats := e.Sim.Stats()
		slog.Info("checkpoint",
			"tick", tick,
			"alive", stats.Alive,
			"dead", stats.Dead,
			"killers", stats.ByRole[agents.RoleKiller],
			"police", stats.ByRole[agents.RolePolice],
		)
		// The checkpoint must land even if shutdown began mid-tick.
		if err := e.Checkpointer.Checkpoint(context.WithoutCancel(ctx), e.Sim.Snapshot()); err != nil {
			slog.Warn("checkpoint failed", "tick", tick, "error", err)
		}
	}

	if e.OnTick != nil {
		e.OnTick(report)
	}
	return report
}
