// Command citysim runs the hex-grid city simulation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/api"
	"github.com/talgya/hexcity/internal/config"
	"github.com/talgya/hexcity/internal/engine"
	"github.com/talgya/hexcity/internal/persistence"
	"github.com/talgya/hexcity/internal/world"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("citysim failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(config.NewLogger(os.Stdout, level))

	system, _ := world.ParseCoordinateSystem(cfg.CoordinateSystem)
	grid := world.NewGrid(system, cfg.GridSize)
	slog.Info("hexcity starting", "grid", grid.String(), "seed", cfg.Seed)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.SnapshotPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.SnapshotPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.SnapshotPath)

	// ── Load or Generate World State ─────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := engine.NewSimulation(grid, engine.Options{Seed: cfg.Seed})

	saved, err := db.HasWorldState(ctx)
	if err != nil {
		return fmt.Errorf("check saved state: %w", err)
	}
	if saved {
		slog.Info("found saved world state, loading...")
		snap, err := db.LoadWorldState(ctx)
		if err != nil {
			return err
		}
		if err := sim.Restore(snap); err != nil {
			return err
		}
	} else {
		slog.Info("no saved state found, generating new world...")
		err := sim.Populate(engine.PopulationConfig{
			People:    cfg.People,
			Buildings: cfg.Buildings,
			Seed:      cfg.Seed,
			Spawn: agents.SpawnConfig{
				KillerProbability: cfg.KillerProbability,
				PoliceProbability: cfg.PoliceProbability,
				LifespanMin:       cfg.LifespanMin,
				LifespanMax:       cfg.LifespanMax,
			},
		})
		if err != nil {
			return err
		}
		if err := db.SaveWorldState(ctx, sim.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	stats := sim.Stats()
	slog.Info("world ready",
		"tick", stats.Tick,
		"alive", stats.Alive,
		"dead", stats.Dead,
		"buildings", stats.Buildings,
		"locations", stats.Locations,
	)

	// ── Simulation ────────────────────────────────────────────────────
	hub := api.NewHub()
	defer hub.Close()

	eng := engine.NewEngine(sim)
	eng.SetTick(sim.CurrentTick())
	eng.Interval = cfg.TickInterval
	eng.CheckpointEvery = cfg.SnapshotInterval
	eng.Publisher = hub
	eng.Checkpointer = db

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("CITYSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Hub:      hub,
		Port:     cfg.APIPort,
		AdminKey: cfg.AdminKey,
	}
	httpServer := apiServer.NewHTTPServer()

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nhexcity is alive: %d people on a %s grid.\n", stats.Alive, grid)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	if stats.Tick > 0 {
		fmt.Printf("Resuming from tick %d\n", stats.Tick)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx)
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	runErr := g.Wait()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveWorldState(context.Background(), sim.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
		return errors.Join(runErr, err)
	}

	fmt.Println("Simulation stopped. World state saved.")
	return runErr
}
