// World bootstrap: fresh generation or restore from a checkpoint.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/world"
)

// PopulationConfig controls fresh world generation.
type PopulationConfig struct {
	People    int
	Buildings int
	Seed      int64
	Spawn     agents.SpawnConfig
}

// Snapshot is the full persisted state of a world.
type Snapshot struct {
	Tick      uint64           `json:"tick"`
	People    []agents.Person  `json:"people"`
	Buildings []world.Building `json:"buildings"`
	Locations []world.Location `json:"locations"`
}

// Snapshot captures the current world state.
func (s *Simulation) Snapshot() Snapshot {
	buildings, _ := s.Buildings.QueryAll(nil)
	locations, _ := s.Locations.QueryAll(nil)
	return Snapshot{
		Tick:      s.CurrentTick(),
		People:    s.Roster(),
		Buildings: buildings,
		Locations: locations,
	}
}

// Populate generates every grid location and places buildings and people on
// distinct cells sampled without replacement.
func (s *Simulation) Populate(cfg PopulationConfig) error {
	if cfg.People < 0 || cfg.Buildings < 0 {
		return fmt.Errorf("%w: negative entity count (people %d, buildings %d)",
			ErrConfiguration, cfg.People, cfg.Buildings)
	}
	total := cfg.People + cfg.Buildings
	if cells := s.Grid.CellCount(); total > cells {
		return fmt.Errorf("%w: too many entities to initialize: total %d, maximum %d (people %d, buildings %d)",
			ErrConfiguration, total, cells, cfg.People, cfg.Buildings)
	}

	locations := s.Grid.GenerateValidLocations()
	for _, l := range locations {
		if err := s.Locations.Create(l); err != nil {
			return fmt.Errorf("create location %v: %w", l.Coord, err)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed + 400))
	picks := rng.Perm(len(locations))[:total]

	for _, i := range picks[:cfg.Buildings] {
		b := world.NewBuilding(locations[i].Coord)
		if err := s.Buildings.Create(b); err != nil {
			return fmt.Errorf("create building: %w", err)
		}
	}

	spawner := agents.NewSpawner(cfg.Seed, cfg.Spawn)
	for _, i := range picks[cfg.Buildings:] {
		p := spawner.Spawn(locations[i].Coord)
		if err := s.People.Create(p); err != nil {
			return fmt.Errorf("create person: %w", err)
		}
	}

	slog.Info("world generated",
		"grid", s.Grid.String(),
		"people", cfg.People,
		"buildings", cfg.Buildings,
	)
	return nil
}

// Restore loads a persisted world, preserving every id. If the snapshot has
// no locations, the grid's locations are generated fresh.
func (s *Simulation) Restore(snap Snapshot) error {
	locations := snap.Locations
	if len(locations) == 0 {
		locations = s.Grid.GenerateValidLocations()
	}
	for _, l := range locations {
		if err := s.Locations.Create(l); err != nil {
			return fmt.Errorf("restore location %s: %w", l.ID, err)
		}
	}
	for _, b := range snap.Buildings {
		if err := s.Buildings.Create(b); err != nil {
			return fmt.Errorf("restore building %s: %w", b.ID, err)
		}
	}
	for _, p := range snap.People {
		if err := s.People.Create(p); err != nil {
			return fmt.Errorf("restore person %s: %w", p.ID, err)
		}
	}
	s.lastTick.Store(snap.Tick)

	slog.Info("world restored",
		"tick", snap.Tick,
		"people", len(snap.People),
		"buildings", len(snap.Buildings),
		"locations", len(locations),
	)
	return nil
}
