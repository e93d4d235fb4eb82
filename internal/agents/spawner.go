// Agent spawning: the initial population with roles and lifespans.
package agents

import (
	"math/rand"

	"github.com/talgya/hexcity/internal/world"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	KillerProbability float64
	PoliceProbability float64
	LifespanMin       int // 0 together with LifespanMax disables lifespans
	LifespanMax       int
}

// Spawner creates people for the simulation.
type Spawner struct {
	rng *rand.Rand
	cfg SpawnConfig
}

// NewSpawner creates a spawner with the given seed.
func NewSpawner(seed int64, cfg SpawnConfig) *Spawner {
	return &Spawner{
		rng: rand.New(rand.NewSource(seed + 300)),
		cfg: cfg,
	}
}

// Spawn creates one living person at position.
func (s *Spawner) Spawn(position world.HexCoord) Person {
	return Person{
		ID:       NewID(),
		Position: position,
		Role:     s.rollRole(),
		Lifespan: s.rollLifespan(),
	}
}

// SpawnPopulation creates one person per position.
func (s *Spawner) SpawnPopulation(positions []world.HexCoord) []Person {
	people := make([]Person, 0, len(positions))
	for _, pos := range positions {
		people = append(people, s.Spawn(pos))
	}
	return people
}

// rollRole draws killer, then police, then citizen from one uniform sample.
func (s *Spawner) rollRole() Role {
	roll := s.rng.Float64()
	switch {
	case roll < s.cfg.KillerProbability:
		return RoleKiller
	case roll < s.cfg.KillerProbability+s.cfg.PoliceProbability:
		return RolePolice
	default:
		return RoleCitizen
	}
}

func (s *Spawner) rollLifespan() int {
	if s.cfg.LifespanMax <= 0 {
		return 0
	}
	lo, hi := s.cfg.LifespanMin, s.cfg.LifespanMax
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}
