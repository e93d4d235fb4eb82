// Simulation ties together the entity stores, the grid, and the per-tick
// resolvers.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/store"
	"github.com/talgya/hexcity/internal/world"
)

// Simulation holds the complete world state.
type Simulation struct {
	Grid      *world.Grid
	People    *PeopleStore
	Buildings *BuildingStore
	Locations *LocationStore

	Movement    *MovementResolver
	Interaction *InteractionResolver

	// mu serializes per-entity phase steps with validated creates so a cell
	// check and the write that depends on it cannot interleave.
	mu sync.Mutex

	lastTick atomic.Uint64
}

// Options tunes a new Simulation.
type Options struct {
	Strategies Strategies // nil = DefaultStrategies()
	Rand       *rand.Rand // movement randomness; nil = seeded from Seed
	Seed       int64
}

// NewSimulation creates an empty world on grid.
func NewSimulation(grid *world.Grid, opts Options) *Simulation {
	if opts.Strategies == nil {
		opts.Strategies = DefaultStrategies()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Seed + 500))
	}

	people := NewPeopleStore()
	buildings := NewBuildingStore()

	return &Simulation{
		Grid:        grid,
		People:      people,
		Buildings:   buildings,
		Locations:   NewLocationStore(),
		Movement:    NewMovementResolver(grid, people, buildings, opts.Rand),
		Interaction: NewInteractionResolver(people, opts.Strategies),
	}
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.lastTick.Load()
}

// TickReport summarizes what one tick changed.
type TickReport struct {
	Tick       uint64 `json:"tick"`
	Eliminated int    `json:"eliminated"`
	Moved      int    `json:"moved"`
	Expired    int    `json:"expired"`
}

// Step runs the interaction phase and then the movement phase.
func (s *Simulation) Step(tick uint64) TickReport {
	report := TickReport{Tick: tick}
	report.Eliminated = s.Interact()
	report.Moved, report.Expired = s.Move()
	s.lastTick.Store(tick)
	return report
}

// Interact runs every actor alive at phase start against its current
// neighbors and tombstones the targets. Returns the number eliminated.
// Whether an actor is dead is judged once, against the roster taken at phase
// start: an actor dead by then does nothing, while one eliminated earlier in
// the same phase still acts, so the outcome does not depend on roster order.
func (s *Simulation) Interact() int {
	roster, err := s.People.QueryAll(map[string]any{FieldDead: false})
	if err != nil {
		slog.Error("interaction roster", "error", err)
		return 0
	}

	eliminated := 0
	for _, actor := range roster {
		n, err := s.interactOne(actor)
		if err != nil {
			slog.Error("interaction step failed", "person", actor.ID, "error", err)
			continue
		}
		eliminated += n
	}
	return eliminated
}

func (s *Simulation) interactOne(actor agents.Person) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.People.Read(actor.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	targets, err := s.Interaction.Resolve(actor)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, target := range targets {
		current, err := s.People.Read(target.ID)
		if errors.Is(err, store.ErrNotFound) || current.IsDead {
			continue
		}
		if err != nil {
			return n, err
		}
		current.IsDead = true
		if err := s.People.Update(current); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return n, err
		}
		slog.Debug("person eliminated", "actor", actor.ID, "role", actor.Role, "victim", current.ID, "at", current.Position)
		n++
	}
	return n, nil
}

// Move resolves movement for every living person, one at a time, writing
// each result before the next is resolved. Returns how many people changed
// cell and how many ran out of lifespan.
func (s *Simulation) Move() (moved, expired int) {
	roster, err := s.People.QueryAll(map[string]any{FieldDead: false})
	if err != nil {
		slog.Error("movement roster", "error", err)
		return 0, 0
	}

	for _, p := range roster {
		m, e, err := s.moveOne(p.ID)
		if err != nil {
			slog.Error("movement step failed", "person", p.ID, "error", err)
			continue
		}
		if m {
			moved++
		}
		if e {
			expired++
		}
	}
	return moved, expired
}

func (s *Simulation) moveOne(id string) (moved, expired bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.People.Read(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	if current.IsDead {
		return false, false, nil
	}

	next, err := s.Movement.Resolve(current)
	if err != nil {
		return false, false, err
	}
	if err := s.People.Update(next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return next.Position != current.Position, next.IsDead, nil
}

// ── External operations ──────────────────────────────────────────────

// CreatePerson adds a person on a free in-bounds cell.
func (s *Simulation) CreatePerson(p agents.Person) (agents.Person, error) {
	if p.ID == "" {
		p.ID = agents.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCellLocked(p.Position); err != nil {
		return agents.Person{}, err
	}
	if err := s.People.Create(p); err != nil {
		return agents.Person{}, err
	}
	return p, nil
}

// CreateBuilding adds a building on a free in-bounds cell.
func (s *Simulation) CreateBuilding(b world.Building) (world.Building, error) {
	if b.ID == "" {
		b = world.NewBuilding(b.Position)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCellLocked(b.Position); err != nil {
		return world.Building{}, err
	}
	if err := s.Buildings.Create(b); err != nil {
		return world.Building{}, err
	}
	return b, nil
}

// CreateLocation registers an in-bounds cell. At most one location may
// exist per coordinate.
func (s *Simulation) CreateLocation(l world.Location) (world.Location, error) {
	if l.ID == "" {
		l = world.NewLocation(l.Coord)
	}
	if !s.Grid.InBounds(l.Coord) {
		return world.Location{}, fmt.Errorf("location %v: %w", l.Coord, ErrOutOfBounds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Locations.QueryAll(at(l.Coord))
	if err != nil {
		return world.Location{}, err
	}
	if len(existing) > 0 {
		return world.Location{}, &store.Error{Op: "create location", ID: l.Coord, Err: store.ErrAlreadyExists}
	}
	if err := s.Locations.Create(l); err != nil {
		return world.Location{}, err
	}
	return l, nil
}

func (s *Simulation) checkCellLocked(c world.HexCoord) error {
	if !s.Grid.InBounds(c) {
		return fmt.Errorf("cell %v: %w", c, ErrOutOfBounds)
	}
	blocked, err := buildingAt(s.Buildings, c)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("cell %v has a building: %w", c, ErrOccupied)
	}
	occupants, err := livePeopleAt(s.People, c)
	if err != nil {
		return err
	}
	if len(occupants) > 0 {
		return fmt.Errorf("cell %v has a living person: %w", c, ErrOccupied)
	}
	return nil
}

// Roster returns every person, living and dead.
func (s *Simulation) Roster() []agents.Person {
	people, _ := s.People.QueryAll(nil)
	return people
}

// LocationView is a location joined with whatever currently stands on it.
type LocationView struct {
	world.Location
	People   []agents.Person `json:"people"`
	Building *world.Building `json:"building,omitempty"`
}

// HydrateLocation reads a location and joins its occupants by coordinate.
func (s *Simulation) HydrateLocation(id string) (LocationView, error) {
	loc, err := s.Locations.Read(id)
	if err != nil {
		return LocationView{}, err
	}
	return s.hydrate(loc)
}

// HydrateLocations joins occupants onto every location.
func (s *Simulation) HydrateLocations() ([]LocationView, error) {
	locs, err := s.Locations.QueryAll(nil)
	if err != nil {
		return nil, err
	}
	views := make([]LocationView, 0, len(locs))
	for _, l := range locs {
		v, err := s.hydrate(l)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Simulation) hydrate(loc world.Location) (LocationView, error) {
	people, err := s.People.QueryAll(at(loc.Coord))
	if err != nil {
		return LocationView{}, err
	}
	view := LocationView{Location: loc, People: people}
	buildings, err := s.Buildings.QueryAll(at(loc.Coord))
	if err != nil {
		return LocationView{}, err
	}
	if len(buildings) > 0 {
		b := buildings[0]
		view.Building = &b
	}
	return view, nil
}

// Stats tracks aggregate world statistics.
type Stats struct {
	Tick      uint64              `json:"tick"`
	Alive     int                 `json:"alive"`
	Dead      int                 `json:"dead"`
	ByRole    map[agents.Role]int `json:"alive_by_role"`
	Buildings int                 `json:"buildings"`
	Locations int                 `json:"locations"`
}

// Stats computes current aggregate statistics.
func (s *Simulation) Stats() Stats {
	st := Stats{
		Tick:      s.CurrentTick(),
		ByRole:    make(map[agents.Role]int),
		Buildings: s.Buildings.Len(),
		Locations: s.Locations.Len(),
	}
	for _, p := range s.Roster() {
		if p.IsDead {
			st.Dead++
			continue
		}
		st.Alive++
		st.ByRole[p.Role]++
	}
	return st
}

// Distance returns the hex distance between two cells.
func (s *Simulation) Distance(a, b world.HexCoord) int {
	return world.Distance(a, b)
}
