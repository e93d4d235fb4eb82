package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/engine"
	"github.com/talgya/hexcity/internal/world"
)

var errBadRequest = errors.New("bad request")

// filterParsers convert query values into the types the store indexes hold.
var filterParsers = map[string]func(string) (any, error){
	engine.FieldQ: func(v string) (any, error) { return strconv.Atoi(v) },
	engine.FieldR: func(v string) (any, error) { return strconv.Atoi(v) },
	engine.FieldRole: func(v string) (any, error) {
		return agents.ParseRole(v)
	},
	engine.FieldDead: func(v string) (any, error) { return strconv.ParseBool(v) },
}

// parseFilters turns query parameters into store filters. Names without a
// parser pass through as strings so the store reports them as unknown.
func parseFilters(q url.Values) (map[string]any, error) {
	filters := make(map[string]any, len(q))
	for name, values := range q {
		if len(values) == 0 {
			continue
		}
		parse, ok := filterParsers[name]
		if !ok {
			filters[name] = values[0]
			continue
		}
		v, err := parse(values[0])
		if err != nil {
			return nil, fmt.Errorf("%w: filter %s=%q: %v", errBadRequest, name, values[0], err)
		}
		filters[name] = v
	}
	return filters, nil
}

// parseCoord parses "q,r".
func parseCoord(s string) (world.HexCoord, error) {
	qs, rs, ok := strings.Cut(s, ",")
	if !ok {
		return world.HexCoord{}, fmt.Errorf("%w: coordinate %q must be q,r", errBadRequest, s)
	}
	q, err := strconv.Atoi(strings.TrimSpace(qs))
	if err != nil {
		return world.HexCoord{}, fmt.Errorf("%w: coordinate %q: %v", errBadRequest, s, err)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rs))
	if err != nil {
		return world.HexCoord{}, fmt.Errorf("%w: coordinate %q: %v", errBadRequest, s, err)
	}
	return world.HexCoord{Q: q, R: r}, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return nil
}

// ── People ───────────────────────────────────────────────────────────

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	people, err := s.Sim.People.QueryAll(filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.Sim.People.Read(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string         `json:"id"`
		Position world.HexCoord `json:"position"`
		Role     string         `json:"role"`
		Lifespan int            `json:"lifespan"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	role := agents.RoleCitizen
	if req.Role != "" {
		var err error
		if role, err = agents.ParseRole(req.Role); err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	if req.Lifespan < 0 {
		writeError(w, fmt.Errorf("%w: lifespan must not be negative", errBadRequest))
		return
	}

	p, err := s.Sim.CreatePerson(agents.Person{
		ID:       req.ID,
		Position: req.Position,
		Role:     role,
		Lifespan: req.Lifespan,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.People.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Buildings ────────────────────────────────────────────────────────

func (s *Server) handleListBuildings(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	buildings, err := s.Sim.Buildings.QueryAll(filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildings)
}

func (s *Server) handleGetBuilding(w http.ResponseWriter, r *http.Request) {
	b, err := s.Sim.Buildings.Read(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	var b world.Building
	if err := decodeBody(r, &b); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.Sim.CreateBuilding(b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteBuilding(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.Buildings.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Locations ────────────────────────────────────────────────────────

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	locations, err := s.Sim.Locations.QueryAll(filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

// handleGetLocation returns the location joined with its current occupants.
func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sim.HydrateLocation(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var l world.Location
	if err := decodeBody(r, &l); err != nil {
		writeError(w, err)
		return
	}
	l, err := s.Sim.CreateLocation(l)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.Locations.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Geometry ─────────────────────────────────────────────────────────

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	from, err := parseCoord(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseCoord(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":     from,
		"to":       to,
		"distance": s.Sim.Distance(from, to),
	})
}
