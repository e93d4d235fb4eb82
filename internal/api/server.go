// Package api provides the HTTP API for querying and editing world state.
// GET endpoints are public. Creates are rate limited per IP.
// Admin POST endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talgya/hexcity/internal/engine"
	"github.com/talgya/hexcity/internal/store"
)

// WorldSaver persists a full snapshot on demand.
type WorldSaver interface {
	SaveWorldState(ctx context.Context, snap engine.Snapshot) error
}

// Server serves the world state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       WorldSaver // nil disables POST /api/v1/snapshot
	Hub      *Hub       // nil disables /api/v1/ws
	Port     int
	AdminKey string // Bearer token for admin POST endpoints. Empty = disabled.

	AllowedOrigins []string     // extra CORS origins beyond localhost dev servers
	CreateLimiter  *RateLimiter // nil = 120 creates per minute per IP
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	limiter := s.CreateLimiter
	if limiter == nil {
		limiter = NewRateLimiter(120, time.Minute)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/distance", s.handleDistance)

	mux.HandleFunc("GET /api/v1/people", s.handleListPeople)
	mux.HandleFunc("POST /api/v1/people", RateLimitMiddleware(limiter, s.handleCreatePerson))
	mux.HandleFunc("GET /api/v1/people/{id}", s.handleGetPerson)
	mux.HandleFunc("DELETE /api/v1/people/{id}", s.handleDeletePerson)

	mux.HandleFunc("GET /api/v1/buildings", s.handleListBuildings)
	mux.HandleFunc("POST /api/v1/buildings", RateLimitMiddleware(limiter, s.handleCreateBuilding))
	mux.HandleFunc("GET /api/v1/buildings/{id}", s.handleGetBuilding)
	mux.HandleFunc("DELETE /api/v1/buildings/{id}", s.handleDeleteBuilding)

	mux.HandleFunc("GET /api/v1/locations", s.handleListLocations)
	mux.HandleFunc("POST /api/v1/locations", RateLimitMiddleware(limiter, s.handleCreateLocation))
	mux.HandleFunc("GET /api/v1/locations/{id}", s.handleGetLocation)
	mux.HandleFunc("DELETE /api/v1/locations/{id}", s.handleDeleteLocation)

	if s.Hub != nil {
		mux.HandleFunc("GET /api/v1/ws", s.Hub.ServeWS)
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("GET /api/v1/speed", s.handleSpeed)
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(s.AllowedOrigins, mux)
}

// NewHTTPServer returns an http.Server for s on its configured port.
func (s *Server) NewHTTPServer() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API configured", "addr", addr, "admin_auth", s.AdminKey != "", "websocket", s.Hub != nil)
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(extra []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range extra {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CITYSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":  "hexcity",
		"tick":  s.Sim.CurrentTick(),
		"grid":  map[string]any{"system": s.Sim.Grid.System.Name(), "size": s.Sim.Grid.Size},
		"stats": s.Sim.Stats(),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	if s.Hub != nil {
		status["ws_clients"] = s.Hub.Clients()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, http.StatusOK, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	snap := s.Sim.Snapshot()
	if err := s.DB.SaveWorldState(r.Context(), snap); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tick":    snap.Tick,
		"message": "snapshot saved",
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists), errors.Is(err, engine.ErrOccupied):
		code = http.StatusConflict
	case errors.Is(err, store.ErrUnknownField), errors.Is(err, store.ErrInvalidValue), errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, engine.ErrOutOfBounds):
		code = http.StatusUnprocessableEntity
	default:
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
