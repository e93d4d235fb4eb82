// Package agents provides the person data model and the spawner that
// creates the initial population.
package agents

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/hexcity/internal/world"
)

// Role determines which interaction policy a person follows each tick.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleKiller  Role = "killer"
	RolePolice  Role = "police"
)

// Roles lists the built-in roles.
var Roles = []Role{RoleCitizen, RoleKiller, RolePolice}

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleCitizen, RoleKiller, RolePolice:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Person is an agent living on the grid.
type Person struct {
	ID       string         `json:"id"`
	Position world.HexCoord `json:"position"`
	Role     Role           `json:"role"`
	IsDead   bool           `json:"is_dead"`
	Lifespan int            `json:"lifespan"` // Ticks left to live; 0 = not tracked
}

// NewID returns a fresh person id.
func NewID() string {
	return uuid.NewString()
}

// Alive reports whether the person can still act and move.
func (p Person) Alive() bool {
	return !p.IsDead
}

// Age consumes one tick of lifespan, if tracked, and marks the person dead
// once it runs out. Returns true if this call killed the person.
func (p *Person) Age() bool {
	if p.Lifespan <= 0 || p.IsDead {
		return false
	}
	p.Lifespan--
	if p.Lifespan <= 0 {
		p.IsDead = true
		return true
	}
	return false
}
