// Interaction: role policies decide which adjacent people an actor eliminates.
package engine

import (
	"github.com/talgya/hexcity/internal/agents"
)

// RoleStrategy selects the targets an actor eliminates among its living neighbors.
type RoleStrategy interface {
	Targets(actor agents.Person, adjacent []agents.Person) []agents.Person
}

// RoleStrategyFunc adapts a function to RoleStrategy.
type RoleStrategyFunc func(actor agents.Person, adjacent []agents.Person) []agents.Person

func (f RoleStrategyFunc) Targets(actor agents.Person, adjacent []agents.Person) []agents.Person {
	return f(actor, adjacent)
}

// Passive never eliminates anyone.
var Passive RoleStrategy = RoleStrategyFunc(func(agents.Person, []agents.Person) []agents.Person {
	return nil
})

// Eliminates returns a strategy that targets every adjacent person whose role is victim.
func Eliminates(victim agents.Role) RoleStrategy {
	return RoleStrategyFunc(func(_ agents.Person, adjacent []agents.Person) []agents.Person {
		var targets []agents.Person
		for _, p := range adjacent {
			if p.Role == victim {
				targets = append(targets, p)
			}
		}
		return targets
	})
}

// Strategies maps each role to its policy.
type Strategies map[agents.Role]RoleStrategy

// DefaultStrategies returns the built-in policies: citizens are passive,
// killers eliminate citizens, police eliminate killers.
func DefaultStrategies() Strategies {
	return Strategies{
		agents.RoleCitizen: Passive,
		agents.RoleKiller:  Eliminates(agents.RoleCitizen),
		agents.RolePolice:  Eliminates(agents.RoleKiller),
	}
}

// Register sets the policy for role, replacing any existing one.
func (s Strategies) Register(role agents.Role, strategy RoleStrategy) {
	s[role] = strategy
}

// InteractionResolver evaluates role policies against adjacent occupants.
type InteractionResolver struct {
	people     *PeopleStore
	strategies Strategies
}

// NewInteractionResolver creates a resolver using the given policy table.
func NewInteractionResolver(people *PeopleStore, strategies Strategies) *InteractionResolver {
	return &InteractionResolver{people: people, strategies: strategies}
}

// Adjacent returns every living person on the six cells around p, in
// canonical direction order.
func (ir *InteractionResolver) Adjacent(p agents.Person) ([]agents.Person, error) {
	var adjacent []agents.Person
	for _, n := range p.Position.Neighbors() {
		found, err := livePeopleAt(ir.people, n)
		if err != nil {
			return nil, err
		}
		adjacent = append(adjacent, found...)
	}
	return adjacent, nil
}

// Resolve returns the people actor eliminates this tick. Dead actors and
// roles without a registered policy eliminate nobody.
func (ir *InteractionResolver) Resolve(actor agents.Person) ([]agents.Person, error) {
	if actor.IsDead {
		return nil, nil
	}
	strategy, ok := ir.strategies[actor.Role]
	if !ok {
		return nil, nil
	}
	adjacent, err := ir.Adjacent(actor)
	if err != nil {
		return nil, err
	}
	return strategy.Targets(actor, adjacent), nil
}
