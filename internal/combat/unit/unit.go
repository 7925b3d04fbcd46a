package unit

import (
	"fmt"
	"strings"
)

// Player owns units and carries the player-level combat rules.
type Player struct {
	Name string `yaml:"name"`
	// DominatingFirstRoundAttack limits enemy defense to 1 in round one.
	DominatingFirstRoundAttack       bool     `yaml:"dominating_first_round_attack"`
	NegateDominatingFirstRoundAttack bool     `yaml:"negate_dominating_first_round_attack"`
	Allies                           []string `yaml:"allies"`
}

// AlliedWith reports whether p and other fight on the same side.
func (p *Player) AlliedWith(other *Player) bool {
	if p == nil || other == nil {
		return false
	}
	if p.Name == other.Name {
		return true
	}
	for _, name := range p.Allies {
		if name == other.Name {
			return true
		}
	}
	return false
}

func (p *Player) String() string {
	if p == nil {
		return "Neutral"
	}
	return p.Name
}

// Unit is one mutable piece on the board.
type Unit struct {
	ID    string
	Type  *Type
	Owner *Player
	// Hits is the damage taken; the unit dies at Type.HitPoints.
	Hits int
	// BombingDamage is damage taken from strategic bombing.
	BombingDamage int

	WasAmphibious  bool
	WasScrambled   bool
	WasInCombat    bool
	Submerged      bool
	NoMovementLeft bool
}

// New creates a unit of type t owned by owner.
func New(id string, t *Type, owner *Player) *Unit {
	return &Unit{ID: id, Type: t, Owner: owner}
}

// HitPointsLeft returns the number of hits the unit can still absorb.
func (u *Unit) HitPointsLeft() int {
	return u.Type.HitPoints - u.Hits
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s owned by %s", u.Type.Name, u.Owner)
}

// TerritoryEffect adjusts combat values of listed unit types.
type TerritoryEffect struct {
	Name          string         `yaml:"name"`
	CombatOffense map[string]int `yaml:"combat_offense"`
	CombatDefense map[string]int `yaml:"combat_defense"`
}

// Territory is a battle site or retreat destination.
type Territory struct {
	Name      string            `yaml:"name"`
	Water     bool              `yaml:"water"`
	Owner     *Player           `yaml:"-"`
	OwnerName string            `yaml:"owner"`
	Effects   []TerritoryEffect `yaml:"effects"`
	Neighbors []string          `yaml:"neighbors"`
}

func (t *Territory) String() string {
	if t == nil {
		return ""
	}
	return t.Name
}

// CombatBonus sums territory effect bonuses for a unit type in a role.
func (t *Territory) CombatBonus(typeName string, defending bool) int {
	if t == nil {
		return 0
	}
	bonus := 0
	for _, effect := range t.Effects {
		if defending {
			bonus += effect.CombatDefense[typeName]
		} else {
			bonus += effect.CombatOffense[typeName]
		}
	}
	return bonus
}

// HasCombatBonus reports whether any effect touches the unit type in the role.
func (t *Territory) HasCombatBonus(typeName string, defending bool) bool {
	if t == nil {
		return false
	}
	for _, effect := range t.Effects {
		table := effect.CombatOffense
		if defending {
			table = effect.CombatDefense
		}
		if _, ok := table[typeName]; ok {
			return true
		}
	}
	return false
}

// ToText renders units as "2 infantry, 1 artillery" in first-seen order.
func ToText(units []*Unit) string {
	var order []string
	counts := map[string]int{}
	for _, u := range units {
		name := u.Type.Name
		if _, ok := counts[name]; !ok {
			order = append(order, name)
		}
		counts[name]++
	}
	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, fmt.Sprintf("%d %s", counts[name], name))
	}
	return strings.Join(parts, ", ")
}
