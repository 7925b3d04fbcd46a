// Package power computes how many dice each unit rolls and the strength
// each die is rolled against, including support and territory effects.
package power

import (
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// PowerAndRolls is a unit's strength per die and its number of dice.
// Rolls of -1 mean unlimited AA attacks.
type PowerAndRolls struct {
	Power int
	Rolls int
}

// Map holds PowerAndRolls per unit.
type Map map[*unit.Unit]PowerAndRolls

// Context carries the battle facts the calculation depends on.
type Context struct {
	DiceSides int
	Rules     []*unit.SupportRule
	Territory *unit.Territory
	// Round is the 1-based battle round.
	Round int
	// Opponent is the enemy player, used for the dominating first round rule.
	Opponent         *unit.Player
	LHTRHeavyBombers bool
}

func (c Context) territoryIsLand() bool {
	return c.Territory != nil && !c.Territory.Water
}

// firstTurnLimited reports whether a defender owned by owner rolls at most
// 1 this round.
func (c Context) firstTurnLimited(owner *unit.Player) bool {
	return c.Round == 1 && owner != nil && c.Opponent != nil &&
		c.Opponent.DominatingFirstRoundAttack && !owner.NegateDominatingFirstRoundAttack
}

// Calculate returns power and rolls for units. friendly and enemy are every
// unit on each side still alive or waiting to die; their support is handed
// out in the order units are given.
func Calculate(units []*unit.Unit, friendly []*unit.Unit, enemy []*unit.Unit, defending bool, c Context) Map {
	return CalculateWithSupport(units, friendly, enemy, defending, c, SupportMap{}, SupportMap{})
}

// CalculateWithSupport is Calculate that also records which giver
// supported which receiver, split by strength and roll support.
func CalculateWithSupport(units []*unit.Unit, friendly []*unit.Unit, enemy []*unit.Unit, defending bool, c Context, strengthGiven SupportMap, rollGiven SupportMap) Map {
	out := Map{}
	if len(units) == 0 {
		return out
	}
	friendlyStrength := NewLedger(friendly, c.Rules, defending, true)
	enemyStrength := NewLedger(enemy, c.Rules, !defending, false)
	friendlyRolls := friendlyStrength.Clone()
	enemyRolls := enemyStrength.Clone()

	for _, u := range units {
		t := u.Type
		strength := t.Value(defending)
		supported := false
		if defending {
			if c.firstTurnLimited(u.Owner) {
				strength = min(1, strength)
			} else {
				bonus := friendlyStrength.Take(u, KindStrength)
				supported = bonus > 0
				strength += bonus
			}
		} else {
			if u.WasAmphibious {
				strength += t.Marine
			}
			if t.IsSea && c.territoryIsLand() {
				strength = t.Bombard
			}
			bonus := friendlyStrength.Take(u, KindStrength)
			supported = bonus > 0
			strength += bonus
		}
		strength += enemyStrength.Take(u, KindStrength)
		strength += c.Territory.CombatBonus(t.Name, defending)
		strength = clamp(strength, 0, c.DiceSides)

		base := t.Rolls(defending)
		rolls := max(0, base+friendlyRolls.Take(u, KindRoll)+enemyRolls.Take(u, KindRoll))
		if rolls == 0 && base == 0 && t.Value(defending) > 0 &&
			(supported || c.Territory.HasCombatBonus(t.Name, defending)) {
			rolls = 1
		}
		if rolls == 0 || strength == 0 {
			strength, rolls = 0, 0
		}
		out[u] = PowerAndRolls{Power: strength, Rolls: rolls}
	}

	strengthGiven.Merge(friendlyStrength.Given())
	strengthGiven.Merge(enemyStrength.Given())
	rollGiven.Merge(friendlyRolls.Given())
	rollGiven.Merge(enemyRolls.Given())
	return out
}

// Total sums power and rolls. Units with more than one roll that choose
// their best die (or all heavy bombers under LHTR) add one extra point per
// extra die instead of their full strength per die.
func Total(m Map, diceSides int, lhtrHeavyBombers bool) PowerAndRolls {
	extraRollBonus := max(1, diceSides/6)
	var total PowerAndRolls
	for u, pr := range m {
		strength := clamp(pr.Power, 0, diceSides)
		if strength <= 0 || pr.Rolls <= 0 {
			continue
		}
		switch {
		case pr.Rolls == 1:
			total.Power += strength
		case lhtrHeavyBombers || u.Type.ChooseBestRoll:
			total.Power += min(strength+extraRollBonus*(pr.Rolls-1), diceSides)
		default:
			total.Power += pr.Rolls * strength
		}
		total.Rolls += pr.Rolls
	}
	return total
}

// AirBattle returns power and rolls for the air superiority phase, which
// uses dedicated air attack and defense values and ignores support.
func AirBattle(units []*unit.Unit, defending bool, diceSides int) Map {
	out := Map{}
	for _, u := range units {
		strength := u.Type.AirAttack
		if defending {
			strength = u.Type.AirDefense
		}
		strength = clamp(strength, 0, diceSides)
		rolls := 0
		if strength > 0 {
			rolls = u.Type.Rolls(defending)
		}
		if rolls == 0 {
			strength = 0
		}
		out[u] = PowerAndRolls{Power: strength, Rolls: rolls}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
