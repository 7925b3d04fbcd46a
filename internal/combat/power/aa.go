package power

import (
	"sort"

	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// AADiceSides returns the die size an AA type rolls with.
func AADiceSides(t *unit.Type, diceSides int) int {
	if t.AADieSides < 1 {
		return diceSides
	}
	return t.AADieSides
}

func aaBaseStrength(t *unit.Type, defending bool) int {
	if defending {
		return t.AttackAA
	}
	return t.OffensiveAttackAA
}

// AA returns power and rolls for AA units. Support goes to the strongest
// AA units first.
func AA(aaUnits []*unit.Unit, friendly []*unit.Unit, enemy []*unit.Unit, defending bool, c Context) Map {
	out := Map{}
	if len(aaUnits) == 0 {
		return out
	}
	friendlyStrength := NewLedger(friendly, c.Rules, defending, true)
	enemyStrength := NewLedger(enemy, c.Rules, !defending, false)
	friendlyRolls := friendlyStrength.Clone()
	enemyRolls := enemyStrength.Clone()

	units := append([]*unit.Unit(nil), aaUnits...)
	SortAAHighToLow(units, defending, c.DiceSides, nil)
	for _, u := range units {
		t := u.Type
		strength := aaBaseStrength(t, defending)
		strength += friendlyStrength.Take(u, KindAAStrength)
		strength += enemyStrength.Take(u, KindAAStrength)
		strength = clamp(strength, 0, AADiceSides(t, c.DiceSides))

		rolls := t.MaxAAAttacks
		if rolls != -1 {
			rolls = max(0, rolls+friendlyRolls.Take(u, KindAARoll)+enemyRolls.Take(u, KindAARoll))
		}
		if rolls == 0 || strength == 0 {
			strength, rolls = 0, 0
		}
		out[u] = PowerAndRolls{Power: strength, Rolls: rolls}
	}
	return out
}

// MaxAAAttackAndDiceSides returns the best attack among units and the die
// size it rolls with, comparing attack as a fraction of die size. Values in
// m override the static attack.
func MaxAAAttackAndDiceSides(units []*unit.Unit, defending bool, diceSides int, m Map) (attack int, sides int) {
	attack, sides = 0, diceSides
	for _, u := range units {
		unitSides := AADiceSides(u.Type, diceSides)
		unitAttack := aaBaseStrength(u.Type, defending)
		if pr, ok := m[u]; ok {
			unitAttack = pr.Power
		}
		unitAttack = min(unitAttack, unitSides)
		if float64(unitAttack)/float64(unitSides) > float64(attack)/float64(sides) {
			attack, sides = unitAttack, unitSides
		}
	}
	return attack, sides
}

// SortAAHighToLow orders AA units by attack ratio, strongest first, with
// units that cannot hit last.
func SortAAHighToLow(units []*unit.Unit, defending bool, diceSides int, m Map) {
	type ratio struct {
		zero bool
		r    float64
	}
	key := make(map[*unit.Unit]ratio, len(units))
	for _, u := range units {
		attack, sides := MaxAAAttackAndDiceSides([]*unit.Unit{u}, defending, diceSides, m)
		key[u] = ratio{zero: attack == 0, r: float64(attack) / float64(sides)}
	}
	sort.SliceStable(units, func(i, j int) bool {
		a, b := key[units[i]], key[units[j]]
		if a.zero != b.zero {
			return !a.zero
		}
		return a.r > b.r
	})
}

// TotalAAAttacks returns how many AA dice units fire at targets. Unlimited
// AA covers every target; over-stacking AA adds on top of the target cap.
func TotalAAAttacks(m Map, targets int) int {
	if len(m) == 0 || targets == 0 {
		return 0
	}
	normal, surplus := 0, 0
	for u, pr := range m {
		if pr.Power == 0 || pr.Rolls == 0 {
			continue
		}
		switch {
		case pr.Rolls == -1:
			normal = targets
		case u.Type.MayOverStackAA:
			surplus += pr.Rolls
		default:
			normal += pr.Rolls
		}
	}
	return min(normal, targets) + surplus
}
