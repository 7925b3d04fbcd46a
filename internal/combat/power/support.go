package power

import (
	"sort"

	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// Kind selects which value a support rule modifies.
type Kind int

const (
	KindStrength Kind = iota
	KindRoll
	KindAAStrength
	KindAARoll
)

func (k Kind) matches(r *unit.SupportRule) bool {
	switch k {
	case KindStrength:
		return r.Strength
	case KindRoll:
		return r.Roll
	case KindAAStrength:
		return r.AAStrength
	case KindAARoll:
		return r.AARoll
	}
	return false
}

// SupportMap records giver -> receiver -> bonus.
type SupportMap map[*unit.Unit]map[*unit.Unit]int

// Add records bonus from giver to receiver.
func (m SupportMap) Add(giver *unit.Unit, receiver *unit.Unit, bonus int) {
	inner, ok := m[giver]
	if !ok {
		inner = map[*unit.Unit]int{}
		m[giver] = inner
	}
	inner[receiver] += bonus
}

// Merge adds every entry of other into m.
func (m SupportMap) Merge(other SupportMap) {
	for giver, received := range other {
		for receiver, bonus := range received {
			m.Add(giver, receiver, bonus)
		}
	}
}

type giverUses struct {
	unit *unit.Unit
	left int
}

// Ledger tracks the support uses left for one side during one roll.
// Uses never go below zero; an exhausted rule grants nothing more.
type Ledger struct {
	groups [][]*unit.SupportRule
	left   map[*unit.SupportRule]int
	givers map[*unit.SupportRule][]*giverUses
	given  SupportMap
}

// NewLedger collects the rules units can give for the role. allies selects
// rules that help friends; otherwise rules that hurt enemies.
//
// Rules are grouped by bonus type. Within a group the largest absolute
// bonus is consumed first, then the rule covering fewer unit types.
func NewLedger(units []*unit.Unit, rules []*unit.SupportRule, defending bool, allies bool) *Ledger {
	l := &Ledger{
		left:   map[*unit.SupportRule]int{},
		givers: map[*unit.SupportRule][]*giverUses{},
		given:  SupportMap{},
	}
	byType := map[string][]*unit.SupportRule{}
	for _, rule := range rules {
		if defending && !rule.Defence || !defending && !rule.Offence {
			continue
		}
		if allies && !rule.Allied || !allies && !rule.Enemy {
			continue
		}
		var givers []*giverUses
		for _, u := range units {
			if rule.GivenBy(u) {
				givers = append(givers, &giverUses{unit: u, left: rule.Number})
			}
		}
		if len(givers) == 0 {
			continue
		}
		l.left[rule] = rule.Number * len(givers)
		l.givers[rule] = givers
		byType[rule.BonusType] = append(byType[rule.BonusType], rule)
	}

	bonusTypes := make([]string, 0, len(byType))
	for bonusType := range byType {
		bonusTypes = append(bonusTypes, bonusType)
	}
	sort.Strings(bonusTypes)
	for _, bonusType := range bonusTypes {
		group := byType[bonusType]
		sort.SliceStable(group, func(i, j int) bool {
			bi, bj := abs(group[i].Bonus), abs(group[j].Bonus)
			if bi != bj {
				return bi > bj
			}
			if len(group[i].UnitTypes) != len(group[j].UnitTypes) {
				return len(group[i].UnitTypes) < len(group[j].UnitTypes)
			}
			return group[i].Name < group[j].Name
		})
		l.groups = append(l.groups, group)
	}
	return l
}

// Clone copies the remaining uses so another calculation can consume them
// independently.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	out := &Ledger{
		groups: l.groups,
		left:   make(map[*unit.SupportRule]int, len(l.left)),
		givers: make(map[*unit.SupportRule][]*giverUses, len(l.givers)),
		given:  SupportMap{},
	}
	for rule, left := range l.left {
		out.left[rule] = left
	}
	for rule, givers := range l.givers {
		copied := make([]*giverUses, len(givers))
		for i, g := range givers {
			copied[i] = &giverUses{unit: g.unit, left: g.left}
		}
		out.givers[rule] = copied
	}
	return out
}

// Take consumes at most one rule per bonus-type group for u and returns
// the summed bonus.
func (l *Ledger) Take(u *unit.Unit, kind Kind) int {
	if l == nil {
		return 0
	}
	bonus := 0
	for _, group := range l.groups {
		for _, rule := range group {
			if !kind.matches(rule) || !rule.Supports(u.Type.Name) || l.left[rule] <= 0 {
				continue
			}
			bonus += rule.Bonus
			l.left[rule]--
			givers := l.givers[rule]
			if len(givers) > 0 {
				giver := givers[0]
				giver.left--
				if giver.left <= 0 {
					l.givers[rule] = givers[1:]
				}
				l.given.Add(giver.unit, u, rule.Bonus)
			}
			break
		}
	}
	return bonus
}

// Left returns the uses remaining for rule.
func (l *Ledger) Left(rule *unit.SupportRule) int {
	if l == nil {
		return 0
	}
	return l.left[rule]
}

// Given returns the support handed out so far, by giver.
func (l *Ledger) Given() SupportMap {
	if l == nil {
		return SupportMap{}
	}
	return l.given
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
