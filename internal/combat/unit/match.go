package unit

import "slices"

// Match is a unit predicate.
type Match func(*Unit) bool

// Filter returns the units that satisfy m, preserving order.
func Filter(units []*Unit, m Match) []*Unit {
	out := make([]*Unit, 0, len(units))
	for _, u := range units {
		if m(u) {
			out = append(out, u)
		}
	}
	return out
}

// Count returns how many units satisfy m.
func Count(units []*Unit, m Match) int {
	n := 0
	for _, u := range units {
		if m(u) {
			n++
		}
	}
	return n
}

// Any reports whether at least one unit satisfies m.
func Any(units []*Unit, m Match) bool {
	return slices.ContainsFunc(units, m)
}

// All reports whether every unit satisfies m. It is true for no units.
func All(units []*Unit, m Match) bool {
	for _, u := range units {
		if !m(u) {
			return false
		}
	}
	return true
}

// Not negates m.
func Not(m Match) Match {
	return func(u *Unit) bool { return !m(u) }
}

// And combines predicates.
func And(ms ...Match) Match {
	return func(u *Unit) bool {
		for _, m := range ms {
			if !m(u) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches.
func Or(ms ...Match) Match {
	return func(u *Unit) bool {
		for _, m := range ms {
			if m(u) {
				return true
			}
		}
		return false
	}
}

func IsAir(u *Unit) bool            { return u.Type.IsAir }
func IsSea(u *Unit) bool            { return u.Type.IsSea }
func IsLand(u *Unit) bool           { return !u.Type.IsAir && !u.Type.IsSea }
func IsInfrastructure(u *Unit) bool { return u.Type.IsInfrastructure }
func IsFirstStrike(u *Unit) bool    { return u.Type.IsFirstStrike }
func CanEvade(u *Unit) bool         { return u.Type.CanEvade }
func IsDestroyer(u *Unit) bool      { return u.Type.IsDestroyer }
func IsSuicide(u *Unit) bool        { return u.Type.IsSuicide }
func IsAmphibious(u *Unit) bool     { return u.WasAmphibious }

// IsDefenselessTransport matches transports that cannot fight.
func IsDefenselessTransport(u *Unit) bool {
	return u.Type.IsTransport && u.Type.Attack == 0 && u.Type.Defense == 0
}

// CanFight matches units that can roll or absorb hits in a normal round.
func CanFight(u *Unit) bool {
	return !u.Type.IsInfrastructure || u.Type.IsAA() || u.Type.IsOffensiveAA()
}

// OwnedBy matches units owned by p.
func OwnedBy(p *Player) Match {
	return func(u *Unit) bool { return u.Owner == p || (u.Owner != nil && p != nil && u.Owner.Name == p.Name) }
}

// AlliedWith matches units on p's side.
func AlliedWith(p *Player) Match {
	return func(u *Unit) bool { return p.AlliedWith(u.Owner) }
}

// OfType matches units of the named type.
func OfType(name string) Match {
	return func(u *Unit) bool { return u.Type.Name == name }
}

// Contains reports whether u is in units by identity.
func Contains(units []*Unit, u *Unit) bool {
	return slices.Contains(units, u)
}

// ContainsAll reports whether every unit of subset is in units.
func ContainsAll(units []*Unit, subset []*Unit) bool {
	set := make(map[*Unit]struct{}, len(units))
	for _, u := range units {
		set[u] = struct{}{}
	}
	for _, u := range subset {
		if _, ok := set[u]; !ok {
			return false
		}
	}
	return true
}

// Remove returns units without any unit in drop, preserving order.
func Remove(units []*Unit, drop []*Unit) []*Unit {
	if len(drop) == 0 {
		return slices.Clone(units)
	}
	set := make(map[*Unit]struct{}, len(drop))
	for _, u := range drop {
		set[u] = struct{}{}
	}
	out := make([]*Unit, 0, len(units))
	for _, u := range units {
		if _, ok := set[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

// Category groups units that are interchangeable for casualty purposes.
type Category struct {
	Type  *Type
	Owner *Player
	Hits  int
	Units []*Unit
}

// Categorize groups units by type, owner and damage in first-seen order.
func Categorize(units []*Unit) []*Category {
	type key struct {
		t    *Type
		o    *Player
		hits int
	}
	index := map[key]*Category{}
	var out []*Category
	for _, u := range units {
		k := key{u.Type, u.Owner, u.Hits}
		c, ok := index[k]
		if !ok {
			c = &Category{Type: u.Type, Owner: u.Owner, Hits: u.Hits}
			index[k] = c
			out = append(out, c)
		}
		c.Units = append(c.Units, u)
	}
	return out
}
