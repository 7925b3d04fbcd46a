// Package change applies reversible mutations to the board battles fight on.
//
// Battles never mutate units or territories directly. They describe the
// mutation as a Change and hand it to a Bridge, which applies it and keeps
// the inverse so the move can be undone until something marks it final.
package change

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// Board holds the units present in each territory.
type Board struct {
	units map[string][]*unit.Unit
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{units: map[string][]*unit.Unit{}}
}

// Place puts units in territory without recording a change. Setup only.
func (b *Board) Place(territory string, units ...*unit.Unit) {
	b.units[territory] = append(b.units[territory], units...)
}

// Units returns a copy of the units in territory.
func (b *Board) Units(territory string) []*unit.Unit {
	return append([]*unit.Unit(nil), b.units[territory]...)
}

// Territories returns the names of territories holding units.
func (b *Board) Territories() []string {
	out := make([]string, 0, len(b.units))
	for name, units := range b.units {
		if len(units) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// Change is one reversible board mutation.
type Change interface {
	Apply(b *Board) error
	Invert() Change
	// Kind names the change for journals and spectators.
	Kind() string
}

// AddUnits places units in a territory.
type AddUnits struct {
	Territory string
	Units     []*unit.Unit
}

func (c AddUnits) Kind() string { return "add_units" }

func (c AddUnits) Apply(b *Board) error {
	for _, u := range c.Units {
		if unit.Contains(b.units[c.Territory], u) {
			return fmt.Errorf("unit %s already in %s", u.ID, c.Territory)
		}
	}
	b.units[c.Territory] = append(b.units[c.Territory], c.Units...)
	return nil
}

func (c AddUnits) Invert() Change { return RemoveUnits(c) }

func (c AddUnits) String() string {
	return fmt.Sprintf("add %s to %s", unit.ToText(c.Units), c.Territory)
}

// RemoveUnits takes units out of a territory.
type RemoveUnits struct {
	Territory string
	Units     []*unit.Unit
}

func (c RemoveUnits) Kind() string { return "remove_units" }

func (c RemoveUnits) Apply(b *Board) error {
	present := b.units[c.Territory]
	if !unit.ContainsAll(present, c.Units) {
		return fmt.Errorf("remove %s: not all units are in %s", unit.ToText(c.Units), c.Territory)
	}
	b.units[c.Territory] = unit.Remove(present, c.Units)
	return nil
}

func (c RemoveUnits) Invert() Change { return AddUnits(c) }

func (c RemoveUnits) String() string {
	return fmt.Sprintf("remove %s from %s", unit.ToText(c.Units), c.Territory)
}

// UnitHits sets the damage of units. From and To are keyed by unit id.
type UnitHits struct {
	Units []*unit.Unit
	From  map[string]int
	To    map[string]int
}

// Damage builds a UnitHits change adding one hit per occurrence of a unit in
// damaged.
func Damage(damaged []*unit.Unit) UnitHits {
	c := UnitHits{From: map[string]int{}, To: map[string]int{}}
	for _, u := range damaged {
		if _, ok := c.From[u.ID]; !ok {
			c.Units = append(c.Units, u)
			c.From[u.ID] = u.Hits
			c.To[u.ID] = u.Hits
		}
		c.To[u.ID]++
	}
	return c
}

func (c UnitHits) Kind() string { return "unit_hits" }

func (c UnitHits) Apply(_ *Board) error {
	for _, u := range c.Units {
		if u.Hits != c.From[u.ID] {
			return fmt.Errorf("unit %s has %d hits, expected %d", u.ID, u.Hits, c.From[u.ID])
		}
	}
	for _, u := range c.Units {
		u.Hits = c.To[u.ID]
	}
	return nil
}

func (c UnitHits) Invert() Change {
	return UnitHits{Units: c.Units, From: c.To, To: c.From}
}

func (c UnitHits) String() string {
	parts := make([]string, 0, len(c.Units))
	for _, u := range c.Units {
		parts = append(parts, fmt.Sprintf("%s %d->%d", u.ID, c.From[u.ID], c.To[u.ID]))
	}
	return "hits " + strings.Join(parts, ", ")
}

// Flag names a boolean unit property.
type Flag string

const (
	FlagSubmerged      Flag = "submerged"
	FlagNoMovementLeft Flag = "no_movement_left"
	FlagWasInCombat    Flag = "was_in_combat"
)

func (f Flag) field(u *unit.Unit) *bool {
	switch f {
	case FlagSubmerged:
		return &u.Submerged
	case FlagNoMovementLeft:
		return &u.NoMovementLeft
	case FlagWasInCombat:
		return &u.WasInCombat
	default:
		return nil
	}
}

// UnitFlags sets a flag on units. From and To are keyed by unit id.
type UnitFlags struct {
	Flag  Flag
	Units []*unit.Unit
	From  map[string]bool
	To    map[string]bool
}

// SetFlag builds a UnitFlags change setting flag to value on units.
func SetFlag(units []*unit.Unit, flag Flag, value bool) UnitFlags {
	c := UnitFlags{Flag: flag, From: map[string]bool{}, To: map[string]bool{}}
	for _, u := range units {
		p := flag.field(u)
		if p == nil {
			continue
		}
		c.Units = append(c.Units, u)
		c.From[u.ID] = *p
		c.To[u.ID] = value
	}
	return c
}

func (c UnitFlags) Kind() string { return "unit_flags" }

func (c UnitFlags) Apply(_ *Board) error {
	for _, u := range c.Units {
		p := c.Flag.field(u)
		if p == nil {
			return fmt.Errorf("unknown unit flag %q", c.Flag)
		}
		*p = c.To[u.ID]
	}
	return nil
}

func (c UnitFlags) Invert() Change {
	return UnitFlags{Flag: c.Flag, Units: c.Units, From: c.To, To: c.From}
}

// BombingDamage sets the strategic bombing damage of one unit.
type BombingDamage struct {
	Unit *unit.Unit
	From int
	To   int
}

func (c BombingDamage) Kind() string { return "bombing_damage" }

func (c BombingDamage) Apply(_ *Board) error {
	if c.Unit.BombingDamage != c.From {
		return fmt.Errorf("unit %s has %d bombing damage, expected %d", c.Unit.ID, c.Unit.BombingDamage, c.From)
	}
	c.Unit.BombingDamage = c.To
	return nil
}

func (c BombingDamage) Invert() Change {
	return BombingDamage{Unit: c.Unit, From: c.To, To: c.From}
}

// MoveUnits moves units between territories.
func MoveUnits(from, to string, units []*unit.Unit) Composite {
	if len(units) == 0 {
		return nil
	}
	return Composite{
		RemoveUnits{Territory: from, Units: units},
		AddUnits{Territory: to, Units: units},
	}
}

// Composite applies changes in order and undoes them in reverse.
type Composite []Change

func (c Composite) Kind() string { return "composite" }

func (c Composite) Apply(b *Board) error {
	for i, ch := range c {
		if err := ch.Apply(b); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c[j].Invert().Apply(b)
			}
			return err
		}
	}
	return nil
}

func (c Composite) Invert() Change {
	out := make(Composite, len(c))
	for i, ch := range c {
		out[len(c)-1-i] = ch.Invert()
	}
	return out
}

// Empty reports whether the composite holds no changes.
func (c Composite) Empty() bool {
	return len(c) == 0
}

type record struct {
	Kind      string   `json:"kind"`
	Territory string   `json:"territory,omitempty"`
	Flag      Flag     `json:"flag,omitempty"`
	Units     []string `json:"units,omitempty"`
	From      any      `json:"from,omitempty"`
	To        any      `json:"to,omitempty"`
	Children  []record `json:"children,omitempty"`
}

func toRecord(ch Change) record {
	switch c := ch.(type) {
	case AddUnits:
		return record{Kind: c.Kind(), Territory: c.Territory, Units: unitIDs(c.Units)}
	case RemoveUnits:
		return record{Kind: c.Kind(), Territory: c.Territory, Units: unitIDs(c.Units)}
	case UnitHits:
		return record{Kind: c.Kind(), Units: unitIDs(c.Units), From: c.From, To: c.To}
	case UnitFlags:
		return record{Kind: c.Kind(), Flag: c.Flag, Units: unitIDs(c.Units), From: c.From, To: c.To}
	case BombingDamage:
		return record{Kind: c.Kind(), Units: []string{c.Unit.ID}, From: c.From, To: c.To}
	case Composite:
		r := record{Kind: c.Kind()}
		for _, child := range c {
			r.Children = append(r.Children, toRecord(child))
		}
		return r
	default:
		return record{Kind: ch.Kind()}
	}
}

// Marshal renders a change as JSON with unit ids in place of units.
func Marshal(ch Change) ([]byte, error) {
	return json.Marshal(toRecord(ch))
}

func unitIDs(units []*unit.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}
