// Package casualty decides which units die or take damage from hits.
package casualty

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// List is a casualty selection. A unit appears in Damaged once per hit it
// absorbs without dying.
type List struct {
	Killed  []*unit.Unit
	Damaged []*unit.Unit
}

// Size counts every hit the list absorbs.
func (l List) Size() int {
	return len(l.Killed) + len(l.Damaged)
}

// Empty reports whether nothing was selected.
func (l List) Empty() bool {
	return l.Size() == 0
}

// AddKilled appends u to the killed units.
func (l *List) AddKilled(u *unit.Unit) {
	l.Killed = append(l.Killed, u)
}

// AddDamaged appends one hit on u.
func (l *List) AddDamaged(u *unit.Unit) {
	l.Damaged = append(l.Damaged, u)
}

// hit assigns one hit to u: damage while it can absorb more, otherwise kill.
func (l *List) hit(u *unit.Unit, allowMultipleHitsPerUnit bool) {
	if allowMultipleHitsPerUnit && damageCount(l.Damaged, u) < u.HitPointsLeft()-1 {
		l.AddDamaged(u)
		return
	}
	l.AddKilled(u)
}

// settle drops damage entries for units that also die.
func (l *List) settle() {
	if len(l.Killed) == 0 || len(l.Damaged) == 0 {
		return
	}
	l.Damaged = slices.DeleteFunc(l.Damaged, func(u *unit.Unit) bool {
		return slices.Contains(l.Killed, u)
	})
}

// Units returns killed then damaged units without duplicates.
func (l List) Units() []*unit.Unit {
	out := slices.Clone(l.Killed)
	for _, u := range l.Damaged {
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

func (l List) String() string {
	return fmt.Sprintf("killed: %s; damaged: %s", unit.ToText(l.Killed), unit.ToText(l.Damaged))
}

// Details is a selection plus whether the engine made it without asking.
type Details struct {
	List
	AutoCalculated bool
}

func damageCount(damaged []*unit.Unit, u *unit.Unit) int {
	n := 0
	for _, d := range damaged {
		if d == u {
			n++
		}
	}
	return n
}

type listJSON struct {
	Killed  []string `json:"killed"`
	Damaged []string `json:"damaged"`
}

// MarshalJSON writes unit ids.
func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal(listJSON{Killed: ids(l.Killed), Damaged: ids(l.Damaged)})
}

func ids(units []*unit.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}

// IDs is the wire form of a List, resolved against known units by Resolve.
type IDs struct {
	Killed         []string `json:"killed"`
	Damaged        []string `json:"damaged"`
	AutoCalculated bool     `json:"auto_calculated,omitempty"`
}

// ToIDs converts details to their wire form.
func (d Details) ToIDs() IDs {
	return IDs{Killed: ids(d.Killed), Damaged: ids(d.Damaged), AutoCalculated: d.AutoCalculated}
}

// Resolve maps ids back to units from candidates. Unknown ids are an error.
func (w IDs) Resolve(candidates []*unit.Unit) (Details, error) {
	byID := make(map[string]*unit.Unit, len(candidates))
	for _, u := range candidates {
		byID[u.ID] = u
	}
	lookup := func(in []string) ([]*unit.Unit, error) {
		out := make([]*unit.Unit, 0, len(in))
		for _, id := range in {
			u, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("unknown unit %q", id)
			}
			out = append(out, u)
		}
		return out, nil
	}
	killed, err := lookup(w.Killed)
	if err != nil {
		return Details{}, err
	}
	damaged, err := lookup(w.Damaged)
	if err != nil {
		return Details{}, err
	}
	return Details{List: List{Killed: killed, Damaged: damaged}, AutoCalculated: w.AutoCalculated}, nil
}
