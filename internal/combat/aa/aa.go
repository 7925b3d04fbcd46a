// Package aa resolves anti-aircraft fire before combat and along move routes.
//
// Each AA family in a territory fires on its own, in reverse alphabetical
// order of the family tag, at the targets that family can engage. Units
// killed by one family are not fired on again.
package aa

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/history"
	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// Sealer is implemented by bridges that can make a move permanent.
type Sealer interface {
	MarkNonUndoable()
}

// Site is AA fire in one territory.
type Site struct {
	BattleID  string
	Territory *unit.Territory
	Round     int
	// AAUnits are every unit present that may fire AA.
	AAUnits []*unit.Unit
	// Targets are the units being fired at.
	Targets []*unit.Unit
	// Defending is true when the AA side is the defender.
	Defending bool
	// Friendly is the AA side, Enemy the targets' side. Both default to the
	// units above.
	Friendly []*unit.Unit
	Enemy    []*unit.Unit
	// Chooser picks casualties for the targets' owner under the choose policy.
	Chooser casualty.Chooser
}

// Volley is one AA family firing.
type Volley struct {
	TypeAA     unit.AAType
	Roll       roll.AARoll
	Targets    []*unit.Unit
	Casualties casualty.Details
}

// Result is every volley fired at a site.
type Result struct {
	Volleys []Volley
	// Casualties merges the volleys. Killed and Damaged are disjoint.
	Casualties casualty.List
}

// Fire resolves AA.
type Fire struct {
	Roller   *roll.Resolver
	Selector *casualty.Selector
	History  history.Writer
}

func (f *Fire) history() history.Writer {
	if f.History == nil {
		return history.Discard
	}
	return f.History
}

// Families returns the AA tags present among units that can fire, reverse
// alphabetical.
func Families(units []*unit.Unit, defending bool) []unit.AAType {
	seen := map[unit.AAType]bool{}
	var out []unit.AAType
	for _, u := range units {
		if !canFire(u, defending) {
			continue
		}
		tag := u.Type.AATag()
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

func canFire(u *unit.Unit, defending bool) bool {
	if defending {
		return u.Type.IsAA()
	}
	return u.Type.IsOffensiveAA()
}

// Eligible returns the targets at least one of aaUnits can engage.
func Eligible(aaUnits []*unit.Unit, targets []*unit.Unit) []*unit.Unit {
	return unit.Filter(targets, func(t *unit.Unit) bool {
		for _, u := range aaUnits {
			if u.Type.Targets(t.Type) {
				return true
			}
		}
		return false
	})
}

// Resolve fires every AA family at site and returns the casualties without
// applying them.
func (f *Fire) Resolve(ctx context.Context, site Site) (Result, error) {
	var out Result
	alive := slices.Clone(site.Targets)
	damage := map[*unit.Unit]int{}

	for _, tag := range Families(site.AAUnits, site.Defending) {
		group := unit.Filter(site.AAUnits, func(u *unit.Unit) bool {
			return canFire(u, site.Defending) && u.Type.AATag() == tag
		})
		targets := Eligible(group, alive)
		if len(targets) == 0 {
			continue
		}
		friendly := site.Friendly
		if friendly == nil {
			friendly = site.AAUnits
		}
		enemy := site.Enemy
		if enemy == nil {
			enemy = site.Targets
		}
		rolled, err := f.Roller.RollAA(ctx, roll.AARequest{
			AAUnits:   group,
			Targets:   targets,
			Defending: site.Defending,
			Territory: site.Territory,
			Round:     max(site.Round, 1),
			Friendly:  friendly,
			Enemy:     enemy,
		})
		if err != nil {
			return Result{}, fmt.Errorf("roll %s: %w", tag, err)
		}
		volley := Volley{TypeAA: tag, Roll: rolled, Targets: targets}
		if rolled.Hits() > 0 {
			details, err := f.Selector.AA(ctx, casualty.AARequest{
				BattleID:  site.BattleID,
				Planes:    targets,
				AAUnits:   group,
				Roll:      rolled,
				Player:    targets[0].Owner,
				Territory: site.Territory,
				Round:     max(site.Round, 1),
				Friendly:  enemy,
				Enemy:     friendly,
				Defending: !site.Defending,
				Chooser:   site.Chooser,
			})
			if err != nil {
				return Result{}, fmt.Errorf("select %s casualties: %w", tag, err)
			}
			volley.Casualties = details
			alive = unit.Remove(alive, details.Killed)
			for _, u := range details.Damaged {
				damage[u]++
			}
			f.history().AddChildToEvent(fmt.Sprintf("%s killed by %s", unitsText(details.Killed), tag), details.List)
		}
		out.Volleys = append(out.Volleys, volley)
		out.Casualties.Killed = append(out.Casualties.Killed, volley.Casualties.Killed...)
	}

	// A unit damaged by one family and killed by the next only counts as killed.
	for _, u := range site.Targets {
		if n := damage[u]; n > 0 && !unit.Contains(out.Casualties.Killed, u) {
			for range n {
				out.Casualties.Damaged = append(out.Casualties.Damaged, u)
			}
		}
	}
	return out, nil
}

func unitsText(units []*unit.Unit) string {
	if len(units) == 0 {
		return "no units"
	}
	return unit.ToText(units)
}

// Changes converts casualties at territory into board changes.
func Changes(territory string, list casualty.List) change.Composite {
	var out change.Composite
	if len(list.Damaged) > 0 {
		out = append(out, change.Damage(list.Damaged))
	}
	if len(list.Killed) > 0 {
		out = append(out, change.RemoveUnits{Territory: territory, Units: slices.Clone(list.Killed)})
	}
	return out
}

// Route fires AA at every site in order at units moving through them.
// Units killed at one site are not fired on at later sites and damage carries
// forward. Casualties are applied through bridge to location, the territory
// holding the moving units, and the move is sealed once any AA has fired.
func (f *Fire) Route(ctx context.Context, bridge change.Bridge, location string, route []Site) ([]Result, error) {
	var (
		killed  []*unit.Unit
		results []Result
		fired   bool
	)
	for _, site := range route {
		site.Targets = unit.Remove(site.Targets, killed)
		if len(site.Targets) == 0 {
			break
		}
		if len(Families(site.AAUnits, site.Defending)) == 0 {
			continue
		}
		f.history().StartEvent(fmt.Sprintf("AA fire in %s", site.Territory))
		res, err := f.Resolve(ctx, site)
		if err != nil {
			return results, err
		}
		fired = fired || len(res.Volleys) > 0
		if err := bridge.AddChange(ctx, Changes(location, res.Casualties)); err != nil {
			return results, fmt.Errorf("apply AA casualties in %s: %w", site.Territory, err)
		}
		killed = append(killed, res.Casualties.Killed...)
		results = append(results, res)
	}
	if fired {
		if s, ok := bridge.(Sealer); ok {
			s.MarkNonUndoable()
		}
	}
	return results, nil
}
