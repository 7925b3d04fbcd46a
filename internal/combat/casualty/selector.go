package casualty

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/power"
	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
	errori18n "github.com/triplea-game/triplea-sub001/internal/platform/errors/i18n"
	"github.com/triplea-game/triplea-sub001/internal/platform/i18n/catalog"
)

// Query is what a player sees when asked to pick casualties.
type Query struct {
	BattleID  string
	Player    *unit.Player
	Territory *unit.Territory
	// Targets are sorted best casualty first.
	Targets                  []*unit.Unit
	Friendly                 []*unit.Unit
	Enemy                    []*unit.Unit
	Hits                     int
	Message                  string
	Dice                     roll.DiceRoll
	Default                  List
	Amphibious               bool
	AllowMultipleHitsPerUnit bool
}

// Chooser picks casualties for the player whose units were hit.
type Chooser interface {
	SelectCasualties(ctx context.Context, q Query) (Details, error)
	ReportError(ctx context.Context, message string)
}

// Request describes hits landing on one side.
type Request struct {
	BattleID string
	// Player owns the targets.
	Player    *unit.Player
	Territory *unit.Territory
	Round     int
	Opponent  *unit.Player
	Targets   []*unit.Unit
	// Friendly must contain every target; Enemy supplies enemy support.
	Friendly  []*unit.Unit
	Enemy     []*unit.Unit
	Defending bool
	Hits      int
	Dice      roll.DiceRoll
	// Message overrides the generated casualty prompt.
	Message                  string
	Amphibious               bool
	AllowMultipleHitsPerUnit bool
	// Chooser is asked when the hits do not kill everything. Nil takes the
	// default selection.
	Chooser Chooser
}

// Selector chooses casualties.
type Selector struct {
	Props   rules.Properties
	Support []*unit.SupportRule
	// Dice decides random AA casualties.
	Dice dice.Source
	// Cache is consulted for casualty orders when set.
	Cache  *OrderCache
	Locale string
	Logger *log.Logger
}

func (s *Selector) powerContext(req Request) power.Context {
	return power.Context{
		DiceSides:        s.Props.DiceSides,
		Rules:            s.Support,
		Territory:        req.Territory,
		Round:            max(req.Round, 1),
		Opponent:         req.Opponent,
		LHTRHeavyBombers: s.Props.LHTRHeavyBombers,
	}
}

func (s *Selector) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *Selector) message(code apperrors.Code) string {
	return errori18n.GetCatalog(s.Locale).Format(string(code), nil)
}

func (s *Selector) prompt(req Request) string {
	if req.Message != "" {
		return req.Message
	}
	return catalog.Default().Sprintf(s.Locale, "battle.casualties.select", req.Player.String(), req.Hits)
}

// Select picks casualties for req. A selection that fails validation is
// reported to the chooser and asked for once more; a second failure is an
// error.
func (s *Selector) Select(ctx context.Context, req Request) (Details, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		details, err := s.selectOnce(ctx, req)
		if err == nil {
			return details, nil
		}
		if !apperrors.HasCode(err, apperrors.CodeCasualtyInvalid) && !apperrors.HasCode(err, apperrors.CodeCasualtyNotEnoughUnits) {
			return Details{}, err
		}
		lastErr = err
		s.logf("casualty selection for %s rejected: %v", req.Player, err)
		if req.Chooser != nil {
			req.Chooser.ReportError(ctx, s.message(apperrors.CodeOf(err)))
		}
	}
	return Details{}, lastErr
}

func (s *Selector) selectOnce(ctx context.Context, req Request) (Details, error) {
	if len(req.Targets) == 0 {
		return Details{}, nil
	}
	if req.Friendly != nil && !unit.ContainsAll(req.Friendly, req.Targets) {
		return Details{}, apperrors.New(apperrors.CodeCasualtyTargetsUnknown, "targets must be among the friendly units")
	}
	if req.Hits <= 0 {
		return Details{AutoCalculated: true}, nil
	}
	if allOneTypeOneHitPoint(req.Targets) {
		n := min(req.Hits, len(req.Targets))
		return Details{List: List{Killed: slices.Clone(req.Targets[:n])}, AutoCalculated: true}, nil
	}

	defaults, sorted := s.Defaults(req)
	totalHitPoints := len(sorted)
	if req.AllowMultipleHitsPerUnit {
		totalHitPoints = HitPointsLeft(sorted)
	}

	var selection Details
	if req.Hits >= totalHitPoints || req.Chooser == nil {
		selection = Details{List: defaults, AutoCalculated: true}
	} else {
		var err error
		selection, err = req.Chooser.SelectCasualties(ctx, Query{
			BattleID:                 req.BattleID,
			Player:                   req.Player,
			Territory:                req.Territory,
			Targets:                  sorted,
			Friendly:                 req.Friendly,
			Enemy:                    req.Enemy,
			Hits:                     req.Hits,
			Message:                  s.prompt(req),
			Dice:                     req.Dice,
			Default:                  defaults,
			Amphibious:               req.Amphibious,
			AllowMultipleHitsPerUnit: req.AllowMultipleHitsPerUnit,
		})
		if err != nil {
			return Details{}, fmt.Errorf("select casualties: %w", err)
		}
	}

	killed := slices.Clone(selection.Killed)
	if s.Props.PartialAmphibiousRetreat {
		killed = killAmphibiousFirst(killed, sorted)
	}
	var damaged []*unit.Unit
	hits := len(killed)
	if req.AllowMultipleHitsPerUnit {
		damaged = slices.Clone(selection.Damaged)
		for _, u := range killed {
			hits += max(0, min(damageCount(damaged, u), u.Type.HitPoints-(1+u.Hits)))
			damaged = slices.DeleteFunc(damaged, func(d *unit.Unit) bool { return d == u })
		}
	}

	want := min(req.Hits, totalHitPoints)
	if hits+len(damaged) != want {
		return Details{}, apperrors.WithMetadata(apperrors.CodeCasualtyInvalid,
			fmt.Sprintf("%s: selected %d, want %d", s.message(apperrors.CodeCasualtyInvalid), hits+len(damaged), want),
			map[string]string{"Selected": fmt.Sprint(hits + len(damaged)), "Want": fmt.Sprint(want)})
	}
	if !unit.ContainsAll(sorted, killed) || !unit.ContainsAll(sorted, damaged) || hasDuplicates(killed) || !damageFits(damaged) {
		return Details{}, apperrors.New(apperrors.CodeCasualtyNotEnoughUnits, s.message(apperrors.CodeCasualtyNotEnoughUnits))
	}
	return Details{List: List{Killed: killed, Damaged: damaged}, AutoCalculated: selection.AutoCalculated}, nil
}

// Defaults returns the default selection and the sorted targets. Units with
// spare hit points absorb damage first, then units die in casualty order.
func (s *Selector) Defaults(req Request) (List, []*unit.Unit) {
	sorted := s.Order(req)
	var out List
	selected := 0
	if req.AllowMultipleHitsPerUnit {
		for _, u := range sorted {
			if selected >= req.Hits {
				return out, sorted
			}
			extra := min(req.Hits-selected, u.Type.HitPoints-(1+u.Hits))
			for i := 0; i < extra; i++ {
				out.AddDamaged(u)
				selected++
			}
		}
	}
	for _, u := range sorted {
		if selected >= req.Hits {
			break
		}
		out.AddKilled(u)
		selected++
	}
	return out, sorted
}

// HitPointsLeft sums the hit points left on units that can take hits.
func HitPointsLeft(units []*unit.Unit) int {
	total := 0
	for _, u := range units {
		if !u.Type.IsInfrastructure {
			total += u.HitPointsLeft()
		}
	}
	return total
}

func allOneTypeOneHitPoint(targets []*unit.Unit) bool {
	categories := unit.Categorize(targets)
	if len(categories) != 1 {
		return false
	}
	c := categories[0]
	return c.Type.HitPoints-c.Hits <= 1
}

// killAmphibiousFirst swaps killed land units that did not land from sea
// for amphibious units of the same type, so the rest may retreat.
func killAmphibiousFirst(killed []*unit.Unit, targets []*unit.Unit) []*unit.Unit {
	nonAmphibious := unit.Filter(killed, unit.And(unit.IsLand, unit.Not(unit.IsAmphibious)))
	if len(nonAmphibious) == 0 {
		return killed
	}
	spare := unit.Remove(unit.Filter(targets, unit.IsAmphibious), killed)
	out := slices.Clone(killed)
	for _, u := range nonAmphibious {
		i := slices.IndexFunc(spare, func(a *unit.Unit) bool { return a.Type == u.Type })
		if i < 0 {
			continue
		}
		out = slices.DeleteFunc(out, func(k *unit.Unit) bool { return k == u })
		out = append(out, spare[i])
		spare = slices.Delete(spare, i, i+1)
	}
	return out
}

func hasDuplicates(units []*unit.Unit) bool {
	seen := make(map[*unit.Unit]bool, len(units))
	for _, u := range units {
		if seen[u] {
			return true
		}
		seen[u] = true
	}
	return false
}

// damageFits reports whether no unit is damaged past its last hit point.
func damageFits(damaged []*unit.Unit) bool {
	for _, u := range damaged {
		if damageCount(damaged, u) > u.HitPointsLeft()-1 {
			return false
		}
	}
	return true
}
