package battle

import (
	"context"
	"fmt"
	"slices"

	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/display"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/stack"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	"github.com/triplea-game/triplea-sub001/internal/platform/i18n/catalog"
)

var retreatMessages = map[player.RetreatKind]string{
	player.RetreatGeneral:           "battle.retreat.general",
	player.RetreatSubs:              "battle.retreat.subs",
	player.RetreatPlanes:            "battle.retreat.planes",
	player.RetreatPartialAmphibious: "battle.retreat.partial",
}

func retreatStepName(p *unit.Player, kind player.RetreatKind) string {
	switch kind {
	case player.RetreatSubs:
		return fmt.Sprintf("%s withdraw subs", p)
	case player.RetreatPlanes:
		return fmt.Sprintf("%s withdraw planes", p)
	case player.RetreatPartialAmphibious:
		return fmt.Sprintf("%s withdraw non-amphibious units", p)
	default:
		return fmt.Sprintf("%s withdraw", p)
	}
}

func (b *Battle) retreatStep(kind player.RetreatKind, defending bool) stack.Step {
	return b.step(retreatStepName(b.owner(defending), kind), func(ctx context.Context, _ *stack.Stack) error {
		if b.over || b.env.Headless {
			return nil
		}
		switch {
		case defending && kind == player.RetreatSubs:
			if !b.canDefenderRetreatSubs() {
				return nil
			}
			return b.queryRetreat(ctx, true, kind, b.defenderSubRetreatTerritories(), unit.Filter(b.defending, unit.CanEvade))
		case defending:
			return nil
		case kind == player.RetreatSubs:
			if !b.canAttackerRetreatSubs() {
				return nil
			}
			return b.queryRetreat(ctx, false, kind, b.attackerRetreatTerritories(), unit.Filter(b.attacking, unit.CanEvade))
		case kind == player.RetreatPlanes:
			if !b.canAttackerRetreatPlanes() {
				return nil
			}
			return b.queryRetreat(ctx, false, kind, []*unit.Territory{b.site}, unit.Filter(b.attacking, unit.IsAir))
		case kind == player.RetreatPartialAmphibious:
			if !b.canAttackerRetreatPartialAmphibious() {
				return nil
			}
			return b.queryRetreat(ctx, false, kind, b.attackerRetreatTerritories(), unit.Filter(b.attacking, unit.Not(unit.IsAmphibious)))
		default:
			if !b.canAttackerRetreat() {
				return nil
			}
			return b.queryRetreat(ctx, false, kind, b.attackerRetreatTerritories(), b.attacking)
		}
	})
}

// attackerRetreatTerritories returns where the attack may fall back to.
func (b *Battle) attackerRetreatTerritories() []*unit.Territory {
	if (len(b.attacking) > 0 && unit.All(b.attacking, unit.IsAir)) || b.env.Props.RetreatingUnitsRemainInPlace {
		return []*unit.Territory{b.site}
	}
	landAttackers := unit.Any(b.attacking, unit.IsLand) && !b.site.Water
	seaAttackers := unit.Any(b.attacking, unit.IsSea)
	var out []*unit.Territory
	for _, t := range b.attackingFrom {
		switch {
		case t == nil || t.Name == b.site.Name:
		case landAttackers && t.Water:
		case seaAttackers && !t.Water:
		default:
			out = append(out, t)
		}
	}
	return out
}

func (b *Battle) defenderSubRetreatTerritories() []*unit.Territory {
	var out []*unit.Territory
	for _, t := range b.defenderSubRetreats {
		if t != nil && t.Water && t.Name != b.site.Name {
			out = append(out, t)
		}
	}
	return out
}

func (b *Battle) onlyDefenselessDefendingTransportsLeft() bool {
	return b.env.Props.TransportCasualtiesRestricted && len(b.defending) > 0 &&
		unit.All(b.defending, unit.IsDefenselessTransport)
}

func (b *Battle) canAttackerRetreat() bool {
	if b.onlyDefenselessDefendingTransportsLeft() || b.amphibious {
		return false
	}
	return len(b.attackerRetreatTerritories()) > 0
}

func (b *Battle) canAttackerRetreatSubs() bool {
	if unit.Any(b.defending, unit.IsDestroyer) || unit.Any(b.defendingWaitingToDie, unit.IsDestroyer) {
		return false
	}
	return b.canAttackerRetreat() || b.env.Props.SubmersibleSubs
}

func (b *Battle) canAttackerRetreatPlanes() bool {
	props := b.env.Props
	return (props.WW2V2 || props.PartialAmphibiousRetreat) && b.amphibious && unit.Any(b.attacking, unit.IsAir)
}

func (b *Battle) canAttackerRetreatPartialAmphibious() bool {
	if !b.amphibious || !b.env.Props.PartialAmphibiousRetreat {
		return false
	}
	return unit.Any(b.attacking, unit.And(unit.IsLand, unit.Not(unit.IsAmphibious)))
}

func (b *Battle) canDefenderRetreatSubs() bool {
	if unit.Any(b.attacking, unit.IsDestroyer) || unit.Any(b.attackingWaitingToDie, unit.IsDestroyer) {
		return false
	}
	return len(b.defenderSubRetreatTerritories()) > 0 || b.env.Props.SubmersibleSubs
}

// queryRetreat asks the owner of units whether and where to retreat. Subs
// that may submerge and planes answer with the battle site to stay out of
// the fight without moving.
func (b *Battle) queryRetreat(ctx context.Context, defending bool, kind player.RetreatKind, possible []*unit.Territory, units []*unit.Unit) error {
	submerge := kind == player.RetreatSubs && b.env.Props.SubmersibleSubs
	if len(possible) == 0 && !submerge {
		return nil
	}
	if unit.Any(units, unit.IsSea) {
		possible = slices.DeleteFunc(slices.Clone(possible), func(t *unit.Territory) bool { return !t.Water })
	}
	if len(units) == 0 {
		return nil
	}
	if len(possible) == 0 && !submerge {
		return nil
	}

	retreating := b.owner(defending)
	key := retreatMessages[kind]
	if submerge && len(possible) == 0 {
		key = "battle.submerge"
	}
	message := catalog.Default().Sprintf(b.env.Locale, key, retreating.String())
	choice, err := b.player(retreating).RetreatQuery(ctx, player.RetreatQuery{
		BattleID:  b.id,
		Player:    retreating,
		Kind:      kind,
		Territory: b.site,
		Possible:  slices.Clone(possible),
		Submerge:  submerge,
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("retreat query: %w", err)
	}
	if choice == nil {
		return nil
	}

	atSite := choice.Name == b.site.Name
	switch {
	case submerge && atSite:
		return b.submerge(ctx, units, defending)
	case !containsTerritory(possible, choice):
		b.logf("invalid retreat to %s by %s from %s", choice, retreating, b.site)
		return nil
	}
	return b.retreatUnits(ctx, units, choice, defending, kind)
}

func containsTerritory(ts []*unit.Territory, t *unit.Territory) bool {
	return slices.ContainsFunc(ts, func(c *unit.Territory) bool { return c.Name == t.Name })
}

// retreatUnits moves units and their cargo out of the battle. Retreating is
// not a casualty.
func (b *Battle) retreatUnits(ctx context.Context, units []*unit.Unit, to *unit.Territory, defending bool, kind player.RetreatKind) error {
	units = append(slices.Clone(units), b.dependentsOf(units)...)
	if to.Name != b.site.Name {
		if err := b.env.Bridge.AddChange(ctx, change.MoveUnits(b.site.Name, to.Name, units)); err != nil {
			return fmt.Errorf("retreat to %s: %w", to, err)
		}
	}
	if defending {
		b.defending = unit.Remove(b.defending, units)
	} else {
		b.attacking = unit.Remove(b.attacking, units)
	}
	b.retreated = append(b.retreated, units...)
	if b.env.Tracker != nil {
		b.env.Tracker.RemoveFromDependents(b, units)
	}

	retreating := b.owner(defending)
	b.env.History.AddChildToEvent(fmt.Sprintf("%s retreated to %s", unit.ToText(units), to), slices.Clone(units))
	b.notify(ctx, display.Event{
		Kind:    display.EventRetreat,
		Player:  retreating.String(),
		Message: fmt.Sprintf("%s retreat %s to %s", retreating, kind, to),
		Sound:   display.SoundRetreat,
	})

	switch {
	case !defending && (kind == player.RetreatGeneral || !unit.Any(b.attacking, isCombatant)):
		return b.end(ctx, DefenderWon)
	case defending && !unit.Any(b.defending, isCombatant):
		return b.end(ctx, AttackerWon)
	}
	return nil
}

// submerge hides subs for the rest of the battle. They stay on the board.
func (b *Battle) submerge(ctx context.Context, units []*unit.Unit, defending bool) error {
	if len(units) == 0 {
		return nil
	}
	if err := b.env.Bridge.AddChange(ctx, change.SetFlag(units, change.FlagSubmerged, true)); err != nil {
		return fmt.Errorf("submerge: %w", err)
	}
	if defending {
		b.defending = unit.Remove(b.defending, units)
	} else {
		b.attacking = unit.Remove(b.attacking, units)
	}
	b.env.History.AddChildToEvent(fmt.Sprintf("%s submerged", unit.ToText(units)), slices.Clone(units))
	b.notify(ctx, display.Event{
		Kind:    display.EventRetreat,
		Player:  b.owner(defending).String(),
		Message: fmt.Sprintf("%s submerged", unit.ToText(units)),
		Sound:   display.SoundSubmerge,
	})
	return nil
}
