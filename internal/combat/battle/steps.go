package battle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/display"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/power"
	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/stack"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

// Step names shown to players.
const (
	stepRemoveNonCombatants = "Remove non-combatants"
	stepBombard             = "Naval bombardment"
	stepMarkNoMovement      = "Mark no movement left"
	stepUndefendedTrans     = "Remove undefended transports"
	stepUnitsThatCanRoll    = "Remove units that cannot fight"
	stepSubmergeVsAir       = "Submerge subs against air"
	stepRemoveCasualties    = "Remove casualties"
	stepRemoveFirstSuicide  = "Remove first strike suicide units"
	stepRemoveSuicide       = "Remove suicide units"
	stepCheckEnd            = "Check battle end"
	stepCheckDefenders      = "Check defenders left"
	stepNextRound           = "Next round"
	stepBomb                = "Bomb target"
	stepRaidEnd             = "End bombing raid"
)

// tracedStep runs a step inside its own span.
type tracedStep struct {
	stack.Step
	tracer   trace.Tracer
	battleID string
}

func (t tracedStep) Execute(ctx context.Context, s *stack.Stack) error {
	ctx, span := t.tracer.Start(ctx, "battle.step", trace.WithAttributes(
		attribute.String("battle.id", t.battleID),
		attribute.String("battle.step", t.Name()),
	))
	defer span.End()
	if err := t.Step.Execute(ctx, s); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (b *Battle) step(name string, fn func(ctx context.Context, s *stack.Stack) error) stack.Step {
	return b.traced(stack.Func{Label: name, Fn: fn})
}

func (b *Battle) traced(s stack.Step) stack.Step {
	return tracedStep{Step: s, tracer: b.env.Tracer, battleID: b.id}
}

// pushRound schedules one round of the battle.
func (b *Battle) pushRound(first bool) {
	var steps []stack.Step
	switch {
	case b.kind.Has(AirRaid):
		steps = b.raidSteps()
	case b.kind.Has(AirSuperiority):
		steps = b.airBattleSteps()
	default:
		steps = b.normalSteps(first)
	}
	b.stack.Push(steps...)
}

func (b *Battle) normalSteps(first bool) []stack.Step {
	var steps []stack.Step
	aaFired := false
	if first && len(b.aaFamilies(false)) > 0 {
		steps = append(steps, b.aaStep(false))
		aaFired = true
	}
	if first && len(b.aaFamilies(true)) > 0 {
		steps = append(steps, b.aaStep(true))
		aaFired = true
	}
	if aaFired {
		steps = append(steps, b.step(stepRemoveCasualties, b.clearWaitingToDieStep))
	}
	if first {
		if b.kind.Has(Bombardment) && !b.site.Water && len(b.bombarding) > 0 {
			steps = append(steps, b.step(stepBombard, b.bombard))
		}
		steps = append(steps, b.step(stepRemoveNonCombatants, b.removeNonCombatants))
		steps = append(steps, b.step(stepMarkNoMovement, b.markNoMovementLeft))
	} else {
		steps = append(steps, b.step(stepRemoveNonCombatants, b.removeNonCombatants))
	}

	props := b.env.Props
	if props.SubRetreatBeforeBattle {
		steps = append(steps, b.retreatStep(player.RetreatSubs, false), b.retreatStep(player.RetreatSubs, true))
	}
	if props.TransportCasualtiesRestricted {
		steps = append(steps,
			b.step(stepUndefendedTrans, b.removeUndefendedTransports),
			b.step(stepUnitsThatCanRoll, b.removeUnitsThatCannotRoll))
	}
	steps = append(steps, b.step(stepSubmergeVsAir, b.submergeSubsVsOnlyAir))

	rfAtt := b.returnFireAgainstAttackingSubs()
	rfDef := b.returnFireAgainstDefendingSubs()
	defenderFirst := rfAtt == ReturnAll && rfDef == ReturnNone
	if defenderFirst {
		steps = append(steps, b.fireStep(fireSpec{defending: true, firstStrike: true, returnFire: rfDef}))
	}
	steps = append(steps, b.fireStep(fireSpec{firstStrike: true, returnFire: rfAtt}))
	withAll := !defenderFirst && !props.WW2V2 && rfDef == ReturnAll
	sneak := b.defendingSubsSneakAttack()
	if sneak && !defenderFirst && !withAll {
		steps = append(steps, b.fireStep(fireSpec{defending: true, firstStrike: true, returnFire: rfDef}))
	}
	steps = append(steps, b.step(stepRemoveFirstSuicide, b.removeSuicide(true)))
	steps = append(steps, b.fireStep(fireSpec{returnFire: ReturnAll}))
	if !defenderFirst && (!sneak || withAll) {
		steps = append(steps, b.fireStep(fireSpec{defending: true, firstStrike: true, returnFire: rfDef}))
	}
	steps = append(steps, b.fireStep(fireSpec{defending: true, returnFire: ReturnAll}))
	return append(steps, b.endOfRoundSteps()...)
}

func (b *Battle) endOfRoundSteps() []stack.Step {
	steps := []stack.Step{
		b.step(stepRemoveCasualties, b.clearWaitingToDieStep),
		b.step(stepRemoveSuicide, b.removeSuicide(false)),
		b.step(stepCheckEnd, b.checkEnd),
	}
	if !b.env.Props.SubRetreatBeforeBattle {
		steps = append(steps, b.retreatStep(player.RetreatSubs, false))
	}
	steps = append(steps,
		b.retreatStep(player.RetreatPlanes, false),
		b.retreatStep(player.RetreatPartialAmphibious, false),
		b.retreatStep(player.RetreatGeneral, false),
	)
	if !b.env.Props.SubRetreatBeforeBattle {
		steps = append(steps, b.retreatStep(player.RetreatSubs, true))
	}
	return append(steps,
		b.step(stepCheckDefenders, b.checkDefendersLeft),
		b.step(stepNextRound, b.nextRound),
	)
}

func (b *Battle) airBattleSteps() []stack.Step {
	return []stack.Step{
		b.fireStep(fireSpec{air: true, returnFire: ReturnAll}),
		b.fireStep(fireSpec{air: true, defending: true, returnFire: ReturnAll}),
		b.step(stepRemoveCasualties, b.clearWaitingToDieStep),
		b.step(stepCheckEnd, b.checkEnd),
		b.retreatStep(player.RetreatGeneral, false),
		b.step(stepNextRound, b.nextRound),
	}
}

func (b *Battle) clearWaitingToDieStep(ctx context.Context, _ *stack.Stack) error {
	return b.clearWaitingToDie(ctx)
}

// removeNonCombatants drops units that cannot take part in the fire steps
// from the battle. They stay on the board.
func (b *Battle) removeNonCombatants(ctx context.Context, _ *stack.Stack) error {
	for _, defending := range []bool{true, false} {
		alive, _ := b.side(defending)
		keep := unit.Filter(alive, func(u *unit.Unit) bool { return b.isCombatantHere(u, defending) })
		dropped := unit.Remove(alive, keep)
		if defending {
			b.defending = keep
		} else {
			b.attacking = keep
		}
		if len(dropped) > 0 {
			b.notify(ctx, display.Event{
				Kind:    display.EventStep,
				Step:    stepRemoveNonCombatants,
				Player:  b.owner(defending).String(),
				Message: unit.ToText(dropped),
			})
		}
	}
	return nil
}

func (b *Battle) isCombatantHere(u *unit.Unit, defending bool) bool {
	if b.site.Water && unit.IsLand(u) {
		return false
	}
	if !u.Type.IsInfrastructure {
		return true
	}
	// Infrastructure that fights or supports stays.
	if u.Type.Value(defending) > 0 {
		return true
	}
	for _, r := range b.env.Support {
		if r.GivenBy(u) {
			return true
		}
	}
	return false
}

// markNoMovementLeft pins attacking land and sea units to the battle site.
func (b *Battle) markNoMovementLeft(ctx context.Context, _ *stack.Stack) error {
	if b.env.Headless {
		return nil
	}
	pinned := unit.Filter(b.attacking, unit.Not(unit.IsAir))
	if len(pinned) == 0 {
		return nil
	}
	return b.env.Bridge.AddChange(ctx, change.SetFlag(pinned, change.FlagNoMovementLeft, true))
}

// removeUndefendedTransports kills transports left without escort when the
// enemy still has ships or planes. An attacker that can retreat is spared.
func (b *Battle) removeUndefendedTransports(ctx context.Context, _ *stack.Stack) error {
	if !b.site.Water {
		return nil
	}
	for _, defending := range []bool{false, true} {
		if !defending && (len(b.attackerRetreatTerritories()) > 0 || unit.Any(b.attacking, unit.IsAir)) {
			continue
		}
		alive, _ := b.side(defending)
		fighting := unit.Filter(alive, unit.And(unit.Not(unit.IsLand), func(u *unit.Unit) bool { return !u.Submerged }))
		transports := unit.Filter(fighting, unit.IsDefenselessTransport)
		if len(transports) == 0 || len(transports) != len(fighting) {
			continue
		}
		enemyAlive, _ := b.side(!defending)
		enemies := unit.Filter(enemyAlive, func(u *unit.Unit) bool {
			return !unit.IsLand(u) && !u.Submerged && u.Type.Value(!defending) > 0
		})
		if len(enemies) == 0 {
			continue
		}
		if ships := unit.Filter(enemies, unit.IsSea); len(ships) > 0 {
			if err := b.env.Bridge.AddChange(ctx, change.SetFlag(ships, change.FlagNoMovementLeft, true)); err != nil {
				return err
			}
		}
		if err := b.remove(ctx, transports); err != nil {
			return err
		}
	}
	return nil
}

// removeUnitsThatCannotRoll kills a side that has nothing left that can
// roll while the enemy still can. An attacker that can retreat is spared.
func (b *Battle) removeUnitsThatCannotRoll(ctx context.Context, _ *stack.Stack) error {
	if len(b.attacking) == 0 || len(b.defending) == 0 {
		return nil
	}
	canRoll := func(defending bool) bool {
		alive, _ := b.side(defending)
		return unit.Any(alive, func(u *unit.Unit) bool {
			if u.Submerged || !b.sameDomain(u) {
				return false
			}
			if u.Type.Value(defending) > 0 && u.Type.Rolls(defending) > 0 {
				return true
			}
			for _, r := range b.env.Support {
				if r.GivenBy(u) {
					return true
				}
			}
			return false
		})
	}
	for _, defending := range []bool{false, true} {
		if !defending && (len(b.attackerRetreatTerritories()) > 0 || unit.Any(b.attacking, unit.IsAir)) {
			continue
		}
		if canRoll(defending) || !canRoll(!defending) {
			continue
		}
		alive, _ := b.side(defending)
		doomed := unit.Filter(alive, func(u *unit.Unit) bool { return !u.Submerged && b.sameDomain(u) && isCombatant(u) })
		if err := b.remove(ctx, doomed); err != nil {
			return err
		}
	}
	return nil
}

// sameDomain matches units that fight where the battle is: no ships in land
// battles and no land units at sea.
func (b *Battle) sameDomain(u *unit.Unit) bool {
	if b.site.Water {
		return !unit.IsLand(u)
	}
	return !unit.IsSea(u)
}

// subHiddenFromAir matches subs planes cannot see.
func (b *Battle) subHiddenFromAir(u *unit.Unit) bool {
	return b.env.Props.AirAttackSubRestricted && unit.CanEvade(u)
}

// submergeSubsVsOnlyAir hides subs facing nothing but planes.
func (b *Battle) submergeSubsVsOnlyAir(ctx context.Context, _ *stack.Stack) error {
	switch {
	case len(b.attacking) > 0 && unit.All(b.attacking, unit.IsAir) && unit.Any(b.defending, b.subHiddenFromAir):
		return b.submerge(ctx, unit.Filter(b.defending, b.subHiddenFromAir), true)
	case len(b.defending) > 0 && unit.All(b.defending, unit.IsAir) && unit.Any(b.attacking, b.subHiddenFromAir):
		return b.submerge(ctx, unit.Filter(b.attacking, b.subHiddenFromAir), false)
	}
	return nil
}

func (b *Battle) defendingSubsSneakAttack() bool {
	return b.env.Props.WW2V2 || b.env.Props.DefendingSubsSneakAttack
}

func (b *Battle) returnFireAgainstAttackingSubs() ReturnFire {
	attackingSneak := !unit.Any(b.defending, unit.IsDestroyer)
	defendingSneak := !unit.Any(b.attacking, unit.IsDestroyer) && b.defendingSubsSneakAttack()
	switch {
	case !attackingSneak:
		return ReturnAll
	case defendingSneak || b.env.Props.WW2V2:
		return ReturnSubs
	default:
		return ReturnNone
	}
}

func (b *Battle) returnFireAgainstDefendingSubs() ReturnFire {
	attackingSneak := !unit.Any(b.defending, unit.IsDestroyer)
	defendingSneak := !unit.Any(b.attacking, unit.IsDestroyer) && b.defendingSubsSneakAttack()
	switch {
	case !defendingSneak:
		return ReturnAll
	case attackingSneak || b.env.Props.WW2V2:
		return ReturnSubs
	default:
		return ReturnNone
	}
}

// removeSuicide removes attacking suicide units once they have fired.
// firstStrike selects the suicide units that fire in the first strike step.
func (b *Battle) removeSuicide(firstStrike bool) func(context.Context, *stack.Stack) error {
	return func(ctx context.Context, _ *stack.Stack) error {
		suicide := unit.Filter(b.attacking, func(u *unit.Unit) bool {
			return u.Type.IsSuicide && u.Type.IsFirstStrike == firstStrike
		})
		return b.remove(ctx, suicide)
	}
}

// sidePower is the total strength a side would roll with this round.
func (b *Battle) sidePower(defending bool) int {
	alive, _ := b.side(defending)
	units := unit.Filter(alive, func(u *unit.Unit) bool { return !u.Submerged })
	if len(units) == 0 {
		return 0
	}
	req := roll.Request{
		Units:     units,
		Defending: defending,
		Player:    b.owner(defending),
		Territory: b.site,
		Round:     b.round,
		Opponent:  b.owner(!defending),
		Friendly:  b.all(defending),
		Enemy:     b.all(!defending),
	}
	_, m := b.resolver.Powers(req)
	if b.kind.Has(AirSuperiority) {
		m = power.AirBattle(units, defending, b.env.Props.DiceSides)
	}
	return power.Total(m, b.env.Props.DiceSides, b.env.Props.LHTRHeavyBombers).Power
}

// checkEnd settles the battle when a side is gone, the round cap is reached
// or neither side can hurt the other.
func (b *Battle) checkEnd(ctx context.Context, _ *stack.Stack) error {
	if b.over {
		return nil
	}
	fights := isCombatant
	if b.kind.Has(AirSuperiority) {
		fights = unit.IsAir
	}
	attackersLeft := unit.Any(b.attacking, fights)
	defendersLeft := unit.Any(b.defending, fights)
	switch {
	case !attackersLeft && !defendersLeft:
		return b.end(ctx, Draw)
	case !attackersLeft:
		return b.end(ctx, DefenderWon)
	case !defendersLeft:
		return b.end(ctx, AttackerWon)
	case b.maxRounds > 0 && b.maxRounds <= b.round:
		return b.end(ctx, Draw)
	}
	if b.sidePower(false) == 0 && b.sidePower(true) == 0 {
		if b.site.Water && unit.All(b.attacking, unit.IsDefenselessTransport) && unit.All(b.defending, unit.IsDefenselessTransport) {
			if err := b.queryRetreat(ctx, false, player.RetreatGeneral, b.attackerRetreatTerritories(), b.attacking); err != nil {
				return err
			}
		}
		return b.end(ctx, Draw)
	}
	return nil
}

func (b *Battle) checkDefendersLeft(ctx context.Context, _ *stack.Stack) error {
	if b.over || unit.Any(b.defending, isCombatant) {
		return nil
	}
	return b.end(ctx, AttackerWon)
}

// nextRound schedules the following round. Every step of this round must
// have run.
func (b *Battle) nextRound(ctx context.Context, s *stack.Stack) error {
	if b.over {
		return nil
	}
	if !s.IsEmpty() {
		return apperrors.WithMetadata(apperrors.CodeStackNotEmpty,
			fmt.Sprintf("round %d of battle in %s left steps behind", b.round, b.site),
			map[string]string{"Territory": b.site.Name})
	}
	b.round++
	b.pushRound(false)
	b.notify(ctx, display.Event{Kind: display.EventSteps, Steps: s.Names()})
	return nil
}
