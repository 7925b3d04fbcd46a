// Package battle fights a battle in one territory round by round.
//
// A battle is a sequence of steps on a resumable stack. Fight runs the stack
// until the battle ends or a step fails; a failed step (a player who did not
// answer in time, a cancelled context) stays on the stack and the next Fight
// call resumes from it without rolling any dice twice.
package battle

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/triplea-game/triplea-sub001/internal/combat/aa"
	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/display"
	"github.com/triplea-game/triplea-sub001/internal/combat/history"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/stack"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
	"github.com/triplea-game/triplea-sub001/internal/platform/otel"
)

const tracerName = "github.com/triplea-game/triplea-sub001/internal/combat/battle"

// Config describes one battle.
type Config struct {
	// ID defaults to a random uuid.
	ID        string
	Kind      Kind
	Territory *unit.Territory
	Attacker  *unit.Player
	Defender  *unit.Player
	// Attacking and Defending must be on the board in Territory.
	Attacking []*unit.Unit
	Defending []*unit.Unit
	// Bombarding are sea units shelling Territory from a neighboring sea zone.
	Bombarding []*unit.Unit
	// AttackingFrom lists the territories attackers arrived from; a general
	// retreat goes back to one of them.
	AttackingFrom []*unit.Territory
	// DefenderSubRetreats lists the sea zones defending subs may withdraw to.
	DefenderSubRetreats []*unit.Territory
	Amphibious          bool
	// Dependents maps a unit id to the units it carries. Cargo dies and
	// retreats with its carrier.
	Dependents map[string][]*unit.Unit
}

// Env is what a battle talks to.
type Env struct {
	Dice    dice.Source
	Props   rules.Properties
	Support []*unit.SupportRule
	Bridge  change.Bridge
	History history.Writer
	Players player.Directory
	Display display.Display
	// Cache memoizes casualty orders. Nil computes every order.
	Cache   *casualty.OrderCache
	Tracker *Tracker
	Logger  *log.Logger
	Locale  string
	// Headless skips confirmations, displays and player questions other
	// than casualty choice, which takes the default. Simulations run
	// headless.
	Headless bool
	Tracer   trace.Tracer
	// Now stamps display events. Defaults to time.Now.
	Now func() time.Time
}

// Battle is one engagement in one territory.
type Battle struct {
	env      Env
	id       string
	kind     Kind
	site     *unit.Territory
	attacker *unit.Player
	defender *unit.Player

	attacking             []*unit.Unit
	defending             []*unit.Unit
	attackingWaitingToDie []*unit.Unit
	defendingWaitingToDie []*unit.Unit
	killed                []*unit.Unit
	retreated             []*unit.Unit
	bombarding            []*unit.Unit

	attackingFrom       []*unit.Territory
	defenderSubRetreats []*unit.Territory
	amphibious          bool
	dependents          map[string][]*unit.Unit

	round     int
	maxRounds int
	stack     *stack.Stack
	started   bool
	over      bool
	outcome   Outcome

	resolver *roll.Resolver
	selector *casualty.Selector
	aaFire   *aa.Fire
	logger   *log.Logger
}

// New validates cfg and returns a battle ready to fight.
func New(cfg Config, env Env) (*Battle, error) {
	if cfg.Territory == nil || cfg.Attacker == nil || cfg.Defender == nil {
		return nil, apperrors.WithMetadata(apperrors.CodeConfigInvalid,
			"battle needs a territory, an attacker and a defender",
			map[string]string{"Reason": "battle participants"})
	}
	if env.Dice == nil || env.Bridge == nil {
		return nil, apperrors.WithMetadata(apperrors.CodeConfigInvalid,
			"battle needs a dice source and a change bridge",
			map[string]string{"Reason": "battle collaborators"})
	}
	if err := env.Props.Validate(); err != nil {
		return nil, err
	}
	if cfg.Kind == 0 {
		cfg.Kind = Normal
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if env.History == nil {
		env.History = history.Discard
	}
	if env.Display == nil || env.Headless {
		env.Display = display.Discard
	}
	if env.Tracer == nil {
		env.Tracer = otel.Tracer(tracerName)
	}
	if env.Now == nil {
		env.Now = time.Now
	}
	logger := env.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	b := &Battle{
		env:                 env,
		id:                  cfg.ID,
		kind:                cfg.Kind,
		site:                cfg.Territory,
		attacker:            cfg.Attacker,
		defender:            cfg.Defender,
		attacking:           slices.Clone(cfg.Attacking),
		defending:           slices.Clone(cfg.Defending),
		bombarding:          slices.Clone(cfg.Bombarding),
		attackingFrom:       slices.Clone(cfg.AttackingFrom),
		defenderSubRetreats: slices.Clone(cfg.DefenderSubRetreats),
		amphibious:          cfg.Amphibious,
		dependents:          cfg.Dependents,
		maxRounds:           env.Props.MaxRounds,
		stack:               stack.New(),
		logger:              logger,
	}
	switch {
	case b.kind.Has(AirRaid):
		b.maxRounds = 1
	case b.kind.Has(AirSuperiority) && b.maxRounds <= 0:
		b.maxRounds = 1
	}
	b.resolver = &roll.Resolver{Dice: env.Dice, Props: env.Props, Support: env.Support, History: env.History}
	b.selector = &casualty.Selector{
		Props:   env.Props,
		Support: env.Support,
		Dice:    env.Dice,
		Cache:   env.Cache,
		Locale:  env.Locale,
		Logger:  env.Logger,
	}
	b.aaFire = &aa.Fire{Roller: b.resolver, Selector: b.selector, History: env.History}
	if env.Tracker != nil {
		env.Tracker.Add(b)
	}
	return b, nil
}

func (b *Battle) ID() string                 { return b.id }
func (b *Battle) Kind() Kind                 { return b.kind }
func (b *Battle) Territory() *unit.Territory { return b.site }
func (b *Battle) Attacker() *unit.Player     { return b.attacker }
func (b *Battle) Defender() *unit.Player     { return b.defender }

// Round returns the current 1-based round, or 0 before the battle starts.
func (b *Battle) Round() int { return b.round }

// IsOver reports whether the battle has ended.
func (b *Battle) IsOver() bool { return b.over }

// Outcome returns how the battle ended.
func (b *Battle) Outcome() Outcome { return b.outcome }

// Attacking returns the attacking units still in the battle.
func (b *Battle) Attacking() []*unit.Unit { return slices.Clone(b.attacking) }

// Defending returns the defending units still in the battle.
func (b *Battle) Defending() []*unit.Unit { return slices.Clone(b.defending) }

// Killed returns every unit removed as a casualty.
func (b *Battle) Killed() []*unit.Unit { return slices.Clone(b.killed) }

// Retreated returns the units that left the battle without dying.
func (b *Battle) Retreated() []*unit.Unit { return slices.Clone(b.retreated) }

// Steps lists the pending steps in execution order.
func (b *Battle) Steps() []string { return b.stack.Names() }

func (b *Battle) String() string {
	return fmt.Sprintf("%s battle in %s: %s attacks %s", b.kind, b.site, b.attacker, b.defender)
}

// Fight runs the battle until it ends or a step fails. Calling Fight again
// after a failure resumes at the failed step.
func (b *Battle) Fight(ctx context.Context) error {
	ctx, span := b.env.Tracer.Start(ctx, "battle.Fight", trace.WithAttributes(
		attribute.String("battle.id", b.id),
		attribute.String("battle.kind", b.kind.String()),
		attribute.String("battle.territory", b.site.Name),
	))
	defer span.End()

	if b.over {
		return apperrors.WithMetadata(apperrors.CodeBattleOver,
			fmt.Sprintf("battle in %s is over", b.site),
			map[string]string{"Territory": b.site.Name})
	}
	if b.started {
		b.showBattle(ctx)
		return b.execute(ctx, span)
	}

	b.started = true
	b.env.History.StartEvent(b.startDescription())
	b.env.History.AddChildToEvent(fmt.Sprintf("%s attack with %s", b.attacker, unit.ToText(b.attacking)), slices.Clone(b.attacking))
	b.env.History.AddChildToEvent(fmt.Sprintf("%s defend with %s", b.defender, unit.ToText(b.defending)), slices.Clone(b.defending))
	b.round = 1

	if done, err := b.decidedBeforeFighting(ctx); done || err != nil {
		return err
	}
	b.pushRound(true)
	b.showBattle(ctx)
	b.notify(ctx, display.Event{Kind: display.EventSound, Sound: display.SoundBattleStart, Player: b.attacker.String()})
	return b.execute(ctx, span)
}

func (b *Battle) startDescription() string {
	switch {
	case b.kind.Has(AirRaid):
		return fmt.Sprintf("Bombing raid in %s", b.site)
	case b.kind.Has(AirSuperiority):
		return fmt.Sprintf("Air battle in %s", b.site)
	default:
		return fmt.Sprintf("Battle in %s", b.site)
	}
}

// decidedBeforeFighting ends battles one side cannot fight.
func (b *Battle) decidedBeforeFighting(ctx context.Context) (bool, error) {
	switch {
	case b.kind.Has(AirRaid):
		if !unit.Any(b.attacking, unit.IsAir) {
			return true, b.end(ctx, DefenderWon)
		}
		return false, nil
	case b.kind.Has(AirSuperiority):
		if !unit.Any(b.attacking, unit.IsAir) {
			return true, b.end(ctx, DefenderWon)
		}
		if !unit.Any(b.defending, unit.IsAir) {
			return true, b.end(ctx, AttackerWon)
		}
		return false, nil
	}
	if !unit.Any(b.attacking, isCombatant) {
		return true, b.end(ctx, DefenderWon)
	}
	if !unit.Any(b.defending, isCombatant) && len(aa.Families(b.defending, true)) == 0 {
		return true, b.end(ctx, AttackerWon)
	}
	return false, nil
}

func (b *Battle) execute(ctx context.Context, span trace.Span) error {
	if err := b.stack.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Cancel ends the battle without a winner and drops every pending step.
func (b *Battle) Cancel(ctx context.Context) error {
	if b.over {
		return apperrors.WithMetadata(apperrors.CodeBattleOver,
			fmt.Sprintf("battle in %s is over", b.site),
			map[string]string{"Territory": b.site.Name})
	}
	if b.stack.IsExecuting() {
		return stack.ErrExecuting
	}
	b.stack.Clear()
	b.over = true
	b.outcome = Cancelled
	if b.started {
		b.env.History.AddChildToEvent(fmt.Sprintf("Battle in %s cancelled", b.site), nil)
	}
	if b.env.Tracker != nil {
		b.env.Tracker.Remove(b)
	}
	b.notify(ctx, display.Event{Kind: display.EventEnd, Message: "Battle cancelled"})
	return nil
}

// isCombatant matches units that take part in the fire steps.
func isCombatant(u *unit.Unit) bool {
	return !u.Type.IsInfrastructure
}

func (b *Battle) logf(format string, args ...any) {
	b.logger.Printf(format, args...)
}

func (b *Battle) player(p *unit.Player) player.Player {
	return b.env.Players.For(p)
}

// chooser returns who picks casualties for p. Headless battles take the
// default casualties.
func (b *Battle) chooser(p *unit.Player) casualty.Chooser {
	if b.env.Headless {
		return nil
	}
	return b.player(p)
}

func (b *Battle) notify(ctx context.Context, evt display.Event) {
	evt.BattleID = b.id
	evt.Territory = b.site.Name
	if evt.Round == 0 {
		evt.Round = b.round
	}
	evt.At = b.env.Now().UTC()
	b.env.Display.Notify(ctx, evt)
}

func (b *Battle) showBattle(ctx context.Context) {
	b.notify(ctx, display.Event{
		Kind:      display.EventShowBattle,
		Player:    b.attacker.String(),
		Message:   b.startDescription(),
		Attacking: unitIDs(b.attacking),
		Defending: unitIDs(b.defending),
	})
	b.notify(ctx, display.Event{Kind: display.EventSteps, Steps: b.stack.Names()})
}

// side returns the alive and waiting to die units of one side.
func (b *Battle) side(defending bool) (alive, waiting []*unit.Unit) {
	if defending {
		return b.defending, b.defendingWaitingToDie
	}
	return b.attacking, b.attackingWaitingToDie
}

// all returns every unit of one side alive or waiting to die.
func (b *Battle) all(defending bool) []*unit.Unit {
	alive, waiting := b.side(defending)
	out := slices.Clone(alive)
	return append(out, waiting...)
}

func (b *Battle) owner(defending bool) *unit.Player {
	if defending {
		return b.defender
	}
	return b.attacker
}

func (b *Battle) dependentsOf(units []*unit.Unit) []*unit.Unit {
	var out []*unit.Unit
	for _, u := range units {
		for _, cargo := range b.dependents[u.ID] {
			if !unit.Contains(units, cargo) && !unit.Contains(out, cargo) {
				out = append(out, cargo)
			}
		}
	}
	return out
}

// remove takes units off the board as casualties. Cargo dies with its
// carrier.
func (b *Battle) remove(ctx context.Context, units []*unit.Unit) error {
	units = unit.Remove(units, b.killed)
	if len(units) == 0 {
		return nil
	}
	units = append(slices.Clone(units), b.dependentsOf(units)...)
	if err := b.env.Bridge.AddChange(ctx, change.RemoveUnits{Territory: b.site.Name, Units: units}); err != nil {
		return fmt.Errorf("remove casualties: %w", err)
	}
	b.killed = append(b.killed, units...)
	b.attacking = unit.Remove(b.attacking, units)
	b.defending = unit.Remove(b.defending, units)
	b.attackingWaitingToDie = unit.Remove(b.attackingWaitingToDie, units)
	b.defendingWaitingToDie = unit.Remove(b.defendingWaitingToDie, units)
	if b.env.Tracker != nil {
		b.env.Tracker.RemoveFromDependents(b, units)
	}
	b.env.History.AddChildToEvent(fmt.Sprintf("%s lost in %s", unit.ToText(units), b.site), slices.Clone(units))
	b.notify(ctx, display.Event{Kind: display.EventDead, Killed: unitIDs(units)})
	return nil
}

// clearWaitingToDie removes every unit that was hit but allowed to fire back.
func (b *Battle) clearWaitingToDie(ctx context.Context) error {
	waiting := append(slices.Clone(b.attackingWaitingToDie), b.defendingWaitingToDie...)
	if err := b.remove(ctx, waiting); err != nil {
		return err
	}
	b.attackingWaitingToDie = nil
	b.defendingWaitingToDie = nil
	return nil
}

// removeAttackers drops units from the attack without counting them as
// casualties. The tracker calls it when a battle this one depends on
// retreats them.
func (b *Battle) removeAttackers(units []*unit.Unit) {
	b.attacking = unit.Remove(b.attacking, units)
	b.attackingWaitingToDie = unit.Remove(b.attackingWaitingToDie, units)
}

// end settles the battle. It clears units waiting to die and drops the
// remaining steps.
func (b *Battle) end(ctx context.Context, outcome Outcome) error {
	if b.over {
		return nil
	}
	if err := b.clearWaitingToDie(ctx); err != nil {
		return err
	}
	b.stack.Clear()
	b.over = true
	b.outcome = outcome

	var message string
	switch outcome {
	case AttackerWon:
		message = fmt.Sprintf("%s win", b.attacker)
	case DefenderWon:
		message = fmt.Sprintf("%s win", b.defender)
	default:
		message = "Stalemate"
	}
	if survivors := unit.Filter(b.attacking, isCombatant); len(survivors) > 0 {
		if err := b.env.Bridge.AddChange(ctx, change.SetFlag(survivors, change.FlagWasInCombat, true)); err != nil {
			return fmt.Errorf("mark survivors: %w", err)
		}
	}
	b.env.History.AddChildToEvent(message, outcome.String())
	if b.env.Tracker != nil {
		b.env.Tracker.Remove(b)
	}
	sound := display.SoundBattleFailure
	if outcome == AttackerWon {
		sound = ""
	}
	evt := display.Event{Kind: display.EventEnd, Message: message, Sound: sound}
	if w := b.Winner(); w != nil {
		evt.Player = w.Name
	}
	b.notify(ctx, evt)
	return nil
}

// Winner returns the winning player, or nil for a draw or an unfinished
// battle.
func (b *Battle) Winner() *unit.Player {
	switch b.outcome {
	case AttackerWon:
		return b.attacker
	case DefenderWon:
		return b.defender
	default:
		return nil
	}
}

func unitIDs(units []*unit.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}
