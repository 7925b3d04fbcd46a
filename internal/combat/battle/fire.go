package battle

import (
	"context"
	"fmt"
	"slices"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/confirm"
	"github.com/triplea-game/triplea-sub001/internal/combat/display"
	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/stack"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// ReturnFire says which casualties still fire back before they are removed.
type ReturnFire int

const (
	ReturnAll ReturnFire = iota
	// ReturnSubs lets only subs fire back; other casualties die at once.
	ReturnSubs
	ReturnNone
)

func (r ReturnFire) String() string {
	switch r {
	case ReturnSubs:
		return "subs"
	case ReturnNone:
		return "none"
	default:
		return "all"
	}
}

// fireSpec selects who fires in a fire step.
type fireSpec struct {
	defending   bool
	firstStrike bool
	bombard     bool
	air         bool
	returnFire  ReturnFire
}

func (f fireSpec) name(b *Battle) string {
	firing := b.owner(f.defending)
	switch {
	case f.bombard:
		return fmt.Sprintf("%s bombard", firing)
	case f.air:
		return fmt.Sprintf("%s air battle fire", firing)
	case f.firstStrike:
		return fmt.Sprintf("%s first strike fire", firing)
	default:
		return fmt.Sprintf("%s fire", firing)
	}
}

func (b *Battle) fireStep(spec fireSpec) stack.Step {
	return b.step(spec.name(b), func(ctx context.Context, s *stack.Stack) error {
		if b.over {
			return nil
		}
		s.Push(b.volleys(spec)...)
		return nil
	})
}

// firing returns the units that fire under spec, alive or waiting to die.
func (b *Battle) firing(spec fireSpec) []*unit.Unit {
	if spec.bombard {
		return slices.Clone(b.bombarding)
	}
	units := b.all(spec.defending)
	return unit.Filter(units, func(u *unit.Unit) bool {
		if u.Submerged {
			return false
		}
		if spec.air {
			if spec.defending {
				return u.Type.IsAir && u.Type.AirDefense > 0
			}
			return u.Type.IsAir && u.Type.AirAttack > 0
		}
		return u.Type.IsFirstStrike == spec.firstStrike
	})
}

// targets returns the enemy units spec may hit.
func (b *Battle) targets(spec fireSpec) []*unit.Unit {
	enemy, _ := b.side(!spec.defending)
	return unit.Filter(enemy, func(u *unit.Unit) bool {
		if u.Submerged || !isCombatant(u) {
			return false
		}
		if spec.air {
			return u.Type.IsAir
		}
		// Suicide attackers cannot be shot at.
		if spec.defending && u.Type.IsSuicide {
			return false
		}
		return true
	})
}

type targetGroup struct {
	firing  []*unit.Unit
	targets []*unit.Unit
}

// targetGroups splits firing units by what they can hit: subs cannot hit
// planes, and planes cannot hit subs unless a friendly destroyer is present.
func (b *Battle) targetGroups(firing, targets []*unit.Unit, defending bool) []targetGroup {
	restricted := b.env.Props.AirAttackSubRestricted
	destroyer := unit.Any(b.all(defending), unit.IsDestroyer)
	type key struct{ noAir, noSubs bool }
	var order []key
	groups := map[key][]*unit.Unit{}
	for _, u := range firing {
		k := key{
			noAir:  restricted && u.Type.IsFirstStrike && unit.CanEvade(u),
			noSubs: restricted && u.Type.IsAir && !destroyer,
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], u)
	}
	var out []targetGroup
	for _, k := range order {
		t := unit.Filter(targets, func(u *unit.Unit) bool {
			if k.noAir && unit.IsAir(u) {
				return false
			}
			if k.noSubs && unit.CanEvade(u) {
				return false
			}
			return true
		})
		if len(t) > 0 {
			out = append(out, targetGroup{firing: groups[k], targets: t})
		}
	}
	return out
}

// volleys builds one volley per target group.
func (b *Battle) volleys(spec fireSpec) []stack.Step {
	firing := b.firing(spec)
	targets := b.targets(spec)
	if len(firing) == 0 || len(targets) == 0 {
		return nil
	}
	groups := []targetGroup{{firing: firing, targets: targets}}
	if !spec.air && !spec.bombard {
		groups = b.targetGroups(firing, targets, spec.defending)
	}
	var out []stack.Step
	for _, g := range groups {
		out = append(out, b.traced(&volley{
			b:       b,
			spec:    spec,
			label:   spec.name(b) + " at " + unit.ToText(g.targets),
			firing:  g.firing,
			targets: g.targets,
		}))
	}
	return out
}

// volley is one group of units firing at one group of targets. Each phase
// runs once; a volley resumed after a failed confirmation does not roll or
// select again.
type volley struct {
	b       *Battle
	spec    fireSpec
	label   string
	firing  []*unit.Unit
	targets []*unit.Unit

	rolled    bool
	selected  bool
	confirmed bool
	// damaged is set once the damage change is applied, so a resume after
	// a failed removal does not damage the units again.
	damaged bool
	dice    roll.DiceRoll
	details casualty.Details
}

func (v *volley) Name() string { return v.label }

func (v *volley) Execute(ctx context.Context, _ *stack.Stack) error {
	b := v.b
	if b.over {
		return nil
	}
	if !v.rolled {
		if err := v.roll(ctx); err != nil {
			return err
		}
		v.rolled = true
	}
	if !v.selected {
		if err := v.selectCasualties(ctx); err != nil {
			return err
		}
		v.selected = true
	}
	if !v.confirmed {
		if err := v.confirm(ctx); err != nil {
			return err
		}
		v.confirmed = true
	}
	return v.mark(ctx)
}

func (v *volley) firingPlayer() *unit.Player { return v.b.owner(v.spec.defending) }
func (v *volley) hitPlayer() *unit.Player    { return v.b.owner(!v.spec.defending) }

func (v *volley) roll(ctx context.Context) error {
	b := v.b
	req := roll.Request{
		Units:     v.firing,
		Defending: v.spec.defending,
		Player:    v.firingPlayer(),
		Territory: b.site,
		Round:     b.round,
		Opponent:  v.hitPlayer(),
		Friendly:  b.all(v.spec.defending),
		Enemy:     b.all(!v.spec.defending),
	}
	if v.spec.bombard {
		req.Friendly = v.firing
	}
	var err error
	if v.spec.air {
		v.dice, err = b.resolver.RollAirBattle(ctx, req)
	} else {
		v.dice, err = b.resolver.Roll(ctx, req)
	}
	if err != nil {
		return err
	}
	values := make([]int, 0, v.dice.Len())
	for _, d := range v.dice.Dice() {
		values = append(values, d.Value)
	}
	b.notify(ctx, display.Event{
		Kind:   display.EventDice,
		Step:   v.label,
		Player: v.firingPlayer().String(),
		Dice:   values,
		Hits:   v.dice.Hits(),
	})
	return nil
}

func (v *volley) selectCasualties(ctx context.Context) error {
	b := v.b
	// Targets killed by an earlier volley of the same step are out.
	alive, _ := b.side(!v.spec.defending)
	targets := unit.Filter(v.targets, func(u *unit.Unit) bool { return unit.Contains(alive, u) })
	if v.dice.Hits() == 0 || len(targets) == 0 {
		return nil
	}
	details, err := b.selector.Select(ctx, casualty.Request{
		BattleID:                 b.id,
		Player:                   v.hitPlayer(),
		Territory:                b.site,
		Round:                    b.round,
		Opponent:                 v.firingPlayer(),
		Targets:                  targets,
		Friendly:                 b.all(!v.spec.defending),
		Enemy:                    b.all(v.spec.defending),
		Defending:                !v.spec.defending,
		Hits:                     v.dice.Hits(),
		Dice:                     v.dice,
		Amphibious:               b.amphibious && v.spec.defending,
		AllowMultipleHitsPerUnit: true,
		Chooser:                  b.chooser(v.hitPlayer()),
	})
	if err != nil {
		return err
	}
	v.details = details
	b.env.History.AddChildToEvent(fmt.Sprintf("%s fire, %s", v.firingPlayer(), casualtyText(details.List)), details.List)
	b.notify(ctx, display.Event{
		Kind:    display.EventCasualties,
		Step:    v.label,
		Player:  v.hitPlayer().String(),
		Killed:  unitIDs(details.Killed),
		Damaged: unitIDs(details.Damaged),
		Hits:    v.dice.Hits(),
	})
	return nil
}

func casualtyText(l casualty.List) string {
	switch {
	case len(l.Killed) > 0 && len(l.Damaged) > 0:
		return fmt.Sprintf("%s killed, %s damaged", unit.ToText(l.Killed), unit.ToText(l.Damaged))
	case len(l.Damaged) > 0:
		return fmt.Sprintf("%s damaged", unit.ToText(l.Damaged))
	default:
		return fmt.Sprintf("%s killed", unit.ToText(l.Killed))
	}
}

// confirm waits for both players to acknowledge the casualties.
func (v *volley) confirm(ctx context.Context) error {
	b := v.b
	if b.env.Headless || v.details.Empty() {
		return nil
	}
	message := v.details.String()
	hit, firing := v.hitPlayer(), v.firingPlayer()
	return confirm.Rendezvous{Timeout: b.env.Props.ConfirmTimeout}.Wait(ctx,
		confirm.Party{Player: hit.Name, Confirm: func(ctx context.Context) error {
			return b.player(hit).ConfirmOwnCasualties(ctx, b.id, message)
		}},
		confirm.Party{Player: firing.Name, Confirm: func(ctx context.Context) error {
			return b.player(firing).ConfirmEnemyCasualties(ctx, b.id, message, hit)
		}},
	)
}

// mark applies damage and moves the killed units out of the fight. Units that
// may fire back wait to die until the end of the round.
func (v *volley) mark(ctx context.Context) error {
	b := v.b
	if !v.damaged && len(v.details.Damaged) > 0 {
		if err := b.env.Bridge.AddChange(ctx, change.Damage(v.details.Damaged)); err != nil {
			return fmt.Errorf("damage casualties: %w", err)
		}
	}
	v.damaged = true
	killed := v.details.Killed
	if len(killed) == 0 {
		return nil
	}
	var wait, now []*unit.Unit
	for _, u := range killed {
		switch {
		case v.spec.returnFire == ReturnAll:
			wait = append(wait, u)
		case v.spec.returnFire == ReturnSubs && u.Type.IsFirstStrike:
			wait = append(wait, u)
		default:
			now = append(now, u)
		}
	}
	if err := b.remove(ctx, now); err != nil {
		return err
	}
	if len(wait) == 0 {
		return nil
	}
	if v.spec.defending {
		b.attacking = unit.Remove(b.attacking, wait)
		b.attackingWaitingToDie = append(b.attackingWaitingToDie, wait...)
	} else {
		b.defending = unit.Remove(b.defending, wait)
		b.defendingWaitingToDie = append(b.defendingWaitingToDie, wait...)
	}
	return nil
}
