package battle

import (
	"context"
	"fmt"
	"slices"

	"github.com/triplea-game/triplea-sub001/internal/combat/aa"
	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/confirm"
	"github.com/triplea-game/triplea-sub001/internal/combat/display"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/stack"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// aaFamilies returns the AA families one side can fire with.
func (b *Battle) aaFamilies(defending bool) []unit.AAType {
	alive, _ := b.side(defending)
	return aa.Families(alive, defending)
}

func (b *Battle) aaStep(defending bool) stack.Step {
	return b.traced(&aaVolley{b: b, defending: defending})
}

// aaVolley fires one side's AA before the first round. Like a volley it
// rolls and selects once even when resumed.
type aaVolley struct {
	b         *Battle
	defending bool

	resolved  bool
	confirmed bool
	result    aa.Result
}

func (v *aaVolley) Name() string {
	return fmt.Sprintf("%s fire AA", v.b.owner(v.defending))
}

func (v *aaVolley) Execute(ctx context.Context, _ *stack.Stack) error {
	b := v.b
	if b.over {
		return nil
	}
	owner, target := b.owner(v.defending), b.owner(!v.defending)
	if !v.resolved {
		alive, _ := b.side(v.defending)
		enemy, _ := b.side(!v.defending)
		res, err := b.aaFire.Resolve(ctx, aa.Site{
			BattleID:  b.id,
			Territory: b.site,
			Round:     b.round,
			AAUnits:   alive,
			Targets:   enemy,
			Defending: v.defending,
			Friendly:  b.all(v.defending),
			Enemy:     b.all(!v.defending),
			Chooser:   b.chooser(target),
		})
		if err != nil {
			return err
		}
		v.result = res
		v.resolved = true
		for _, vol := range res.Volleys {
			sound := display.SoundAAMiss
			if vol.Roll.Hits() > 0 {
				sound = display.SoundAAHit
			}
			values := make([]int, 0, vol.Roll.Len())
			for _, d := range vol.Roll.Dice() {
				values = append(values, d.Value)
			}
			b.notify(ctx, display.Event{Kind: display.EventDice, Step: v.Name(), Player: owner.String(), Dice: values, Hits: vol.Roll.Hits(), Sound: sound})
		}
		if !res.Casualties.Empty() {
			b.notify(ctx, display.Event{
				Kind:    display.EventCasualties,
				Step:    v.Name(),
				Player:  target.String(),
				Killed:  unitIDs(res.Casualties.Killed),
				Damaged: unitIDs(res.Casualties.Damaged),
			})
		}
	}
	if !v.confirmed {
		if !b.env.Headless && !v.result.Casualties.Empty() {
			message := v.result.Casualties.String()
			err := confirm.Rendezvous{Timeout: b.env.Props.ConfirmTimeout}.Wait(ctx,
				confirm.Party{Player: target.Name, Confirm: func(ctx context.Context) error {
					return b.player(target).ConfirmOwnCasualties(ctx, b.id, message)
				}},
				confirm.Party{Player: owner.Name, Confirm: func(ctx context.Context) error {
					return b.player(owner).ConfirmEnemyCasualties(ctx, b.id, message, target)
				}},
			)
			if err != nil {
				return err
			}
		}
		v.confirmed = true
	}

	if len(v.result.Casualties.Damaged) > 0 {
		if err := b.env.Bridge.AddChange(ctx, change.Damage(v.result.Casualties.Damaged)); err != nil {
			return fmt.Errorf("damage AA casualties: %w", err)
		}
	}
	killed := v.result.Casualties.Killed
	if v.defending {
		b.attacking = unit.Remove(b.attacking, killed)
		b.attackingWaitingToDie = append(b.attackingWaitingToDie, killed...)
	} else {
		b.defending = unit.Remove(b.defending, killed)
		b.defendingWaitingToDie = append(b.defendingWaitingToDie, killed...)
	}
	return nil
}

// bombard lets the sea units that agree shell the battle site once.
func (b *Battle) bombard(ctx context.Context, s *stack.Stack) error {
	var firing []*unit.Unit
	for _, u := range b.bombarding {
		ok := true
		if !b.env.Headless {
			var err error
			ok, err = b.player(b.attacker).SelectShoreBombard(ctx, player.BombardQuery{BattleID: b.id, Unit: u, Territory: b.site})
			if err != nil {
				return fmt.Errorf("shore bombard %s: %w", u.ID, err)
			}
		}
		if ok {
			firing = append(firing, u)
		}
	}
	if len(firing) > 0 && !b.env.Headless {
		if err := b.env.Bridge.AddChange(ctx, change.SetFlag(firing, change.FlagNoMovementLeft, true)); err != nil {
			return err
		}
	}
	b.bombarding = firing
	if len(firing) == 0 {
		return nil
	}
	rf := ReturnNone
	if b.env.Props.NavalBombardReturnFire {
		rf = ReturnAll
	}
	b.notify(ctx, display.Event{Kind: display.EventSound, Sound: display.SoundBombard, Player: b.attacker.String()})
	s.Push(b.volleys(fireSpec{bombard: true, returnFire: rf})...)
	return nil
}

func (b *Battle) raidSteps() []stack.Step {
	var steps []stack.Step
	if len(b.aaFamilies(true)) > 0 {
		steps = append(steps, b.aaStep(true), b.step(stepRemoveCasualties, b.clearWaitingToDieStep))
	}
	return append(steps,
		b.traced(&bombing{b: b}),
		b.step(stepRaidEnd, b.raidEnd),
	)
}

// bombing is the surviving bombers damaging one target. Each bomber's roll
// is kept as soon as it is drawn, so a resume after a failed roll only
// rolls for the bombers still waiting.
type bombing struct {
	b       *Battle
	bombers []*unit.Unit
	target  *unit.Unit
	// rolls holds one damage value per bomber that has rolled, in bomber
	// order.
	rolls []int
	done  bool
}

func (s *bombing) Name() string { return stepBomb }

func (s *bombing) Execute(ctx context.Context, _ *stack.Stack) error {
	b := s.b
	if b.over || s.done {
		return nil
	}
	if s.bombers == nil {
		bombers := unit.Filter(b.attacking, func(u *unit.Unit) bool { return u.Type.IsAir && u.Type.StrategicBomber })
		if len(bombers) == 0 {
			bombers = unit.Filter(b.attacking, unit.IsAir)
		}
		s.bombers = bombers
	}
	targets := unit.Filter(b.defending, func(u *unit.Unit) bool { return u.Type.IsInfrastructure && u.Type.MaxDamage > 0 })
	if len(s.bombers) == 0 || len(targets) == 0 {
		s.done = true
		return nil
	}
	if s.target == nil {
		target := targets[0]
		if len(targets) > 1 && !b.env.Headless {
			chosen, err := b.player(b.attacker).WhatShouldBomberBomb(ctx, b.site, slices.Clone(targets), s.bombers)
			if err != nil {
				return fmt.Errorf("choose bombing target: %w", err)
			}
			if chosen != nil && unit.Contains(targets, chosen) {
				target = chosen
			} else if chosen != nil {
				b.logf("invalid bombing target %s chosen by %s in %s", chosen.ID, b.attacker, b.site)
			}
		}
		s.target = target
	}

	for len(s.rolls) < len(s.bombers) {
		damage, err := b.bomberDamage(ctx, s.bombers[len(s.rolls)])
		if err != nil {
			return err
		}
		s.rolls = append(s.rolls, damage)
	}
	total := 0
	for _, d := range s.rolls {
		total += d
	}

	room := s.target.Type.MaxDamage - s.target.BombingDamage
	damage := max(0, min(total, room))
	if damage > 0 {
		if err := b.env.Bridge.AddChange(ctx, change.BombingDamage{
			Unit: s.target,
			From: s.target.BombingDamage,
			To:   s.target.BombingDamage + damage,
		}); err != nil {
			return fmt.Errorf("apply bombing damage: %w", err)
		}
	}
	s.done = true
	b.env.History.AddChildToEvent(fmt.Sprintf("Bombing raid in %s causes %d damage to %s", b.site, damage, s.target.Type.Name), damage)
	b.notify(ctx, display.Event{
		Kind:    display.EventBombing,
		Player:  b.attacker.String(),
		Hits:    damage,
		Damaged: []string{s.target.ID},
		Sound:   display.SoundBombingRaid,
	})
	return nil
}

// bomberDamage rolls one bomber's damage: the die plus one plus the
// bomber's bonus. Low luck uses the average die instead of rolling.
func (b *Battle) bomberDamage(ctx context.Context, u *unit.Unit) (int, error) {
	props := b.env.Props
	sides := u.Type.BombingDieSides
	if sides <= 0 {
		sides = props.DiceSides
	}
	if props.LowLuck {
		return (sides+1)/2 + u.Type.BombingBonus, nil
	}
	count := 1
	if props.LHTRHeavyBombers && u.Type.AttackRolls > 1 {
		count = u.Type.AttackRolls
	}
	values, err := b.env.Dice.GetRandom(ctx, sides, count, fmt.Sprintf("%s bombing raid in %s", u.Owner, b.site))
	if err != nil {
		return 0, fmt.Errorf("roll bombing dice: %w", err)
	}
	best := slices.Max(values)
	b.env.History.AddChildToEvent(fmt.Sprintf("%s rolls %d", u.Type.Name, best+1), values)
	return best + 1 + u.Type.BombingBonus, nil
}

func (b *Battle) raidEnd(ctx context.Context, _ *stack.Stack) error {
	if unit.Any(b.attacking, unit.IsAir) {
		return b.end(ctx, AttackerWon)
	}
	return b.end(ctx, DefenderWon)
}
