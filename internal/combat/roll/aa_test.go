package roll

import (
	"context"
	"strings"
	"testing"

	"github.com/triplea-game/triplea-sub001/internal/combat/power"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

var (
	aaGun   = &unit.Type{Name: "aaGun", AttackAA: 1, MaxAAAttacks: 3, IsInfrastructure: true, HitPoints: 1}
	flak    = &unit.Type{Name: "flak", AttackAA: 2, MaxAAAttacks: -1, TypeAA: "Flak", IsInfrastructure: true, HitPoints: 1}
	fighter = &unit.Type{Name: "fighter", Attack: 3, Defense: 4, AttackRolls: 1, DefenseRolls: 1, IsAir: true, HitPoints: 1}
)

func TestAAOneGunThreePlanes(t *testing.T) {
	r, _, log := newResolver(rules.Default(), 0, 2, 4)
	got, err := r.RollAA(context.Background(), AARequest{
		AAUnits: spawn(aaGun, russians, 1), Targets: spawn(fighter, germans, 3),
		Defending: true, Territory: egypt, Round: 1,
	})
	if err != nil {
		t.Fatalf("roll aa: %v", err)
	}
	if got.Hits() != 1 || got.TotalAttacks != 3 {
		t.Fatalf("hits = %d attacks = %d, want 1 and 3", got.Hits(), got.TotalAttacks)
	}
	if !got.AllSameAttack || got.HighestAttack != 1 || got.Sides != 6 {
		t.Fatalf("roll = %+v", got)
	}
	if got.Die(0).Type != Hit || got.Die(1).Type != Miss || got.Die(2).Type != Miss {
		t.Fatalf("dice = %+v", got.Dice())
	}
	child := log.Events()[0].Children[0].Description
	if child != "Russians roll AA dice in Egypt : 1,3,5" {
		t.Fatalf("history = %q", child)
	}
}

func TestAALimitedByTargets(t *testing.T) {
	r, src, _ := newResolver(rules.Default(), 0, 0, 0)
	got, err := r.RollAA(context.Background(), AARequest{
		AAUnits: spawn(aaGun, russians, 1), Targets: spawn(fighter, germans, 1),
		Defending: true, Territory: egypt, Round: 1,
	})
	if err != nil {
		t.Fatalf("roll aa: %v", err)
	}
	if got.TotalAttacks != 1 || src.Remaining() != 2 {
		t.Fatalf("attacks = %d remaining = %d, want 1 and 2", got.TotalAttacks, src.Remaining())
	}
}

func TestAAWeakGunsYieldToUnlimited(t *testing.T) {
	guns := append(spawn(aaGun, russians, 1), spawn(flak, russians, 1)...)
	r, _, _ := newResolver(rules.Default(), 1, 1, 1, 1)
	got, err := r.RollAA(context.Background(), AARequest{
		AAUnits: guns, Targets: spawn(fighter, germans, 4), Defending: true, Territory: egypt, Round: 1,
	})
	if err != nil {
		t.Fatalf("roll aa: %v", err)
	}
	if got.TotalAttacks != 4 || got.Hits() != 4 {
		t.Fatalf("attacks = %d hits = %d, want 4 and 4", got.TotalAttacks, got.Hits())
	}
	for _, d := range got.Dice() {
		if d.RolledAt != 2 {
			t.Fatalf("die %+v rolled at %d, want 2", d, d.RolledAt)
		}
	}
	if !got.AllSameAttack || got.TotalPower != 8 {
		t.Fatalf("all same = %v power = %d, want true and 8", got.AllSameAttack, got.TotalPower)
	}
}

func TestAALowLuck(t *testing.T) {
	props := rules.Default()
	props.LowLuckAAOnly = true
	r, src, _ := newResolver(props, 0)
	got, err := r.RollAA(context.Background(), AARequest{
		AAUnits: spawn(aaGun, russians, 1), Targets: spawn(fighter, germans, 3),
		Defending: true, Territory: egypt, Round: 1,
	})
	if err != nil {
		t.Fatalf("roll aa: %v", err)
	}
	if got.Hits() != 1 || got.Len() != 1 || got.Die(0).RolledAt != 3 {
		t.Fatalf("low luck aa = %+v", got)
	}
	if src.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", src.Remaining())
	}
}

func TestAANoTargets(t *testing.T) {
	r, _, log := newResolver(rules.Default())
	got, err := r.RollAA(context.Background(), AARequest{AAUnits: spawn(flak, russians, 1), Defending: true, Territory: egypt})
	if err != nil {
		t.Fatalf("roll aa: %v", err)
	}
	if got.TypeAA != "Flak" || got.Len() != 0 || log.Len() != 0 {
		t.Fatalf("roll = %+v", got)
	}
}

func TestFireAAPlanOnlyTotalsPower(t *testing.T) {
	guns := spawn(aaGun, russians, 2)
	m := power.Map{guns[0]: {Power: 1, Rolls: 3}, guns[1]: {Power: 1, Rolls: 3}}
	plan, err := fireAA(nil, guns, m, 4, true, 6)
	if err != nil {
		t.Fatalf("fire aa: %v", err)
	}
	if plan.power != 4 || plan.hits != 0 || len(plan.dice) != 0 || !plan.allSame {
		t.Fatalf("plan = %+v, want power 4 and no dice", plan)
	}
	if !strings.HasPrefix(AAAnnotation(unit.DefaultAAType, egypt), "Roll AA in Egypt") {
		t.Fatalf("annotation = %q", AAAnnotation(unit.DefaultAAType, egypt))
	}
}
