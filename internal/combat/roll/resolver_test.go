package roll

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/history"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

var (
	germans  = &unit.Player{Name: "Germans"}
	russians = &unit.Player{Name: "Russians"}
	egypt    = &unit.Territory{Name: "Egypt"}

	infantry = &unit.Type{Name: "infantry", Attack: 1, Defense: 2, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1}
	armour   = &unit.Type{Name: "armour", Attack: 3, Defense: 3, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1}
	bomber   = &unit.Type{Name: "heavyBomber", Attack: 4, Defense: 1, AttackRolls: 2, DefenseRolls: 1, HitPoints: 1, IsAir: true, ChooseBestRoll: true}
)

func spawn(t *unit.Type, owner *unit.Player, n int) []*unit.Unit {
	out := make([]*unit.Unit, n)
	for i := range out {
		out[i] = unit.New(t.Name, t, owner)
	}
	return out
}

func newResolver(props rules.Properties, values ...int) (*Resolver, *dice.Scripted, *history.Log) {
	src := dice.NewScripted(values...)
	log := history.NewLog()
	return &Resolver{Dice: src, Props: props, History: log}, src, log
}

func TestNormalRollThreeInfantry(t *testing.T) {
	r, src, log := newResolver(rules.Default(), 0, 3, 5)
	got, err := r.Roll(context.Background(), Request{
		Units: spawn(infantry, germans, 3), Player: germans, Territory: egypt, Round: 1,
	})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got.Hits() != 1 {
		t.Fatalf("hits = %d, want 1", got.Hits())
	}
	if got.Len() != 3 || src.Remaining() != 0 {
		t.Fatalf("dice = %d remaining = %d, want 3 and 0", got.Len(), src.Remaining())
	}
	if got.ExpectedHits() != 0.5 {
		t.Fatalf("expected hits = %v, want 0.5", got.ExpectedHits())
	}
	for _, d := range got.Dice() {
		if (d.Value < d.RolledAt) != (d.Type == Hit) {
			t.Fatalf("die %+v classified inconsistently", d)
		}
	}
	events := log.Events()
	want := "Germans roll dice for 3 infantry in Egypt, round 1 : 1,4,6"
	if len(events) != 1 || events[0].Children[0].Description != want {
		t.Fatalf("history = %+v, want %q", events, want)
	}
}

func TestNormalRollStrongestFirst(t *testing.T) {
	r, _, _ := newResolver(rules.Default(), 2, 2)
	units := append(spawn(infantry, germans, 1), spawn(armour, germans, 1)...)
	got, err := r.Roll(context.Background(), Request{Units: units, Player: germans, Territory: egypt, Round: 1})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	dice := got.Dice()
	if dice[0].RolledAt != 3 || dice[0].Type != Hit {
		t.Fatalf("first die = %+v, want armour hit at 3", dice[0])
	}
	if dice[1].RolledAt != 1 || dice[1].Type != Miss {
		t.Fatalf("second die = %+v, want infantry miss at 1", dice[1])
	}
}

func TestChooseBestRollIgnoresOtherDice(t *testing.T) {
	r, _, _ := newResolver(rules.Default(), 5, 1)
	got, err := r.Roll(context.Background(), Request{Units: spawn(bomber, germans, 1), Player: germans, Territory: egypt, Round: 1})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	dice := got.Dice()
	if len(dice) != 2 || dice[0].Value != 1 || dice[0].Type != Hit || dice[1].Type != Ignored {
		t.Fatalf("dice = %+v, want hit on 1 then ignored 5", dice)
	}
	if got.Hits() != 1 {
		t.Fatalf("hits = %d, want 1", got.Hits())
	}
}

func TestNoRollsConsumesNoDice(t *testing.T) {
	r, _, log := newResolver(rules.Default())
	wall := &unit.Type{Name: "wall", HitPoints: 1, IsInfrastructure: true}
	got, err := r.Roll(context.Background(), Request{Units: spawn(wall, germans, 2), Player: germans, Territory: egypt, Round: 1})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got.Hits() != 0 || got.Len() != 0 || log.Len() != 0 {
		t.Fatalf("roll = %v history = %d, want empty", got, log.Len())
	}
}

func TestLowLuck(t *testing.T) {
	props := rules.Default()
	props.LowLuck = true

	tests := []struct {
		name      string
		units     int
		values    []int
		wantHits  int
		wantDice  int
		wantAtRem int
	}{
		{name: "exact multiple rolls nothing", units: 6, wantHits: 1},
		{name: "remainder hits", units: 8, values: []int{1}, wantHits: 2, wantDice: 1, wantAtRem: 2},
		{name: "remainder misses", units: 8, values: []int{2}, wantHits: 1, wantDice: 1, wantAtRem: 2},
		{name: "below one die", units: 3, values: []int{0}, wantHits: 1, wantDice: 1, wantAtRem: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, src, _ := newResolver(props, tc.values...)
			got, err := r.Roll(context.Background(), Request{Units: spawn(infantry, germans, tc.units), Player: germans, Territory: egypt, Round: 1})
			if err != nil {
				t.Fatalf("roll: %v", err)
			}
			if got.Hits() != tc.wantHits {
				t.Fatalf("hits = %d, want %d", got.Hits(), tc.wantHits)
			}
			if got.Len() != tc.wantDice {
				t.Fatalf("dice = %d, want %d", got.Len(), tc.wantDice)
			}
			if tc.wantDice == 1 && got.Die(0).RolledAt != tc.wantAtRem {
				t.Fatalf("rolled at = %d, want %d", got.Die(0).RolledAt, tc.wantAtRem)
			}
			if src.Remaining() != 0 {
				t.Fatalf("remaining = %d, want 0", src.Remaining())
			}
		})
	}
}

func TestDiceErrorPropagates(t *testing.T) {
	r, _, _ := newResolver(rules.Default(), 0)
	_, err := r.Roll(context.Background(), Request{Units: spawn(infantry, germans, 2), Player: germans, Territory: egypt, Round: 1})
	if err == nil {
		t.Fatal("expected exhausted dice error")
	}
}

func TestAnnotation(t *testing.T) {
	units := append(spawn(infantry, germans, 2), spawn(armour, germans, 1)...)
	got := Annotation(units, germans, egypt, 2)
	want := "Germans roll dice for 2 infantry, 1 armour in Egypt, round 3"
	if got != want {
		t.Fatalf("annotation = %q, want %q", got, want)
	}
	if name := PlayerNameFromAnnotation(got); name != "Germans" {
		t.Fatalf("player = %q, want Germans", name)
	}
}

func TestDiceRollIsImmutable(t *testing.T) {
	in := []Die{{Value: 0, RolledAt: 1, Type: Hit}}
	r := NewDiceRoll(in, 1, 1, "Germans")
	in[0].Type = Miss
	out := r.Dice()
	out[0].Value = 5
	if r.Die(0).Type != Hit || r.Die(0).Value != 0 {
		t.Fatalf("die changed through aliasing: %+v", r.Die(0))
	}
	if len(r.RollsAt(1)) != 1 || len(r.RollsAt(2)) != 0 {
		t.Fatalf("rolls at grouping wrong")
	}
}

func TestDiceRollJSON(t *testing.T) {
	r := NewDiceRoll([]Die{{Value: 4, RolledAt: 2, Type: Miss}}, 0, 0.33, "Russians")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"type":"MISS"`) {
		t.Fatalf("json = %s", data)
	}
	var back DiceRoll
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.PlayerName() != "Russians" || back.Die(0).Value != 4 {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestAirBattle(t *testing.T) {
	fighter := &unit.Type{Name: "fighter", AirAttack: 1, AirDefense: 2, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1, IsAir: true}
	r, _, _ := newResolver(rules.Default(), 1, 1)
	got, err := r.RollAirBattle(context.Background(), Request{
		Units: spawn(fighter, russians, 2), Defending: true, Player: russians, Territory: egypt, Round: 1,
		Annotation: "Russians roll air battle dice",
	})
	if err != nil {
		t.Fatalf("air battle: %v", err)
	}
	if got.Hits() != 2 {
		t.Fatalf("hits = %d, want 2", got.Hits())
	}
}

func TestAirBattleStrongestFirst(t *testing.T) {
	scout := &unit.Type{Name: "scout", Attack: 1, AirAttack: 1, AttackRolls: 1, HitPoints: 1, IsAir: true}
	fighter := &unit.Type{Name: "fighter", Attack: 3, AirAttack: 2, AttackRolls: 1, HitPoints: 1, IsAir: true}
	r, _, _ := newResolver(rules.Default(), 1, 1)
	units := append(spawn(scout, germans, 1), spawn(fighter, germans, 1)...)
	got, err := r.RollAirBattle(context.Background(), Request{Units: units, Player: germans, Territory: egypt, Round: 1})
	if err != nil {
		t.Fatalf("air battle: %v", err)
	}
	dice := got.Dice()
	if dice[0].RolledAt != 2 || dice[0].Type != Hit {
		t.Fatalf("first die = %+v, want fighter hit at 2", dice[0])
	}
	if dice[1].RolledAt != 1 || dice[1].Type != Miss {
		t.Fatalf("second die = %+v, want scout miss at 1", dice[1])
	}
	if units[0].Type != scout {
		t.Fatal("request units were reordered")
	}
}
