package casualty

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

var (
	fighter = &unit.Type{Name: "fighter", Attack: 3, Defense: 4, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1, Cost: 10, IsAir: true}
	bomber  = &unit.Type{Name: "bomber", Attack: 4, Defense: 1, AttackRolls: 1, DefenseRolls: 1, HitPoints: 2, Cost: 12, IsAir: true}
	aaGun   = &unit.Type{Name: "aaGun", AttackAA: 1, MaxAAAttacks: 3, HitPoints: 1, IsInfrastructure: true}
	flak    = &unit.Type{Name: "flak", AttackAA: 1, MaxAAAttacks: -1, HitPoints: 1, IsInfrastructure: true, DamageableAA: true}
)

func aaRoll(values []int, strength int, totalAttacks int, allSame bool) roll.AARoll {
	rolled := make([]roll.Die, len(values))
	hits := 0
	for i, v := range values {
		rolled[i] = roll.Die{Value: v, RolledAt: strength, Type: roll.Miss}
		if v < strength {
			rolled[i].Type = roll.Hit
			hits++
		}
	}
	return roll.AARoll{
		DiceRoll:      roll.NewDiceRoll(rolled, hits, float64(totalAttacks*strength)/6, "Russians"),
		TotalAttacks:  totalAttacks,
		HighestAttack: strength,
		Sides:         6,
		AllSameAttack: allSame,
		TypeAA:        unit.DefaultAAType,
	}
}

func aaSelector(policy rules.AAPolicy, values ...int) (*Selector, *dice.Scripted) {
	src := dice.NewScripted(values...)
	props := rules.Default()
	props.AACasualties = policy
	return &Selector{Props: props, Dice: src, Locale: "en-US"}, src
}

func TestIndividualAAHitsPlaneAtDiePosition(t *testing.T) {
	planes := spawn(fighter, germans, 3)
	s, _ := aaSelector(rules.AAIndividually)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(aaGun, russians, 1), Roll: aaRoll([]int{0, 2, 4}, 1, 3, true), Player: germans,
	})
	require.NoError(t, err)
	require.Equal(t, planes[:1], got.Killed)
	require.Empty(t, got.Damaged)
}

func TestIndividualAAFallsBackToRandom(t *testing.T) {
	planes := spawn(fighter, germans, 3)
	s, src := aaSelector(rules.AAIndividually, 1)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(aaGun, russians, 1), Roll: aaRoll([]int{0, 3}, 1, 2, true), Player: germans,
	})
	require.NoError(t, err)
	require.Equal(t, planes[1:2], got.Killed)
	require.Zero(t, src.Remaining())
}

func TestRandomAA(t *testing.T) {
	planes := spawn(fighter, germans, 3)
	s, _ := aaSelector(rules.AARandom, 2, 2)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(aaGun, russians, 1), Roll: aaRoll([]int{0, 0, 5}, 1, 3, true), Player: germans,
	})
	require.NoError(t, err)
	require.Equal(t, []*unit.Unit{planes[2], planes[0]}, got.Killed)
}

func TestRandomAAHitsEveryPlane(t *testing.T) {
	planes := spawn(fighter, germans, 2)
	s, src := aaSelector(rules.AARandom, 0)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(aaGun, russians, 1), Roll: aaRoll([]int{0, 0}, 1, 2, true), Player: germans,
	})
	require.NoError(t, err)
	require.Equal(t, planes, got.Killed)
	require.Equal(t, 1, src.Remaining())
}

func TestDamageableAADamagesBombers(t *testing.T) {
	planes := spawn(bomber, germans, 1)
	s, _ := aaSelector(rules.AAIndividually, 0)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(flak, russians, 1), Roll: aaRoll([]int{0}, 1, 1, true), Player: germans,
	})
	require.NoError(t, err)
	require.Empty(t, got.Killed)
	require.Equal(t, planes, got.Damaged)
}

func TestLowLuckAAKillsOnePerGroup(t *testing.T) {
	planes := spawn(fighter, germans, 6)
	s, src := aaSelector(rules.AALowLuck)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(flak, russians, 1), Roll: aaRoll([]int{0}, 1, 6, true), Player: germans,
	})
	require.NoError(t, err)
	require.Equal(t, planes[:1], got.Killed)
	require.Zero(t, src.Remaining())
}

func TestLowLuckAADrawsAmongGroupsAndRemainder(t *testing.T) {
	planes := spawn(fighter, germans, 8)
	s, src := aaSelector(rules.AALowLuck, 1, 1)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(flak, russians, 1), Roll: aaRoll([]int{0}, 1, 8, true), Player: germans,
	})
	require.NoError(t, err)
	require.Equal(t, planes[7:], got.Killed)
	require.Zero(t, src.Remaining())
}

func TestLowLuckAAMixedStrengthIsRandom(t *testing.T) {
	planes := spawn(fighter, germans, 3)
	s, src := aaSelector(rules.AALowLuck, 0)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(aaGun, russians, 1), Roll: aaRoll([]int{0}, 1, 3, false), Player: germans,
	})
	require.NoError(t, err)
	require.Equal(t, planes[:1], got.Killed)
	require.Zero(t, src.Remaining())
}

func TestChooseAAAsksPlayer(t *testing.T) {
	planes := append(spawn(fighter, germans, 1), spawn(bomber, germans, 1)...)
	chooser := &fakeChooser{answers: []Details{{List: List{Killed: planes[1:]}}}}
	s, _ := aaSelector(rules.AAChoose)
	got, err := s.AA(context.Background(), AARequest{
		Planes: planes, AAUnits: spawn(aaGun, russians, 1), Roll: aaRoll([]int{0, 4}, 1, 2, true),
		Player: germans, Territory: ukraine, Chooser: chooser,
	})
	require.NoError(t, err)
	require.Equal(t, planes[1:], got.Killed)
	require.Equal(t, "Select 1 casualties from aa fire in Ukraine", chooser.queries[0].Message)
}
