package casualty

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

var (
	germans  = &unit.Player{Name: "Germans"}
	russians = &unit.Player{Name: "Russians"}
	ukraine  = &unit.Territory{Name: "Ukraine"}

	infantry   = &unit.Type{Name: "infantry", Attack: 1, Defense: 2, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1, Cost: 3, IsArtillerySupportable: true}
	artillery  = &unit.Type{Name: "artillery", Attack: 2, Defense: 2, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1, Cost: 4, IsArtillery: true}
	armour     = &unit.Type{Name: "armour", Attack: 3, Defense: 3, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1, Cost: 5}
	battleship = &unit.Type{Name: "battleship", Attack: 4, Defense: 4, AttackRolls: 1, DefenseRolls: 1, HitPoints: 2, Cost: 20, IsSea: true}
	leader     = &unit.Type{Name: "leader", Attack: 1, Defense: 1, AttackRolls: 1, DefenseRolls: 1, HitPoints: 1, Cost: 1}
)

var spawned int

// spawn makes n units of t with ids unique across the test binary.
func spawn(t *unit.Type, owner *unit.Player, n int) []*unit.Unit {
	out := make([]*unit.Unit, n)
	for i := range out {
		spawned++
		out[i] = unit.New(fmt.Sprintf("%s-%s-%d", owner.Name, t.Name, spawned), t, owner)
	}
	return out
}

func typeNames(units []*unit.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Type.Name
	}
	return out
}

type fakeChooser struct {
	answers []Details
	queries []Query
	errors  []string
}

func (f *fakeChooser) SelectCasualties(_ context.Context, q Query) (Details, error) {
	f.queries = append(f.queries, q)
	answer := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return answer, nil
}

func (f *fakeChooser) ReportError(_ context.Context, message string) {
	f.errors = append(f.errors, message)
}

func newSelector() *Selector {
	return &Selector{Props: rules.Default(), Locale: "en-US"}
}

func TestSingleHitKillsLoneInfantry(t *testing.T) {
	targets := spawn(infantry, russians, 1)
	got, err := newSelector().Select(context.Background(), Request{
		Player: russians, Territory: ukraine, Targets: targets, Friendly: targets, Defending: true, Hits: 1,
	})
	require.NoError(t, err)
	require.Equal(t, targets, got.Killed)
	require.Empty(t, got.Damaged)
	require.True(t, got.AutoCalculated)
}

func TestZeroHitsSelectsNothing(t *testing.T) {
	targets := spawn(infantry, russians, 3)
	got, err := newSelector().Select(context.Background(), Request{Player: russians, Targets: targets, Hits: 0})
	require.NoError(t, err)
	require.True(t, got.Empty())
}

func TestTwoHitPointUnitDamagedThenKilled(t *testing.T) {
	ship := spawn(battleship, russians, 1)
	s := newSelector()
	req := Request{Player: russians, Territory: ukraine, Targets: ship, Defending: true, Hits: 1, AllowMultipleHitsPerUnit: true}

	first, err := s.Select(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, first.Killed)
	require.Equal(t, ship, first.Damaged)

	ship[0].Hits++
	second, err := s.Select(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, ship, second.Killed)
	require.Empty(t, second.Damaged)
}

func TestDefaultsDamageBeforeKilling(t *testing.T) {
	targets := append(spawn(infantry, russians, 2), spawn(battleship, russians, 1)...)
	defaults, sorted := newSelector().Defaults(Request{
		Player: russians, Territory: ukraine, Targets: targets, Defending: true, Hits: 2, AllowMultipleHitsPerUnit: true,
	})
	require.Len(t, sorted, 3)
	require.Equal(t, []*unit.Unit{targets[2]}, defaults.Damaged)
	require.Len(t, defaults.Killed, 1)
	require.Equal(t, "infantry", defaults.Killed[0].Type.Name)
}

func TestAllTargetsDieWhenHitsCoverHitPoints(t *testing.T) {
	targets := append(spawn(infantry, russians, 1), spawn(armour, russians, 1)...)
	chooser := &fakeChooser{}
	got, err := newSelector().Select(context.Background(), Request{
		Player: russians, Targets: targets, Defending: true, Hits: 5, Chooser: chooser,
	})
	require.NoError(t, err)
	require.ElementsMatch(t, targets, got.Killed)
	require.True(t, got.AutoCalculated)
	require.Empty(t, chooser.queries)
}

func TestArtilleryOutlivesInfantry(t *testing.T) {
	targets := append(spawn(artillery, germans, 2), spawn(infantry, germans, 2)...)
	s := newSelector()
	s.Support = unit.ArtillerySupport([]*unit.Type{infantry, artillery})
	order := s.Order(Request{Player: germans, Territory: ukraine, Targets: targets})
	require.Equal(t, []string{"infantry", "infantry", "artillery", "artillery"}, typeNames(order))
}

func TestSupportGiversInterleaveWithReceivers(t *testing.T) {
	rule := &unit.SupportRule{Name: "command", Giver: "leader", BonusType: "command", Bonus: 2, Number: 1,
		UnitTypes: []string{"infantry"}, Offence: true, Allied: true, Strength: true}
	targets := append(spawn(infantry, germans, 2), spawn(leader, germans, 2)...)
	s := newSelector()
	s.Support = []*unit.SupportRule{rule}

	order := s.Order(Request{Player: germans, Territory: ukraine, Targets: targets})
	require.Equal(t, []string{"leader", "infantry", "leader", "infantry"}, typeNames(order))
}

func TestDefaultSelectionIsDeterministic(t *testing.T) {
	targets := append(append(spawn(infantry, russians, 3), spawn(armour, russians, 2)...), spawn(artillery, russians, 1)...)
	s := newSelector()
	req := Request{Player: russians, Territory: ukraine, Targets: targets, Defending: true, Hits: 3}
	first, err := s.Select(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Select(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSelectionInvariants(t *testing.T) {
	targets := append(append(spawn(infantry, russians, 2), spawn(armour, russians, 1)...), spawn(battleship, russians, 2)...)
	for hits := 0; hits <= 8; hits++ {
		for _, multi := range []bool{false, true} {
			got, err := newSelector().Select(context.Background(), Request{
				Player: russians, Territory: ukraine, Targets: targets, Defending: true, Hits: hits, AllowMultipleHitsPerUnit: multi,
			})
			require.NoError(t, err)
			capacity := len(targets)
			if multi {
				capacity = HitPointsLeft(targets)
			}
			require.Equal(t, min(hits, capacity), absorbed(got.List, multi), "hits %d multi %v", hits, multi)
			require.True(t, unit.ContainsAll(targets, got.Units()))
			for _, k := range got.Killed {
				require.False(t, unit.Contains(got.Damaged, k), "hits %d multi %v: %s both killed and damaged", hits, multi, k.ID)
			}
		}
	}
}

// absorbed counts the hits a selection takes; a killed unit absorbs all of
// its remaining hit points when units may take several hits.
func absorbed(l List, multi bool) int {
	n := len(l.Damaged)
	for _, u := range l.Killed {
		if multi {
			n += u.HitPointsLeft()
		} else {
			n++
		}
	}
	return n
}

func TestChooserIsAskedWithDefaults(t *testing.T) {
	targets := append(spawn(infantry, russians, 2), spawn(armour, russians, 1)...)
	chooser := &fakeChooser{answers: []Details{{List: List{Killed: []*unit.Unit{targets[2]}}}}}
	got, err := newSelector().Select(context.Background(), Request{
		Player: russians, Territory: ukraine, Targets: targets, Defending: true, Hits: 1, Chooser: chooser,
	})
	require.NoError(t, err)
	require.Equal(t, []*unit.Unit{targets[2]}, got.Killed)
	require.Len(t, chooser.queries, 1)
	q := chooser.queries[0]
	require.Equal(t, "Russians select 1 casualties", q.Message)
	require.Len(t, q.Default.Killed, 1)
	require.False(t, got.AutoCalculated)
}

func TestWrongCountIsReselectedOnce(t *testing.T) {
	targets := append(spawn(infantry, russians, 2), spawn(armour, russians, 1)...)
	wrong := Details{List: List{Killed: targets[:2]}}
	right := Details{List: List{Killed: targets[:1]}}
	chooser := &fakeChooser{answers: []Details{wrong, right}}

	got, err := newSelector().Select(context.Background(), Request{
		Player: russians, Targets: targets, Defending: true, Hits: 1, Chooser: chooser,
	})
	require.NoError(t, err)
	require.Equal(t, targets[:1], got.Killed)
	require.Equal(t, []string{"Wrong number of casualties selected"}, chooser.errors)
}

func TestRepeatedBadSelectionFails(t *testing.T) {
	targets := append(spawn(infantry, russians, 2), spawn(armour, russians, 1)...)
	chooser := &fakeChooser{answers: []Details{{List: List{Killed: targets}}}}
	_, err := newSelector().Select(context.Background(), Request{
		Player: russians, Targets: targets, Defending: true, Hits: 1, Chooser: chooser,
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeCasualtyInvalid), "error = %v", err)
	require.Len(t, chooser.errors, 2)
}

func TestUnknownUnitsAreRejected(t *testing.T) {
	targets := append(spawn(infantry, russians, 2), spawn(armour, russians, 1)...)
	stranger := spawn(infantry, russians, 1)
	chooser := &fakeChooser{answers: []Details{{List: List{Killed: stranger}}}}
	_, err := newSelector().Select(context.Background(), Request{
		Player: russians, Targets: targets, Defending: true, Hits: 1, Chooser: chooser,
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeCasualtyNotEnoughUnits), "error = %v", err)
	require.Equal(t, "Cannot remove enough units of those types", chooser.errors[0])
}

func TestTargetsMustBeFriendly(t *testing.T) {
	targets := spawn(infantry, russians, 1)
	_, err := newSelector().Select(context.Background(), Request{Player: russians, Targets: targets, Friendly: spawn(infantry, russians, 1), Hits: 1})
	require.True(t, apperrors.HasCode(err, apperrors.CodeCasualtyTargetsUnknown))
}

func TestPartialAmphibiousRetreatKillsLandedUnitsFirst(t *testing.T) {
	ashore := spawn(infantry, germans, 1)
	landed := spawn(infantry, germans, 1)
	landed[0].WasAmphibious = true
	targets := append(append(append([]*unit.Unit{}, ashore...), landed...), spawn(armour, germans, 1)...)

	s := newSelector()
	s.Props.PartialAmphibiousRetreat = true
	chooser := &fakeChooser{answers: []Details{{List: List{Killed: ashore}}}}
	got, err := s.Select(context.Background(), Request{Player: germans, Targets: targets, Hits: 1, Chooser: chooser})
	require.NoError(t, err)
	require.Equal(t, landed, got.Killed)
}

func TestOrderCache(t *testing.T) {
	cache := NewOrderCache()
	s := newSelector()
	s.Support = unit.ArtillerySupport([]*unit.Type{infantry, artillery})
	s.Cache = cache
	req := Request{Player: germans, Territory: ukraine, Targets: append(spawn(artillery, germans, 1), spawn(infantry, germans, 2)...)}

	first := s.Order(req)
	require.Equal(t, 3, cache.Len())
	second := s.Order(req)
	require.Equal(t, typeNames(first), typeNames(second))
	require.ElementsMatch(t, req.Targets, second)

	hits, misses := cache.Stats()
	require.Equal(t, 1, hits)
	require.Equal(t, 1, misses)

	smaller := req
	smaller.Targets = req.Targets[:2]
	s.Order(smaller)
	hits, _ = cache.Stats()
	require.Equal(t, 2, hits)

	cache.Clear()
	require.Zero(t, cache.Len())
	var none *OrderCache
	require.Zero(t, none.Len())
}

func TestIDsRoundTrip(t *testing.T) {
	targets := append(spawn(infantry, russians, 1), spawn(battleship, russians, 1)...)
	targets[0].ID, targets[1].ID = "inf-1", "bb-1"
	d := Details{List: List{Killed: targets[:1], Damaged: targets[1:]}}
	back, err := d.ToIDs().Resolve(targets)
	require.NoError(t, err)
	require.Equal(t, d, back)
	_, err = IDs{Killed: []string{"missing"}}.Resolve(targets)
	require.Error(t, err)
}
