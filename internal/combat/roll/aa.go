package roll

import (
	"context"
	"fmt"

	"github.com/triplea-game/triplea-sub001/internal/combat/power"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

// AARequest describes AA units of one type firing at targets.
type AARequest struct {
	AAUnits   []*unit.Unit
	Targets   []*unit.Unit
	Defending bool
	// Player defaults to the owner of the first AA unit.
	Player    *unit.Player
	Territory *unit.Territory
	Round     int
	Friendly  []*unit.Unit
	Enemy     []*unit.Unit
}

// AARoll is an AA roll plus the facts casualty assignment needs.
type AARoll struct {
	DiceRoll
	TypeAA        unit.AAType
	TotalAttacks  int
	TotalPower    int
	HighestAttack int
	Sides         int
	// AllSameAttack reports whether every die was rolled at one strength.
	AllSameAttack bool
}

// RollAA rolls AA dice for req. Low luck applies when either low luck
// option is on.
func (r *Resolver) RollAA(ctx context.Context, req AARequest) (AARoll, error) {
	if len(req.AAUnits) == 0 {
		return AARoll{}, nil
	}
	typeAA := req.AAUnits[0].Type.AATag()
	friendly := req.Friendly
	if friendly == nil {
		friendly = req.AAUnits
	}
	pc := power.Context{
		DiceSides: r.Props.DiceSides,
		Rules:     r.Support,
		Territory: req.Territory,
		Round:     req.Round,
	}
	m := power.AA(req.AAUnits, friendly, req.Enemy, req.Defending, pc)
	totalAttacks := power.TotalAAAttacks(m, len(req.Targets))
	if totalAttacks <= 0 {
		return AARoll{TypeAA: typeAA}, nil
	}
	attack, sides := power.MaxAAAttackAndDiceSides(req.AAUnits, req.Defending, r.Props.DiceSides, m)
	player := req.Player
	if player == nil {
		player = req.AAUnits[0].Owner
	}
	annotation := AAAnnotation(typeAA, req.Territory)

	plan, err := fireAA(nil, req.AAUnits, m, len(req.Targets), req.Defending, r.Props.DiceSides)
	if err != nil {
		return AARoll{}, err
	}
	var (
		hits   int
		rolled []Die
	)
	if r.Props.LowLuckAA() {
		hits, rolled, _, err = lowLuckHits(ctx, r.Dice, plan.power, sides, annotation)
		if err != nil {
			return AARoll{}, err
		}
	} else {
		values, err := r.Dice.GetRandom(ctx, sides, totalAttacks, annotation)
		if err != nil {
			return AARoll{}, fmt.Errorf("roll aa dice: %w", err)
		}
		fired, err := fireAA(values, req.AAUnits, m, len(req.Targets), req.Defending, r.Props.DiceSides)
		if err != nil {
			return AARoll{}, err
		}
		hits, rolled = fired.hits, fired.dice
	}

	out := NewDiceRoll(rolled, hits, float64(plan.power)/float64(sides), player.String())
	r.history().AddChildToEvent(fmt.Sprintf("%s roll %s dice in %s : %s", player, typeAA, req.Territory, out), out)
	return AARoll{
		DiceRoll:      out,
		TypeAA:        typeAA,
		TotalAttacks:  totalAttacks,
		TotalPower:    plan.power,
		HighestAttack: attack,
		Sides:         sides,
		AllSameAttack: plan.allSame,
	}, nil
}

type aaFire struct {
	power   int
	hits    int
	allSame bool
	dice    []Die
}

// fireAA walks AA units in firing order: limited AA first (skipping guns
// weaker than the unlimited ones), then unlimited AA at its best attack,
// then over-stacking AA. With nil values it only totals power.
func fireAA(values []int, units []*unit.Unit, m power.Map, targets int, defending bool, diceSides int) (aaFire, error) {
	if len(m) == 0 {
		return aaFire{}, nil
	}
	var order []*unit.Unit
	for _, u := range units {
		if _, ok := m[u]; ok {
			order = append(order, u)
		}
	}
	power.SortAAHighToLow(order, defending, diceSides, m)

	var normal, infinite, overstack []*unit.Unit
	for _, u := range order {
		switch {
		case u.Type.MaxAAAttacks == -1:
			infinite = append(infinite, u)
		case u.Type.MayOverStackAA:
			overstack = append(overstack, u)
		default:
			normal = append(normal, u)
		}
	}
	subset := func(units []*unit.Unit) power.Map {
		out := power.Map{}
		for _, u := range units {
			out[u] = m[u]
		}
		return out
	}

	total := power.TotalAAAttacks(m, targets)
	normalCount := power.TotalAAAttacks(subset(normal), targets)
	infiniteCount := min(targets-normalCount, power.TotalAAAttacks(subset(infinite), targets))
	overstackCount := power.TotalAAAttacks(subset(overstack), targets)
	if sum := normalCount + infiniteCount + overstackCount; sum != total {
		return aaFire{}, apperrors.WithMetadata(apperrors.CodeAAInconsistent,
			fmt.Sprintf("total attacks should be %d but is %d", total, sum),
			map[string]string{"Expected": fmt.Sprint(total), "Actual": fmt.Sprint(sum)})
	}
	hitAtForInfinite, _ := power.MaxAAAttackAndDiceSides(infinite, defending, diceSides, m)

	var out aaFire
	rolledAt := map[int]bool{}
	i := 0
	fire := func(hitAt int) {
		if values != nil {
			d := classify(values[i], hitAt)
			if d.Type == Hit {
				out.hits++
			}
			out.dice = append(out.dice, d)
		}
		i++
		out.power += hitAt
		rolledAt[hitAt] = true
	}

	limit := normalCount
	for _, u := range normal {
		if i >= limit {
			break
		}
		attacks, hitAt := m[u].Rolls, m[u].Power
		if hitAt < hitAtForInfinite {
			continue
		}
		for ; i < limit && attacks > 0; attacks-- {
			fire(hitAt)
		}
	}
	limit += infiniteCount
	for i < limit {
		fire(hitAtForInfinite)
	}
	limit += overstackCount
	for _, u := range overstack {
		if i >= limit {
			break
		}
		attacks, hitAt := m[u].Rolls, m[u].Power
		for ; i < limit && attacks > 0; attacks-- {
			fire(hitAt)
		}
	}
	out.allSame = len(rolledAt) == 1
	return out, nil
}
