package roll

import (
	"context"
	"fmt"
	"slices"

	"github.com/triplea-game/triplea-sub001/internal/combat/power"
)

// RollAirBattle rolls the air superiority phase with air attack and air
// defense values. Dice go to the strongest units first, as in a normal roll.
func (r *Resolver) RollAirBattle(ctx context.Context, req Request) (DiceRoll, error) {
	sides := r.Props.DiceSides
	units := slices.Clone(req.Units)
	SortByStrength(units, req.Defending)
	m := power.AirBattle(units, req.Defending, sides)
	total := power.Total(m, sides, r.Props.LHTRHeavyBombers)
	if total.Rolls == 0 {
		return DiceRoll{}, nil
	}
	annotation := req.annotation()
	expected := float64(total.Power) / float64(sides)

	if r.Props.LowLuck {
		hits, rolled, values, err := lowLuckHits(ctx, r.Dice, total.Power, sides, annotation)
		if err != nil {
			return DiceRoll{}, err
		}
		out := NewDiceRoll(rolled, hits, expected, req.Player.String())
		r.history().AddChildToEvent(annotation+" : "+FormatDice(values), out)
		return out, nil
	}

	values, err := r.Dice.GetRandom(ctx, sides, total.Rolls, annotation)
	if err != nil {
		return DiceRoll{}, fmt.Errorf("roll air battle dice: %w", err)
	}
	rolled, hits := r.assign(units, m, values)
	out := NewDiceRoll(rolled, hits, expected, req.Player.String())
	r.history().AddChildToEvent(annotation+" : "+FormatDice(values), out)
	return out, nil
}
