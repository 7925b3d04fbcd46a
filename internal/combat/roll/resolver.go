package roll

import (
	"context"
	"fmt"
	"sort"

	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/history"
	"github.com/triplea-game/triplea-sub001/internal/combat/power"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// Resolver rolls dice for firing units.
type Resolver struct {
	Dice    dice.Source
	Props   rules.Properties
	Support []*unit.SupportRule
	// History receives one child entry per roll. Nil discards.
	History history.Writer
}

// Request describes one side firing.
type Request struct {
	Units     []*unit.Unit
	Defending bool
	Player    *unit.Player
	Territory *unit.Territory
	// Round is the 1-based battle round.
	Round    int
	Opponent *unit.Player
	// Friendly and Enemy are every unit alive or waiting to die on each side,
	// consulted for support. Friendly defaults to Units.
	Friendly []*unit.Unit
	Enemy    []*unit.Unit
	// Annotation overrides the generated dice annotation.
	Annotation string
}

func (req Request) annotation() string {
	if req.Annotation != "" {
		return req.Annotation
	}
	return Annotation(req.Units, req.Player, req.Territory, req.Round-1)
}

func (req Request) friendly() []*unit.Unit {
	if req.Friendly == nil {
		return req.Units
	}
	return req.Friendly
}

func (r *Resolver) history() history.Writer {
	if r.History == nil {
		return history.Discard
	}
	return r.History
}

// Context builds the power context for req.
func (r *Resolver) Context(req Request) power.Context {
	return power.Context{
		DiceSides:        r.Props.DiceSides,
		Rules:            r.Support,
		Territory:        req.Territory,
		Round:            req.Round,
		Opponent:         req.Opponent,
		LHTRHeavyBombers: r.Props.LHTRHeavyBombers,
	}
}

// Powers returns the power map req would roll with, strongest units first.
func (r *Resolver) Powers(req Request) ([]*unit.Unit, power.Map) {
	units := append([]*unit.Unit(nil), req.Units...)
	SortByStrength(units, req.Defending)
	return units, power.Calculate(units, req.friendly(), req.Enemy, req.Defending, r.Context(req))
}

// Roll rolls for req using low luck or normal dice per the rules.
func (r *Resolver) Roll(ctx context.Context, req Request) (DiceRoll, error) {
	if r.Props.LowLuck {
		return r.rollLowLuck(ctx, req)
	}
	return r.rollNormal(ctx, req)
}

func (r *Resolver) rollNormal(ctx context.Context, req Request) (DiceRoll, error) {
	units, m := r.Powers(req)
	sides := r.Props.DiceSides
	total := power.Total(m, sides, r.Props.LHTRHeavyBombers)
	if total.Rolls == 0 {
		return DiceRoll{}, nil
	}
	annotation := req.annotation()
	values, err := r.Dice.GetRandom(ctx, sides, total.Rolls, annotation)
	if err != nil {
		return DiceRoll{}, fmt.Errorf("roll dice: %w", err)
	}

	rolled, hits := r.assign(units, m, values)
	out := NewDiceRoll(rolled, hits, float64(total.Power)/float64(sides), req.Player.String())
	r.history().AddChildToEvent(annotation+" : "+FormatDice(values), out)
	return out, nil
}

// assign walks units in order, handing each its share of values.
func (r *Resolver) assign(units []*unit.Unit, m power.Map, values []int) ([]Die, int) {
	var rolled []Die
	hits, next := 0, 0
	for _, u := range units {
		pr := m[u]
		if pr.Rolls <= 0 || pr.Power <= 0 {
			continue
		}
		group := values[next : next+pr.Rolls]
		next += pr.Rolls
		if pr.Rolls > 1 && (r.Props.LHTRHeavyBombers || u.Type.ChooseBestRoll) {
			d, rest := chooseBest(group, pr.Power)
			rolled = append(rolled, d)
			rolled = append(rolled, rest...)
			if d.Type == Hit {
				hits++
			}
			continue
		}
		for _, v := range group {
			d := classify(v, pr.Power)
			if d.Type == Hit {
				hits++
			}
			rolled = append(rolled, d)
		}
	}
	return rolled, hits
}

// chooseBest keeps the lowest value as the deciding die and marks the rest
// ignored.
func chooseBest(values []int, strength int) (Die, []Die) {
	best := 0
	for i, v := range values {
		if v < values[best] {
			best = i
		}
	}
	rest := make([]Die, 0, len(values)-1)
	for i, v := range values {
		if i != best {
			rest = append(rest, Die{Value: v, RolledAt: strength, Type: Ignored})
		}
	}
	return classify(values[best], strength), rest
}

func (r *Resolver) rollLowLuck(ctx context.Context, req Request) (DiceRoll, error) {
	_, m := r.Powers(req)
	sides := r.Props.DiceSides
	total := power.Total(m, sides, r.Props.LHTRHeavyBombers).Power
	if total == 0 {
		return DiceRoll{}, nil
	}
	annotation := req.annotation()
	hits, rolled, values, err := lowLuckHits(ctx, r.Dice, total, sides, annotation)
	if err != nil {
		return DiceRoll{}, err
	}
	out := NewDiceRoll(rolled, hits, float64(total)/float64(sides), req.Player.String())
	r.history().AddChildToEvent(annotation+" : "+FormatDice(values), out)
	return out, nil
}

// lowLuckHits converts total power into whole hits and rolls one die for
// the remainder, which hits when the remainder is greater than the die.
func lowLuckHits(ctx context.Context, src dice.Source, total, sides int, annotation string) (int, []Die, []int, error) {
	hits := total / sides
	remainder := total % sides
	if remainder == 0 {
		return hits, nil, nil, nil
	}
	values, err := src.GetRandom(ctx, sides, 1, annotation)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("roll low luck remainder: %w", err)
	}
	d := classify(values[0], remainder)
	if d.Type == Hit {
		hits++
	}
	return hits, []Die{d}, values, nil
}

// SortByStrength orders units strongest first for the role, then by owner
// and type name.
func SortByStrength(units []*unit.Unit, defending bool) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if va, vb := a.Type.Value(defending), b.Type.Value(defending); va != vb {
			return va > vb
		}
		if oa, ob := a.Owner.String(), b.Owner.String(); oa != ob {
			return oa < ob
		}
		return a.Type.Name < b.Type.Name
	})
}
