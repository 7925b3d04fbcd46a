package casualty

import (
	"context"
	"fmt"

	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
	"github.com/triplea-game/triplea-sub001/internal/platform/i18n/catalog"
)

// AAAnnotation labels the random draws that pick AA casualties.
const AAAnnotation = "Deciding which planes should die due to AA fire"

// AARequest describes AA hits landing on planes.
type AARequest struct {
	BattleID  string
	Planes    []*unit.Unit
	AAUnits   []*unit.Unit
	Roll      roll.AARoll
	Player    *unit.Player
	Territory *unit.Territory
	Round     int
	// Friendly and Enemy are from the planes' side.
	Friendly  []*unit.Unit
	Enemy     []*unit.Unit
	Defending bool
	Chooser   Chooser
}

func (req AARequest) allowMultipleHitsPerUnit() bool {
	if len(req.AAUnits) == 0 {
		return false
	}
	for _, u := range req.AAUnits {
		if !u.Type.DamageableAA {
			return false
		}
	}
	return true
}

// AA assigns AA hits to planes per the configured policy.
func (s *Selector) AA(ctx context.Context, req AARequest) (Details, error) {
	if len(req.Planes) == 0 {
		return Details{}, nil
	}
	multi := req.allowMultipleHitsPerUnit()
	var (
		out List
		err error
	)
	switch s.Props.EffectiveAAPolicy() {
	case rules.AAChoose:
		return s.Select(ctx, Request{
			BattleID:  req.BattleID,
			Player:    req.Player,
			Territory: req.Territory,
			Round:     req.Round,
			Targets:   req.Planes,
			Friendly:  req.Friendly,
			Enemy:     req.Enemy,
			Defending: req.Defending,
			Hits:      req.Roll.Hits(),
			Dice:      req.Roll.DiceRoll,
			Message: catalog.Default().Sprintf(s.Locale, "battle.casualties.aa",
				req.Roll.Hits(), req.Territory.String()),
			AllowMultipleHitsPerUnit: multi,
			Chooser:                  req.Chooser,
		})
	case rules.AALowLuck:
		out, err = s.lowLuckAA(ctx, req.Planes, req.Roll, multi)
	case rules.AARandom:
		out, err = s.randomAA(ctx, req.Planes, req.Roll.Hits(), multi)
	default:
		out, err = s.individuallyAA(ctx, req.Planes, req.Roll, multi)
	}
	if err != nil {
		return Details{}, err
	}
	out.settle()
	return Details{List: out, AutoCalculated: true}, nil
}

// planeHitList lists each plane once per hit it can take.
func planeHitList(planes []*unit.Unit, allowMultipleHitsPerUnit bool) []*unit.Unit {
	var out []*unit.Unit
	for _, p := range planes {
		n := min(1, p.HitPointsLeft())
		if allowMultipleHitsPerUnit {
			n = p.HitPointsLeft()
		}
		for i := 0; i < n; i++ {
			out = append(out, p)
		}
	}
	return out
}

// pickRandom removes count units from pool with one batched draw, stepping
// a running position through the shrinking pool.
func (s *Selector) pickRandom(ctx context.Context, pool []*unit.Unit, count int) ([]*unit.Unit, []*unit.Unit, error) {
	if count <= 0 || len(pool) == 0 {
		return nil, pool, nil
	}
	values, err := s.Dice.GetRandom(ctx, len(pool), count, AAAnnotation)
	if err != nil {
		return nil, pool, fmt.Errorf("pick aa casualties: %w", err)
	}
	pool = append([]*unit.Unit(nil), pool...)
	picked := make([]*unit.Unit, 0, count)
	pos := 0
	for _, v := range values {
		pos += v
		i := pos % len(pool)
		picked = append(picked, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return picked, pool, nil
}

func (s *Selector) randomAA(ctx context.Context, planes []*unit.Unit, hits int, multi bool) (List, error) {
	var out List
	if hits <= 0 {
		return out, nil
	}
	pool := planeHitList(planes, multi)
	if hits >= len(pool) {
		for _, p := range pool {
			out.hit(p, multi)
		}
		return out, nil
	}
	picked, _, err := s.pickRandom(ctx, pool, hits)
	if err != nil {
		return List{}, err
	}
	for _, p := range picked {
		out.hit(p, multi)
	}
	return out, nil
}

// individuallyAA maps each AA die to the plane at the same position. It
// falls back to random assignment when there is not exactly one die per
// plane hit point or the dice were rolled at different strengths.
func (s *Selector) individuallyAA(ctx context.Context, planes []*unit.Unit, r roll.AARoll, multi bool) (List, error) {
	pool := planeHitList(planes, multi)
	if r.TotalAttacks != len(pool) || !r.AllSameAttack {
		return s.randomAA(ctx, planes, r.Hits(), multi)
	}
	hits := r.Hits()
	if hits > len(pool) {
		return List{}, apperrors.New(apperrors.CodeAAInconsistent, "cannot have more hits than dice")
	}
	var out List
	if hits == len(pool) {
		for _, p := range pool {
			out.hit(p, multi)
		}
		return out, nil
	}
	for i, d := range r.RollsAt(r.HighestAttack) {
		if d.Type == roll.Hit && i < len(pool) {
			out.hit(pool[i], multi)
		}
	}
	return out, nil
}

// lowLuckAA kills one plane per full group of planes, where a group is as
// many planes as one AA die covers, and draws randomly among the rest.
func (s *Selector) lowLuckAA(ctx context.Context, planes []*unit.Unit, r roll.AARoll, multi bool) (List, error) {
	hits := r.Hits()
	highest := r.HighestAttack
	if hits <= 0 || highest < 1 {
		return List{}, nil
	}
	pool := planeHitList(planes, multi)
	groupSize := r.Sides
	if r.AllSameAttack {
		groupSize = r.Sides / highest
	}
	if !r.AllSameAttack || hits > ceilDiv(len(pool), groupSize) || r.Sides%highest != 0 {
		return s.randomAA(ctx, planes, hits, multi)
	}

	groups, rest := groupPlanes(pool, groupSize)
	var out List
	if hits < len(groups)+ceilDiv(len(rest), groupSize) {
		candidates := make([]*unit.Unit, 0, len(groups)+len(rest))
		for _, g := range groups {
			candidates = append(candidates, g[0])
		}
		switch {
		case len(rest) == 1:
			candidates = append(candidates, rest[0])
		case len(rest) > 1:
			picked, _, err := s.pickRandom(ctx, rest, ceilDiv(len(rest), groupSize))
			if err != nil {
				return List{}, err
			}
			candidates = append(candidates, picked...)
		}
		picked, _, err := s.pickRandom(ctx, candidates, hits)
		if err != nil {
			return List{}, err
		}
		for _, p := range picked {
			out.hit(p, multi)
		}
	} else {
		for _, g := range groups {
			out.hit(g[0], multi)
			hits--
		}
		switch {
		case hits == len(rest):
			for _, p := range rest {
				out.hit(p, multi)
			}
		case hits != 0:
			picked, _, err := s.pickRandom(ctx, rest, hits)
			if err != nil {
				return List{}, err
			}
			for _, p := range picked {
				out.hit(p, multi)
			}
		}
	}
	if out.Size() != r.Hits() {
		return List{}, apperrors.New(apperrors.CodeAAInconsistent,
			fmt.Sprintf("wrong number of aa casualties: want %d, got %d", r.Hits(), out.Size()))
	}
	return out, nil
}

// groupPlanes splits each category of planes into full groups of size and
// a remainder.
func groupPlanes(pool []*unit.Unit, size int) ([][]*unit.Unit, []*unit.Unit) {
	var (
		groups [][]*unit.Unit
		rest   []*unit.Unit
	)
	for _, c := range unit.Categorize(pool) {
		split := len(c.Units) - len(c.Units)%size
		for i := 0; i < split; i += size {
			groups = append(groups, c.Units[i:i+size])
		}
		rest = append(rest, c.Units[split:]...)
	}
	return groups, rest
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
