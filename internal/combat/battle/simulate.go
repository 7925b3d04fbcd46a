package battle

import (
	"context"
	"fmt"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

// SimulationRoundCap bounds simulated battles whose rules set no round
// limit.
const SimulationRoundCap = 100

// SimulateRequest describes a battle to fight many times.
type SimulateRequest struct {
	Config  Config
	Props   rules.Properties
	Support []*unit.SupportRule
	Runs    int
	// Seed makes the runs reproducible. Run i rolls with Seed+i.
	Seed int64
}

// Odds summarizes simulated battles.
type Odds struct {
	Runs         int     `json:"runs"`
	AttackerWins int     `json:"attacker_wins"`
	DefenderWins int     `json:"defender_wins"`
	Draws        int     `json:"draws"`
	AvgRounds    float64 `json:"avg_rounds"`
	// AvgAttackersLeft and AvgDefendersLeft count surviving combat units.
	AvgAttackersLeft float64 `json:"avg_attackers_left"`
	AvgDefendersLeft float64 `json:"avg_defenders_left"`
}

// AttackerWinRate returns the share of runs the attacker won.
func (o Odds) AttackerWinRate() float64 {
	if o.Runs == 0 {
		return 0
	}
	return float64(o.AttackerWins) / float64(o.Runs)
}

// Simulate fights req.Runs headless copies of a battle. Every run shares
// cache, so repeated casualty orders are computed once.
func Simulate(ctx context.Context, req SimulateRequest, cache *casualty.OrderCache) (Odds, error) {
	if req.Runs <= 0 {
		return Odds{}, apperrors.WithMetadata(apperrors.CodeConfigInvalid,
			fmt.Sprintf("runs must be positive, got %d", req.Runs),
			map[string]string{"Reason": "runs"})
	}
	if cache == nil {
		cache = casualty.NewOrderCache()
	}
	if req.Props.MaxRounds <= 0 {
		req.Props.MaxRounds = SimulationRoundCap
	}
	out := Odds{Runs: req.Runs}
	var rounds, attackersLeft, defendersLeft int
	for i := range req.Runs {
		if err := ctx.Err(); err != nil {
			return Odds{}, err
		}
		b, err := simulationBattle(req, cache, req.Seed+int64(i))
		if err != nil {
			return Odds{}, err
		}
		if err := b.Fight(ctx); err != nil {
			return Odds{}, fmt.Errorf("simulation run %d: %w", i, err)
		}
		switch b.Outcome() {
		case AttackerWon:
			out.AttackerWins++
		case DefenderWon:
			out.DefenderWins++
		default:
			out.Draws++
		}
		rounds += b.Round()
		attackersLeft += unit.Count(b.attacking, isCombatant)
		defendersLeft += unit.Count(b.defending, isCombatant)
	}
	n := float64(req.Runs)
	out.AvgRounds = float64(rounds) / n
	out.AvgAttackersLeft = float64(attackersLeft) / n
	out.AvgDefendersLeft = float64(defendersLeft) / n
	return out, nil
}

// simulationBattle builds a battle over fresh copies of the configured units
// on a private board.
func simulationBattle(req SimulateRequest, cache *casualty.OrderCache, seed int64) (*Battle, error) {
	cfg := req.Config
	cfg.ID = fmt.Sprintf("sim-%d", seed)
	cfg.Attacking = cloneUnits(cfg.Attacking)
	cfg.Defending = cloneUnits(cfg.Defending)
	cfg.Bombarding = cloneUnits(cfg.Bombarding)
	cfg.Dependents = nil

	board := change.NewBoard()
	if cfg.Territory != nil {
		board.Place(cfg.Territory.Name, cfg.Attacking...)
		board.Place(cfg.Territory.Name, cfg.Defending...)
	}
	return New(cfg, Env{
		Dice:     dice.NewSeeded(seed),
		Props:    req.Props,
		Support:  req.Support,
		Bridge:   change.NewLog(board),
		Cache:    cache,
		Headless: true,
	})
}

func cloneUnits(units []*unit.Unit) []*unit.Unit {
	out := make([]*unit.Unit, len(units))
	for i, u := range units {
		c := *u
		out[i] = &c
	}
	return out
}
