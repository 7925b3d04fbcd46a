package battle

import (
	"context"
	"testing"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

func simulateRequest(runs int, seed int64) SimulateRequest {
	attacking := append(spawn(infantry, germans, 3), spawn(artillery, germans, 1)...)
	return SimulateRequest{
		Config: Config{
			Territory: ukraine, Attacker: germans, Defender: russians,
			Attacking: attacking, Defending: spawn(infantry, russians, 2),
		},
		Props:   rules.Default(),
		Support: unit.ArtillerySupport([]*unit.Type{infantry, artillery}),
		Runs:    runs,
		Seed:    seed,
	}
}

func TestSimulateIsReproducible(t *testing.T) {
	cache := casualty.NewOrderCache()
	first, err := Simulate(context.Background(), simulateRequest(50, 7), cache)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if total := first.AttackerWins + first.DefenderWins + first.Draws; total != 50 {
		t.Fatalf("outcomes = %d, want 50", total)
	}
	if first.AvgRounds < 1 {
		t.Fatalf("avg rounds = %v, want at least 1", first.AvgRounds)
	}

	again, err := Simulate(context.Background(), simulateRequest(50, 7), nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if again != first {
		t.Fatalf("odds = %+v, want %+v", again, first)
	}
	if rate := first.AttackerWinRate(); rate < 0 || rate > 1 {
		t.Fatalf("win rate = %v", rate)
	}
}

func TestSimulateLeavesRequestUnitsUntouched(t *testing.T) {
	req := simulateRequest(10, 1)
	if _, err := Simulate(context.Background(), req, nil); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	for _, u := range append(req.Config.Attacking, req.Config.Defending...) {
		if u.Hits != 0 || u.WasInCombat {
			t.Fatalf("unit %s changed: %+v", u.ID, u)
		}
	}
}

func TestSimulateRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  SimulateRequest
	}{
		{name: "no runs", req: simulateRequest(0, 1)},
		{name: "bad dice", req: func() SimulateRequest {
			r := simulateRequest(5, 1)
			r.Props.DiceSides = 0
			return r
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(context.Background(), tt.req, nil)
			if !apperrors.HasCode(err, apperrors.CodeConfigInvalid) {
				t.Fatalf("err = %v, want %s", err, apperrors.CodeConfigInvalid)
			}
		})
	}
}

func TestSimulateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Simulate(ctx, simulateRequest(5, 1), nil); err == nil {
		t.Fatal("expected cancelled simulation to fail")
	}
}
