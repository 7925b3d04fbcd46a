package dice

import (
	"errors"
	"testing"
)

func TestRollDice_Basic(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr error
	}{
		{
			name:    "single d6",
			request: Request{Dice: []Spec{{Sides: 6, Count: 1}}, Seed: 42},
		},
		{
			name:    "2d6 + 1d12",
			request: Request{Dice: []Spec{{Sides: 6, Count: 2}, {Sides: 12, Count: 1}}, Seed: 42},
		},
		{
			name:    "no dice",
			request: Request{Dice: []Spec{}, Seed: 42},
			wantErr: ErrMissingDice,
		},
		{
			name:    "invalid sides",
			request: Request{Dice: []Spec{{Sides: 0, Count: 1}}, Seed: 42},
			wantErr: ErrInvalidDiceSpec,
		},
		{
			name:    "invalid count",
			request: Request{Dice: []Spec{{Sides: 6, Count: 0}}, Seed: 42},
			wantErr: ErrInvalidDiceSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RollDice(tt.request)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RollDice() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RollDice() unexpected error: %v", err)
			}
			if len(result.Rolls) != len(tt.request.Dice) {
				t.Fatalf("rolls = %d, want %d", len(result.Rolls), len(tt.request.Dice))
			}
			total := 0
			for i, roll := range result.Rolls {
				spec := tt.request.Dice[i]
				if len(roll.Results) != spec.Count {
					t.Fatalf("roll %d results = %d, want %d", i, len(roll.Results), spec.Count)
				}
				sum := 0
				for _, v := range roll.Results {
					if v < 0 || v >= spec.Sides {
						t.Fatalf("value %d outside [0,%d)", v, spec.Sides)
					}
					sum += v
				}
				if roll.Total != sum {
					t.Fatalf("roll total = %d, want %d", roll.Total, sum)
				}
				total += sum
			}
			if result.Total != total {
				t.Fatalf("total = %d, want %d", result.Total, total)
			}
		})
	}
}

func TestRollDice_Deterministic(t *testing.T) {
	req := Request{Dice: []Spec{{Sides: 6, Count: 4}}, Seed: 1234}
	a, err := RollDice(req)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	b, err := RollDice(req)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	for i := range a.Rolls[0].Results {
		if a.Rolls[0].Results[i] != b.Rolls[0].Results[i] {
			t.Fatalf("results differ: %v vs %v", a.Rolls[0].Results, b.Rolls[0].Results)
		}
	}
}
