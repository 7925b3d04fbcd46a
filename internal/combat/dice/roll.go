package dice

import (
	"context"
	"fmt"
)

// Spec asks for Count dice with Sides sides.
type Spec struct {
	Sides int `json:"sides"`
	Count int `json:"count"`
}

// Request is a batch of dice specs rolled from one seed.
type Request struct {
	Dice []Spec
	Seed int64
}

// Roll holds the values of one Spec.
type Roll struct {
	Sides   int   `json:"sides"`
	Results []int `json:"results"`
	// Total sums the zero-based values.
	Total int `json:"total"`
}

// Result holds every Roll of a Request in order.
type Result struct {
	Rolls []Roll `json:"rolls"`
	Total int    `json:"total"`
}

// RollDice rolls dice based on the provided request.
//
// # Determinism
//
// RollDice is deterministic with respect to the Seed field on Request.
// Given the same Seed and the same Dice slice, RollDice always produces
// the same Result.
//
// # Values
//
// Values are zero-based, in [0, Sides). A unit with strength s hits on
// values below s.
//
// # Errors
//
//   - At least one Spec must be provided in Request.Dice, otherwise
//     ErrMissingDice is returned.
//   - Each Spec must have Sides > 0 and Count > 0, otherwise
//     ErrInvalidDiceSpec is returned.
func RollDice(request Request) (Result, error) {
	return RollWithSource(context.Background(), NewSeeded(request.Seed), request.Dice, "roll dice")
}

// RollWithSource rolls each spec through src in order, one request per spec.
func RollWithSource(ctx context.Context, src Source, specs []Spec, annotation string) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrMissingDice
	}
	for _, spec := range specs {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return Result{}, ErrInvalidDiceSpec
		}
	}

	rolls := make([]Roll, 0, len(specs))
	total := 0
	for i, spec := range specs {
		values, err := src.GetRandom(ctx, spec.Sides, spec.Count, fmt.Sprintf("%s (%d/%d)", annotation, i+1, len(specs)))
		if err != nil {
			return Result{}, err
		}
		rollTotal := 0
		for _, v := range values {
			rollTotal += v
		}
		rolls = append(rolls, Roll{Sides: spec.Sides, Results: values, Total: rollTotal})
		total += rollTotal
	}
	return Result{Rolls: rolls, Total: total}, nil
}
