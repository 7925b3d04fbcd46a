// Package dice produces the zero-based random values battles consume.
//
// Every request carries an annotation naming why the dice were rolled. The
// annotation is part of the audit trail an opponent uses to confirm that a
// play-by-email game was not re-rolled.
package dice

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

var (
	// ErrMissingDice is returned when a request names no dice.
	ErrMissingDice = apperrors.New(apperrors.CodeDiceInvalidSpec, "at least one dice spec is required")
	// ErrInvalidDiceSpec is returned for non-positive sides or negative counts.
	ErrInvalidDiceSpec = apperrors.New(apperrors.CodeDiceInvalidSpec, "dice spec needs positive sides and a non-negative count")
	// ErrExhausted is returned when a scripted source runs out of values.
	ErrExhausted = apperrors.New(apperrors.CodeDiceExhausted, "scripted dice exhausted")
)

// Source returns count values uniformly drawn from [0, sides).
//
// A count of zero returns no values and must not consume randomness.
type Source interface {
	GetRandom(ctx context.Context, sides int, count int, annotation string) ([]int, error)
}

// Validate checks a request before it reaches a source.
func Validate(sides int, count int) error {
	if sides <= 0 || count < 0 {
		return fmt.Errorf("%w: %d dice with %d sides", ErrInvalidDiceSpec, count, sides)
	}
	return nil
}

// Seeded draws from a math/rand generator. The same seed replays the same
// sequence for the same sequence of requests.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded returns a source seeded with seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

// GetRandom implements Source.
func (s *Seeded) GetRandom(ctx context.Context, sides int, count int, _ string) ([]int, error) {
	if err := Validate(sides, count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]int, count)
	for i := range values {
		values[i] = s.rng.Intn(sides)
	}
	return values, nil
}

// Scripted replays fixed values in order. Tests and journal replays use it.
type Scripted struct {
	mu     sync.Mutex
	values []int
	pos    int
}

// NewScripted returns a source that yields values in order.
func NewScripted(values ...int) *Scripted {
	return &Scripted{values: slices.Clone(values)}
}

// GetRandom implements Source. Values outside [0, sides) are rejected.
func (s *Scripted) GetRandom(_ context.Context, sides int, count int, annotation string) ([]int, error) {
	if err := Validate(sides, count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos+count > len(s.values) {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeDiceExhausted,
			fmt.Sprintf("need %d values, %d left", count, len(s.values)-s.pos),
			map[string]string{"Annotation": annotation}, ErrExhausted)
	}
	out := slices.Clone(s.values[s.pos : s.pos+count])
	for _, v := range out {
		if v < 0 || v >= sides {
			return nil, fmt.Errorf("%w: scripted value %d outside [0,%d)", ErrInvalidDiceSpec, v, sides)
		}
	}
	s.pos += count
	return out, nil
}

// Remaining reports how many scripted values are unused.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.pos
}

// Entry is one audited request.
type Entry struct {
	Sides      int    `json:"sides"`
	Count      int    `json:"count"`
	Annotation string `json:"annotation"`
	Values     []int  `json:"values"`
}

// Audited records every non-empty request made through it and forwards
// each entry to Sink when set. An entry the sink rejects is not recorded.
type Audited struct {
	Source Source
	Sink   func(ctx context.Context, entry Entry) error

	mu      sync.Mutex
	entries []Entry
}

// NewAudited wraps src.
func NewAudited(src Source) *Audited {
	return &Audited{Source: src}
}

// GetRandom implements Source.
func (a *Audited) GetRandom(ctx context.Context, sides int, count int, annotation string) ([]int, error) {
	if a.Source == nil {
		return nil, errors.New("dice source is not configured")
	}
	if err := Validate(sides, count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	values, err := a.Source.GetRandom(ctx, sides, count, annotation)
	if err != nil {
		return nil, err
	}
	entry := Entry{Sides: sides, Count: count, Annotation: annotation, Values: slices.Clone(values)}
	// The trail only keeps entries the sink accepted, so a retried request
	// does not leave a dropped roll behind it.
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Sink != nil {
		if err := a.Sink(ctx, entry); err != nil {
			return nil, fmt.Errorf("record dice: %w", err)
		}
	}
	a.entries = append(a.entries, entry)
	return values, nil
}

// Entries returns a copy of the audit trail.
func (a *Audited) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	for i, e := range a.entries {
		e.Values = slices.Clone(e.Values)
		out[i] = e
	}
	return out
}

// ReplaySource returns a scripted source yielding the audited values in order.
func ReplaySource(entries []Entry) *Scripted {
	var values []int
	for _, e := range entries {
		values = append(values, e.Values...)
	}
	return NewScripted(values...)
}
