// Package roll turns unit strengths into dice: normal and low luck rolls,
// AA fire and the air superiority phase.
package roll

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DieType classifies one die.
type DieType int

const (
	Miss DieType = iota
	Hit
	// Ignored dice were rolled but did not count, such as the worse dice of
	// a choose-best-roll unit.
	Ignored
)

func (t DieType) String() string {
	switch t {
	case Hit:
		return "HIT"
	case Ignored:
		return "IGNORED"
	}
	return "MISS"
}

// MarshalText implements encoding.TextMarshaler.
func (t DieType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DieType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "HIT":
		*t = Hit
	case "IGNORED":
		*t = Ignored
	default:
		*t = Miss
	}
	return nil
}

// Die is one zero-based value rolled against RolledAt.
type Die struct {
	Value    int     `json:"value"`
	RolledAt int     `json:"rolled_at"`
	Type     DieType `json:"type"`
}

func classify(value, strength int) Die {
	if value < strength {
		return Die{Value: value, RolledAt: strength, Type: Hit}
	}
	return Die{Value: value, RolledAt: strength, Type: Miss}
}

// DiceRoll is the immutable result of one roll.
type DiceRoll struct {
	dice         []Die
	hits         int
	expectedHits float64
	playerName   string
}

// NewDiceRoll copies dice into a new result.
func NewDiceRoll(dice []Die, hits int, expectedHits float64, playerName string) DiceRoll {
	return DiceRoll{
		dice:         append([]Die(nil), dice...),
		hits:         hits,
		expectedHits: expectedHits,
		playerName:   playerName,
	}
}

// Hits returns the number of hits.
func (r DiceRoll) Hits() int { return r.hits }

// ExpectedHits is the total power divided by the die size.
func (r DiceRoll) ExpectedHits() float64 { return r.expectedHits }

// PlayerName names the rolling player.
func (r DiceRoll) PlayerName() string { return r.playerName }

// Len returns the number of dice.
func (r DiceRoll) Len() int { return len(r.dice) }

// Dice returns a copy of the dice.
func (r DiceRoll) Dice() []Die {
	return append([]Die(nil), r.dice...)
}

// Die returns the die at index i.
func (r DiceRoll) Die(i int) Die { return r.dice[i] }

// RollsAt returns the dice rolled at strength.
func (r DiceRoll) RollsAt(strength int) []Die {
	var out []Die
	for _, d := range r.dice {
		if d.RolledAt == strength {
			out = append(out, d)
		}
	}
	return out
}

// String renders dice one-based, as players read them.
func (r DiceRoll) String() string {
	values := make([]int, len(r.dice))
	for i, d := range r.dice {
		values[i] = d.Value
	}
	return FormatDice(values)
}

type diceRollJSON struct {
	Dice         []Die   `json:"dice"`
	Hits         int     `json:"hits"`
	ExpectedHits float64 `json:"expected_hits"`
	PlayerName   string  `json:"player,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r DiceRoll) MarshalJSON() ([]byte, error) {
	return json.Marshal(diceRollJSON{Dice: r.dice, Hits: r.hits, ExpectedHits: r.expectedHits, PlayerName: r.playerName})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *DiceRoll) UnmarshalJSON(data []byte) error {
	var wire diceRollJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = NewDiceRoll(wire.Dice, wire.Hits, wire.ExpectedHits, wire.PlayerName)
	return nil
}

// FormatDice renders zero-based values as one-based comma separated text.
func FormatDice(values []int) string {
	if len(values) == 0 {
		return "none"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v + 1)
	}
	return strings.Join(parts, ",")
}
