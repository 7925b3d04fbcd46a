package battle

import "strings"

// Kind flags what a battle fights. Flags combine: a land battle with ships
// shelling the shore is Normal|Bombardment.
type Kind uint8

const (
	Normal Kind = 1 << iota
	// AirRaid is strategic bombing: AA fire, then bombers damage a target.
	AirRaid
	// AirSuperiority is an air battle fought with air attack and air defense.
	AirSuperiority
	// Bombardment adds a first round shore bombardment step.
	Bombardment
)

var kindNames = []struct {
	k    Kind
	name string
}{
	{Normal, "normal"},
	{AirRaid, "air_raid"},
	{AirSuperiority, "air_superiority"},
	{Bombardment, "bombardment"},
}

// Has reports whether every flag of f is set.
func (k Kind) Has(f Kind) bool {
	return k&f == f
}

func (k Kind) String() string {
	var parts []string
	for _, n := range kindNames {
		if k.Has(n.k) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseKind reads a kind written by String.
func ParseKind(s string) (Kind, bool) {
	var out Kind
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, n := range kindNames {
			if n.name == strings.TrimSpace(part) {
				out |= n.k
				found = true
			}
		}
		if !found {
			return 0, false
		}
	}
	return out, true
}

// Outcome is how a battle ended.
type Outcome int

const (
	NotFinished Outcome = iota
	AttackerWon
	DefenderWon
	Draw
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case AttackerWon:
		return "attacker"
	case DefenderWon:
		return "defender"
	case Draw:
		return "draw"
	case Cancelled:
		return "cancelled"
	default:
		return "not_finished"
	}
}
