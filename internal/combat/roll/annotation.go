package roll

import (
	"fmt"
	"strings"

	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// Annotation describes a combat roll. battleRound is zero based; the text
// shows it one based. Saved dice statistics parse the player name back out
// with PlayerNameFromAnnotation, so keep the prefix stable.
func Annotation(units []*unit.Unit, player *unit.Player, territory *unit.Territory, battleRound int) string {
	return fmt.Sprintf("%s roll dice for %s in %s, round %d",
		player, unit.ToText(units), territory, battleRound+1)
}

// PlayerNameFromAnnotation returns the first word of an annotation.
func PlayerNameFromAnnotation(annotation string) string {
	name, _, _ := strings.Cut(annotation, " ")
	return name
}

// AAAnnotation describes an AA roll.
func AAAnnotation(typeAA unit.AAType, territory *unit.Territory) string {
	return fmt.Sprintf("Roll %s in %s", typeAA, territory)
}
