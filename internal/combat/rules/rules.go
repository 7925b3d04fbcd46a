// Package rules holds the game options that change how battles resolve.
package rules

import (
	"fmt"
	"time"

	"github.com/triplea-game/triplea-sub001/internal/platform/config"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

// EnvPrefix prefixes every rule environment variable.
const EnvPrefix = "TRIPLEA_"

// AAPolicy selects how AA hits are assigned to planes.
type AAPolicy string

const (
	AAIndividually AAPolicy = "individually"
	AARandom       AAPolicy = "random"
	AAChoose       AAPolicy = "choose"
	AALowLuck      AAPolicy = "low_luck"
)

// Properties are the rule options battles consult.
type Properties struct {
	DiceSides     int      `env:"DICE_SIDES" envDefault:"6"`
	LowLuck       bool     `env:"LOW_LUCK" envDefault:"false"`
	LowLuckAAOnly bool     `env:"LOW_LUCK_AA_ONLY" envDefault:"false"`
	AACasualties  AAPolicy `env:"AA_CASUALTIES" envDefault:"individually"`

	// MaxRounds ends a battle without a winner; zero or less is unlimited.
	MaxRounds int `env:"MAX_ROUNDS" envDefault:"-1"`

	PartialAmphibiousRetreat      bool `env:"PARTIAL_AMPHIBIOUS_RETREAT" envDefault:"false"`
	WW2V2                         bool `env:"WW2V2" envDefault:"false"`
	DefendingSubsSneakAttack      bool `env:"DEFENDING_SUBS_SNEAK_ATTACK" envDefault:"false"`
	SubRetreatBeforeBattle        bool `env:"SUB_RETREAT_BEFORE_BATTLE" envDefault:"false"`
	SubmersibleSubs               bool `env:"SUBMERSIBLE_SUBS" envDefault:"false"`
	AirAttackSubRestricted        bool `env:"AIR_ATTACK_SUB_RESTRICTED" envDefault:"true"`
	TransportCasualtiesRestricted bool `env:"TRANSPORT_CASUALTIES_RESTRICTED" envDefault:"true"`
	LHTRHeavyBombers              bool `env:"LHTR_HEAVY_BOMBERS" envDefault:"false"`
	NavalBombardReturnFire        bool `env:"NAVAL_BOMBARD_RETURN_FIRE" envDefault:"false"`
	RetreatingUnitsRemainInPlace  bool `env:"RETREATING_UNITS_REMAIN_IN_PLACE" envDefault:"false"`

	// ConfirmTimeout bounds the wait for both players to confirm casualties.
	ConfirmTimeout time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"2m"`
}

// Default returns the classic rule set.
func Default() Properties {
	return Properties{
		DiceSides:                     6,
		AACasualties:                  AAIndividually,
		MaxRounds:                     -1,
		AirAttackSubRestricted:        true,
		TransportCasualtiesRestricted: true,
		ConfirmTimeout:                2 * time.Minute,
	}
}

// Load reads properties from TRIPLEA_* environment variables.
func Load() (Properties, error) {
	var p Properties
	if err := config.ParseEnvWithPrefix(&p, EnvPrefix); err != nil {
		return Properties{}, err
	}
	if err := p.Validate(); err != nil {
		return Properties{}, err
	}
	return p, nil
}

// Validate rejects settings no battle can run with.
func (p Properties) Validate() error {
	if p.DiceSides < 1 {
		return apperrors.WithMetadata(apperrors.CodeConfigInvalid,
			fmt.Sprintf("dice sides must be positive, got %d", p.DiceSides),
			map[string]string{"Reason": "dice sides"})
	}
	switch p.AACasualties {
	case AAIndividually, AARandom, AAChoose, AALowLuck:
	default:
		return apperrors.WithMetadata(apperrors.CodeConfigInvalid,
			fmt.Sprintf("unknown AA casualty policy %q", p.AACasualties),
			map[string]string{"Reason": "AA casualty policy"})
	}
	if p.ConfirmTimeout < 0 {
		return apperrors.WithMetadata(apperrors.CodeConfigInvalid, "confirm timeout must not be negative",
			map[string]string{"Reason": "confirm timeout"})
	}
	return nil
}

// LowLuckAA reports whether AA fire uses low luck.
func (p Properties) LowLuckAA() bool {
	return p.LowLuck || p.LowLuckAAOnly
}

// EffectiveAAPolicy resolves the AA casualty policy. Player choice wins,
// then low luck, then the configured policy.
func (p Properties) EffectiveAAPolicy() AAPolicy {
	switch {
	case p.AACasualties == AAChoose:
		return AAChoose
	case p.LowLuckAA(), p.AACasualties == AALowLuck:
		return AALowLuck
	case p.AACasualties == AARandom:
		return AARandom
	default:
		return AAIndividually
	}
}
