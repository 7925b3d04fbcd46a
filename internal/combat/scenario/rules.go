package scenario

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
)

type ruleSetter func(p *rules.Properties, v any) error

func boolRule(field func(*rules.Properties) *bool) ruleSetter {
	return func(p *rules.Properties, v any) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want a boolean, got %v", v)
		}
		*field(p) = b
		return nil
	}
}

func intRule(field func(*rules.Properties) *int) ruleSetter {
	return func(p *rules.Properties, v any) error {
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("want an integer, got %v", v)
		}
		*field(p) = n
		return nil
	}
}

var ruleSetters = map[string]ruleSetter{
	"dice_sides": intRule(func(p *rules.Properties) *int { return &p.DiceSides }),
	"max_rounds": intRule(func(p *rules.Properties) *int { return &p.MaxRounds }),
	"low_luck":   boolRule(func(p *rules.Properties) *bool { return &p.LowLuck }),
	"low_luck_aa_only": boolRule(func(p *rules.Properties) *bool {
		return &p.LowLuckAAOnly
	}),
	"partial_amphibious_retreat": boolRule(func(p *rules.Properties) *bool {
		return &p.PartialAmphibiousRetreat
	}),
	"ww2v2": boolRule(func(p *rules.Properties) *bool { return &p.WW2V2 }),
	"defending_subs_sneak_attack": boolRule(func(p *rules.Properties) *bool {
		return &p.DefendingSubsSneakAttack
	}),
	"sub_retreat_before_battle": boolRule(func(p *rules.Properties) *bool {
		return &p.SubRetreatBeforeBattle
	}),
	"submersible_subs": boolRule(func(p *rules.Properties) *bool { return &p.SubmersibleSubs }),
	"air_attack_sub_restricted": boolRule(func(p *rules.Properties) *bool {
		return &p.AirAttackSubRestricted
	}),
	"transport_casualties_restricted": boolRule(func(p *rules.Properties) *bool {
		return &p.TransportCasualtiesRestricted
	}),
	"lhtr_heavy_bombers": boolRule(func(p *rules.Properties) *bool { return &p.LHTRHeavyBombers }),
	"naval_bombard_return_fire": boolRule(func(p *rules.Properties) *bool {
		return &p.NavalBombardReturnFire
	}),
	"retreating_units_remain_in_place": boolRule(func(p *rules.Properties) *bool {
		return &p.RetreatingUnitsRemainInPlace
	}),
	"aa_casualties": func(p *rules.Properties, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want a policy name, got %v", v)
		}
		p.AACasualties = rules.AAPolicy(s)
		return nil
	},
	"confirm_timeout": func(p *rules.Properties, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want a duration, got %v", v)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		p.ConfirmTimeout = d
		return nil
	},
}

// applyRules overrides p with the scenario's rule table.
func applyRules(p rules.Properties, overrides map[string]any) (rules.Properties, error) {
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		set, ok := ruleSetters[key]
		if !ok {
			return rules.Properties{}, invalid("unknown rule %q", key)
		}
		if err := set(&p, overrides[key]); err != nil {
			return rules.Properties{}, invalid("rule %s: %v", key, err)
		}
	}
	if err := p.Validate(); err != nil {
		return rules.Properties{}, err
	}
	return p, nil
}
