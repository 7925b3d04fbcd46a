// Package unit models the static unit types and the mutable units, players
// and territories that battles operate on.
package unit

import "slices"

// AAType tags a family of anti-aircraft units that fire together.
type AAType string

// DefaultAAType is used when a type declares AA capability without a tag.
const DefaultAAType AAType = "AA"

// Type carries the static combat attributes of a unit type.
type Type struct {
	Name         string `yaml:"name"`
	Attack       int    `yaml:"attack"`
	Defense      int    `yaml:"defense"`
	AttackRolls  int    `yaml:"attack_rolls"`
	DefenseRolls int    `yaml:"defense_rolls"`
	HitPoints    int    `yaml:"hit_points"`
	Cost         int    `yaml:"cost"`
	Movement     int    `yaml:"movement"`

	IsAir            bool `yaml:"air"`
	IsSea            bool `yaml:"sea"`
	IsInfrastructure bool `yaml:"infrastructure"`
	IsDestroyer      bool `yaml:"destroyer"`
	// IsFirstStrike units (submarines) fire before casualties are removed.
	IsFirstStrike bool `yaml:"first_strike"`
	CanEvade      bool `yaml:"can_evade"`
	// IsTransport units are defenseless and taken last.
	IsTransport bool `yaml:"transport"`
	IsSuicide   bool `yaml:"suicide"`

	IsArtillery            bool `yaml:"artillery"`
	IsArtillerySupportable bool `yaml:"artillery_supportable"`
	// Marine is the attack bonus a land unit gets when landing from sea.
	Marine int `yaml:"marine"`
	// Bombard is the strength used when shelling a land territory.
	Bombard        int  `yaml:"bombard"`
	ChooseBestRoll bool `yaml:"choose_best_roll"`

	AirAttack  int `yaml:"air_attack"`
	AirDefense int `yaml:"air_defense"`

	StrategicBomber bool `yaml:"strategic_bomber"`
	BombingDieSides int  `yaml:"bombing_die_sides"`
	BombingBonus    int  `yaml:"bombing_bonus"`
	MaxDamage       int  `yaml:"max_damage"`

	AttackAA          int      `yaml:"attack_aa"`
	OffensiveAttackAA int      `yaml:"offensive_attack_aa"`
	MaxAAAttacks      int      `yaml:"max_aa_attacks"`
	AADieSides        int      `yaml:"aa_die_sides"`
	TypeAA            AAType   `yaml:"type_aa"`
	TargetsAA         []string `yaml:"targets_aa"`
	MayOverStackAA    bool     `yaml:"may_over_stack_aa"`
	DamageableAA      bool     `yaml:"damageable_aa"`
}

// IsAA reports whether the type fires anti-aircraft dice while defending.
func (t *Type) IsAA() bool {
	return t != nil && t.AttackAA > 0 && t.MaxAAAttacks != 0
}

// IsOffensiveAA reports whether the type fires anti-aircraft dice while attacking.
func (t *Type) IsOffensiveAA() bool {
	return t != nil && t.OffensiveAttackAA > 0 && t.MaxAAAttacks != 0
}

// AATag returns the AA family, defaulting an empty tag.
func (t *Type) AATag() AAType {
	if t.TypeAA == "" {
		return DefaultAAType
	}
	return t.TypeAA
}

// Targets reports whether this AA type can fire at target.
// An empty target list means every air unit.
func (t *Type) Targets(target *Type) bool {
	if len(t.TargetsAA) == 0 {
		return target.IsAir
	}
	return slices.Contains(t.TargetsAA, target.Name)
}

// Rolls returns the base number of dice for the role.
func (t *Type) Rolls(defending bool) int {
	if defending {
		return t.DefenseRolls
	}
	return t.AttackRolls
}

// Value returns the base combat value for the role.
func (t *Type) Value(defending bool) int {
	if defending {
		return t.Defense
	}
	return t.Attack
}

func (t *Type) normalize() {
	if t.HitPoints < 1 {
		t.HitPoints = 1
	}
	if t.MaxAAAttacks == 0 && (t.AttackAA > 0 || t.OffensiveAttackAA > 0) {
		t.MaxAAAttacks = -1
	}
}

// SupportRule grants Bonus to units of UnitTypes, Number times per giver.
type SupportRule struct {
	Name      string   `yaml:"name"`
	Giver     string   `yaml:"giver"`
	BonusType string   `yaml:"bonus_type"`
	Bonus     int      `yaml:"bonus"`
	Number    int      `yaml:"number"`
	UnitTypes []string `yaml:"unit_types"`

	Offence bool `yaml:"offence"`
	Defence bool `yaml:"defence"`
	Allied  bool `yaml:"allied"`
	Enemy   bool `yaml:"enemy"`

	Strength   bool `yaml:"strength"`
	Roll       bool `yaml:"roll"`
	AAStrength bool `yaml:"aa_strength"`
	AARoll     bool `yaml:"aa_roll"`

	// Players limits which owners' units may give the support. Empty means all.
	Players []string `yaml:"players"`
}

// Supports reports whether the rule can apply to units of the named type.
func (r *SupportRule) Supports(typeName string) bool {
	return slices.Contains(r.UnitTypes, typeName)
}

// GivenBy reports whether u can give this support.
func (r *SupportRule) GivenBy(u *Unit) bool {
	if u.Type.Name != r.Giver {
		return false
	}
	if len(r.Players) == 0 || u.Owner == nil {
		return true
	}
	return slices.Contains(r.Players, u.Owner.Name)
}

// ArtillerySupport builds the implicit rule artillery flags describe: one
// +1 attack bonus per artillery to an artillery-supportable unit.
func ArtillerySupport(types []*Type) []*SupportRule {
	var supportable []string
	for _, t := range types {
		if t.IsArtillerySupportable {
			supportable = append(supportable, t.Name)
		}
	}
	if len(supportable) == 0 {
		return nil
	}
	var out []*SupportRule
	for _, t := range types {
		if !t.IsArtillery {
			continue
		}
		out = append(out, &SupportRule{
			Name:      "artillery:" + t.Name,
			Giver:     t.Name,
			BonusType: "ArtyOld",
			Bonus:     1,
			Number:    1,
			UnitTypes: slices.Clone(supportable),
			Offence:   true,
			Allied:    true,
			Strength:  true,
		})
	}
	return out
}
