package unit

import (
	"strings"
	"testing"
)

func TestClassicCatalogLoads(t *testing.T) {
	c, err := Classic()
	if err != nil {
		t.Fatalf("load classic: %v", err)
	}
	infantry, ok := c.Type("infantry")
	if !ok {
		t.Fatal("expected infantry")
	}
	if infantry.AttackRolls != 1 || infantry.DefenseRolls != 1 || infantry.HitPoints != 1 {
		t.Fatalf("infantry defaults = %d/%d/%d, want 1/1/1", infantry.AttackRolls, infantry.DefenseRolls, infantry.HitPoints)
	}
	aa, _ := c.Type("aaGun")
	if !aa.IsAA() || aa.AATag() != "AA" {
		t.Fatalf("aaGun IsAA = %v tag = %s", aa.IsAA(), aa.AATag())
	}
	flak, _ := c.Type("flak")
	if flak.MaxAAAttacks != -1 {
		t.Fatalf("flak max attacks = %d, want -1", flak.MaxAAAttacks)
	}
	egypt, ok := c.Territory("Egypt")
	if !ok || egypt.Owner == nil || egypt.Owner.Name != "British" {
		t.Fatalf("Egypt owner = %v", egypt)
	}
}

func TestSupportRulesIncludeArtillery(t *testing.T) {
	c, err := Classic()
	if err != nil {
		t.Fatalf("load classic: %v", err)
	}
	var artillery *SupportRule
	for _, rule := range c.SupportRules() {
		if rule.Giver == "artillery" {
			artillery = rule
		}
	}
	if artillery == nil {
		t.Fatal("expected implicit artillery rule")
	}
	if !artillery.Supports("infantry") || !artillery.Supports("marine") || artillery.Supports("armour") {
		t.Fatalf("artillery supports = %v", artillery.UnitTypes)
	}
	if !artillery.Offence || artillery.Defence || artillery.Bonus != 1 || artillery.Number != 1 {
		t.Fatalf("artillery rule = %+v", artillery)
	}
}

func TestLoadCatalogRejectsUnknownSupportGiver(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader(`
unit_types:
  - name: infantry
support:
  - name: ghost
    giver: tank
    number: 1
    unit_types: [infantry]
`))
	if err == nil {
		t.Fatal("expected unknown giver error")
	}
}

func TestLoadCatalogKeepsExplicitZeroRolls(t *testing.T) {
	c, err := LoadCatalog(strings.NewReader(`
unit_types:
  - name: militia
    attack: 1
    attack_rolls: 0
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	militia, _ := c.Type("militia")
	if militia.AttackRolls != 0 || militia.DefenseRolls != 1 {
		t.Fatalf("rolls = %d/%d, want 0/1", militia.AttackRolls, militia.DefenseRolls)
	}
}

func TestSpawnAssignsIDs(t *testing.T) {
	c, err := Classic()
	if err != nil {
		t.Fatalf("load classic: %v", err)
	}
	germans, _ := c.Player("Germans")
	units, err := c.Spawn("armour", germans, 3)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if len(units) != 3 || units[0].ID == "" || units[0].ID == units[1].ID {
		t.Fatalf("spawned units = %v", units)
	}
	if _, err := c.Spawn("zeppelin", germans, 1); err == nil {
		t.Fatal("expected unknown type error")
	}
}
