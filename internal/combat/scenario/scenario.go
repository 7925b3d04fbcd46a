// Package scenario reads battle setups from Lua scripts and turns them into
// battles and simulation requests.
package scenario

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/triplea-game/triplea-sub001/internal/combat/battle"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

// DefaultRuns is the simulation size when a script sets none.
const DefaultRuns = 1000

// Scenario is one battle setup.
type Scenario struct {
	Name string
	// Catalog is a YAML catalog path; empty uses the classic catalog.
	Catalog    string
	Kind       string
	Territory  string
	Attacker   Side
	Defender   Side
	Bombarding map[string]int
	// From lists where the attackers came from, for retreats.
	From       []string
	Amphibious bool
	Rules      map[string]any
	Runs       int
	Seed       int64
}

// Side is one player's units by type name.
type Side struct {
	Player string
	Units  map[string]int
}

// Setup is a scenario resolved against its catalog.
type Setup struct {
	Name    string
	Catalog *unit.Catalog
	Config  battle.Config
	Props   rules.Properties
	Runs    int
	Seed    int64
}

// SimulateRequest returns the simulation the scenario describes.
func (s Setup) SimulateRequest() battle.SimulateRequest {
	return battle.SimulateRequest{
		Config:  s.Config,
		Props:   s.Props,
		Support: s.Catalog.SupportRules(),
		Runs:    s.Runs,
		Seed:    s.Seed,
	}
}

func invalid(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return apperrors.WithMetadata(apperrors.CodeConfigInvalid, msg, map[string]string{"Reason": msg})
}

// Resolve looks up every name in the scenario and spawns its units.
func (s *Scenario) Resolve() (*Setup, error) {
	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	site, ok := catalog.Territory(s.Territory)
	if !ok {
		return nil, invalid("scenario %q: unknown territory %q", s.Name, s.Territory)
	}
	kind := battle.Normal
	if strings.TrimSpace(s.Kind) != "" {
		if kind, ok = battle.ParseKind(s.Kind); !ok {
			return nil, invalid("scenario %q: unknown battle kind %q", s.Name, s.Kind)
		}
	}
	props, err := applyRules(rules.Default(), s.Rules)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	attacker, attacking, err := spawnSide(catalog, s.Attacker)
	if err != nil {
		return nil, fmt.Errorf("scenario %q attacker: %w", s.Name, err)
	}
	defender, defending, err := spawnSide(catalog, s.Defender)
	if err != nil {
		return nil, fmt.Errorf("scenario %q defender: %w", s.Name, err)
	}
	var bombarding []*unit.Unit
	if len(s.Bombarding) > 0 {
		_, bombarding, err = spawnSide(catalog, Side{Player: s.Attacker.Player, Units: s.Bombarding})
		if err != nil {
			return nil, fmt.Errorf("scenario %q bombard: %w", s.Name, err)
		}
		kind |= battle.Bombardment
	}
	var from []*unit.Territory
	for _, name := range s.From {
		t, ok := catalog.Territory(name)
		if !ok {
			return nil, invalid("scenario %q: unknown territory %q", s.Name, name)
		}
		from = append(from, t)
	}

	runs := s.Runs
	if runs <= 0 {
		runs = DefaultRuns
	}
	return &Setup{
		Name:    s.Name,
		Catalog: catalog,
		Config: battle.Config{
			Kind:          kind,
			Territory:     site,
			Attacker:      attacker,
			Defender:      defender,
			Attacking:     attacking,
			Defending:     defending,
			Bombarding:    bombarding,
			AttackingFrom: from,
			Amphibious:    s.Amphibious,
		},
		Props: props,
		Runs:  runs,
		Seed:  s.Seed,
	}, nil
}

func (s *Scenario) loadCatalog() (*unit.Catalog, error) {
	switch strings.TrimSpace(s.Catalog) {
	case "", "classic":
		return unit.Classic()
	default:
		return unit.LoadCatalogFile(s.Catalog)
	}
}

func spawnSide(catalog *unit.Catalog, side Side) (*unit.Player, []*unit.Unit, error) {
	owner, ok := catalog.Player(side.Player)
	if !ok {
		return nil, nil, invalid("unknown player %q", side.Player)
	}
	var units []*unit.Unit
	for _, name := range slices.Sorted(maps.Keys(side.Units)) {
		count := side.Units[name]
		if count < 0 {
			return nil, nil, invalid("negative count %d for %s", count, name)
		}
		spawned, err := catalog.Spawn(name, owner, count)
		if err != nil {
			return nil, nil, invalid("%v", err)
		}
		units = append(units, spawned...)
	}
	return owner, units, nil
}
