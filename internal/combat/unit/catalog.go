package unit

import (
	"embed"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var embeddedCatalogs embed.FS

// Catalog is the static game data battles read: players, unit types,
// support rules and territories.
type Catalog struct {
	Players     []*Player      `yaml:"players"`
	Types       []*Type        `yaml:"unit_types"`
	Support     []*SupportRule `yaml:"support"`
	Territories []*Territory   `yaml:"territories"`

	types       map[string]*Type
	players     map[string]*Player
	territories map[string]*Territory
}

// UnmarshalYAML applies type defaults before decoding.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	type plain Type
	raw := plain{AttackRolls: 1, DefenseRolls: 1, HitPoints: 1}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*t = Type(raw)
	t.normalize()
	return nil
}

// LoadCatalog decodes a YAML catalog and resolves references.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile loads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Classic loads the embedded classic rule set.
func Classic() (*Catalog, error) {
	f, err := embeddedCatalogs.Open("catalogs/classic.yaml")
	if err != nil {
		return nil, fmt.Errorf("open classic catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func (c *Catalog) index() error {
	c.types = make(map[string]*Type, len(c.Types))
	for _, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("unit type name is required")
		}
		if _, dup := c.types[t.Name]; dup {
			return fmt.Errorf("duplicate unit type %q", t.Name)
		}
		c.types[t.Name] = t
	}
	c.players = make(map[string]*Player, len(c.Players))
	for _, p := range c.Players {
		c.players[p.Name] = p
	}
	for _, rule := range c.Support {
		if _, ok := c.types[rule.Giver]; !ok {
			return fmt.Errorf("support %q: unknown giver %q", rule.Name, rule.Giver)
		}
		for _, name := range rule.UnitTypes {
			if _, ok := c.types[name]; !ok {
				return fmt.Errorf("support %q: unknown unit type %q", rule.Name, name)
			}
		}
		if rule.Number < 1 {
			return fmt.Errorf("support %q: number must be positive", rule.Name)
		}
	}
	c.territories = make(map[string]*Territory, len(c.Territories))
	for _, t := range c.Territories {
		if t.OwnerName != "" {
			owner, ok := c.players[t.OwnerName]
			if !ok {
				return fmt.Errorf("territory %q: unknown owner %q", t.Name, t.OwnerName)
			}
			t.Owner = owner
		}
		c.territories[t.Name] = t
	}
	return nil
}

// Type looks up a unit type by name.
func (c *Catalog) Type(name string) (*Type, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Player looks up a player by name.
func (c *Catalog) Player(name string) (*Player, bool) {
	p, ok := c.players[name]
	return p, ok
}

// Territory looks up a territory by name.
func (c *Catalog) Territory(name string) (*Territory, bool) {
	t, ok := c.territories[name]
	return t, ok
}

// SupportRules returns explicit rules followed by the implicit artillery rules.
func (c *Catalog) SupportRules() []*SupportRule {
	out := make([]*SupportRule, 0, len(c.Support)+1)
	out = append(out, c.Support...)
	return append(out, ArtillerySupport(c.Types)...)
}

// TypeNames returns the sorted unit type names.
func (c *Catalog) TypeNames() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spawn creates count new units of the named type for owner.
func (c *Catalog) Spawn(typeName string, owner *Player, count int) ([]*Unit, error) {
	t, ok := c.types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown unit type %q", typeName)
	}
	units := make([]*Unit, 0, count)
	for range count {
		units = append(units, New(uuid.NewString(), t, owner))
	}
	return units, nil
}
