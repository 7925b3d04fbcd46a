package mcp

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/triplea-game/triplea-sub001/internal/combat/battle"
	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/rules"
	"github.com/triplea-game/triplea-sub001/internal/combat/scenario"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// MaxSimulationRuns bounds a single simulate_battle call.
const MaxSimulationRuns = 20000

// DiceSpec is one group of dice to roll.
type DiceSpec struct {
	Sides int `json:"sides" jsonschema:"number of sides on each die"`
	Count int `json:"count" jsonschema:"number of dice to roll"`
}

// RollDiceInput represents the MCP tool input for rolling dice.
type RollDiceInput struct {
	Dice []DiceSpec `json:"dice" jsonschema:"dice groups to roll"`
	Seed *int64     `json:"seed,omitempty" jsonschema:"optional seed for deterministic rolls"`
}

// RollDiceRoll is one rolled group.
type RollDiceRoll struct {
	Sides   int   `json:"sides" jsonschema:"number of sides on each die"`
	Results []int `json:"results" jsonschema:"zero-based die values"`
	Total   int   `json:"total" jsonschema:"sum of the zero-based values"`
}

// RollDiceResult represents the MCP tool output for rolling dice.
type RollDiceResult struct {
	Rolls    []RollDiceRoll `json:"rolls" jsonschema:"rolled groups in request order"`
	Total    int            `json:"total" jsonschema:"sum of every group"`
	SeedUsed int64          `json:"seed_used" jsonschema:"seed that reproduces this roll"`
}

// RollDiceTool defines the MCP tool schema for rolling dice.
func RollDiceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_dice",
		Description: "Rolls groups of zero-based battle dice",
	}
}

// RollDiceHandler rolls dice from the given seed or the clock.
func RollDiceHandler(now func() time.Time) mcp.ToolHandlerFor[RollDiceInput, RollDiceResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input RollDiceInput) (*mcp.CallToolResult, RollDiceResult, error) {
		specs := make([]dice.Spec, 0, len(input.Dice))
		for _, spec := range input.Dice {
			specs = append(specs, dice.Spec{Sides: spec.Sides, Count: spec.Count})
		}
		seed := now().UnixNano()
		if input.Seed != nil {
			seed = *input.Seed
		}
		result, err := dice.RollDice(dice.Request{Dice: specs, Seed: seed})
		if err != nil {
			return nil, RollDiceResult{}, fmt.Errorf("roll dice: %w", err)
		}
		rolls := make([]RollDiceRoll, 0, len(result.Rolls))
		for _, r := range result.Rolls {
			rolls = append(rolls, RollDiceRoll{Sides: r.Sides, Results: r.Results, Total: r.Total})
		}
		return nil, RollDiceResult{Rolls: rolls, Total: result.Total, SeedUsed: seed}, nil
	}
}

// SimulateBattleInput represents the MCP tool input for odds simulation.
type SimulateBattleInput struct {
	Territory string         `json:"territory" jsonschema:"battle site from the catalog"`
	Kind      string         `json:"kind,omitempty" jsonschema:"battle kind such as normal or air_raid"`
	Attacker  string         `json:"attacker" jsonschema:"attacking player"`
	Attacking map[string]int `json:"attacking" jsonschema:"attacking units by type name"`
	Defender  string         `json:"defender" jsonschema:"defending player"`
	Defending map[string]int `json:"defending" jsonschema:"defending units by type name"`
	From      []string       `json:"from,omitempty" jsonschema:"territories the attackers came from"`
	Rules     map[string]any `json:"rules,omitempty" jsonschema:"rule overrides such as low_luck or max_rounds"`
	Runs      int            `json:"runs,omitempty" jsonschema:"number of battles to fight"`
	Seed      int64          `json:"seed,omitempty" jsonschema:"seed of the first run"`
}

// SimulateBattleResult represents the MCP tool output for odds simulation.
type SimulateBattleResult struct {
	Runs             int     `json:"runs" jsonschema:"battles fought"`
	AttackerWins     int     `json:"attacker_wins" jsonschema:"battles the attacker won"`
	DefenderWins     int     `json:"defender_wins" jsonschema:"battles the defender won"`
	Draws            int     `json:"draws" jsonschema:"battles without a winner"`
	AvgRounds        float64 `json:"avg_rounds" jsonschema:"mean rounds per battle"`
	AvgAttackersLeft float64 `json:"avg_attackers_left" jsonschema:"mean surviving attacking units"`
	AvgDefendersLeft float64 `json:"avg_defenders_left" jsonschema:"mean surviving defending units"`
	AttackerWinRate  float64 `json:"attacker_win_rate" jsonschema:"share of runs the attacker won"`
}

// SimulateBattleTool defines the MCP tool schema for odds simulation.
func SimulateBattleTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulate_battle",
		Description: "Fights a battle many times and reports the odds",
	}
}

// SimulateBattleHandler simulates battles against catalog. Runs share cache.
func SimulateBattleHandler(catalogPath string, cache *casualty.OrderCache) mcp.ToolHandlerFor[SimulateBattleInput, SimulateBattleResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulateBattleInput) (*mcp.CallToolResult, SimulateBattleResult, error) {
		if input.Runs > MaxSimulationRuns {
			return nil, SimulateBattleResult{}, fmt.Errorf("runs must be at most %d, got %d", MaxSimulationRuns, input.Runs)
		}
		s := &scenario.Scenario{
			Name:      "simulate_battle",
			Catalog:   catalogPath,
			Kind:      input.Kind,
			Territory: input.Territory,
			Attacker:  scenario.Side{Player: input.Attacker, Units: input.Attacking},
			Defender:  scenario.Side{Player: input.Defender, Units: input.Defending},
			From:      input.From,
			Rules:     input.Rules,
			Runs:      input.Runs,
			Seed:      input.Seed,
		}
		setup, err := s.Resolve()
		if err != nil {
			return nil, SimulateBattleResult{}, err
		}
		odds, err := battle.Simulate(ctx, setup.SimulateRequest(), cache)
		if err != nil {
			return nil, SimulateBattleResult{}, fmt.Errorf("simulate battle: %w", err)
		}
		return nil, SimulateBattleResult{
			Runs:             odds.Runs,
			AttackerWins:     odds.AttackerWins,
			DefenderWins:     odds.DefenderWins,
			Draws:            odds.Draws,
			AvgRounds:        odds.AvgRounds,
			AvgAttackersLeft: odds.AvgAttackersLeft,
			AvgDefendersLeft: odds.AvgDefendersLeft,
			AttackerWinRate:  odds.AttackerWinRate(),
		}, nil
	}
}

// CasualtyOrderInput represents the MCP tool input for casualty ordering.
type CasualtyOrderInput struct {
	Player    string         `json:"player" jsonschema:"owner of the units"`
	Territory string         `json:"territory" jsonschema:"battle site from the catalog"`
	Units     map[string]int `json:"units" jsonschema:"units by type name"`
	Defending bool           `json:"defending,omitempty" jsonschema:"whether the units defend"`
	Hits      int            `json:"hits,omitempty" jsonschema:"hits to assign; zero lists the order only"`
}

// CasualtyOrderResult represents the MCP tool output for casualty ordering.
type CasualtyOrderResult struct {
	Order   []string `json:"order" jsonschema:"unit types, first to die first"`
	Killed  []string `json:"killed,omitempty" jsonschema:"unit types the default selection kills"`
	Damaged []string `json:"damaged,omitempty" jsonschema:"unit types the default selection damages"`
}

// CasualtyOrderTool defines the MCP tool schema for casualty ordering.
func CasualtyOrderTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "casualty_order",
		Description: "Lists the order in which units are taken as casualties",
	}
}

// CasualtyOrderHandler orders casualties with the catalog's support rules.
func CasualtyOrderHandler(catalog *unit.Catalog, cache *casualty.OrderCache) mcp.ToolHandlerFor[CasualtyOrderInput, CasualtyOrderResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input CasualtyOrderInput) (*mcp.CallToolResult, CasualtyOrderResult, error) {
		owner, ok := catalog.Player(input.Player)
		if !ok {
			return nil, CasualtyOrderResult{}, fmt.Errorf("unknown player %q", input.Player)
		}
		site, ok := catalog.Territory(input.Territory)
		if !ok {
			return nil, CasualtyOrderResult{}, fmt.Errorf("unknown territory %q", input.Territory)
		}
		units, err := spawn(catalog, owner, input.Units)
		if err != nil {
			return nil, CasualtyOrderResult{}, err
		}
		selector := &casualty.Selector{
			Props:   rules.Default(),
			Support: catalog.SupportRules(),
			Cache:   cache,
		}
		req := casualty.Request{
			Player:    owner,
			Territory: site,
			Round:     1,
			Targets:   units,
			Friendly:  units,
			Defending: input.Defending,
			Hits:      input.Hits,
		}
		defaults, sorted := selector.Defaults(req)
		return nil, CasualtyOrderResult{
			Order:   typeNames(sorted),
			Killed:  typeNames(defaults.Killed),
			Damaged: typeNames(defaults.Damaged),
		}, nil
	}
}

func spawn(catalog *unit.Catalog, owner *unit.Player, counts map[string]int) ([]*unit.Unit, error) {
	var units []*unit.Unit
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		spawned, err := catalog.Spawn(name, owner, max(0, counts[name]))
		if err != nil {
			return nil, err
		}
		units = append(units, spawned...)
	}
	return units, nil
}

func typeNames(units []*unit.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Type.Name
	}
	return out
}
