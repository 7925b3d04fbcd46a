package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "battle_scenario"

// LoadFile runs the Lua script at path and returns the scenario it builds.
func LoadFile(path string) (*Scenario, error) {
	state := newState()
	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	s, err := run(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// LoadString runs a Lua script held in memory.
func LoadString(name, source string) (*Scenario, error) {
	state := newState()
	if err := lua.LoadString(state, source); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	s, err := run(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = name
	}
	return s, nil
}

func newState() *lua.State {
	state := lua.NewState()
	lua.OpenLibraries(state)

	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{{Name: "new", Function: scenarioNew}}, 0)
	state.SetGlobal("Scenario")
	return state
}

func run(state *lua.State) (*Scenario, error) {
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}
	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return a Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	s, ok := ud.(*Scenario)
	if !ok || s == nil {
		return nil, fmt.Errorf("scenario script returned an invalid Scenario")
	}
	return s, nil
}

func scenarioNew(state *lua.State) int {
	s := &Scenario{Name: lua.OptString(state, 1, "")}
	state.PushUserData(s)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "catalog", Function: scenarioCatalog},
	{Name: "territory", Function: scenarioTerritory},
	{Name: "kind", Function: scenarioKind},
	{Name: "attack", Function: scenarioAttack},
	{Name: "defend", Function: scenarioDefend},
	{Name: "bombard", Function: scenarioBombard},
	{Name: "rules", Function: scenarioRules},
	{Name: "simulate", Function: scenarioSimulate},
}

func scenarioCatalog(state *lua.State) int {
	checkScenario(state).Catalog = lua.CheckString(state, 2)
	return 0
}

func scenarioTerritory(state *lua.State) int {
	checkScenario(state).Territory = lua.CheckString(state, 2)
	return 0
}

func scenarioKind(state *lua.State) int {
	checkScenario(state).Kind = lua.CheckString(state, 2)
	return 0
}

// scenarioAttack reads s:attack(player, units, {from = {...}, amphibious = bool}).
func scenarioAttack(state *lua.State) int {
	s := checkScenario(state)
	s.Attacker = Side{Player: lua.CheckString(state, 2), Units: checkUnits(state, 3)}
	opts := optionalTable(state, 4)
	if from, ok := opts["from"].([]any); ok {
		for _, name := range from {
			if str, ok := name.(string); ok {
				s.From = append(s.From, str)
			}
		}
	}
	if amphibious, ok := opts["amphibious"].(bool); ok {
		s.Amphibious = amphibious
	}
	return 0
}

func scenarioDefend(state *lua.State) int {
	s := checkScenario(state)
	s.Defender = Side{Player: lua.CheckString(state, 2), Units: checkUnits(state, 3)}
	return 0
}

func scenarioBombard(state *lua.State) int {
	checkScenario(state).Bombarding = checkUnits(state, 2)
	return 0
}

func scenarioRules(state *lua.State) int {
	s := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	if s.Rules == nil {
		s.Rules = map[string]any{}
	}
	for key, value := range tableToMap(state, 2) {
		s.Rules[key] = value
	}
	return 0
}

func scenarioSimulate(state *lua.State) int {
	s := checkScenario(state)
	opts := optionalTable(state, 2)
	if runs, ok := opts["runs"].(int); ok {
		s.Runs = runs
	}
	if seed, ok := opts["seed"].(int); ok {
		s.Seed = int64(seed)
	}
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if s, ok := ud.(*Scenario); ok && s != nil {
		return s
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

// checkUnits reads a {type = count} table.
func checkUnits(state *lua.State, index int) map[string]int {
	lua.CheckType(state, index, lua.TypeTable)
	out := map[string]int{}
	for name, value := range tableToMap(state, index) {
		count, ok := value.(int)
		if !ok {
			lua.ArgumentError(state, index, fmt.Sprintf("count of %s must be an integer", name))
			return nil
		}
		out[name] = count
	}
	return out
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		if math.Mod(value, 1) == 0 {
			return int(value)
		}
		return value
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToSlice(state, index)
	default:
		return nil
	}
}

// tableToSlice reads an array table; other tables read as maps.
func tableToSlice(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	n := state.RawLength(index)
	if n == 0 {
		return tableToMap(state, index)
	}
	out := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		state.RawGetInt(index, i)
		out = append(out, luaToGo(state, -1))
		state.Pop(1)
	}
	return out
}
