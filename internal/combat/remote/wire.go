package remote

import (
	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// UnitView is what a remote player sees of a unit.
type UnitView struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Owner     string `json:"owner"`
	Hits      int    `json:"hits,omitempty"`
	HitPoints int    `json:"hit_points"`
	Cost      int    `json:"cost,omitempty"`
	Air       bool   `json:"air,omitempty"`
	Sea       bool   `json:"sea,omitempty"`
}

// TerritoryView is what a remote player sees of a territory.
type TerritoryView struct {
	Name  string `json:"name"`
	Water bool   `json:"water,omitempty"`
}

// CasualtyRequest asks which units take the hits.
type CasualtyRequest struct {
	BattleID                 string        `json:"battle_id"`
	Player                   string        `json:"player"`
	Territory                TerritoryView `json:"territory"`
	Targets                  []UnitView    `json:"targets"`
	Hits                     int           `json:"hits"`
	Message                  string        `json:"message,omitempty"`
	Dice                     []int         `json:"dice,omitempty"`
	DefaultKilled            []string      `json:"default_killed,omitempty"`
	DefaultDamaged           []string      `json:"default_damaged,omitempty"`
	Amphibious               bool          `json:"amphibious,omitempty"`
	AllowMultipleHitsPerUnit bool          `json:"allow_multiple_hits_per_unit,omitempty"`
}

// CasualtyReply names the chosen casualties by unit id.
type CasualtyReply struct {
	Killed         []string `json:"killed,omitempty"`
	Damaged        []string `json:"damaged,omitempty"`
	AutoCalculated bool     `json:"auto_calculated,omitempty"`
}

// ErrorReport tells a player their answer was rejected.
type ErrorReport struct {
	Player  string `json:"player"`
	Message string `json:"message"`
}

// RetreatRequest asks whether and where to retreat.
type RetreatRequest struct {
	BattleID  string          `json:"battle_id"`
	Player    string          `json:"player"`
	Kind      string          `json:"kind"`
	Territory TerritoryView   `json:"territory"`
	Possible  []TerritoryView `json:"possible,omitempty"`
	Submerge  bool            `json:"submerge,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// RetreatReply names the destination; empty means stay.
type RetreatReply struct {
	Territory string `json:"territory,omitempty"`
}

// ConfirmRequest asks a player to acknowledge casualties.
type ConfirmRequest struct {
	BattleID string `json:"battle_id"`
	Player   string `json:"player"`
	Message  string `json:"message"`
	// HitPlayer is set when confirming the enemy's casualties.
	HitPlayer string `json:"hit_player,omitempty"`
}

// BomberRequest asks which infrastructure to bomb.
type BomberRequest struct {
	Player    string        `json:"player"`
	Territory TerritoryView `json:"territory"`
	Targets   []UnitView    `json:"targets"`
	Bombers   []UnitView    `json:"bombers"`
}

// BomberReply names the target by unit id.
type BomberReply struct {
	Target string `json:"target,omitempty"`
}

// BombardRequest asks whether a sea unit shells the battle site.
type BombardRequest struct {
	BattleID  string        `json:"battle_id"`
	Player    string        `json:"player"`
	Unit      UnitView      `json:"unit"`
	Territory TerritoryView `json:"territory"`
}

// BombardReply answers a BombardRequest.
type BombardReply struct {
	Bombard bool `json:"bombard"`
}

// Empty is the reply of calls that only acknowledge.
type Empty struct{}

var retreatKinds = map[string]player.RetreatKind{
	player.RetreatGeneral.String():           player.RetreatGeneral,
	player.RetreatSubs.String():              player.RetreatSubs,
	player.RetreatPlanes.String():            player.RetreatPlanes,
	player.RetreatPartialAmphibious.String(): player.RetreatPartialAmphibious,
}

func viewUnit(u *unit.Unit) UnitView {
	return UnitView{
		ID:        u.ID,
		Type:      u.Type.Name,
		Owner:     u.Owner.String(),
		Hits:      u.Hits,
		HitPoints: u.Type.HitPoints,
		Cost:      u.Type.Cost,
		Air:       u.Type.IsAir,
		Sea:       u.Type.IsSea,
	}
}

func viewUnits(units []*unit.Unit) []UnitView {
	out := make([]UnitView, len(units))
	for i, u := range units {
		out[i] = viewUnit(u)
	}
	return out
}

func viewTerritory(t *unit.Territory) TerritoryView {
	if t == nil {
		return TerritoryView{}
	}
	return TerritoryView{Name: t.Name, Water: t.Water}
}

func viewTerritories(ts []*unit.Territory) []TerritoryView {
	out := make([]TerritoryView, len(ts))
	for i, t := range ts {
		out[i] = viewTerritory(t)
	}
	return out
}

func ids(units []*unit.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}

// pieces rebuilds units on the player side. Types with the same name share
// one *unit.Type so grouping by type still works.
type pieces struct {
	types   map[string]*unit.Type
	players map[string]*unit.Player
}

func newPieces() *pieces {
	return &pieces{types: map[string]*unit.Type{}, players: map[string]*unit.Player{}}
}

func (p *pieces) player(name string) *unit.Player {
	pl, ok := p.players[name]
	if !ok {
		pl = &unit.Player{Name: name}
		p.players[name] = pl
	}
	return pl
}

func (p *pieces) unit(v UnitView) *unit.Unit {
	t, ok := p.types[v.Type]
	if !ok {
		t = &unit.Type{Name: v.Type, HitPoints: v.HitPoints, Cost: v.Cost, IsAir: v.Air, IsSea: v.Sea}
		p.types[v.Type] = t
	}
	u := unit.New(v.ID, t, p.player(v.Owner))
	u.Hits = v.Hits
	return u
}

func (p *pieces) units(views []UnitView) []*unit.Unit {
	out := make([]*unit.Unit, len(views))
	for i, v := range views {
		out[i] = p.unit(v)
	}
	return out
}

func territory(v TerritoryView) *unit.Territory {
	return &unit.Territory{Name: v.Name, Water: v.Water}
}

// pick resolves unit ids against units, in id order.
func pick(units []*unit.Unit, wanted []string) ([]*unit.Unit, bool) {
	byID := make(map[string]*unit.Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	out := make([]*unit.Unit, 0, len(wanted))
	for _, id := range wanted {
		u, ok := byID[id]
		if !ok {
			return nil, false
		}
		out = append(out, u)
	}
	return out, true
}

func casualtyList(units []*unit.Unit, killed, damaged []string) (casualty.List, bool) {
	k, ok := pick(units, killed)
	if !ok {
		return casualty.List{}, false
	}
	d, ok := pick(units, damaged)
	if !ok {
		return casualty.List{}, false
	}
	return casualty.List{Killed: k, Damaged: d}, true
}
