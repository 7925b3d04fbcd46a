// Package player declares the questions a battle asks the people (or bots)
// whose units are fighting.
package player

import (
	"context"
	"log"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

//go:generate go tool mockgen -destination=../../test/mock/playerfakes/player_mock.go -package=playerfakes . Player

// RetreatKind names what a retreat query offers.
type RetreatKind int

const (
	RetreatGeneral RetreatKind = iota
	RetreatSubs
	RetreatPlanes
	RetreatPartialAmphibious
)

func (k RetreatKind) String() string {
	switch k {
	case RetreatSubs:
		return "subs"
	case RetreatPlanes:
		return "planes"
	case RetreatPartialAmphibious:
		return "partial"
	default:
		return "general"
	}
}

// RetreatQuery asks whether and where to retreat.
type RetreatQuery struct {
	BattleID  string
	Player    *unit.Player
	Kind      RetreatKind
	Territory *unit.Territory
	// Possible lists the territories the units may retreat to. Submerging
	// answers with Territory itself.
	Possible []*unit.Territory
	Submerge bool
	Message  string
}

// BombardQuery asks whether a sea unit should shell the battle site.
type BombardQuery struct {
	BattleID  string
	Unit      *unit.Unit
	Territory *unit.Territory
}

// Player answers battle questions.
type Player interface {
	casualty.Chooser
	// RetreatQuery returns the chosen territory or nil to stay.
	RetreatQuery(ctx context.Context, q RetreatQuery) (*unit.Territory, error)
	ConfirmOwnCasualties(ctx context.Context, battleID string, message string) error
	ConfirmEnemyCasualties(ctx context.Context, battleID string, message string, hitPlayer *unit.Player) error
	// WhatShouldBomberBomb picks the infrastructure a strategic bomber raids.
	WhatShouldBomberBomb(ctx context.Context, territory *unit.Territory, targets []*unit.Unit, bombers []*unit.Unit) (*unit.Unit, error)
	SelectShoreBombard(ctx context.Context, q BombardQuery) (bool, error)
}

// Headless accepts every default: the proposed casualties, no retreat, the
// first bombing target and every bombardment.
type Headless struct {
	Logger *log.Logger
}

// SelectCasualties implements casualty.Chooser.
func (h Headless) SelectCasualties(_ context.Context, q casualty.Query) (casualty.Details, error) {
	return casualty.Details{List: q.Default, AutoCalculated: true}, nil
}

// ReportError implements casualty.Chooser.
func (h Headless) ReportError(_ context.Context, message string) {
	if h.Logger != nil {
		h.Logger.Printf("player error: %s", message)
	}
}

// RetreatQuery implements Player.
func (Headless) RetreatQuery(context.Context, RetreatQuery) (*unit.Territory, error) {
	return nil, nil
}

// ConfirmOwnCasualties implements Player.
func (Headless) ConfirmOwnCasualties(context.Context, string, string) error { return nil }

// ConfirmEnemyCasualties implements Player.
func (Headless) ConfirmEnemyCasualties(context.Context, string, string, *unit.Player) error {
	return nil
}

// WhatShouldBomberBomb implements Player.
func (Headless) WhatShouldBomberBomb(_ context.Context, _ *unit.Territory, targets []*unit.Unit, _ []*unit.Unit) (*unit.Unit, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	return targets[0], nil
}

// SelectShoreBombard implements Player.
func (Headless) SelectShoreBombard(context.Context, BombardQuery) (bool, error) { return true, nil }

// Directory maps player names to the Player answering for them.
type Directory map[string]Player

// For returns the player answering for p, falling back to Headless.
func (d Directory) For(p *unit.Player) Player {
	if pl, ok := d[p.String()]; ok && pl != nil {
		return pl
	}
	return Headless{}
}
