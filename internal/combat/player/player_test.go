package player

import (
	"context"
	"testing"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

func TestHeadlessAcceptsDefaults(t *testing.T) {
	ctx := context.Background()
	infantry := &unit.Type{Name: "infantry", HitPoints: 1}
	russians := &unit.Player{Name: "Russians"}
	inf := unit.New("inf-1", infantry, russians)

	var h Headless
	details, err := h.SelectCasualties(ctx, casualty.Query{Default: casualty.List{Killed: []*unit.Unit{inf}}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !details.AutoCalculated || len(details.Killed) != 1 {
		t.Fatalf("details = %+v, want default kill", details)
	}
	to, err := h.RetreatQuery(ctx, RetreatQuery{Possible: []*unit.Territory{{Name: "Poland"}}})
	if err != nil || to != nil {
		t.Fatalf("retreat = %v, %v, want stay", to, err)
	}
	target, err := h.WhatShouldBomberBomb(ctx, nil, []*unit.Unit{inf}, nil)
	if err != nil || target != inf {
		t.Fatalf("bomb target = %v, %v, want %v", target, err, inf)
	}
	ok, err := h.SelectShoreBombard(ctx, BombardQuery{})
	if err != nil || !ok {
		t.Fatalf("bombard = %v, %v, want true", ok, err)
	}
}

func TestDirectoryFallsBackToHeadless(t *testing.T) {
	d := Directory{}
	if _, ok := d.For(&unit.Player{Name: "Germans"}).(Headless); !ok {
		t.Fatal("expected headless fallback")
	}
}

func TestRetreatKindString(t *testing.T) {
	tests := map[RetreatKind]string{
		RetreatGeneral:           "general",
		RetreatSubs:              "subs",
		RetreatPlanes:            "planes",
		RetreatPartialAmphibious: "partial",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
