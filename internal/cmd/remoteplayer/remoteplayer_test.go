package remoteplayer

import (
	"bytes"
	"context"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

var (
	germans  = &unit.Player{Name: "Germans"}
	infantry = &unit.Type{Name: "infantry", HitPoints: 1}
	bship    = &unit.Type{Name: "battleship", HitPoints: 2, IsSea: true}
)

func TestParseConfig(t *testing.T) {
	t.Setenv("TRIPLEA_REMOTE_PLAYER", "Germans")
	cfg, err := ParseConfig(flag.NewFlagSet("remoteplayer", flag.ContinueOnError), []string{"-auto", "-addr", "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Player != "Germans" || !cfg.Auto || cfg.Addr != "127.0.0.1:0" || cfg.Locale != "en-US" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestRunRequiresPlayer(t *testing.T) {
	err := Run(context.Background(), Config{Addr: "127.0.0.1:0"}, nil, nil, nil)
	if !apperrors.HasCode(err, apperrors.CodeConfigInvalid) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeConfigInvalid)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var errOut bytes.Buffer
	go func() {
		done <- Run(ctx, Config{Addr: "127.0.0.1:0", Player: "Germans", Auto: true}, nil, nil, &errOut)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestConsoleCasualties(t *testing.T) {
	inf := unit.New("inf-1", infantry, germans)
	bb := unit.New("bb-1", bship, germans)
	query := casualty.Query{
		Player:                   germans,
		Targets:                  []*unit.Unit{inf, bb},
		Hits:                     1,
		Message:                  "Germans select 1 casualty",
		Default:                  casualty.List{Killed: []*unit.Unit{inf}},
		AllowMultipleHitsPerUnit: true,
	}
	tests := []struct {
		name        string
		input       string
		wantKilled  int
		wantDamaged int
		auto        bool
	}{
		{name: "default", input: "\n", wantKilled: 1, auto: true},
		{name: "damage battleship", input: "2\n", wantDamaged: 1},
		{name: "kill infantry", input: "1\n", wantKilled: 1},
		{name: "garbage ignored", input: "x,1\n", wantKilled: 1},
		{name: "closed input", input: "", wantKilled: 1, auto: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := newConsole(strings.NewReader(tt.input), &out)
			details, err := c.SelectCasualties(context.Background(), query)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if len(details.Killed) != tt.wantKilled || len(details.Damaged) != tt.wantDamaged || details.AutoCalculated != tt.auto {
				t.Fatalf("details = %+v, want %d killed, %d damaged, auto %v", details, tt.wantKilled, tt.wantDamaged, tt.auto)
			}
		})
	}
}

func TestConsoleRetreat(t *testing.T) {
	site := &unit.Territory{Name: "Sea Zone 5", Water: true}
	back := &unit.Territory{Name: "Sea Zone 15", Water: true}
	q := player.RetreatQuery{Player: germans, Territory: site, Possible: []*unit.Territory{back}, Submerge: true}
	tests := []struct {
		input string
		want  *unit.Territory
	}{
		{input: "\n", want: nil},
		{input: "1\n", want: back},
		{input: "s\n", want: site},
		{input: "9\n", want: nil},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := newConsole(strings.NewReader(tt.input), &out).RetreatQuery(context.Background(), q)
		if err != nil {
			t.Fatalf("retreat %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("retreat %q = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestConsoleAskHonorsContext(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	c := newConsole(reader, &bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.ConfirmOwnCasualties(ctx, "b1", "1 infantry"); err == nil {
		t.Fatal("expected context error while waiting for input")
	}
}

func TestConsoleBombard(t *testing.T) {
	q := player.BombardQuery{Unit: unit.New("bb-1", bship, germans), Territory: &unit.Territory{Name: "Egypt"}}
	for input, want := range map[string]bool{"\n": true, "n\n": false, "yes\n": true} {
		got, err := newConsole(strings.NewReader(input), &bytes.Buffer{}).SelectShoreBombard(context.Background(), q)
		if err != nil {
			t.Fatalf("bombard %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("bombard %q = %v, want %v", input, got, want)
		}
	}
}
