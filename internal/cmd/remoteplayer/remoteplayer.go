// Package remoteplayer serves one player's battle questions over gRPC,
// answered at a console or automatically.
package remoteplayer

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/remote"
	entrypoint "github.com/triplea-game/triplea-sub001/internal/platform/cmd"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
	platformgrpc "github.com/triplea-game/triplea-sub001/internal/platform/grpc"
	"google.golang.org/grpc"
)

// Config holds remoteplayer command configuration.
type Config struct {
	Addr   string `env:"TRIPLEA_REMOTE_PLAYER_ADDR" envDefault:"localhost:9090"`
	Player string `env:"TRIPLEA_REMOTE_PLAYER"`
	// Auto answers every question with the default instead of asking.
	Auto bool `env:"TRIPLEA_REMOTE_PLAYER_AUTO"`
	// Locale picks the language of errors sent back to the battle.
	Locale string `env:"TRIPLEA_LOCALE" envDefault:"en-US"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.Player, "player", cfg.Player, "player this server answers for")
	fs.BoolVar(&cfg.Auto, "auto", cfg.Auto, "accept every default without asking")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale of errors sent to the battle")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Main is the command body run by cmd/remoteplayer.
func Main(ctx context.Context, args []string, out io.Writer, errOut io.Writer) error {
	cfg, err := ParseConfig(flag.NewFlagSet(entrypoint.ServiceRemotePlayer, flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	return Run(ctx, cfg, os.Stdin, out, errOut)
}

// Run serves until ctx ends.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if strings.TrimSpace(cfg.Player) == "" {
		return apperrors.New(apperrors.CodeConfigInvalid, "player name is required")
	}
	logger := entrypoint.NewLogger(errOut, entrypoint.ServiceRemotePlayer)

	var p player.Player = player.Headless{Logger: logger}
	if !cfg.Auto {
		p = newConsole(in, out)
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	gs := grpc.NewServer(platformgrpc.ServerOptions()...)
	hs := (&remote.Server{Name: cfg.Player, Player: p, Locale: cfg.Locale, Logger: logger}).Register(gs)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- gs.Serve(listener)
	}()
	logger.Printf("answering for %s on %s", cfg.Player, listener.Addr())

	select {
	case <-ctx.Done():
		hs.Shutdown()
		gs.GracefulStop()
		<-serveErr
		return nil
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	}
}
