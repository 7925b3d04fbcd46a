// Package battlemcp serves the battle tools over MCP on stdio.
package battlemcp

import (
	"context"
	"flag"
	"io"

	battletools "github.com/triplea-game/triplea-sub001/internal/mcp"
	entrypoint "github.com/triplea-game/triplea-sub001/internal/platform/cmd"
)

// Config holds battlemcp command configuration.
type Config struct {
	Catalog string `env:"TRIPLEA_CATALOG" envDefault:"classic"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "unit catalog yaml, or classic")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Main is the command body run by cmd/battlemcp. Logs go to errOut since
// stdout carries the protocol.
func Main(ctx context.Context, args []string, _ io.Writer, errOut io.Writer) error {
	cfg, err := ParseConfig(flag.NewFlagSet(entrypoint.ServiceBattleMCP, flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	server, err := battletools.New(battletools.Config{
		CatalogPath: cfg.Catalog,
		Logger:      entrypoint.NewLogger(errOut, entrypoint.ServiceBattleMCP),
	})
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
