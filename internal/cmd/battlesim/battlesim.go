// Package battlesim runs a Lua battle scenario: many headless runs for the
// odds, or one journaled fight with live players and spectators.
package battlesim

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/triplea-game/triplea-sub001/internal/combat/battle"
	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/display"
	"github.com/triplea-game/triplea-sub001/internal/combat/history"
	"github.com/triplea-game/triplea-sub001/internal/combat/journal"
	journalsqlite "github.com/triplea-game/triplea-sub001/internal/combat/journal/sqlite"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/remote"
	"github.com/triplea-game/triplea-sub001/internal/combat/scenario"
	entrypoint "github.com/triplea-game/triplea-sub001/internal/platform/cmd"
	platformgrpc "github.com/triplea-game/triplea-sub001/internal/platform/grpc"
	"google.golang.org/grpc"
)

// Config holds battlesim command configuration.
type Config struct {
	Scenario string `env:"TRIPLEA_SCENARIO_FILE" envDefault:"scenarios/egypt.lua"`
	Runs     int    `env:"TRIPLEA_SIM_RUNS"`
	Seed     int64  `env:"TRIPLEA_SIM_SEED"`
	Fight    bool   `env:"TRIPLEA_SIM_FIGHT"`
	// JournalPath is a SQLite file; empty keeps the journal in memory.
	JournalPath string `env:"TRIPLEA_JOURNAL_PATH"`
	// SpectatorAddr serves the spectator feed while fighting.
	SpectatorAddr string `env:"TRIPLEA_SPECTATOR_ADDR"`
	// Remote maps players to remote player servers: "Germans=host:port,...".
	Remote      string        `env:"TRIPLEA_REMOTE_PLAYERS"`
	DialTimeout time.Duration `env:"TRIPLEA_REMOTE_DIAL_TIMEOUT" envDefault:"5s"`
	Locale      string        `env:"TRIPLEA_LOCALE" envDefault:"en-US"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to a scenario lua file")
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "simulation runs (overrides the scenario)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed (overrides the scenario)")
	fs.BoolVar(&cfg.Fight, "fight", cfg.Fight, "fight one battle instead of simulating")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "sqlite journal path")
	fs.StringVar(&cfg.SpectatorAddr, "spectators", cfg.SpectatorAddr, "spectator feed listen address")
	fs.StringVar(&cfg.Remote, "remote", cfg.Remote, "remote players as name=addr pairs")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "remote player dial timeout")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "message locale")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Main is the command body run by cmd/battlesim.
func Main(ctx context.Context, args []string, out io.Writer, errOut io.Writer) error {
	cfg, err := ParseConfig(flag.NewFlagSet(entrypoint.ServiceBattleSim, flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	return Run(ctx, cfg, out, errOut)
}

// Run loads the scenario and simulates or fights it.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if strings.TrimSpace(cfg.Scenario) == "" {
		return errors.New("scenario path is required")
	}
	logger := entrypoint.NewLogger(errOut, entrypoint.ServiceBattleSim)

	s, err := scenario.LoadFile(cfg.Scenario)
	if err != nil {
		return err
	}
	if cfg.Runs > 0 {
		s.Runs = cfg.Runs
	}
	if cfg.Seed != 0 {
		s.Seed = cfg.Seed
	}
	setup, err := s.Resolve()
	if err != nil {
		return err
	}
	if cfg.Fight {
		return fight(ctx, cfg, setup, out, logger)
	}

	odds, err := battle.Simulate(ctx, setup.SimulateRequest(), nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s attacks %s in %s, %d runs\n", setup.Name, setup.Config.Attacker, setup.Config.Defender, setup.Config.Territory, odds.Runs)
	fmt.Fprintf(out, "attacker wins %d (%.1f%%), defender wins %d, draws %d\n",
		odds.AttackerWins, 100*odds.AttackerWinRate(), odds.DefenderWins, odds.Draws)
	fmt.Fprintf(out, "average rounds %.2f, attackers left %.2f, defenders left %.2f\n",
		odds.AvgRounds, odds.AvgAttackersLeft, odds.AvgDefendersLeft)
	return nil
}

func openJournal(path string, logger *log.Logger) (journal.Store, *journal.Keyring, func() error, error) {
	keyring, err := journal.KeyringFromEnv()
	if err != nil {
		if path != "" {
			return nil, nil, nil, fmt.Errorf("journal keyring: %w", err)
		}
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, nil, nil, fmt.Errorf("generate journal key: %w", err)
		}
		logger.Printf("no journal key configured, signing with an ephemeral key")
		if keyring, err = journal.NewKeyring(map[string][]byte{"ephemeral": secret}, "ephemeral"); err != nil {
			return nil, nil, nil, err
		}
	}
	if path == "" {
		return journal.NewMemory(keyring), keyring, func() error { return nil }, nil
	}
	store, err := journalsqlite.Open(path, keyring)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, keyring, store.Close, nil
}

func fight(ctx context.Context, cfg Config, setup *scenario.Setup, out io.Writer, logger *log.Logger) (err error) {
	store, keyring, closeStore, err := openJournal(cfg.JournalPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	players, closePlayers, err := dialPlayers(ctx, cfg, setup, logger)
	if err != nil {
		return err
	}
	defer closePlayers()

	hub := display.NewHub(display.DefaultBacklog, logger)
	if cfg.SpectatorAddr != "" {
		stop, err := serveSpectators(cfg.SpectatorAddr, hub, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	battleCfg := setup.Config
	battleCfg.ID = fmt.Sprintf("%s-%d", strings.ReplaceAll(strings.ToLower(setup.Name), " ", "-"), setup.Seed)
	recorder := journal.NewRecorder(store, battleCfg.ID)

	board := change.NewBoard()
	board.Place(battleCfg.Territory.Name, battleCfg.Attacking...)
	board.Place(battleCfg.Territory.Name, battleCfg.Defending...)
	bridge := change.NewLog(board)
	bridge.Sink = recorder.Change
	audited := dice.NewAudited(dice.NewSeeded(setup.Seed))
	audited.Sink = recorder.Dice
	hist := history.NewLog()

	b, err := battle.New(battleCfg, battle.Env{
		Dice:    audited,
		Props:   setup.Props,
		Support: setup.Catalog.SupportRules(),
		Bridge:  bridge,
		History: history.Tee(hist, recorder),
		Players: players,
		Display: display.Multi(hub, printer{out: out}),
		Logger:  logger,
		Locale:  cfg.Locale,
	})
	if err != nil {
		return err
	}
	if _, err := recorder.Record(ctx, journal.TypeBattleStarted, map[string]any{
		"territory": battleCfg.Territory.Name,
		"attacker":  battleCfg.Attacker.Name,
		"defender":  battleCfg.Defender.Name,
		"kind":      battleCfg.Kind.String(),
		"seed":      setup.Seed,
	}); err != nil {
		return err
	}
	if err := b.Fight(ctx); err != nil {
		return fmt.Errorf("fight %s: %w", b, err)
	}
	if _, err := recorder.Record(ctx, journal.TypeBattleEnded, map[string]any{
		"outcome": b.Outcome().String(),
		"rounds":  b.Round(),
	}); err != nil {
		return err
	}
	if err := recorder.Err(); err != nil {
		return err
	}
	if err := journal.Verify(ctx, store, keyring, battleCfg.ID); err != nil {
		return fmt.Errorf("verify journal: %w", err)
	}

	fmt.Fprintf(out, "%s after %d rounds: %s\n", b, b.Round(), b.Outcome())
	fmt.Fprint(out, hist.String())
	return nil
}

func dialPlayers(ctx context.Context, cfg Config, setup *scenario.Setup, logger *log.Logger) (player.Directory, func(), error) {
	players := player.Directory{}
	var conns []*grpc.ClientConn
	closeAll := func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}
	for _, pair := range strings.Split(cfg.Remote, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, addr, ok := strings.Cut(pair, "=")
		if !ok || name == "" || addr == "" {
			closeAll()
			return nil, nil, fmt.Errorf("remote player %q must be name=addr", pair)
		}
		owner, ok := setup.Catalog.Player(name)
		if !ok {
			closeAll()
			return nil, nil, fmt.Errorf("remote player %q is not in the catalog", name)
		}
		conn, err := platformgrpc.Dial(ctx, platformgrpc.Target{Addr: addr, Service: remote.ServiceName}, platformgrpc.DialConfig{
			Timeout: cfg.DialTimeout,
			Logf:    logger.Printf,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("dial %s at %s: %w", name, addr, err)
		}
		conns = append(conns, conn)
		players[name] = remote.NewClient(conn, owner)
	}
	return players, closeAll, nil
}

func serveSpectators(addr string, hub *display.Hub, logger *log.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for spectators: %w", err)
	}
	srv := &http.Server{Handler: hub.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("spectator feed: %v", err)
		}
	}()
	logger.Printf("spectators on http://%s/battles", listener.Addr())
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

// printer writes the notable notifications as plain lines.
type printer struct {
	out io.Writer
}

func (p printer) Notify(_ context.Context, evt display.Event) {
	switch evt.Kind {
	case display.EventDice:
		fmt.Fprintf(p.out, "  %s: %s rolls %v, %d hits\n", evt.Step, evt.Player, evt.Dice, evt.Hits)
	case display.EventCasualties:
		fmt.Fprintf(p.out, "  %s loses %d killed, %d damaged\n", evt.Player, len(evt.Killed), len(evt.Damaged))
	default:
		if evt.Message != "" {
			fmt.Fprintf(p.out, "  %s\n", evt.Message)
		}
	}
}
