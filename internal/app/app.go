package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/five82/arenaview/internal/cache"
	"github.com/five82/arenaview/internal/config"
	"github.com/five82/arenaview/internal/logging"
	"github.com/five82/arenaview/internal/orchestrator"
	"github.com/five82/arenaview/internal/prefs"
	"github.com/five82/arenaview/internal/scryfall"
	"github.com/five82/arenaview/internal/server"
	"github.com/five82/arenaview/internal/state"
	"github.com/five82/arenaview/internal/stats"
	"github.com/five82/arenaview/internal/ui"
)

// Options configure a run.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/arenaview/prefs.toml
	// LogPath overrides the configured client log.
	LogPath  string
	Headless bool
	// Replay feeds an existing log file instead of tailing.
	Replay      string
	ReplayDelay time.Duration
}

// pipeline holds the wired core components.
type pipeline struct {
	store    *state.Store
	cache    *cache.Cache
	ledger   *cache.Ledger
	provider *scryfall.Client
	orch     *orchestrator.Orchestrator
}

// Run boots arenaview until ctx is cancelled or the overlay quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.LogPath != "" {
		cfg.LogPath = opts.LogPath
	}

	closeLog, err := setupLogging(cfg, opts.Headless)
	if err != nil {
		return err
	}
	defer closeLog()

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	sup := newSupervisor()
	if opts.Replay != "" {
		sup.Add(&replayService{path: opts.Replay, orch: p.orch, delay: opts.ReplayDelay, exitWhenDone: opts.Headless})
	} else {
		sup.Add(&tailService{path: cfg.LogPath, orch: p.orch})
	}
	if cfg.HTTPEnabled() {
		srv := server.New(p.store, p.orch, server.Options{Addr: cfg.ListenAddr, EmitInterval: cfg.EmitInterval})
		sup.Add(srv.Hub())
		sup.Add(srv.Forwarder())
		sup.Add(srv)
	}

	if opts.Headless {
		sup.Add(&snapshotLogger{store: p.store})
		return supervisorResult(sup.Serve(ctx))
	}
	return runOverlay(ctx, sup, p, cfg, opts)
}

func runOverlay(ctx context.Context, sup *suture.Supervisor, p *pipeline, cfg config.Config, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	supErr := sup.ServeBackground(ctx)

	updates, unsubscribe := p.store.Subscribe()
	defer unsubscribe()

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	source := cfg.LogPath
	if opts.Replay != "" {
		source = "replay: " + opts.Replay
	}
	model := ui.New(ui.Options{
		Updates:   updates,
		Commands:  p.orch,
		ThemeName: userPrefs.Theme,
		ShowStats: userPrefs.ShowStats,
		PrefsPath: opts.PrefsPath,
		Source:    source,
	})

	_, runErr := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	cancel()
	serveErr := supervisorResult(<-supErr)

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run overlay: %w", runErr)
	}
	return serveErr
}

func newPipeline(cfg config.Config) (*pipeline, error) {
	c, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	ledger, err := cache.LoadLedger(filepath.Join(cfg.CacheDir, cache.LedgerFile))
	if err != nil {
		logging.Warn().Err(err).Str("path", ledger.Path()).Msg("ignoring unreadable art overrides")
	}

	provider, err := scryfall.NewClient(cfg.ScryfallURL, scryfall.WithRequestInterval(cfg.RequestInterval))
	if err != nil {
		return nil, fmt.Errorf("init scryfall client: %w", err)
	}

	store := state.NewStore(ledger.All())
	deps := orchestrator.Deps{
		Store:    store,
		Cache:    c,
		Ledger:   ledger,
		Provider: provider,
	}
	if cfg.StatsPath != "" {
		idx, err := stats.Load(cfg.StatsPath)
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.StatsPath).Msg("draft stats unavailable")
		} else {
			logging.Info().Int("cards", idx.Len()).Str("path", cfg.StatsPath).Msg("draft stats loaded")
			deps.Stats = idx
		}
	}

	orch, err := orchestrator.New(deps, orchestrator.WithMaxInflight(cfg.MaxInflight))
	if err != nil {
		return nil, err
	}
	return &pipeline{store: store, cache: c, ledger: ledger, provider: provider, orch: orch}, nil
}

func newSupervisor() *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger("supervisor")}
	return suture.New("arenaview", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
}

// supervisorResult maps normal shutdown outcomes to nil.
func supervisorResult(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, suture.ErrTerminateSupervisorTree) {
		return nil
	}
	return err
}

// setupLogging configures the global logger. With the overlay on screen,
// logs go to the configured file or nowhere.
func setupLogging(cfg config.Config, headless bool) (func(), error) {
	out := io.Writer(os.Stderr)
	closer := func() {}

	if !headless {
		out = io.Discard
		if cfg.LogFile != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file: %w", err)
			}
			out = f
			closer = func() { _ = f.Close() }
		}
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: out})
	return closer, nil
}
