package cli

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/symrec/mirror/internal/abstraction"
	"github.com/symrec/mirror/internal/config"
	"github.com/symrec/mirror/internal/engine"
	"github.com/symrec/mirror/internal/graph"
	"github.com/symrec/mirror/internal/memory"
	"github.com/symrec/mirror/internal/oracle"
	"github.com/symrec/mirror/internal/policy"
	"github.com/symrec/mirror/internal/rewrite"
	"github.com/symrec/mirror/internal/symbol"
)

// observerName labels context tokens produced by this process.
const observerName = "mirror-1"

// runtime bundles the engine with the resources a command must release.
type runtime struct {
	cfg     config.Config
	eng     *engine.Engine
	log     *memory.Log
	archive *memory.Archive
	graph   *graph.Graph
	rules   *rewrite.Store
	logger  *slog.Logger
}

// close releases the runtime's file and database handles.
func (rt *runtime) close() {
	if rt.log != nil {
		if err := rt.log.Close(); err != nil {
			rt.logger.Error("closing event log", "error", err)
		}
	}
	if rt.archive != nil {
		if err := rt.archive.Close(); err != nil {
			rt.logger.Error("closing archive", "error", err)
		}
	}
}

// loadConfig resolves the effective configuration: defaults, optional YAML
// overlay, then the --data flag.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.LoadFile(opts.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger configures the process-wide structured logger.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// bootstrap is the composition root: it prepares the data directory, loads
// every persisted artifact, and wires the engine. Initialization failures
// are fatal: there is no valid state to operate on without them.
// presenter may be nil for commands that render results themselves.
func bootstrap(opts *RootOptions, presenter engine.Presenter) (*runtime, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(opts.Verbose)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	norm := symbol.NewNormalizer(cfg.MaxSymbolLen)

	archive, err := memory.OpenArchive(cfg.ArchivePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	log, err := memory.Open(cfg.EventsPath(), cfg.MaxEvents, norm.Extract, logger,
		memory.WithTrimHook(func(evs []memory.Event) {
			if err := archive.Put(evs); err != nil {
				logger.Warn("archiving trimmed events failed", "events", len(evs), "error", err)
			}
		}))
	if err != nil {
		archive.Close()
		return nil, fmt.Errorf("open event log: %w", err)
	}
	logger.Info("memory loaded", "events", log.Len())

	g := graph.New(logger)
	if err := g.Load(cfg.GraphPath()); err != nil {
		log.Close()
		archive.Close()
		return nil, fmt.Errorf("load graph: %w", err)
	}

	rules := rewrite.NewStore(logger)
	if err := rules.Load(cfg.RulesPath()); err != nil {
		log.Close()
		archive.Close()
		return nil, fmt.Errorf("load rules: %w", err)
	}

	if err := policy.EnsureSeeds(cfg.SeedPath()); err != nil {
		log.Close()
		archive.Close()
		return nil, fmt.Errorf("ensure seeds: %w", err)
	}
	seeds, err := policy.LoadSeeds(cfg.SeedPath(), norm)
	if err != nil {
		log.Close()
		archive.Close()
		return nil, fmt.Errorf("load seeds: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	picker := policy.New(policy.Config{
		ExploreChance:  cfg.ExploreChance,
		AbstractChance: cfg.AbstractChance,
		RepeatWindow:   cfg.RepeatWindow,
		MaxDepth:       cfg.MaxAbsDepth,
	}, seeds, rng)

	abs := abstraction.New(abstraction.Config{
		MinSupport:   cfg.MinPairSupport,
		MaxDepth:     cfg.MaxAbsDepth,
		ScanLimit:    cfg.PairScanLimit,
		WindowSize:   cfg.RateWindow,
		MaxPerWindow: cfg.MaxAbsPerWindow,
	}, norm, g, logger)

	eng, err := engine.New(cfg, engine.Deps{
		Log:        log,
		Graph:      g,
		Rules:      rules,
		Picker:     picker,
		Oracle:     oracle.New(observerName, rng, nil),
		Abstractor: abs,
		Norm:       norm,
		RNG:        rng,
		Presenter:  presenter,
		Logger:     logger,
	})
	if err != nil {
		log.Close()
		archive.Close()
		return nil, fmt.Errorf("construct engine: %w", err)
	}

	return &runtime{
		cfg:     cfg,
		eng:     eng,
		log:     log,
		archive: archive,
		graph:   g,
		rules:   rules,
		logger:  logger,
	}, nil
}
