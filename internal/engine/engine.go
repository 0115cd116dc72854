// Package engine drives the symbolic memory loop.
//
// One cycle performs a bounded number of sequential generation steps, an
// occasional abstraction attempt, and optional persistence. All mutation
// happens on the caller's goroutine; there is exactly one mutator, so the
// components need no locking.
//
// Durability model: the event log is append-durable per event; the graph
// and rules snapshots are only durable after Save. An abrupt kill between
// saves loses the snapshot delta since the last save, which is accepted:
// Save on cancellation is the one transaction boundary the system has.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/symrec/mirror/internal/abstraction"
	"github.com/symrec/mirror/internal/config"
	"github.com/symrec/mirror/internal/graph"
	"github.com/symrec/mirror/internal/memory"
	"github.com/symrec/mirror/internal/oracle"
	"github.com/symrec/mirror/internal/policy"
	"github.com/symrec/mirror/internal/rewrite"
	"github.com/symrec/mirror/internal/symbol"
)

// Summary is the periodic state digest produced for the presentation
// collaborator. The engine never formats for a terminal itself.
type Summary struct {
	Cycle  int                   `json:"cycle"`
	Events int                   `json:"events"`
	Top    []memory.RankedSymbol `json:"top_symbols"`
}

// Presenter receives display-ready material: each accepted event and the
// per-cycle summary. Implementations must not mutate their arguments.
type Presenter interface {
	Event(ev memory.Event)
	Summary(s Summary)
}

// Deps are the engine's collaborators. All fields are required except
// Clock, Tokens, Presenter, and Logger, which have defaults.
type Deps struct {
	Log        *memory.Log
	Graph      *graph.Graph
	Rules      *rewrite.Store
	Picker     *policy.Picker
	Oracle     *oracle.Observer
	Abstractor *abstraction.Engine
	Norm       *symbol.Normalizer
	RNG        *rand.Rand

	Clock     Clock          // nil: SystemClock
	Tokens    TokenGenerator // nil: UUIDv7Generator
	Presenter Presenter      // nil: discard
	Logger    *slog.Logger   // nil: slog.Default()
}

// Engine owns one run of the symbolic memory loop.
type Engine struct {
	cfg       config.Config
	log       *memory.Log
	graph     *graph.Graph
	rules     *rewrite.Store
	picker    *policy.Picker
	oracle    *oracle.Observer
	abs       *abstraction.Engine
	norm      *symbol.Normalizer
	rng       *rand.Rand
	clock     Clock
	presenter Presenter
	logger    *slog.Logger
	runToken  string
}

// New creates an Engine and assigns it a run token.
func New(cfg config.Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if deps.Log == nil || deps.Graph == nil || deps.Rules == nil ||
		deps.Picker == nil || deps.Oracle == nil || deps.Abstractor == nil ||
		deps.Norm == nil || deps.RNG == nil {
		return nil, errors.New("engine: missing required dependency")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Tokens == nil {
		deps.Tokens = UUIDv7Generator{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		log:       deps.Log,
		graph:     deps.Graph,
		rules:     deps.Rules,
		picker:    deps.Picker,
		oracle:    deps.Oracle,
		abs:       deps.Abstractor,
		norm:      deps.Norm,
		rng:       deps.RNG,
		clock:     deps.Clock,
		presenter: deps.Presenter,
		logger:    deps.Logger,
		runToken:  deps.Tokens.Generate(),
	}, nil
}

// RunToken returns the token stamped into this run's event metadata.
func (e *Engine) RunToken() string { return e.runToken }

// Step performs one generation step: pick a symbol, obtain a context token,
// form the reflection record, and, if the integrity gate admits it,
// append the event and strengthen the symbol/context edge.
//
// Returns the picked symbol. A gated (rejected) step still returns the
// symbol so cycle chaining stays intact.
func (e *Engine) Step() (string, error) {
	picked := e.picker.Pick(e.rankedSymbols())

	ctxTok := e.norm.Normalize(e.oracle.Context(e.recentTexts(5)))
	text := symbol.Bracket(picked) + " :: " + ctxTok

	syms := []string{picked}
	if ctxTok != symbol.Fallback && ctxTok != picked {
		syms = append(syms, ctxTok)
	}

	if !e.oracle.Allow(text) {
		e.logger.Debug("integrity gate rejected step", "symbol", picked)
		return picked, nil
	}

	ev := memory.Event{
		TS:   e.now(),
		Kind: memory.KindReflection,
		Text: text,
		Meta: map[string]any{"symbols": syms, "run": e.runToken},
	}
	if err := e.log.Append(ev); err != nil {
		return picked, fmt.Errorf("append reflection: %w", err)
	}
	if len(syms) >= 2 {
		e.graph.Link(syms[0], syms[1], 1)
	}
	e.present(ev)
	return picked, nil
}

// Cycle performs one full cycle: a random number of steps, chain-linking of
// consecutive picks, a paced abstraction attempt, and a summary.
func (e *Engine) Cycle(ctx context.Context, n int) (Summary, error) {
	thoughts := e.cfg.ThoughtsMin + e.rng.Intn(e.cfg.ThoughtsMax-e.cfg.ThoughtsMin+1)
	e.logger.Debug("cycle starting", "cycle", n, "thoughts", thoughts)

	used := make([]string, 0, thoughts)
	for i := 0; i < thoughts; i++ {
		s, err := e.Step()
		if err != nil {
			return Summary{}, err
		}
		used = append(used, s)
		if err := e.pause(ctx, e.cfg.StepPause()); err != nil {
			return Summary{}, err
		}
	}

	// Chain-link within the cycle so the graph gains sequential structure
	// beyond the per-step symbol/context edges.
	for i := 0; i+1 < len(used); i++ {
		if used[i] != used[i+1] {
			e.graph.Link(used[i], used[i+1], 1)
		}
	}

	if n%e.cfg.AbstractionEvery == 0 && e.rng.Float64() < e.cfg.InsightChance {
		if ins, ok := e.abs.TryAbstract(); ok {
			ev := memory.Event{
				TS:   e.now(),
				Kind: memory.KindInsight,
				Text: ins.Record(),
				Meta: map[string]any{"symbols": e.norm.Extract(ins.Record()), "run": e.runToken},
			}
			if err := e.log.Append(ev); err != nil {
				return Summary{}, fmt.Errorf("append insight: %w", err)
			}
			e.present(ev)
		}
	}

	sum := Summary{Cycle: n, Events: e.log.Len(), Top: e.log.TopSymbols(8)}
	if e.presenter != nil {
		e.presenter.Summary(sum)
	}
	return sum, nil
}

// Run loops cycles until ctx is cancelled, autosaving snapshots every
// SaveEvery cycles. A failed autosave is logged and retried at the next
// scheduled save rather than aborting the run. A final save happens on the
// way out, successful or not.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		if err := e.Save(); err != nil {
			e.logger.Error("final save failed", "error", err)
		}
	}()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := e.Cycle(ctx, n); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("cycle %d: %w", n, err)
		}
		if n%e.cfg.SaveEvery == 0 {
			if err := e.Save(); err != nil {
				e.logger.Warn("autosave failed, will retry at next save point", "error", err)
			}
		}
		if err := e.pause(ctx, e.cfg.CyclePause()); err != nil {
			return err
		}
	}
}

// Tell ingests user-supplied text: rewrite rules are applied first, then a
// user event is appended and all co-mentioned symbols are pairwise linked.
// Returns the rewritten text.
func (e *Engine) Tell(text string) (string, error) {
	rewritten := e.rules.Apply(text)
	syms := e.norm.Extract(rewritten)

	ev := memory.Event{
		TS:   e.now(),
		Kind: memory.KindUser,
		Text: rewritten,
		Meta: map[string]any{"symbols": syms, "run": e.runToken},
	}
	if err := e.log.Append(ev); err != nil {
		return rewritten, fmt.Errorf("append user event: %w", err)
	}
	e.linkPairwise(syms)
	e.present(ev)
	return rewritten, nil
}

// Save flushes the graph and rules snapshots. The event log needs no flush:
// it is append-durable per event.
func (e *Engine) Save() error {
	var errs []error
	if err := e.graph.Save(e.cfg.GraphPath()); err != nil {
		errs = append(errs, err)
	}
	if err := e.rules.Save(e.cfg.RulesPath()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// linkPairwise strengthens every unordered pair among the first occurrence
// of each symbol.
func (e *Engine) linkPairwise(syms []string) {
	uniq := make([]string, 0, len(syms))
	seen := make(map[string]struct{}, len(syms))
	for _, s := range syms {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			uniq = append(uniq, s)
		}
	}
	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			e.graph.Link(uniq[i], uniq[j], 1)
		}
	}
}

func (e *Engine) rankedSymbols() []memory.RankedSymbol {
	return e.log.TopSymbols(e.cfg.TopSymbols)
}

func (e *Engine) recentTexts(n int) []string {
	events := e.log.Recent(n)
	texts := make([]string, len(events))
	for i, ev := range events {
		texts[i] = ev.Text
	}
	return texts
}

func (e *Engine) now() float64 {
	return float64(e.clock.Now().UnixNano()) / float64(time.Second)
}

func (e *Engine) present(ev memory.Event) {
	if e.presenter != nil {
		e.presenter.Event(ev)
	}
}

// pause sleeps for d unless the context ends first. Zero is a no-op, so
// pacing never changes outcomes.
func (e *Engine) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
