// Package abstraction discovers frequently co-occurring primitive symbol
// pairs and promotes them into composite symbols linked back into the graph.
//
// Promotion is deliberately damped and rate limited: a new abstraction
// starts with half the support of the pair it summarizes, the same pair is
// never promoted twice within a process lifetime, and a bounded window of
// recent attempts caps how fast abstractions can accumulate no matter how
// often the caller asks.
package abstraction

import (
	"fmt"
	"log/slog"

	"github.com/symrec/mirror/internal/graph"
	"github.com/symrec/mirror/internal/symbol"
)

// Config holds the engine's tunables.
type Config struct {
	// MinSupport is the minimum edge weight a pair needs for promotion.
	MinSupport int
	// MaxDepth bounds abstraction nesting depth.
	MaxDepth int
	// ScanLimit is how many ranked edges one attempt examines.
	ScanLimit int
	// WindowSize is how many recent attempts the rate limiter remembers.
	WindowSize int
	// MaxPerWindow is the promotion ceiling within the window.
	MaxPerWindow int
}

// Insight describes one successful promotion.
type Insight struct {
	Symbol  string // the synthesized abstraction
	A, B    string // the promoted pair, canonical order
	Support int    // edge weight at promotion time
}

// Record renders the human-readable synthesis line used as insight event
// text. Component symbols are bracketed so the event indexes them.
func (i Insight) Record() string {
	return fmt.Sprintf("abstract %s := %s * %s (support:%d)",
		symbol.Bracket(i.Symbol), symbol.Bracket(i.A), symbol.Bracket(i.B), i.Support)
}

// Engine synthesizes abstractions from a symbol graph.
//
// The promoted-pair registry is in-memory only: re-synthesis of a pair
// across process restarts is tolerated.
type Engine struct {
	cfg    Config
	norm   *symbol.Normalizer
	g      *graph.Graph
	logger *slog.Logger

	registry map[[2]string]struct{}
	window   []bool // recent attempt outcomes, oldest first
}

// New creates an abstraction engine over g. A nil logger falls back to
// slog.Default().
func New(cfg Config, norm *symbol.Normalizer, g *graph.Graph, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		norm:     norm,
		g:        g,
		logger:   logger,
		registry: make(map[[2]string]struct{}),
	}
}

// TryAbstract scans the graph's globally ranked edge list for the first
// qualifying pair and promotes it.
//
// A pair qualifies when neither endpoint is itself an abstraction, its
// weight meets MinSupport, it has not been promoted before, and the
// synthesized symbol stays within the depth bound. The no-candidate case
// returns ok=false; it is a normal outcome, not an error.
func (e *Engine) TryAbstract() (Insight, bool) {
	if e.successes() >= e.cfg.MaxPerWindow {
		return Insight{}, false
	}

	for _, edge := range e.g.TopPairs(e.cfg.ScanLimit) {
		a := e.norm.Normalize(edge.A)
		b := e.norm.Normalize(edge.B)
		if edge.Weight < e.cfg.MinSupport || a == b {
			continue
		}
		if symbol.IsAbstraction(a) || symbol.IsAbstraction(b) {
			continue
		}
		ca, cb := symbol.CanonicalPair(a, b)
		key := [2]string{ca, cb}
		if _, done := e.registry[key]; done {
			continue
		}

		abs := e.norm.Wrap(a, b)
		if symbol.Depth(abs) > e.cfg.MaxDepth {
			continue
		}

		// The abstraction starts half as anchored as the pair it
		// summarizes; it earns further weight through future use.
		anchor := edge.Weight / 2
		if anchor < 2 {
			anchor = 2
		}
		e.g.Link(abs, a, anchor)
		e.g.Link(abs, b, anchor)

		e.registry[key] = struct{}{}
		e.record(true)

		ins := Insight{Symbol: abs, A: ca, B: cb, Support: edge.Weight}
		e.logger.Debug("promoted abstraction",
			"symbol", abs, "a", ca, "b", cb, "support", edge.Weight)
		return ins, true
	}

	e.record(false)
	return Insight{}, false
}

// Promoted reports whether the canonical pair (a, b) is already registered.
func (e *Engine) Promoted(a, b string) bool {
	ca, cb := symbol.CanonicalPair(a, b)
	_, ok := e.registry[[2]string{ca, cb}]
	return ok
}

// successes counts promotions within the attempt window.
func (e *Engine) successes() int {
	n := 0
	for _, ok := range e.window {
		if ok {
			n++
		}
	}
	return n
}

// record pushes an attempt outcome, evicting the oldest past WindowSize.
func (e *Engine) record(ok bool) {
	e.window = append(e.window, ok)
	if len(e.window) > e.cfg.WindowSize {
		e.window = e.window[len(e.window)-e.cfg.WindowSize:]
	}
}
