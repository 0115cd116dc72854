// Package policy implements the selection/sampling policy that chooses the
// next symbol to act on.
//
// Pure frequency-weighted sampling collapses to a small attractor set
// within tens of steps, so the policy layers sequential override gates on
// top of it: probabilistic seed injection, probabilistic reuse of existing
// abstractions, and exclusion of recently-picked symbols. The gates are
// independent probabilities evaluated in order, not mutually exclusive
// branches. This exact shape is what preserves long-run symbol diversity.
package policy

import (
	"math/rand"

	"github.com/symrec/mirror/internal/memory"
	"github.com/symrec/mirror/internal/symbol"
)

// Config holds the picker's tunables.
type Config struct {
	// ExploreChance is the probability of injecting a seed symbol even
	// when memory is dominant.
	ExploreChance float64
	// AbstractChance is the probability of picking an existing
	// abstraction once any exist.
	AbstractChance float64
	// RepeatWindow is how many recent picks are excluded from reuse.
	RepeatWindow int
	// MaxDepth filters out over-nested abstractions from selection.
	MaxDepth int
}

// Picker chooses symbols. The random source is injected so tests can force
// deterministic outcomes.
//
// Not safe for concurrent use; the engine has exactly one mutator.
type Picker struct {
	cfg    Config
	rng    *rand.Rand
	seeds  []string
	recent []string // bounded queue of the last RepeatWindow picks
}

// New creates a Picker with the given seed vocabulary and random source.
func New(cfg Config, seeds []string, rng *rand.Rand) *Picker {
	return &Picker{
		cfg:   cfg,
		rng:   rng,
		seeds: append([]string(nil), seeds...),
	}
}

// Pick chooses the next symbol from the ranked frequency list, evaluating
// the override gates in priority order:
//
//  1. With ExploreChance, an unused-recently seed symbol.
//  2. With AbstractChance, an existing abstraction unused recently.
//  3. A primitive from the ranked list, excluding the recent window; when
//     every candidate is recent, the exclusion is dropped.
//  4. Any seed; failing that, the fixed default symbol.
//
// Pick records its own choice in the recent window.
func (p *Picker) Pick(ranked []memory.RankedSymbol) string {
	s := p.pick(ranked)
	p.Observe(s)
	return s
}

func (p *Picker) pick(ranked []memory.RankedSymbol) string {
	var abstractions, primitives []string
	for _, r := range ranked {
		if symbol.IsAbstraction(r.Symbol) {
			if symbol.Depth(r.Symbol) <= p.cfg.MaxDepth {
				abstractions = append(abstractions, r.Symbol)
			}
		} else {
			primitives = append(primitives, r.Symbol)
		}
	}

	if len(p.seeds) > 0 && p.rng.Float64() < p.cfg.ExploreChance {
		return p.choose(p.seeds)
	}
	if len(abstractions) > 0 && p.rng.Float64() < p.cfg.AbstractChance {
		return p.choose(abstractions)
	}
	if len(primitives) > 0 {
		return p.choose(primitives)
	}
	if len(p.seeds) > 0 {
		return p.seeds[p.rng.Intn(len(p.seeds))]
	}
	return symbol.Default
}

// choose samples uniformly among candidates outside the recent window,
// falling back to the full candidate list when all are recent.
func (p *Picker) choose(candidates []string) string {
	fresh := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !p.recentlyUsed(c) {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) > 0 {
		return fresh[p.rng.Intn(len(fresh))]
	}
	return candidates[p.rng.Intn(len(candidates))]
}

// Observe pushes a symbol into the recent window. The engine calls it for
// symbols it consumed without going through Pick (e.g. user input).
func (p *Picker) Observe(s string) {
	if p.cfg.RepeatWindow <= 0 {
		return
	}
	p.recent = append(p.recent, s)
	if len(p.recent) > p.cfg.RepeatWindow {
		p.recent = p.recent[len(p.recent)-p.cfg.RepeatWindow:]
	}
}

func (p *Picker) recentlyUsed(s string) bool {
	for _, r := range p.recent {
		if r == s {
			return true
		}
	}
	return false
}
