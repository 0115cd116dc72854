// Package graph implements the weighted undirected co-occurrence graph over
// symbols.
//
// The symmetry invariant is enforced by Link itself, not by caller
// discipline: every increment on (a, b) mirrors onto (b, a) with the same
// delta, and self-loops are never created. Weights only grow during a run;
// the single exception is Load, which overwrites the whole structure from a
// snapshot.
package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Edge is one undirected edge, reported once with A < B lexicographically.
type Edge struct {
	A      string
	B      string
	Weight int
}

// Neighbor is one adjacency entry ranked by weight.
type Neighbor struct {
	Symbol string
	Weight int
}

// Graph is the adjacency structure: symbol -> neighbor -> weight.
//
// Not safe for concurrent mutation; the engine has exactly one mutator.
type Graph struct {
	adj    map[string]map[string]int
	logger *slog.Logger
}

// New creates an empty graph. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		adj:    make(map[string]map[string]int),
		logger: logger,
	}
}

// Link strengthens the undirected edge (a, b) by w.
//
// Empty endpoints and self-loops are no-ops. Non-positive w clamps to 1 so
// a malformed caller can weaken nothing.
func (g *Graph) Link(a, b string, w int) {
	if a == "" || b == "" || a == b {
		return
	}
	if w < 1 {
		w = 1
	}
	g.bump(a, b, w)
	g.bump(b, a, w)
}

func (g *Graph) bump(from, to string, w int) {
	nbrs := g.adj[from]
	if nbrs == nil {
		nbrs = make(map[string]int)
		g.adj[from] = nbrs
	}
	nbrs[to] += w
}

// Weight returns the edge weight between a and b, 0 if unlinked.
func (g *Graph) Weight(a, b string) int {
	return g.adj[a][b]
}

// Len returns the number of symbols with at least one edge.
func (g *Graph) Len() int {
	return len(g.adj)
}

// Neighbors returns up to topN neighbors of sym ranked by weight descending.
// Ties break lexicographically so the order is stable across calls.
// Unknown symbols yield an empty slice.
func (g *Graph) Neighbors(sym string, topN int) []Neighbor {
	nbrs, ok := g.adj[sym]
	if !ok || topN <= 0 {
		return nil
	}
	out := make([]Neighbor, 0, len(nbrs))
	for s, w := range nbrs {
		out = append(out, Neighbor{Symbol: s, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Symbol < out[j].Symbol
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// TopPairs enumerates every undirected edge exactly once: only (a, b) with
// a < b is emitted, skipping the symmetric mirror. Edges are ranked by
// weight descending and truncated to limit. Ties break by (A, B)
// lexicographically.
func (g *Graph) TopPairs(limit int) []Edge {
	if limit <= 0 {
		return nil
	}
	var edges []Edge
	for a, nbrs := range g.adj {
		for b, w := range nbrs {
			if a < b {
				edges = append(edges, Edge{A: a, B: b, Weight: w})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	if len(edges) > limit {
		edges = edges[:limit]
	}
	return edges
}

// Save writes the full snapshot to path as a nested JSON mapping
// {symbol: {neighbor: weight}}.
func (g *Graph) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create graph dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(g.adj, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write graph snapshot: %w", err)
	}
	return nil
}

// Load replaces the graph with the snapshot at path.
//
// A missing file leaves the graph empty. Malformed entries (a neighbor
// structure that is not a mapping, or a weight that is not an integer) are
// skipped per-entry and logged; they never fail the whole load. Asymmetric
// snapshots are preserved as-is, with no auto-repair.
func (g *Graph) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read graph snapshot: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse graph snapshot %s: %w", path, err)
	}

	adj := make(map[string]map[string]int, len(raw))
	for a, nbrsRaw := range raw {
		var nbrs map[string]json.RawMessage
		if err := json.Unmarshal(nbrsRaw, &nbrs); err != nil {
			g.logger.Warn("skipping malformed graph entry", "symbol", a, "error", err)
			continue
		}
		for b, wRaw := range nbrs {
			var num json.Number
			if err := json.Unmarshal(wRaw, &num); err != nil {
				g.logger.Warn("skipping malformed graph weight", "symbol", a, "neighbor", b, "error", err)
				continue
			}
			w, err := num.Int64()
			if err != nil {
				g.logger.Warn("skipping non-integer graph weight", "symbol", a, "neighbor", b, "value", num.String())
				continue
			}
			if adj[a] == nil {
				adj[a] = make(map[string]int)
			}
			adj[a][b] = int(w)
		}
	}
	g.adj = adj
	return nil
}
