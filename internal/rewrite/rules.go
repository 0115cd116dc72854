// Package rewrite implements the named pattern -> replacement rule store
// applied to input text before interpretation.
//
// Failure isolation lives entirely behind Apply: a rule whose pattern does
// not compile is skipped for that application and reported on the
// diagnostic channel, never surfaced to the caller. The interpret step
// always makes forward progress even with broken rules in the store.
package rewrite

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// Rule is one stored rewrite: a regular expression pattern and its
// substitution text. Matching is case-insensitive.
type Rule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// Store holds named rewrite rules.
//
// Not safe for concurrent mutation; the engine has exactly one mutator.
type Store struct {
	rules  map[string]Rule
	logger *slog.Logger
}

// NewStore creates an empty rule store. A nil logger falls back to
// slog.Default().
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		rules:  make(map[string]Rule),
		logger: logger,
	}
}

// Set upserts a rule. The pattern is not validated here; an invalid
// pattern only manifests as a skipped rule at apply time.
func (s *Store) Set(name, pattern, replacement string) {
	s.rules[name] = Rule{Pattern: pattern, Replacement: replacement}
}

// Delete removes the named rule, reporting whether it existed.
func (s *Store) Delete(name string) bool {
	if _, ok := s.rules[name]; !ok {
		return false
	}
	delete(s.rules, name)
	return true
}

// Get returns the named rule.
func (s *Store) Get(name string) (Rule, bool) {
	r, ok := s.rules[name]
	return r, ok
}

// Len returns the number of stored rules.
func (s *Store) Len() int {
	return len(s.rules)
}

// Names returns rule names in the store's stable enumeration order
// (sorted), the same order Apply folds them in.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.rules))
	for name := range s.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply folds every stored rule's substitution over text in the stable
// enumeration order. A rule whose pattern fails to compile is skipped and
// logged at debug level; Apply itself never fails.
func (s *Store) Apply(text string) string {
	for _, name := range s.Names() {
		rule := s.rules[name]
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			s.logger.Debug("skipping rewrite rule with invalid pattern",
				"rule", name, "pattern", rule.Pattern, "error", err)
			continue
		}
		text = re.ReplaceAllString(text, rule.Replacement)
	}
	return text
}

// Save writes the rules snapshot to path as {name: {pattern, replacement}}.
func (s *Store) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create rules dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.rules, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write rules snapshot: %w", err)
	}
	return nil
}

// Load replaces the store with the snapshot at path.
//
// A missing file leaves the store empty. Entries missing a pattern or
// replacement, or with the wrong shape, are skipped per-entry and logged.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read rules snapshot: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse rules snapshot %s: %w", path, err)
	}

	rules := make(map[string]Rule, len(raw))
	for name, entry := range raw {
		var fields map[string]string
		if err := json.Unmarshal(entry, &fields); err != nil {
			s.logger.Warn("skipping malformed rule entry", "rule", name, "error", err)
			continue
		}
		pattern, okP := fields["pattern"]
		replacement, okR := fields["replacement"]
		if !okP || !okR {
			s.logger.Warn("skipping incomplete rule entry", "rule", name)
			continue
		}
		rules[name] = Rule{Pattern: pattern, Replacement: replacement}
	}
	s.rules = rules
	return nil
}
