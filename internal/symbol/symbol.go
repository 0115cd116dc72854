// Package symbol defines the symbol vocabulary: normalization of raw text
// into bounded, canonical tokens, extraction of symbol mentions from free
// text, and the abstraction notation used for synthesized composites.
//
// Normalization is total: every input maps to a valid symbol. Two symbols
// are equal iff their normalized forms are byte-equal, so all comparisons
// elsewhere in the engine operate on already-normalized values.
package symbol

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// A Symbol is a normalized short token identifying a concept node in the
// graph. The zero value "" is never produced by Normalize.
type Symbol = string

// Fallback is the canonical symbol for empty or fully-stripped input.
const Fallback Symbol = "void"

// Default is the absolute-fallback symbol used by the selection policy
// when no other candidate exists.
const Default Symbol = "origin"

// MaxLen is the default maximum length of a normalized symbol.
const MaxLen = 32

// absPrefix is the reserved wrapping notation for synthesized symbols.
const absPrefix = "abs("

var (
	bracketRE = regexp.MustCompile(`\[([^\[\]]+)\]`)
	tokenRE   = regexp.MustCompile(`[A-Za-z0-9_\-]{1,64}`)
	stripRE   = regexp.MustCompile(`[^a-z0-9_\-():]`)
	digitsRE  = regexp.MustCompile(`^[0-9]+$`)
)

// Normalizer canonicalizes raw text into symbols.
//
// The maximum length is explicit configuration rather than a package-level
// setting so two normalizers with different bounds can coexist (e.g. tests).
type Normalizer struct {
	maxLen int
}

// NewNormalizer creates a Normalizer with the given maximum symbol length.
// Non-positive maxLen falls back to MaxLen.
func NewNormalizer(maxLen int) *Normalizer {
	if maxLen <= 0 {
		maxLen = MaxLen
	}
	return &Normalizer{maxLen: maxLen}
}

// Normalize canonicalizes raw input into a valid Symbol.
//
// Steps: NFC-normalize, trim surrounding whitespace, lowercase, replace
// internal spaces with underscores, strip characters outside the allowed
// set (alphanumerics, underscore, hyphen, and the abstraction punctuation
// "():"), truncate to the maximum length. Empty results become Fallback.
//
// Normalize never fails and is idempotent.
func (n *Normalizer) Normalize(raw string) Symbol {
	s := norm.NFC.String(raw)
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = stripRE.ReplaceAllString(s, "")
	if s == "" {
		return Fallback
	}
	if len(s) > n.maxLen {
		s = s[:n.maxLen]
	}
	return s
}

// Extract returns the ordered symbol mentions in text.
//
// Bracket-delimited spans like "[loop]" take precedence: when at least one
// is present, only bracketed content is extracted. Otherwise the text is
// mined with a permissive token pattern. In both tiers each candidate is
// normalized and purely-numeric results are discarded, so producers that
// want precise tagging use brackets and free text degrades to token mining.
func (n *Normalizer) Extract(text string) []Symbol {
	var out []Symbol
	for _, m := range bracketRE.FindAllStringSubmatch(text, -1) {
		s := n.Normalize(m[1])
		if s != Fallback && !digitsRE.MatchString(s) {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, t := range tokenRE.FindAllString(text, -1) {
		if digitsRE.MatchString(t) {
			continue
		}
		s := n.Normalize(t)
		if s != Fallback && !digitsRE.MatchString(s) {
			out = append(out, s)
		}
	}
	return out
}

// Wrap synthesizes the abstraction symbol for the pair (a, b).
// The result passes through Normalize, so it honors the length bound.
func (n *Normalizer) Wrap(a, b Symbol) Symbol {
	return n.Normalize(absPrefix + a + "_" + b + ")")
}

// IsAbstraction reports whether s carries the abstraction wrapping notation.
func IsAbstraction(s Symbol) bool {
	return strings.HasPrefix(s, absPrefix)
}

// Depth returns the abstraction nesting depth of s: the number of wrapping
// markers it contains. Primitives have depth 0.
func Depth(s Symbol) int {
	return strings.Count(s, absPrefix)
}

// CanonicalPair orders (a, b) lexicographically so a pair has exactly one
// registry key regardless of discovery order.
func CanonicalPair(a, b Symbol) (Symbol, Symbol) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Bracket renders s in the bracket-delimited mention form used in event
// text, e.g. "loop" -> "[loop]".
func Bracket(s Symbol) string {
	return "[" + s + "]"
}
