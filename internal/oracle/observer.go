// Package oracle provides the context collaborator: a short opaque token
// derived from recent event history plus a freshness counter, and a minimal
// integrity gate for generated text.
//
// The engine treats the token as uninterpreted; its normalized form is
// usable as a symbol candidate like any other.
package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// maxTextLen is the integrity gate's upper bound on event text.
const maxTextLen = 800

// Clock supplies wall time. Injected so tests can pin the tick suffix.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Observer produces per-step context tokens.
//
// Not safe for concurrent use; the engine has exactly one mutator.
type Observer struct {
	name  string
	tick  int
	rng   *rand.Rand
	clock Clock
}

// New creates an Observer. A nil clock falls back to the system clock.
func New(name string, rng *rand.Rand, clock Clock) *Observer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Observer{name: name, rng: rng, clock: clock}
}

// Context returns the next context token, built from a digest of the most
// recent event texts, an entropy digit, and a coarse time component:
//
//	name[tick]::ctx-<digest>::E<entropy>::T<unix mod 10000>
func (o *Observer) Context(recent []string) string {
	o.tick++
	entropy := o.rng.Intn(9) + 1
	t := o.clock.Now().Unix() % 10000
	return fmt.Sprintf("%s[%d]::ctx-%s::E%d::T%d", o.name, o.tick, digest(recent), entropy, t)
}

// Tick returns the number of tokens produced so far.
func (o *Observer) Tick() int { return o.tick }

// Allow is the integrity gate: it rejects empty text and text beyond the
// length bound.
func (o *Observer) Allow(text string) bool {
	return text != "" && len(text) <= maxTextLen
}

// digest hashes the last five texts into a short stable signature.
func digest(texts []string) string {
	if len(texts) == 0 {
		return "empty"
	}
	if len(texts) > 5 {
		texts = texts[len(texts)-5:]
	}
	sum := sha256.Sum256([]byte(strings.Join(texts, "||")))
	return hex.EncodeToString(sum[:])[:8]
}
