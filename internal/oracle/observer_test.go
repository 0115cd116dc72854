package oracle

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// TestContext_Format tests the token shape and tick progression.
func TestContext_Format(t *testing.T) {
	o := New("mirror-1", rand.New(rand.NewSource(7)), fixedClock{time.Unix(12345, 0)})

	tok := o.Context([]string{"[a] :: x", "[b] :: y"})
	re := regexp.MustCompile(`^mirror-1\[1\]::ctx-[0-9a-f]{8}::E[1-9]::T2345$`)
	assert.Regexp(t, re, tok)

	tok2 := o.Context(nil)
	assert.True(t, strings.HasPrefix(tok2, "mirror-1[2]::ctx-empty::"), "got %q", tok2)
	assert.Equal(t, 2, o.Tick())
}

// TestContext_DigestStability tests that the same recent history yields the
// same digest component.
func TestContext_DigestStability(t *testing.T) {
	history := []string{"one", "two", "three"}
	a := New("m", rand.New(rand.NewSource(1)), fixedClock{time.Unix(0, 0)}).Context(history)
	b := New("m", rand.New(rand.NewSource(2)), fixedClock{time.Unix(0, 0)}).Context(history)

	extract := func(tok string) string {
		parts := strings.Split(tok, "::")
		require.GreaterOrEqual(t, len(parts), 2)
		return parts[1]
	}
	assert.Equal(t, extract(a), extract(b))
}

// TestContext_DigestWindow tests that only the last five texts feed the
// digest.
func TestContext_DigestWindow(t *testing.T) {
	long := []string{"0", "1", "2", "3", "4", "5", "6"}
	short := []string{"2", "3", "4", "5", "6"}

	a := New("m", rand.New(rand.NewSource(1)), fixedClock{time.Unix(0, 0)}).Context(long)
	b := New("m", rand.New(rand.NewSource(1)), fixedClock{time.Unix(0, 0)}).Context(short)
	assert.Equal(t, a, b)
}

// TestAllow tests the integrity gate bounds.
func TestAllow(t *testing.T) {
	o := New("m", rand.New(rand.NewSource(1)), nil)

	assert.False(t, o.Allow(""))
	assert.True(t, o.Allow("[mirror] :: ctx"))
	assert.True(t, o.Allow(strings.Repeat("x", 800)))
	assert.False(t, o.Allow(strings.Repeat("x", 801)))
}

// TestContext_EntropyRange tests the entropy digit stays in 1..9.
func TestContext_EntropyRange(t *testing.T) {
	o := New("m", rand.New(rand.NewSource(3)), fixedClock{time.Unix(0, 0)})
	re := regexp.MustCompile(`::E([1-9])::`)

	for i := 0; i < 100; i++ {
		tok := o.Context(nil)
		require.Regexp(t, re, tok, fmt.Sprintf("token %d: %q", i, tok))
	}
}
