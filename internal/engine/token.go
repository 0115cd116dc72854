package engine

import "github.com/google/uuid"

// TokenGenerator produces run tokens stamped into event metadata for trace
// correlation. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens, so tokens from
// successive runs sort by start time.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns a predetermined token, enabling deterministic
// event metadata in tests.
type FixedGenerator string

// Generate returns the fixed token.
func (g FixedGenerator) Generate() string { return string(g) }
