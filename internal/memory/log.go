// Package memory implements the append-only event store: a JSONL log with
// sliding-window retention, a derived symbol frequency index, and optional
// SQLite cold storage for events trimmed out of the window.
//
// Persistence mode is pure append: every accepted event is durably written
// as one JSON line, prior lines are never rewritten, and the on-disk log is
// allowed to contain more history than the in-memory window. The window is
// re-applied on load. This keeps crash behaviour simple: the only possible
// damage is a truncated final line, which load skips.
package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// RankedSymbol is one frequency-index entry.
type RankedSymbol struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// Log is the event store.
//
// Not safe for concurrent mutation; the engine has exactly one mutator.
type Log struct {
	path      string
	maxEvents int
	extract   func(string) []string
	logger    *slog.Logger

	events    []Event
	counts    map[string]int
	firstSeen map[string]int // symbol -> discovery rank, for stable ties
	file      *os.File
	onTrim    func([]Event)
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithTrimHook registers a callback invoked with the events dropped by the
// sliding window, oldest first. Used to wire the archive.
func WithTrimHook(fn func([]Event)) LogOption {
	return func(l *Log) { l.onTrim = fn }
}

// Open loads the event log at path, replaying it line by line, and leaves
// the file open for durable appends.
//
// Lines that fail to parse are skipped with a warning; a partial trailing
// line from an unclean shutdown must not poison the rest of the log. An
// unwritable path is fatal: there is no valid state to operate on without
// a log to append to.
//
// extract mines symbols from event text when no explicit list is attached
// (see Event.Symbols); it must not be nil.
func Open(path string, maxEvents int, extract func(string) []string, logger *slog.Logger, opts ...LogOption) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEvents <= 0 {
		return nil, fmt.Errorf("max events must be positive, got %d", maxEvents)
	}
	l := &Log{
		path:      path,
		maxEvents: maxEvents,
		extract:   extract,
		logger:    logger,
		counts:    make(map[string]int),
		firstSeen: make(map[string]int),
	}
	for _, opt := range opts {
		opt(l)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	if err := l.replay(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log for append: %w", err)
	}
	l.file = f
	return l, nil
}

// replay reads the existing log, applies the window, and rebuilds the
// frequency index from scratch. The index is never trusted from a stale
// cache: a crash between a log append and a snapshot save must not leave
// the two drifted.
func (l *Log) replay() error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	skipped := 0
	reader := bufio.NewReaderSize(f, 1024*1024)
	for {
		line, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("scan event log: %w", err)
		}
		if isPrefix {
			// Line exceeds the buffer: drain the rest of it and treat
			// the whole line as one more corrupt record.
			for isPrefix && err == nil {
				_, isPrefix, err = reader.ReadLine()
			}
			skipped++
			continue
		}
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			skipped++
			continue
		}
		l.events = append(l.events, ev)
	}
	if skipped > 0 {
		l.logger.Warn("skipped unparseable event log lines", "path", l.path, "lines", skipped)
	}

	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}
	l.reindex()
	return nil
}

// reindex recomputes the frequency index from the in-memory window.
func (l *Log) reindex() {
	l.counts = make(map[string]int)
	l.firstSeen = make(map[string]int)
	for _, ev := range l.events {
		l.index(ev)
	}
}

func (l *Log) index(ev Event) {
	for _, s := range ev.Symbols(l.extract) {
		if _, seen := l.firstSeen[s]; !seen {
			l.firstSeen[s] = len(l.firstSeen)
		}
		l.counts[s]++
	}
}

// Append adds an event: in-memory append, sliding-window trim (dropped
// events go to the trim hook, oldest first), incremental index update, and
// one durable JSON line on disk.
//
// Trimming does not decrement frequency counts; the index is exact again
// after the next load, matching the index-is-derived contract.
func (l *Log) Append(ev Event) error {
	l.events = append(l.events, ev)
	if len(l.events) > l.maxEvents {
		trimmed := l.events[:len(l.events)-l.maxEvents]
		l.events = append([]Event(nil), l.events[len(l.events)-l.maxEvents:]...)
		if l.onTrim != nil {
			l.onTrim(trimmed)
		}
	}
	l.index(ev)

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Len returns the number of events in the window.
func (l *Log) Len() int {
	return len(l.events)
}

// Recent returns the last n events in append order, fewer if the window is
// smaller.
func (l *Log) Recent(n int) []Event {
	if n <= 0 || len(l.events) == 0 {
		return nil
	}
	if n > len(l.events) {
		n = len(l.events)
	}
	out := make([]Event, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

// Count returns the frequency-index count for sym.
func (l *Log) Count(sym string) int {
	return l.counts[sym]
}

// TopSymbols returns up to n symbols ranked by frequency descending, ties
// broken by discovery order (stable).
func (l *Log) TopSymbols(n int) []RankedSymbol {
	if n <= 0 {
		return nil
	}
	out := make([]RankedSymbol, 0, len(l.counts))
	for s, c := range l.counts {
		out = append(out, RankedSymbol{Symbol: s, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return l.firstSeen[out[i].Symbol] < l.firstSeen[out[j].Symbol]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Close releases the append handle. The log is unusable afterwards.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
