package memory

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Archive is SQLite cold storage for events dropped by the sliding window.
// The hot window stays bounded while the full record survives here.
//
// Writes are best-effort: the engine treats an archive failure as a
// diagnostic, not a reason to stop the run.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenArchive creates or opens the archive database at path.
//
// The database uses WAL mode with a single connection; there is exactly
// one writer in this design.
func OpenArchive(path string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return &Archive{db: db, logger: logger}, nil
}

// Put inserts trimmed events in order. Events whose metadata cannot be
// serialized are skipped with a warning; an insert failure aborts the batch
// and is returned for the caller to log.
func (a *Archive) Put(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("archive batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO archived_events (ts, kind, text, meta) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archive batch: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		meta, err := json.Marshal(ev.Meta)
		if err != nil {
			a.logger.Warn("skipping unarchivable event metadata", "kind", ev.Kind, "error", err)
			meta = []byte("{}")
		}
		if _, err := stmt.Exec(ev.TS, string(ev.Kind), ev.Text, string(meta)); err != nil {
			return fmt.Errorf("archive event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive commit: %w", err)
	}
	return nil
}

// Count returns the number of archived events.
func (a *Archive) Count() (int, error) {
	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM archived_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count archive: %w", err)
	}
	return n, nil
}

// Tail returns the most recently archived events, oldest first, up to n.
func (a *Archive) Tail(n int) ([]Event, error) {
	rows, err := a.db.Query(`
		SELECT ts, kind, text, meta FROM archived_events
		ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var kind, meta string
		if err := rows.Scan(&ev.TS, &kind, &ev.Text, &meta); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		ev.Kind = Kind(kind)
		if err := json.Unmarshal([]byte(meta), &ev.Meta); err != nil {
			a.logger.Warn("skipping archived event with malformed metadata", "error", err)
			continue
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}
	// Reverse into append order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
