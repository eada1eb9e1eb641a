// Package history keeps an append-only journal of lifecycle events in
// SQLite, for "what happened to bug-004 and when" queries.
//
// The journal is derived data. It is written best-effort from the event bus
// and never consulted to decide ledger state; deleting history.db loses the
// audit trail and nothing else.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DefaultLimit caps List when the query sets no limit.
const DefaultLimit = 50

// Entry is one journaled event.
type Entry struct {
	ID          int64              `json:"id"`
	EventID     string             `json:"event_id"`
	Type        events.Type        `json:"type"`
	FeatureID   string             `json:"feature_id"`
	FeatureType ledger.FeatureType `json:"feature_type"`
	From        ledger.Phase       `json:"from,omitempty"`
	To          ledger.Phase       `json:"to,omitempty"`
	At          time.Time          `json:"at"`
}

// Query filters List. Zero values mean "any".
type Query struct {
	FeatureID string
	Type      events.Type
	Limit     int
}

// Store is the SQLite-backed journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id     TEXT    NOT NULL UNIQUE,
			type         TEXT    NOT NULL,
			feature_id   TEXT    NOT NULL,
			feature_type TEXT    NOT NULL,
			from_phase   TEXT    NOT NULL DEFAULT '',
			to_phase     TEXT    NOT NULL DEFAULT '',
			at           TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_feature ON events(feature_id, id);
		CREATE INDEX IF NOT EXISTS idx_events_type    ON events(type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Record appends ev. Recording the same event id twice is a no-op.
func (s *Store) Record(ctx context.Context, ev *events.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (event_id, type, feature_id, feature_type, from_phase, to_phase, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Type), ev.FeatureID, string(ev.FeatureType),
		string(ev.From), string(ev.To), ev.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", ev.Type, err)
	}
	return nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// List returns matching entries, oldest first.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, event_id, type, feature_id, feature_type, from_phase, to_phase, at FROM events WHERE 1=1`
	var args []any
	if q.FeatureID != "" {
		query += " AND feature_id = ?"
		args = append(args, q.FeatureID)
	}
	if q.Type != "" {
		query += " AND type = ?"
		args = append(args, string(q.Type))
	}
	// Newest N, then flip to chronological order.
	query = `SELECT * FROM (` + query + ` ORDER BY id DESC LIMIT ?) ORDER BY id ASC`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var typ, ftype, from, to, at string
		if err := rows.Scan(&e.ID, &e.EventID, &typ, &e.FeatureID, &ftype, &from, &to, &at); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Type = events.Type(typ)
		e.FeatureType = ledger.FeatureType(ftype)
		e.From = ledger.Phase(from)
		e.To = ledger.Phase(to)
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("history: parse timestamp %q: %w", at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of journaled events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}
