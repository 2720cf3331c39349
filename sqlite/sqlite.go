// Package sqlite implements a tether.Store backed by a single SQLite
// database file. Each row holds the same JSON document the json package
// writes to disk, next to indexed columns used for listing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/tether"
	tetherjson "github.com/fwojciec/tether/json"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    session_id        TEXT PRIMARY KEY,
    start_time        TEXT NOT NULL DEFAULT '',
    last_activity     TEXT NOT NULL DEFAULT '',
    working_directory TEXT NOT NULL DEFAULT '',
    message_count     INTEGER NOT NULL DEFAULT 0,
    document          BLOB NOT NULL
);
`

const upsert = `
INSERT INTO sessions (session_id, start_time, last_activity, working_directory, message_count, document)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    start_time        = excluded.start_time,
    last_activity     = excluded.last_activity,
    working_directory = excluded.working_directory,
    message_count     = excluded.message_count,
    document          = excluded.document`

var (
	_ tether.Store         = (*Store)(nil)
	_ tether.SummaryLister = (*Store)(nil)
)

// Store is a tether.Store over one SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report unreadable rows.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens or creates the database at path, creating parent directories
// as needed.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps writes ordered for the single-writer model.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the session row in one statement.
func (s *Store) Save(ctx context.Context, sess tether.Session) error {
	if err := tether.ValidateSessionID(sess.ID); err != nil {
		return err
	}
	doc, err := tetherjson.MarshalSession(sess)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.db.ExecContext(ctx, upsert,
		sess.ID,
		formatTime(sess.StartTime),
		formatTime(sess.LastActivity),
		sess.WorkingDirectory,
		len(sess.History),
		doc,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// Load returns the session stored under id. Query failures and corrupt
// documents report false and are logged.
func (s *Store) Load(ctx context.Context, id string) (tether.Session, bool) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, "SELECT document FROM sessions WHERE session_id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return tether.Session{}, false
	}
	if err != nil {
		s.logger.Warn("session unreadable", "session_id", id, "error", err)
		return tether.Session{}, false
	}
	sess, err := tetherjson.UnmarshalSession(doc)
	if err != nil {
		s.logger.Warn("session corrupt", "session_id", id, "error", err)
		return tether.Session{}, false
	}
	sess.ID = id
	return sess, true
}

// List returns all session identifiers in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT session_id FROM sessions ORDER BY session_id")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Summaries returns the listing view of every session, most recently active
// first, without decoding the stored documents.
func (s *Store) Summaries(ctx context.Context) ([]tether.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, start_time, last_activity, working_directory, message_count
		FROM sessions ORDER BY last_activity DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []tether.SessionSummary
	for rows.Next() {
		var (
			sum         tether.SessionSummary
			start, last string
		)
		if err := rows.Scan(&sum.ID, &start, &last, &sum.WorkingDirectory, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("list summaries: %w", err)
		}
		sum.StartTime = parseTime(start)
		sum.LastActivity = parseTime(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the row for id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return n > 0, nil
}

// formatTime writes UTC timestamps with a fixed-width fraction so that the
// text columns sort chronologically.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
