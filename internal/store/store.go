// Package store keeps a history of scan sessions and their found URLs in a
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maxvaer/dateprobe/internal/scanner"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// Session is one recorded scan.
type Session struct {
	ID         string
	Template   string
	StartDate  string
	EndDate    string
	Total      int
	Completed  int
	Found      int
	Errors     int
	StartedAt  time.Time
	FinishedAt time.Time // zero while the scan is running or if it crashed
}

// Store is a SQLite-backed scan history. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and creates if needed) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("history database opened", "path", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		template TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total INTEGER NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		found INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS found (
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		found_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_found_session ON found(session_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// BeginSession records the start of a scan.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	started := sess.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, template, start_date, end_date, total, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Template, sess.StartDate, sess.EndDate, sess.Total, started.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// RecordFound stores one found URL for a session.
func (s *Store) RecordFound(ctx context.Context, sessionID, url string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO found (session_id, url, found_at) VALUES (?, ?, ?)`,
		sessionID, url, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record found url: %w", err)
	}
	return nil
}

// FinishSession stores the final counters of a scan.
func (s *Store) FinishSession(ctx context.Context, id string, completed, found, errs int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET completed = ?, found = ?, errors = ?, finished_at = ? WHERE id = ?`,
		completed, found, errs, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns the most recent sessions first. limit <= 0 returns
// all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT id, template, start_date, end_date, total, completed, found, errors, started_at, finished_at
		FROM sessions ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess     Session
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&sess.ID, &sess.Template, &sess.StartDate, &sess.EndDate,
			&sess.Total, &sess.Completed, &sess.Found, &sess.Errors, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			sess.FinishedAt = time.UnixMilli(finished.Int64)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// FoundURLs returns the found URLs of a session in the order they were
// recorded.
func (s *Store) FoundURLs(ctx context.Context, sessionID string) ([]string, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM found WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query found urls: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// Recorder adapts a Store to scanner notifications for one session.
// Write errors are logged and never stop the scan.
type Recorder struct {
	scanner.NopNotifier

	store   *Store
	session string
	logger  *slog.Logger
}

// NewRecorder returns a Recorder writing found URLs of session to s.
func (s *Store) NewRecorder(session string) *Recorder {
	return &Recorder{store: s, session: session, logger: s.logger}
}

// Found stores the target as found.
func (r *Recorder) Found(res scanner.ProbeResult) {
	if err := r.store.RecordFound(context.Background(), r.session, res.Target); err != nil {
		r.logger.Warn("history write failed", "session", r.session, "url", res.Target, "error", err)
	}
}
