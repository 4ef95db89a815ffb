// Package sqlite archives finished sessions into <home>/archive.db so the
// workspace directory can be pruned.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

var openDB = sql.Open

const timeLayout = time.RFC3339Nano

type Store struct {
	db *sql.DB
}

var _ ports.SessionArchive = (*Store)(nil)

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("archive: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}
	// Pragmas are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT PRIMARY KEY,
			task        TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			archived_at TEXT NOT NULL,
			invocations INTEGER NOT NULL DEFAULT 0,
			failed      INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS invocations (
			session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			agent_id    TEXT NOT NULL,
			engine      TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			started_at  TEXT NOT NULL,
			finished_at TEXT,
			detail      TEXT NOT NULL DEFAULT '',
			result      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (session_id, agent_id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_archived_at ON sessions(archived_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores session and the result text of each invocation. Archiving the
// same session again replaces the earlier copy.
func (s *Store) Put(ctx context.Context, session domain.Session, results map[domain.AgentID]string, archivedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	failed := session.Counts()[domain.StatusError]
	for _, stmt := range []string{`DELETE FROM invocations WHERE session_id = ?`, `DELETE FROM sessions WHERE id = ?`} {
		if _, err := tx.ExecContext(ctx, stmt, session.ID); err != nil {
			return fmt.Errorf("archive: replace session %s: %w", session.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, task, created_at, archived_at, invocations, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Task, session.CreatedAt.UTC().Format(timeLayout), archivedAt.UTC().Format(timeLayout),
		len(session.Invocations), failed,
	); err != nil {
		return fmt.Errorf("archive: insert session %s: %w", session.ID, err)
	}

	for _, inv := range session.Invocations {
		var finished any
		if !inv.FinishedAt.IsZero() {
			finished = inv.FinishedAt.UTC().Format(timeLayout)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO invocations (session_id, agent_id, engine, status, started_at, finished_at, detail, result)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, string(inv.AgentID), string(inv.Engine), string(inv.Status),
			inv.StartedAt.UTC().Format(timeLayout), finished, inv.Detail, results[inv.AgentID],
		); err != nil {
			return fmt.Errorf("archive: insert invocation %s/%s: %w", session.ID, inv.AgentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// List returns archived sessions, most recently archived first. A limit of
// zero or less returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]ports.ArchivedSession, error) {
	query := `SELECT id, task, created_at, archived_at, invocations, failed
		FROM sessions ORDER BY archived_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var out []ports.ArchivedSession
	for rows.Next() {
		var (
			item                  ports.ArchivedSession
			createdAt, archivedAt string
		)
		if err := rows.Scan(&item.ID, &item.Task, &createdAt, &archivedAt, &item.Invocations, &item.Failed); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		if item.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("archive: session %s created_at: %w", item.ID, err)
		}
		if item.ArchivedAt, err = time.Parse(timeLayout, archivedAt); err != nil {
			return nil, fmt.Errorf("archive: session %s archived_at: %w", item.ID, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}

// Result returns the archived result text of one invocation.
func (s *Store) Result(ctx context.Context, sessionID string, agentID domain.AgentID) (string, error) {
	var result string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM invocations WHERE session_id = ? AND agent_id = ?`,
		sessionID, string(agentID),
	).Scan(&result)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", domain.ErrInvocationNotFound, sessionID, agentID)
	}
	if err != nil {
		return "", fmt.Errorf("archive: result: %w", err)
	}
	return result, nil
}
