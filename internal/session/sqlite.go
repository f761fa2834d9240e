// ABOUTME: SQLite implementation of the session Store using modernc.org/sqlite
// ABOUTME: Versioned commits give optimistic concurrency across concurrent webhook turns

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	expiry time.Duration
	logger *slog.Logger
}

// NewSQLiteStore creates a session store at the given path. The schema is
// created if it doesn't exist and parent directories are created if needed.
// Sessions idle longer than expiry are treated as fresh on Load.
func NewSQLiteStore(path string, expiry time.Duration) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// WAL for concurrent webhook handlers; busy_timeout makes simultaneous
	// writers on separate pooled connections queue instead of surfacing
	// SQLITE_BUSY, leaving version checks as the only conflict signal.
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		expiry: expiry,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("session store initialized", "path", path, "expiry", expiry)
	return s, nil
}

// createSchema creates the sessions table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			sender        TEXT PRIMARY KEY,
			state         TEXT NOT NULL,
			context       TEXT NOT NULL DEFAULT '{}',
			last_activity TEXT NOT NULL,
			version       INTEGER NOT NULL,

			CHECK (state IN ('NEW', 'AWAITING_INPUT', 'IDLE')),
			CHECK (version > 0)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_last_activity
			ON sessions(last_activity);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Load returns the sender's session or a fresh one in StateNew. A stored
// session past the expiry window comes back fresh but keeps its version, so
// the next Commit still goes through the update path.
func (s *SQLiteStore) Load(ctx context.Context, sender string) (*Session, error) {
	query := `
		SELECT sender, state, context, last_activity, version
		FROM sessions
		WHERE sender = ?
	`

	var sess Session
	var contextJSON, lastActivityStr string

	err := s.db.QueryRowContext(ctx, query, sender).Scan(
		&sess.Sender,
		&sess.State,
		&contextJSON,
		&lastActivityStr,
		&sess.Version,
	)

	if err == sql.ErrNoRows {
		return NewSession(sender), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	sess.LastActivity, err = time.Parse(time.RFC3339, lastActivityStr)
	if err != nil {
		return nil, fmt.Errorf("parsing last_activity: %w", err)
	}

	if err := json.Unmarshal([]byte(contextJSON), &sess.Context); err != nil {
		return nil, fmt.Errorf("parsing context: %w", err)
	}
	if sess.Context == nil {
		sess.Context = make(map[string]string)
	}

	// Expired sessions restart the conversation but keep the version token
	if s.expiry > 0 && time.Since(sess.LastActivity) > s.expiry {
		fresh := NewSession(sender)
		fresh.Version = sess.Version
		s.logger.Debug("session expired, starting fresh", "sender", sender)
		return fresh, nil
	}

	return &sess, nil
}

// Commit persists the session with an advanced version. A session loaded at
// version N commits as version N+1, and only if the stored row is still at
// version N; otherwise ErrConflict. Version 0 inserts, and a duplicate insert
// from a concurrent first turn is also ErrConflict.
func (s *SQLiteStore) Commit(ctx context.Context, sess *Session) error {
	contextJSON, err := json.Marshal(sess.Context)
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}
	now := time.Now().UTC()

	if sess.Version == 0 {
		query := `
			INSERT INTO sessions (sender, state, context, last_activity, version)
			VALUES (?, ?, ?, ?, 1)
		`
		_, err := s.db.ExecContext(ctx, query,
			sess.Sender,
			string(sess.State),
			string(contextJSON),
			now.Format(time.RFC3339),
		)
		if err != nil {
			if isConstraintViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("inserting session: %w", err)
		}
		sess.Version = 1
		sess.LastActivity = now
		return nil
	}

	query := `
		UPDATE sessions
		SET state = ?, context = ?, last_activity = ?, version = version + 1
		WHERE sender = ? AND version = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		string(sess.State),
		string(contextJSON),
		now.Format(time.RFC3339),
		sess.Sender,
		sess.Version,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}

	sess.Version++
	sess.LastActivity = now
	return nil
}

// List returns up to limit sessions ordered by most recent activity
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT sender, state, context, last_activity, version
		FROM sessions
		ORDER BY last_activity DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var contextJSON, lastActivityStr string

		if err := rows.Scan(&sess.Sender, &sess.State, &contextJSON, &lastActivityStr, &sess.Version); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.LastActivity, err = time.Parse(time.RFC3339, lastActivityStr)
		if err != nil {
			return nil, fmt.Errorf("parsing last_activity: %w", err)
		}
		if err := json.Unmarshal([]byte(contextJSON), &sess.Context); err != nil {
			return nil, fmt.Errorf("parsing context: %w", err)
		}
		sessions = append(sessions, &sess)
	}

	return sessions, rows.Err()
}

// DeleteExpired removes sessions idle since before the cutoff
func (s *SQLiteStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE last_activity < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete result: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("expired sessions removed", "count", deleted)
	}
	return deleted, nil
}

// StartSweeper launches a goroutine that periodically deletes expired
// sessions until the context is cancelled.
func (s *SQLiteStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := s.DeleteExpired(sweepCtx, time.Now().Add(-s.expiry)); err != nil {
					s.logger.Error("session sweep failed", "error", err)
				}
				cancel()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}
