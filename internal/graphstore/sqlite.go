package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/webexplorer/agent/internal/explore"
)

// SQLiteGraphStore is a SQLite-backed GraphStore.
//
// It keeps the exploration graph in a single-file database, which makes it
// the default backend for development and tests: zero setup, and ":memory:"
// works for a throwaway store. Production deployments pointing at a shared
// database use MySQLGraphStore instead.
type SQLiteGraphStore struct {
	db *sql.DB
	// mu serializes transactions; SQLite supports one writer at a time
	// and parallel sessions all funnel into the same store.
	mu sync.Mutex
}

// NewSQLiteGraphStore opens (and migrates) a SQLite graph store at path.
// Pass ":memory:" for an ephemeral store.
func NewSQLiteGraphStore(path string) (*SQLiteGraphStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("graphstore: %s: %w", pragma, err)
		}
	}

	s := &SQLiteGraphStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graphstore: create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteGraphStore) createTables(ctx context.Context) error {
	statesTable := `
		CREATE TABLE IF NOT EXISTS states (
			url          TEXT NOT NULL,
			session_id   TEXT NOT NULL,
			fingerprint  TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			last_visited TEXT NOT NULL,
			PRIMARY KEY (url, session_id)
		)`
	transitionsTable := `
		CREATE TABLE IF NOT EXISTS transitions (
			from_url   TEXT NOT NULL,
			to_url     TEXT NOT NULL,
			action     TEXT NOT NULL,
			selector   TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_seen  TEXT NOT NULL,
			PRIMARY KEY (from_url, to_url, action, selector, session_id)
		)`
	for _, stmt := range []string{statesTable, transitionsTable} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// TransitionExists implements GraphStore.
func (s *SQLiteGraphStore) TransitionExists(ctx context.Context, from, to, action, sessionID, selector string) (bool, error) {
	query := `SELECT COUNT(*) FROM transitions
		WHERE from_url = ? AND to_url = ? AND action = ? AND session_id = ?`
	args := []interface{}{from, to, action, sessionID}
	if selector != "" {
		query += " AND selector = ?"
		args = append(args, selector)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("graphstore: transition exists: %w", err)
	}
	return count > 0, nil
}

// WriteBatch implements GraphStore. All writes land in one transaction.
func (s *SQLiteGraphStore) WriteBatch(ctx context.Context, writes []explore.PendingQuery) error {
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graphstore: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, w := range writes {
		switch w.Kind {
		case explore.QueryMergeState:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO states (url, session_id, fingerprint, created_at, last_visited)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (url, session_id) DO UPDATE SET
					fingerprint = excluded.fingerprint,
					last_visited = excluded.last_visited`,
				w.URL, w.SessionID, w.Fingerprint, now, now)
		case explore.QueryMergeTransition:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO transitions (from_url, to_url, action, selector, session_id, created_at, last_seen)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (from_url, to_url, action, selector, session_id) DO UPDATE SET
					last_seen = excluded.last_seen`,
				w.From, w.To, w.Action, w.Selector, w.SessionID, now, now)
		default:
			err = fmt.Errorf("graphstore: unknown query kind %d", w.Kind)
		}
		if err != nil {
			return fmt.Errorf("graphstore: write: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("graphstore: commit: %w", err)
	}
	return nil
}

// States returns every state node for a session, for read-back in tests
// and reporting.
func (s *SQLiteGraphStore) States(ctx context.Context, sessionID string) ([]StateNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, session_id, fingerprint, created_at, last_visited
		FROM states WHERE session_id = ? ORDER BY url`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("graphstore: list states: %w", err)
	}
	defer rows.Close()

	var out []StateNode
	for rows.Next() {
		var n StateNode
		if err := rows.Scan(&n.URL, &n.SessionID, &n.Fingerprint, &n.CreatedAt, &n.LastVisited); err != nil {
			return nil, fmt.Errorf("graphstore: scan state: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Transitions returns every transition edge for a session.
func (s *SQLiteGraphStore) Transitions(ctx context.Context, sessionID string) ([]TransitionEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_url, to_url, action, selector, session_id, created_at, last_seen
		FROM transitions WHERE session_id = ? ORDER BY from_url, to_url`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("graphstore: list transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionEdge
	for rows.Next() {
		var e TransitionEdge
		if err := rows.Scan(&e.From, &e.To, &e.Action, &e.Selector, &e.SessionID, &e.CreatedAt, &e.LastSeen); err != nil {
			return nil, fmt.Errorf("graphstore: scan transition: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close implements GraphStore.
func (s *SQLiteGraphStore) Close() error {
	return s.db.Close()
}
