package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/webexplorer/agent/internal/explore"
)

// MySQLGraphStore is a MySQL-backed GraphStore for deployments where many
// sessions (possibly on different hosts) write into one shared graph. All
// writes are keyed by session, so concurrent sessions never conflict.
type MySQLGraphStore struct {
	db *sql.DB
	// mu serializes this process's transactions on the shared connection
	// pool; cross-process safety comes from the upsert keys themselves.
	mu sync.Mutex
}

// NewMySQLGraphStore opens (and migrates) a MySQL graph store. dsn is a
// go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/webexplorer".
func NewMySQLGraphStore(dsn string) (*MySQLGraphStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graphstore: ping mysql: %w", err)
	}

	s := &MySQLGraphStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graphstore: create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLGraphStore) createTables(ctx context.Context) error {
	statesTable := `
		CREATE TABLE IF NOT EXISTS states (
			url          VARCHAR(768) NOT NULL,
			session_id   VARCHAR(64)  NOT NULL,
			fingerprint  VARCHAR(16)  NOT NULL DEFAULT '',
			created_at   VARCHAR(32)  NOT NULL,
			last_visited VARCHAR(32)  NOT NULL,
			PRIMARY KEY (url, session_id)
		)`
	transitionsTable := `
		CREATE TABLE IF NOT EXISTS transitions (
			from_url   VARCHAR(512) NOT NULL,
			to_url     VARCHAR(512) NOT NULL,
			action_sha VARCHAR(64)  NOT NULL,
			action     TEXT         NOT NULL,
			selector   VARCHAR(255) NOT NULL DEFAULT '',
			session_id VARCHAR(64)  NOT NULL,
			created_at VARCHAR(32)  NOT NULL,
			last_seen  VARCHAR(32)  NOT NULL,
			PRIMARY KEY (from_url(191), to_url(191), action_sha, selector(100), session_id)
		)`
	for _, stmt := range []string{statesTable, transitionsTable} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// TransitionExists implements GraphStore.
func (s *MySQLGraphStore) TransitionExists(ctx context.Context, from, to, action, sessionID, selector string) (bool, error) {
	query := `SELECT COUNT(*) FROM transitions
		WHERE from_url = ? AND to_url = ? AND action_sha = ? AND session_id = ?`
	args := []interface{}{from, to, actionSHA(action), sessionID}
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
func (s *MySQLGraphStore) WriteBatch(ctx context.Context, writes []explore.PendingQuery) error {
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
				ON DUPLICATE KEY UPDATE
					fingerprint = VALUES(fingerprint),
					last_visited = VALUES(last_visited)`,
				w.URL, w.SessionID, w.Fingerprint, now, now)
		case explore.QueryMergeTransition:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO transitions (from_url, to_url, action_sha, action, selector, session_id, created_at, last_seen)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON DUPLICATE KEY UPDATE
					last_seen = VALUES(last_seen)`,
				w.From, w.To, actionSHA(w.Action), w.Action, w.Selector, w.SessionID, now, now)
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

// Close implements GraphStore.
func (s *MySQLGraphStore) Close() error {
	return s.db.Close()
}
