package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const kvSchemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	revision   INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite implements Backend on a single-table SQLite database. Every Set
// bumps the row's revision, which Watch polls to detect writes made by
// other processes sharing the file.
type SQLite struct {
	conn *sql.DB
	poll time.Duration
}

// OpenSQLite opens (or creates) the database and applies the schema.
// pollInterval controls how often Watch checks for revision changes.
func OpenSQLite(dsn string, pollInterval time.Duration) (*SQLite, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(kvSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn, poll: pollInterval}, nil
}

// Get returns the value stored under key.
func (s *SQLite) Get(key string) ([]byte, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: get %s: %w", key, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value and increments its revision.
func (s *SQLite) Set(key string, value []byte) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	_, err := s.conn.Exec(`
		INSERT INTO kv (key, value, revision, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			revision   = kv.revision + 1,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the row for key.
func (s *SQLite) Remove(key string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	if _, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in lexical order.
func (s *SQLite) Keys() ([]string, error) {
	revs, err := s.revisions()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(revs))
	for k := range revs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *SQLite) revisions() (map[string]int64, error) {
	rows, err := s.conn.Query(`SELECT key, revision FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("storage: revisions: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var k string
		var rev int64
		if err := rows.Scan(&k, &rev); err != nil {
			return nil, err
		}
		out[k] = rev
	}
	return out, rows.Err()
}

// Watch polls revisions and reports keys that were added, bumped or removed.
func (s *SQLite) Watch(ctx context.Context, logger *slog.Logger, cb ChangeFunc) error {
	last, err := s.revisions()
	if err != nil {
		return err
	}
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	logger.Info("watcher: polling sqlite", slog.Duration("interval", s.poll))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil
		case <-ticker.C:
			cur, err := s.revisions()
			if err != nil {
				logger.Warn("watcher: poll failed", slog.String("error", err.Error()))
				continue
			}
			var changed []string
			for k, rev := range cur {
				if last[k] != rev {
					changed = append(changed, k)
				}
			}
			for k := range last {
				if _, ok := cur[k]; !ok {
					changed = append(changed, k)
				}
			}
			last = cur
			sort.Strings(changed)
			for _, k := range changed {
				logger.Debug("watcher: changed", slog.String("key", k))
				if cb != nil {
					cb(k)
				}
			}
		}
	}
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
