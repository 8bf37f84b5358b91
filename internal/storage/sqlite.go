package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parlohq/parlo-server/internal/shared"
)

// SQLiteStore implements Store on a single SQLite file. It is the durable
// backend for single-node deployments: state survives restarts, so a visitor
// who reloads mid-conversation keeps their activity window.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and prepares the schema.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS tab_state (
		device_id TEXT NOT NULL,
		tab_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (device_id, tab_id, key)
	);
	CREATE INDEX IF NOT EXISTS idx_tab_state_updated ON tab_state(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get retrieves the value for a key within a scope.
func (s *SQLiteStore) Get(ctx context.Context, scope Scope, key string) (string, error) {
	query := `SELECT value FROM tab_state WHERE device_id = ? AND tab_id = ? AND key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, scope.DeviceID, scope.TabID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("scan tab_state row: %w", err)
	}
	return value, nil
}

// Set writes a value, overwriting any previous value for the key.
func (s *SQLiteStore) Set(ctx context.Context, scope Scope, key string, value string) error {
	query := `
	INSERT INTO tab_state (device_id, tab_id, key, value, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(device_id, tab_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, scope.DeviceID, scope.TabID, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert tab_state: %w", err)
	}
	return nil
}

// Delete removes a key. Retries with exponential backoff on SQLITE_BUSY,
// which can occur while the janitor sweep holds the write lock.
func (s *SQLiteStore) Delete(ctx context.Context, scope Scope, key string) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM tab_state WHERE device_id = ? AND tab_id = ? AND key = ?`,
			scope.DeviceID, scope.TabID, key)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Delete hit SQLITE_BUSY, retrying",
				"key", key,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("delete tab_state key: %w", err)
	}

	return nil
}

// DeleteOlderThan removes entries not written for at least the given age.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().Add(-age).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM tab_state WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("sweep stale tab_state: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
