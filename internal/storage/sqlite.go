package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS session (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// tokenKey is the row holding the bearer token.
const tokenKey = "token"

// SQLite implements TokenStore on a small key/value table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("storage: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Load returns the stored token, or "" when the row is absent.
func (s *SQLite) Load() (string, error) {
	var token string
	err := s.conn.QueryRow(`SELECT value FROM session WHERE key = ?`, tokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: load token: %w", err)
	}
	return token, nil
}

// Save upserts the token row.
func (s *SQLite) Save(token string) error {
	_, err := s.conn.Exec(`
		INSERT INTO session (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, tokenKey, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: save token: %w", err)
	}
	return nil
}

// Delete removes the token row.
func (s *SQLite) Delete() error {
	if _, err := s.conn.Exec(`DELETE FROM session WHERE key = ?`, tokenKey); err != nil {
		return fmt.Errorf("storage: delete token: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
