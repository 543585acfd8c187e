package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetOption returns the stored value of key and whether it exists.
func (db *DB) GetOption(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM options WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("index: get option %s: %w", key, err)
	}
	return v, true, nil
}

// SetOption stores value under key.
func (db *DB) SetOption(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO options (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("index: set option %s: %w", key, err)
	}
	return nil
}
