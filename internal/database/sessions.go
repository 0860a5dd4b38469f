package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taxbook/internal/domain"
)

// ErrNoToken is returned when the user has no stored session.
var ErrNoToken = domain.ErrTokenNotFound

func (db *DB) SaveToken(ctx context.Context, userID int64, token string) error {
	if token == "" {
		return fmt.Errorf("save token for %d: empty token", userID)
	}
	query := `INSERT INTO sessions (telegram_id, token, created_at, updated_at)
              VALUES (?, ?, ?, ?)
              ON CONFLICT(telegram_id) DO UPDATE SET
                token = excluded.token,
                updated_at = excluded.updated_at`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query, userID, token, now, now); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (db *DB) GetToken(ctx context.Context, userID int64) (string, error) {
	var token string
	err := db.QueryRowContext(ctx, `SELECT token FROM sessions WHERE telegram_id = ?`, userID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return token, nil
}

func (db *DB) DeleteToken(ctx context.Context, userID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE telegram_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
