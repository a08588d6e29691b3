package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SaveResetToken stores a password reset token hash for userID. Earlier
// tokens of the user stop working.
func (s *Store) SaveResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM password_resets WHERE user_id = ?`), userID); err != nil {
			return fmt.Errorf("failed to clear reset tokens: %w", err)
		}
		q := tx.Rebind(`INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES (?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, q, tokenHash, userID, unix(expiresAt)); err != nil {
			return fmt.Errorf("failed to save reset token: %w", err)
		}
		return nil
	})
}

// ResetTokenUser returns the user a live reset token belongs to, or
// ErrNotFound when the token is unknown or expired at now.
func (s *Store) ResetTokenUser(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var userID string
	q := s.db.Rebind(`SELECT user_id FROM password_resets WHERE token_hash = ? AND expires_at > ?`)
	if err := s.db.GetContext(ctx, &userID, q, tokenHash, unix(now)); err != nil {
		return "", notFound(err)
	}
	return userID, nil
}

// SetPassword replaces the user's password hash and drops their reset
// tokens.
func (s *Store) SetPassword(ctx context.Context, userID, passwordHash string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`), passwordHash, userID)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM password_resets WHERE user_id = ?`), userID); err != nil {
			return fmt.Errorf("failed to clear reset tokens: %w", err)
		}
		return nil
	})
}
