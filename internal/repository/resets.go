package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/komix/komix-api/internal/models"
)

// CreatePasswordReset stores a new reset token
func (r *Repository) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	query := `
		INSERT INTO password_resets (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, reset.ID, reset.UserID, reset.CreatedAt, reset.ExpiresAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create password reset: %w", err)
	}
	return nil
}

// FindPasswordReset retrieves a reset token by id
func (r *Repository) FindPasswordReset(ctx context.Context, id string) (*models.PasswordReset, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, used_at, revoked_at
		FROM password_resets
		WHERE id = $1`
	reset := &models.PasswordReset{}
	var usedAt, revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&reset.ID, &reset.UserID, &reset.CreatedAt, &reset.ExpiresAt, &usedAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find password reset: %w", err)
	}
	if usedAt.Valid {
		reset.UsedAt = &usedAt.Time
	}
	if revokedAt.Valid {
		reset.RevokedAt = &revokedAt.Time
	}
	return reset, nil
}

// ApplyPasswordReset consumes the reset, stores the new password hash and
// revokes every other outstanding reset of the same user in one transaction.
// ErrNotFound means the reset was consumed, revoked or expired concurrently.
func (r *Repository) ApplyPasswordReset(ctx context.Context, resetID string, userID int64, passwordHash string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE password_resets SET used_at = $2
		WHERE id = $1 AND used_at IS NULL AND revoked_at IS NULL AND expires_at > $2`,
		resetID, at)
	if err != nil {
		return fmt.Errorf("failed to mark password reset used: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE password_resets SET revoked_at = $2
		WHERE user_id = $1 AND used_at IS NULL AND revoked_at IS NULL`,
		userID, at)
	if err != nil {
		return fmt.Errorf("failed to revoke password resets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit password reset: %w", err)
	}
	return nil
}

// PurgePasswordResets deletes resets that expired, were used or were revoked before the cutoff
func (r *Repository) PurgePasswordResets(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM password_resets
		WHERE expires_at < $1 OR used_at < $1 OR revoked_at < $1`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge password resets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge password resets: %w", err)
	}
	return n, nil
}
