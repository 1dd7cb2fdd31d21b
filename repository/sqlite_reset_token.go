package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
)

type sqliteResetTokenRepo struct {
	db database.TxQuerier
}

func NewSQLiteResetTokenRepo(db database.TxQuerier) PasswordResetRepository {
	return &sqliteResetTokenRepo{db: db}
}

func (r *sqliteResetTokenRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	query := `INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES (?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, token.UserID, token.TokenHash, dbTime(token.ExpiresAt)).
		Scan(&token.ID, scanTime(&token.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create password reset token: %w", err)
	}

	return nil
}

func (r *sqliteResetTokenRepo) scanOne(row *sql.Row) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{}
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash,
		scanTime(&token.ExpiresAt), scanTime(&token.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reset token not found", pkg.ErrNotFound)
	}
	return token, err
}

func (r *sqliteResetTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	token, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_reset_tokens WHERE token_hash = ?`, tokenHash))
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return nil, fmt.Errorf("failed to get password reset token: %w", err)
	}
	return token, err
}

func (r *sqliteResetTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user's password reset tokens: %w", err)
	}
	return nil
}

func (r *sqliteResetTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < ?`, dbTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired password reset tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (r *sqliteResetTokenRepo) GetLatestByUserID(ctx context.Context, userID string) (*models.PasswordResetToken, error) {
	token, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_reset_tokens WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID))
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return nil, fmt.Errorf("failed to get latest password reset token: %w", err)
	}
	return token, err
}
