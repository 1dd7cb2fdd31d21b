package repository

import (
	"context"
	"time"

	"github.com/brekfst/mcdirectory/models"
)

// PasswordResetRepository stores hashed single-use tokens for password
// resets and claim invitations.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	// GetByTokenHash returns ErrNotFound for unknown hashes.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	// DeleteByUserID drops every outstanding token of a user before a new
	// one is issued.
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// GetLatestByUserID backs the request cooldown.
	GetLatestByUserID(ctx context.Context, userID string) (*models.PasswordResetToken, error)
}
