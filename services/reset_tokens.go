package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/repository"
)

const (
	passwordResetLifetime = 20 * time.Minute
	invitationLifetime    = 7 * 24 * time.Hour
	resetRequestCooldown  = 90 * time.Second
)

// hashResetToken is what gets stored; the plain token only travels by mail.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// issueResetToken replaces every outstanding token of userID with a fresh one
// and returns the plain value. repo may be bound to a transaction.
func issueResetToken(ctx context.Context, repo repository.PasswordResetRepository, userID string, lifetime time.Duration, now time.Time) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := repo.DeleteByUserID(ctx, userID); err != nil {
		return "", err
	}

	record := &models.PasswordResetToken{
		UserID:    userID,
		TokenHash: hashResetToken(token),
		ExpiresAt: now.Add(lifetime),
	}
	if err := repo.Create(ctx, record); err != nil {
		return "", err
	}
	return token, nil
}
