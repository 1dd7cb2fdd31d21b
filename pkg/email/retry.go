package email

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type retryingSender struct {
	next       EmailSender
	maxRetries uint64
	logger     *zap.Logger
}

// WithRetry retries failed sends with exponential backoff, up to maxRetries
// extra attempts.
func WithRetry(next EmailSender, maxRetries uint64, logger *zap.Logger) EmailSender {
	return &retryingSender{next: next, maxRetries: maxRetries, logger: logger}
}

func (s *retryingSender) do(ctx context.Context, kind, to string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("email send failed, retrying",
			zap.String("kind", kind),
			zap.String("to", to),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	return backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(b, s.maxRetries), ctx),
		notify)
}

func (s *retryingSender) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	return s.do(ctx, "password_reset", toEmail, func() error {
		return s.next.SendPasswordReset(ctx, toEmail, token)
	})
}

func (s *retryingSender) SendClaimInvitation(ctx context.Context, toEmail, username, serverName, token string) error {
	return s.do(ctx, "claim_invitation", toEmail, func() error {
		return s.next.SendClaimInvitation(ctx, toEmail, username, serverName, token)
	})
}
