package pkg

import (
	"context"

	"go.uber.org/zap"
)

type requestInfoKey struct{}

type requestInfo struct {
	logger       *zap.Logger
	exposeErrors bool
}

// WithRequestInfo attaches the request-scoped logger and the error exposure
// policy to ctx. Installed by the access-log middleware.
func WithRequestInfo(ctx context.Context, logger *zap.Logger, exposeErrors bool) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{logger: logger, exposeErrors: exposeErrors})
}

// LoggerFrom returns the request logger, or a no-op logger outside a request.
func LoggerFrom(ctx context.Context) *zap.Logger {
	return requestInfoFrom(ctx).logger
}

func requestInfoFrom(ctx context.Context) requestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok && info.logger != nil {
		return info
	}
	return requestInfo{logger: zap.NewNop()}
}
