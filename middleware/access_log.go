package middleware

import (
	"net/http"
	"time"

	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/ratelimit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// AccessLog tags each request with an id, installs a request-scoped logger
// for pkg.Error and logs one line when the handler returns. exposeErrors
// controls whether internal error text reaches clients.
func AccessLog(logger *zap.Logger, exposeErrors bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			reqLogger := logger.With(zap.String("request_id", reqID))
			ctx := pkg.WithRequestInfo(r.Context(), reqLogger, exposeErrors)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("ip", ratelimit.ExtractIP(r)),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case rec.status >= 500:
				reqLogger.Error("request", fields...)
			case rec.status >= 400:
				reqLogger.Warn("request", fields...)
			default:
				reqLogger.Debug("request", fields...)
			}
		})
	}
}
