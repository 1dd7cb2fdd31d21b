package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/brekfst/mcdirectory/pkg"
)

const APIKeyHeader = "X-API-Key"

// RequireAPIKey guards the ingest endpoints used by the probe and the
// forecaster. With no key configured every request is refused.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
