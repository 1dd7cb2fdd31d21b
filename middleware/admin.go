package middleware

import (
	"net/http"

	"github.com/brekfst/mcdirectory/handlers"
	"github.com/brekfst/mcdirectory/pkg"
)

// RequireAdmin runs after AuthMiddleware.Require.
//
//	authMw.Require(middleware.RequireAdmin(http.HandlerFunc(h.Stats)))
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := handlers.UserFromContext(r.Context())
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if !user.IsAdmin() {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "Admin privileges required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
