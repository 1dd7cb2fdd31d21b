// Package middleware holds the wrappers that sit in front of handlers.
// Each is a func(next http.Handler) http.Handler; a wrapper that rejects the
// request writes the error envelope and does not call next.
package middleware

import (
	"net/http"
	"strings"

	"github.com/brekfst/mcdirectory/handlers"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/services"
)

type AuthMiddleware struct {
	authService services.AuthService
}

func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require accepts "Authorization: Bearer <token>", loads the user and stores
// it in the request context. The password hash never leaves this function.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.authService.ValidateToken(tokenString)
		if err != nil {
			pkg.Error(w, r, err)
			return
		}

		// The token can outlive the account.
		user, err := m.authService.GetUser(r.Context(), claims.UserID)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "User not found")
			return
		}
		user.PasswordHash = ""

		next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
	})
}
