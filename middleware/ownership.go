package middleware

import (
	"net/http"

	"github.com/brekfst/mcdirectory/handlers"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/services"
)

// OwnershipMiddleware lets a request through when the user owns the server
// named by {id}, or is an admin. It runs after AuthMiddleware.Require.
type OwnershipMiddleware struct {
	serverService services.ServerService
}

func NewOwnershipMiddleware(serverService services.ServerService) *OwnershipMiddleware {
	return &OwnershipMiddleware{serverService: serverService}
}

func (m *OwnershipMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := handlers.UserFromContext(r.Context())
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		serverID, err := handlers.PathID(r, "id")
		if err != nil {
			pkg.Error(w, r, err)
			return
		}

		// 404 before 403, so a missing server is never reported as forbidden.
		if _, err := m.serverService.GetByID(r.Context(), serverID); err != nil {
			pkg.Error(w, r, err)
			return
		}

		if !user.IsAdmin() {
			owns, err := m.serverService.IsOwner(r.Context(), serverID, user.ID)
			if err != nil {
				pkg.Error(w, r, err)
				return
			}
			if !owns {
				pkg.ErrorWithMessage(w, http.StatusForbidden, "You do not own this server")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
