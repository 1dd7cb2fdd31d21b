package main

import (
	"net/http"

	"github.com/brekfst/mcdirectory/middleware"
)

// initRoutes registers every endpoint on mux. Literal segments such as
// /api/servers/featured win over {id} under the Go 1.22 pattern rules, so
// order does not matter here.
func initRoutes(mux *http.ServeMux, h *Handlers, svcs *Services, apiKey string) {
	authMw := middleware.NewAuthMiddleware(svcs.Auth)
	ownerMw := middleware.NewOwnershipMiddleware(svcs.Server)
	ingest := middleware.RequireAPIKey(apiKey)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	authOwner := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(ownerMw.Require(handler))
	}
	authAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(middleware.RequireAdmin(handler))
	}

	mux.HandleFunc("GET /api/health", h.Health.Health)

	// Auth
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.Handle("POST /api/auth/logout", auth(h.Auth.Logout))
	mux.Handle("GET /api/auth/check", auth(h.Auth.Check))
	mux.Handle("GET /api/auth/profile", auth(h.Auth.Profile))
	mux.Handle("PUT /api/auth/profile", auth(h.Auth.UpdateProfile))
	mux.HandleFunc("POST /api/auth/forgot-password", h.Auth.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)

	// Servers
	mux.HandleFunc("GET /api/servers", h.Server.List)
	mux.HandleFunc("POST /api/servers", h.Server.Create)
	mux.HandleFunc("GET /api/servers/featured", h.Server.Featured)
	mux.HandleFunc("GET /api/servers/top", h.Server.Top)
	mux.HandleFunc("GET /api/servers/rising", h.Server.Rising)
	mux.HandleFunc("GET /api/servers/stats", h.Server.Stats)
	mux.HandleFunc("GET /api/servers/lookup", h.Server.Lookup)
	mux.HandleFunc("GET /api/servers/{id}", h.Server.Get)
	mux.Handle("PUT /api/servers/{id}", authOwner(h.Server.Update))
	mux.Handle("DELETE /api/servers/{id}", authOwner(h.Server.Delete))
	mux.HandleFunc("POST /api/servers/{id}/claim", h.Server.Claim)

	// Measurements
	mux.Handle("POST /api/measurements", ingest(http.HandlerFunc(h.Measurement.Create)))
	mux.HandleFunc("GET /api/measurements/global/player-count", h.Measurement.TotalPlayers)
	mux.HandleFunc("GET /api/measurements/{serverId}/latest", h.Measurement.Latest)
	mux.HandleFunc("GET /api/measurements/{serverId}/history", h.Measurement.History)
	mux.HandleFunc("GET /api/measurements/{serverId}/player-history", h.Measurement.PlayerHistory)
	mux.HandleFunc("GET /api/measurements/{serverId}/uptime", h.Measurement.Uptime)
	mux.HandleFunc("GET /api/measurements/{serverId}/peak-hour", h.Measurement.PeakHour)

	// Predictions
	mux.Handle("POST /api/predictions", ingest(http.HandlerFunc(h.Prediction.Create)))
	mux.HandleFunc("GET /api/predictions/{serverId}/latest/{type}", h.Prediction.Latest)
	mux.HandleFunc("GET /api/predictions/{serverId}/range/{type}", h.Prediction.Range)
	mux.HandleFunc("GET /api/predictions/{serverId}/next24hours", h.Prediction.Next24)
	mux.HandleFunc("GET /api/predictions/{serverId}/peak", h.Prediction.Peak)
	mux.HandleFunc("GET /api/predictions/{serverId}/downtime", h.Prediction.Downtime)
	mux.HandleFunc("GET /api/predictions/{serverId}/insights", h.Prediction.Insights)

	// Admin
	mux.Handle("GET /api/admin/stats", authAdmin(h.Admin.Stats))
	mux.Handle("POST /api/admin/purge", authAdmin(h.Admin.Purge))
	mux.Handle("GET /api/admin/servers/pending", authAdmin(h.Admin.PendingServers))
	mux.Handle("POST /api/admin/servers/{id}/approve", authAdmin(h.Admin.ApproveServer))
	mux.Handle("POST /api/admin/servers/{id}/reject", authAdmin(h.Admin.RejectServer))
	mux.Handle("GET /api/admin/servers/{id}/claims", authAdmin(h.Admin.ServerClaims))
	mux.Handle("GET /api/admin/claims/pending", authAdmin(h.Admin.PendingClaims))
	mux.Handle("POST /api/admin/claims/{id}/approve", authAdmin(h.Admin.ApproveClaim))
	mux.Handle("POST /api/admin/claims/{id}/reject", authAdmin(h.Admin.RejectClaim))
	mux.Handle("GET /api/admin/featured", authAdmin(h.Admin.ListFeatured))
	mux.Handle("POST /api/admin/featured", authAdmin(h.Admin.AddFeatured))
	mux.Handle("PUT /api/admin/featured/{id}", authAdmin(h.Admin.UpdateFeatured))
	mux.Handle("DELETE /api/admin/featured/{id}", authAdmin(h.Admin.RemoveFeatured))
}
