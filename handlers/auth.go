// Package handlers maps HTTP requests onto services. Handlers stay thin:
// decode the request, call one service method, write the envelope. Business
// rules and SQL live elsewhere.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/ratelimit"
	"github.com/brekfst/mcdirectory/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.Limiter
	resetLimiter *ratelimit.Limiter
}

// NewAuthHandler builds the auth endpoints. A nil limiter disables that
// limit.
func NewAuthHandler(authService services.AuthService, loginLimiter, resetLimiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginLimiter: loginLimiter,
		resetLimiter: resetLimiter,
	}
}

// Register godoc
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, resp)
}

// tooManyRequests writes the 429 with a Retry-After header.
func tooManyRequests(w http.ResponseWriter, limiter *ratelimit.Limiter, ip, what string) {
	retryAfter := limiter.RetryAfterSeconds(ip)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
		"Too many "+what+", please try again in "+ratelimit.FormatRetryMessage(retryAfter))
}

// Login godoc
// POST /api/auth/login
//
// Limited per client IP. A successful login clears the counter.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		pkg.LoggerFrom(r.Context()).Warn("login rate limited", zap.String("ip", ip))
		tooManyRequests(w, h.loginLimiter, ip, "login attempts")
		return
	}

	var req models.LoginRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}

	pkg.JSON(w, http.StatusOK, resp)
}

// Logout godoc
// POST /api/auth/logout
//
// Tokens are stateless; the client discards its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	pkg.Message(w, http.StatusOK, "Logged out successfully")
}

// Check godoc
// GET /api/auth/check
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// Profile godoc
// GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.authService.GetProfile(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, profile)
}

// UpdateProfile godoc
// PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.UpdateProfileRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	updated, err := h.authService.UpdateProfile(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, updated)
}

// ForgotPassword godoc
// POST /api/auth/forgot-password
//
// Answers the same way whether or not the email has an account. While the
// per-account cooldown runs, the remaining seconds are returned instead.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.resetLimiter != nil && !h.resetLimiter.Allow(ip) {
		tooManyRequests(w, h.resetLimiter, ip, "reset requests")
		return
	}

	var req models.ForgotPasswordRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, r, err)
		return
	}

	cooldown, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	if cooldown > 0 {
		pkg.Write(w, http.StatusOK, &pkg.APIResponse{
			Success: true,
			Message: "Cooldown active",
			Data:    map[string]int{"cooldown": cooldown},
		})
		return
	}

	pkg.Message(w, http.StatusOK, "If the email exists, a reset link has been sent")
}

// ResetPassword godoc
// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Message(w, http.StatusOK, "Password has been reset successfully")
}
