package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brekfst/mcdirectory/pkg"
)

// PasswordResetToken stores only the SHA-256 of the token that was mailed.
type PasswordResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *ForgotPasswordRequest) Validate() error {
	var v pkg.ValidationError
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if !IsValidEmail(r.Email) {
		v.Add("email", "Invalid email format")
	}
	return v.Err()
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r *ResetPasswordRequest) Validate() error {
	var v pkg.ValidationError
	if r.Token == "" {
		v.Add("token", "Token is required")
	}
	if utf8.RuneCountInString(r.NewPassword) < 8 {
		v.Add("new_password", "Password must be at least 8 characters")
	}
	return v.Err()
}
