package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brekfst/mcdirectory/pkg"
)

// UserRole gates the admin routes.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// UnusablePasswordHash marks accounts created by claim approval. bcrypt never
// matches it, so the owner must set a password through a reset token.
const UnusablePasswordHash = "!"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasPassword is false for invited accounts that never set one.
func (u *User) HasPassword() bool { return u.PasswordHash != UnusablePasswordHash }

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	var v pkg.ValidationError

	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if !IsValidUsername(r.Username) {
		v.Add("username", "Username must be 3-20 characters and may contain only letters, numbers, underscores, and hyphens")
	}
	if !IsValidEmail(r.Email) {
		v.Add("email", "Invalid email format")
	}
	if utf8.RuneCountInString(r.Password) < 8 {
		v.Add("password", "Password must be at least 8 characters")
	}

	return v.Err()
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var v pkg.ValidationError

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		v.Add("email", "Email is required")
	}
	if r.Password == "" {
		v.Add("password", "Password is required")
	}

	return v.Err()
}

// UpdateProfileRequest is the body of PUT /auth/profile. NewPassword requires
// CurrentPassword.
type UpdateProfileRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	CurrentPassword *string `json:"current_password"`
	NewPassword     *string `json:"new_password"`
}

func (r *UpdateProfileRequest) Validate() error {
	var v pkg.ValidationError

	if r.Username != nil {
		name := strings.TrimSpace(*r.Username)
		if !IsValidUsername(name) {
			v.Add("username", "Username must be 3-20 characters and may contain only letters, numbers, underscores, and hyphens")
		}
		r.Username = &name
	}
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		if !IsValidEmail(email) {
			v.Add("email", "Invalid email format")
		}
		r.Email = &email
	}
	if r.NewPassword != nil {
		if utf8.RuneCountInString(*r.NewPassword) < 8 {
			v.Add("new_password", "Password must be at least 8 characters")
		}
		if r.CurrentPassword == nil || *r.CurrentPassword == "" {
			v.Add("current_password", "Current password is required to set a new password")
		}
	}

	return v.Err()
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Profile is the GET /auth/profile payload.
type Profile struct {
	User          *User    `json:"user"`
	OwnedServers  []Server `json:"owned_servers"`
	PendingClaims []Claim  `json:"pending_claims"`
}
