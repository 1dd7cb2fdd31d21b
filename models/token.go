package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the JWT payload. Role is embedded so admin checks need no
// extra lookup, but the middleware still loads the user to catch deletions
// and role changes.
type TokenClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
