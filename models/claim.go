package models

import (
	"strings"
	"time"

	"github.com/brekfst/mcdirectory/pkg"
)

// ClaimStatus moves from pending to exactly one terminal state.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// Claim is a request by (username, email) to own a server.
type Claim struct {
	ID         int64       `json:"id"`
	ServerID   int64       `json:"server_id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Status     ClaimStatus `json:"status"`
	Reason     *string     `json:"reason"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at"`

	// Set by listing queries that join servers.
	ServerName string `json:"server_name,omitempty"`
	ServerIP   string `json:"server_ip,omitempty"`
}

// CreateClaimRequest is the body of POST /servers/{id}/claim.
type CreateClaimRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (r *CreateClaimRequest) Validate() error {
	var v pkg.ValidationError

	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if r.Username == "" {
		v.Add("username", "Username is required")
	} else if !IsValidUsername(r.Username) {
		v.Add("username", "Username must be 3-20 characters and may contain only letters, numbers, underscores, and hyphens")
	}
	if r.Email == "" {
		v.Add("email", "Email is required")
	} else if !IsValidEmail(r.Email) {
		v.Add("email", "Invalid email format")
	}

	return v.Err()
}

// RejectClaimRequest is the optional body of the reject endpoint.
type RejectClaimRequest struct {
	Reason *string `json:"reason"`
}

func (r *RejectClaimRequest) Validate() error {
	var v pkg.ValidationError
	if r.Reason != nil {
		reason := strings.TrimSpace(*r.Reason)
		if len(reason) > 500 {
			v.Add("reason", "Reason must be at most 500 characters")
		}
		if reason == "" {
			r.Reason = nil
		} else {
			r.Reason = &reason
		}
	}
	return v.Err()
}

// ClaimApproval is the outcome of approving a claim.
type ClaimApproval struct {
	Claim       *Claim `json:"claim"`
	User        *User  `json:"user"`
	UserCreated bool   `json:"user_created"`
}
