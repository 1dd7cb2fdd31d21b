package models

import (
	"time"

	"github.com/brekfst/mcdirectory/pkg"
)

// FeaturedServer is a promotion slot. Among active rows, positions form the
// dense sequence 1..N. Inactive rows keep position 0.
type FeaturedServer struct {
	ID        int64      `json:"id"`
	ServerID  int64      `json:"server_id"`
	Position  int        `json:"position"`
	Active    bool       `json:"active"`
	EndDate   *time.Time `json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	ServerName string `json:"server_name,omitempty"`
}

// FeaturedListing is the public homepage card: the server plus its slot and
// the latest probe state.
type FeaturedListing struct {
	Server
	Position       int        `json:"position"`
	EndDate        *time.Time `json:"end_date"`
	CurrentPlayers int        `json:"current_players"`
	IsOnline       bool       `json:"is_online"`
	MOTD           *string    `json:"motd"`
	Version        *string    `json:"version"`
}

// AddFeaturedRequest is the body of POST /admin/featured. A nil Position
// appends after the last active slot.
type AddFeaturedRequest struct {
	ServerID int64      `json:"server_id"`
	Position *int       `json:"position"`
	EndDate  *time.Time `json:"end_date"`
}

func (r *AddFeaturedRequest) Validate(now time.Time) error {
	var v pkg.ValidationError

	if r.ServerID <= 0 {
		v.Add("server_id", "Server ID must be a positive number")
	}
	if r.Position != nil && *r.Position < 1 {
		v.Add("position", "Position must be a positive number or null for automatic positioning")
	}
	if r.EndDate != nil && !r.EndDate.After(now) {
		v.Add("end_date", "End date must be in the future")
	}

	return v.Err()
}

// UpdateFeaturedRequest is the body of PUT /admin/featured/{id}.
type UpdateFeaturedRequest struct {
	Position     *int       `json:"position"`
	EndDate      *time.Time `json:"end_date"`
	ClearEndDate bool       `json:"clear_end_date"`
	Active       *bool      `json:"active"`
}

func (r *UpdateFeaturedRequest) Validate(now time.Time) error {
	var v pkg.ValidationError

	if r.Position != nil && *r.Position < 1 {
		v.Add("position", "Position must be a positive number")
	}
	if r.EndDate != nil && !r.EndDate.After(now) {
		v.Add("end_date", "End date must be in the future")
	}
	if r.EndDate != nil && r.ClearEndDate {
		v.Add("end_date", "Cannot set and clear the end date at once")
	}
	if r.Position == nil && r.EndDate == nil && !r.ClearEndDate && r.Active == nil {
		v.Add("body", "No fields to update")
	}

	return v.Err()
}
