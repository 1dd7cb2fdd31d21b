package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brekfst/mcdirectory/pkg"
)

// Server is a directory listing. IsActive=false means the submission is
// still waiting for admin approval.
type Server struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	IP         string     `json:"ip"`
	Hostname   string     `json:"hostname"`
	WebsiteURL *string    `json:"website_url"`
	Country    string     `json:"country"`
	Gamemode   StringList `json:"gamemode"`
	MaxPlayers int        `json:"max_players"`
	IsActive   bool       `json:"is_active"`
	FirstSeen  time.Time  `json:"first_seen"`
	LastSeen   time.Time  `json:"last_seen"`
}

// ServerWithOwner is the by-id read model.
type ServerWithOwner struct {
	Server
	HasOwner bool `json:"has_owner"`
}

// ServerPlayerCount is a row of the top-by-players listing.
type ServerPlayerCount struct {
	Server
	PlayerCount int       `json:"player_count"`
	MeasuredAt  time.Time `json:"measured_at"`
}

// RisingServer compares the latest sample of the last hour with the latest
// sample taken between 25 and 24 hours ago.
type RisingServer struct {
	Server
	CurrentPlayers int `json:"current_players"`
	PastPlayers    int `json:"past_players"`
	Growth         int `json:"growth"`
}

// Sortable list columns.
const (
	SortName        = "name"
	SortPlayerCount = "player_count"
	SortCountry     = "country"
	SortFirstSeen   = "first_seen"
	SortLastSeen    = "last_seen"
)

var sortColumns = map[string]bool{
	SortName: true, SortPlayerCount: true, SortCountry: true, SortFirstSeen: true, SortLastSeen: true,
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ServerListQuery is the parsed query string of GET /servers.
type ServerListQuery struct {
	Search    string   `json:"search"`
	Gamemodes []string `json:"gamemodes"`
	Country   string   `json:"country"`
	Sort      string   `json:"sort"`
	Order     string   `json:"order"`
	Page      int      `json:"page"`
	Limit     int      `json:"limit"`
	// ActiveOnly is forced true for public listings.
	ActiveOnly bool `json:"active_only"`
}

// Validate applies defaults and rejects values outside the whitelist.
func (q *ServerListQuery) Validate() error {
	var v pkg.ValidationError

	q.Search = strings.TrimSpace(q.Search)
	q.Country = strings.ToUpper(strings.TrimSpace(q.Country))
	q.Gamemodes = StringList(q.Gamemodes).Normalized()

	if q.Sort == "" {
		q.Sort = SortName
	}
	if !sortColumns[q.Sort] {
		v.Add("sort", "Sort must be one of: name, player_count, country, first_seen, last_seen")
	}

	q.Order = strings.ToUpper(q.Order)
	if q.Order == "" {
		q.Order = "ASC"
	}
	if q.Order != "ASC" && q.Order != "DESC" {
		v.Add("order", "Order must be asc or desc")
	}

	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		v.Add("page", "Page must be a positive number")
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		v.Add("limit", "Limit must be between 1 and 100")
	}

	return v.Err()
}

// Offset is the row offset for the current page.
func (q *ServerListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// CreateServerRequest is the body of POST /servers.
type CreateServerRequest struct {
	Name       string     `json:"name"`
	IP         string     `json:"ip"`
	Hostname   string     `json:"hostname"`
	WebsiteURL *string    `json:"website_url"`
	Country    string     `json:"country"`
	Gamemode   StringList `json:"gamemode"`
	MaxPlayers int        `json:"max_players"`
}

func (r *CreateServerRequest) Validate() error {
	var v pkg.ValidationError

	r.Name = strings.TrimSpace(r.Name)
	r.IP = strings.TrimSpace(r.IP)
	r.Hostname = strings.ToLower(strings.TrimSpace(r.Hostname))
	r.Country = strings.TrimSpace(r.Country)
	r.Gamemode = r.Gamemode.Normalized()

	if r.Name == "" {
		v.Add("name", "Server name is required")
	} else if utf8.RuneCountInString(r.Name) > 100 {
		v.Add("name", "Server name must be at most 100 characters")
	}

	if r.IP == "" {
		v.Add("ip", "IP address is required")
	} else if !ipRegex.MatchString(r.IP) {
		v.Add("ip", "Invalid IP address format")
	}

	if r.Hostname == "" {
		v.Add("hostname", "Hostname is required")
	} else if !hostnameRegex.MatchString(r.Hostname) {
		v.Add("hostname", "Invalid hostname format")
	}

	if r.WebsiteURL != nil {
		trimmed := strings.TrimSpace(*r.WebsiteURL)
		if trimmed == "" {
			r.WebsiteURL = nil
		} else if msg := websiteProblem(trimmed); msg != "" {
			v.Add("website_url", msg)
		} else {
			r.WebsiteURL = &trimmed
		}
	}

	if r.Country == "" {
		v.Add("country", "Country is required")
	} else if !countryRegex.MatchString(r.Country) {
		v.Add("country", "Country code must be a 2-letter ISO code (e.g., US, GB)")
	}

	if len(r.Gamemode) == 0 {
		v.Add("gamemode", "At least one gamemode is required")
	}

	if r.MaxPlayers <= 0 {
		v.Add("max_players", "Maximum players must be a positive number")
	}

	return v.Err()
}

// UpdateServerRequest is a partial patch; nil fields are left unchanged.
type UpdateServerRequest struct {
	Name       *string     `json:"name"`
	WebsiteURL *string     `json:"website_url"`
	Country    *string     `json:"country"`
	Gamemode   *StringList `json:"gamemode"`
	MaxPlayers *int        `json:"max_players"`
}

func (r *UpdateServerRequest) Validate() error {
	var v pkg.ValidationError

	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" || utf8.RuneCountInString(name) > 100 {
			v.Add("name", "Server name must be 1-100 characters")
		}
		r.Name = &name
	}
	if r.WebsiteURL != nil && strings.TrimSpace(*r.WebsiteURL) != "" {
		if msg := websiteProblem(strings.TrimSpace(*r.WebsiteURL)); msg != "" {
			v.Add("website_url", msg)
		}
	}
	if r.Country != nil && !countryRegex.MatchString(*r.Country) {
		v.Add("country", "Country code must be a 2-letter ISO code (e.g., US, GB)")
	}
	if r.Gamemode != nil {
		gm := r.Gamemode.Normalized()
		if len(gm) == 0 {
			v.Add("gamemode", "At least one gamemode is required")
		}
		r.Gamemode = &gm
	}
	if r.MaxPlayers != nil && *r.MaxPlayers <= 0 {
		v.Add("max_players", "Maximum players must be a positive number")
	}

	return v.Err()
}

// IsEmpty reports whether the patch changes nothing.
func (r *UpdateServerRequest) IsEmpty() bool {
	return r.Name == nil && r.WebsiteURL == nil && r.Country == nil && r.Gamemode == nil && r.MaxPlayers == nil
}
