package models

import "time"

// ServerStats is the live block of the server details page, taken from the
// latest measurement.
type ServerStats struct {
	CurrentPlayers   int        `json:"current_players"`
	MaxPlayers       int        `json:"max_players"`
	IsOnline         bool       `json:"is_online"`
	UptimePercentage float64    `json:"uptime_percentage"`
	LatencyMs        *int       `json:"latency_ms"`
	Version          string     `json:"version"`
	MOTD             string     `json:"motd"`
	Description      *string    `json:"description"`
	FaviconHash      *string    `json:"favicon_hash"`
	Tags             RawJSON    `json:"tags"`
	WhitelistStatus  *bool      `json:"whitelist_status"`
	ModdedStatus     *bool      `json:"modded_status"`
	ServerSoftware   *string    `json:"server_software"`
	PlayersSample    RawJSON    `json:"players_sample"`
	LastMeasuredAt   *time.Time `json:"last_measured_at"`
}

type DetailPredictions struct {
	PlayerCounts []PredictedPoint `json:"player_counts"`
	Peak         *PredictedPeak   `json:"peak"`
	Insights     []Prediction     `json:"insights"`
}

type DetailHistory struct {
	PlayerCounts []HourlyPlayerCount `json:"player_counts"`
}

// ServerDetails is the GET /servers/{id} payload. Stats is null until the
// first measurement arrives.
type ServerDetails struct {
	Server      ServerWithOwner   `json:"server"`
	Stats       *ServerStats      `json:"stats"`
	Predictions DetailPredictions `json:"predictions"`
	History     DetailHistory     `json:"history"`
}

// GlobalStats is the GET /servers/stats payload.
type GlobalStats struct {
	TotalServers int                 `json:"total_servers"`
	TotalPlayers int                 `json:"total_players"`
	TopServers   []ServerPlayerCount `json:"top_servers"`
}

// AdminStats is the GET /admin/stats payload.
type AdminStats struct {
	TotalServers    int `json:"total_servers"`
	ActiveServers   int `json:"active_servers"`
	PendingServers  int `json:"pending_servers"`
	PendingClaims   int `json:"pending_claims"`
	TotalPlayers    int `json:"total_players"`
	FeaturedServers int `json:"featured_servers"`
}
