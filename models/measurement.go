package models

import (
	"time"

	"github.com/brekfst/mcdirectory/pkg"
)

// Measurement is one probe result. Rows are never updated.
type Measurement struct {
	ID              int64     `json:"id"`
	ServerID        int64     `json:"server_id"`
	Timestamp       time.Time `json:"timestamp"`
	IsOnline        bool      `json:"is_online"`
	PlayerCount     int       `json:"player_count"`
	MOTD            string    `json:"motd"`
	Version         string    `json:"version"`
	LatencyMs       *int      `json:"latency_ms"`
	PlayersSample   RawJSON   `json:"players_sample"`
	FaviconHash     *string   `json:"favicon_hash"`
	ProtocolVersion *int      `json:"protocol_version"`
	Description     *string   `json:"description"`
	Tags            RawJSON   `json:"tags"`
	WhitelistStatus *bool     `json:"whitelist_status"`
	ModdedStatus    *bool     `json:"modded_status"`
	ForgeData       RawJSON   `json:"forge_data"`
	ServerSoftware  *string   `json:"server_software"`
}

// CreateMeasurementRequest is the body of POST /measurements. Pointer fields
// distinguish "absent" from the zero value for required inputs.
type CreateMeasurementRequest struct {
	ServerID        int64      `json:"server_id"`
	Timestamp       *time.Time `json:"timestamp"`
	IsOnline        *bool      `json:"is_online"`
	PlayerCount     *int       `json:"player_count"`
	MOTD            *string    `json:"motd"`
	Version         *string    `json:"version"`
	LatencyMs       *int       `json:"latency_ms"`
	PlayersSample   RawJSON    `json:"players_sample"`
	FaviconHash     *string    `json:"favicon_hash"`
	ProtocolVersion *int       `json:"protocol_version"`
	Description     *string    `json:"description"`
	Tags            RawJSON    `json:"tags"`
	WhitelistStatus *bool      `json:"whitelist_status"`
	ModdedStatus    *bool      `json:"modded_status"`
	ForgeData       RawJSON    `json:"forge_data"`
	ServerSoftware  *string    `json:"server_software"`
}

// clockSkew tolerates probes whose clock runs slightly ahead.
const clockSkew = time.Minute

func (r *CreateMeasurementRequest) Validate(now time.Time) error {
	var v pkg.ValidationError

	if r.ServerID <= 0 {
		v.Add("server_id", "Server ID must be a positive number")
	}
	if r.IsOnline == nil {
		v.Add("is_online", "Online status is required")
	}
	if r.MOTD == nil || *r.MOTD == "" {
		v.Add("motd", "MOTD is required")
	}
	if r.Version == nil || *r.Version == "" {
		v.Add("version", "Version is required")
	}
	if r.PlayerCount != nil && *r.PlayerCount < 0 {
		v.Add("player_count", "Player count must be a non-negative number")
	}
	if r.LatencyMs != nil && *r.LatencyMs < 0 {
		v.Add("latency_ms", "Latency must be a non-negative number")
	}
	if r.Timestamp != nil && r.Timestamp.After(now.Add(clockSkew)) {
		v.Add("timestamp", "Timestamp cannot be in the future")
	}

	return v.Err()
}

// ToMeasurement builds the row to insert. Validate must have passed.
func (r *CreateMeasurementRequest) ToMeasurement(now time.Time) *Measurement {
	m := &Measurement{
		ServerID:        r.ServerID,
		Timestamp:       now,
		IsOnline:        *r.IsOnline,
		MOTD:            *r.MOTD,
		Version:         *r.Version,
		LatencyMs:       r.LatencyMs,
		PlayersSample:   r.PlayersSample,
		FaviconHash:     r.FaviconHash,
		ProtocolVersion: r.ProtocolVersion,
		Description:     r.Description,
		Tags:            r.Tags,
		WhitelistStatus: r.WhitelistStatus,
		ModdedStatus:    r.ModdedStatus,
		ForgeData:       r.ForgeData,
		ServerSoftware:  r.ServerSoftware,
	}
	if r.Timestamp != nil {
		m.Timestamp = *r.Timestamp
	}
	if r.PlayerCount != nil {
		m.PlayerCount = *r.PlayerCount
	}
	return m
}

// MeasurementBucket aggregates one interval of a range query. Player
// statistics cover online samples only and are null when the bucket has none;
// uptime covers every sample.
type MeasurementBucket struct {
	TimeBucket       time.Time `json:"time_bucket"`
	AvgPlayers       *float64  `json:"avg_players"`
	MaxPlayers       *int      `json:"max_players"`
	MinPlayers       *int      `json:"min_players"`
	UptimePercentage float64   `json:"uptime_percentage"`
	AvgLatency       *float64  `json:"avg_latency"`
	Samples          int       `json:"samples"`
}

// HourlyPlayerCount is one point of the last-24h chart. Hours with only
// offline samples are omitted.
type HourlyPlayerCount struct {
	Hour       time.Time `json:"hour"`
	AvgPlayers float64   `json:"avg_players"`
	MaxPlayers int       `json:"max_players"`
}

// PeakHour is the UTC hour-of-day with the highest average player count over
// the trailing week. Hour is null when there is no data.
type PeakHour struct {
	Hour       *int    `json:"hour"`
	AvgPlayers float64 `json:"avg_players"`
}

// Interval names accepted by the history endpoint, mapped to bucket width.
var intervals = map[string]time.Duration{
	"5 minutes":  5 * time.Minute,
	"15 minutes": 15 * time.Minute,
	"30 minutes": 30 * time.Minute,
	"1 hour":     time.Hour,
	"6 hours":    6 * time.Hour,
	"1 day":      24 * time.Hour,
}

// ParseInterval resolves a whitelisted interval name.
func ParseInterval(name string) (time.Duration, bool) {
	d, ok := intervals[name]
	return d, ok
}

// RangeQuery is a validated [Start, End) window for history reads.
type RangeQuery struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Interval string        `json:"interval,omitempty"`
	Bucket   time.Duration `json:"-"`
}

// HistoryMeta accompanies the history endpoint.
type HistoryMeta struct {
	ServerID  int64     `json:"server_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Interval  *string   `json:"interval"`
	Count     int       `json:"count"`
}
