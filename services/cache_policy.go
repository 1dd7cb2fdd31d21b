package services

import (
	"context"
	"strconv"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg/cache"
)

// Every cached read and every invalidation rule lives in this file. Keys are
// "<namespace>:<scope>:<op>:<hash>". Entries that belong to one server use
// the server id as scope, so a write drops exactly that server's entries with
// one prefix delete.

const (
	nsServers      = "servers"
	nsMeasurements = "measurements"
	nsPredictions  = "predictions"
)

// TTLs follow data volatility.
const (
	ttlServerList   = 5 * time.Minute
	ttlServerDetail = 5 * time.Minute
	ttlFeatured     = 15 * time.Minute
	ttlTop          = 5 * time.Minute
	ttlRising       = 15 * time.Minute
	ttlActiveCount  = 30 * time.Minute
	ttlGlobalStats  = 5 * time.Minute
	ttlLatest       = time.Minute
	ttlRange        = 5 * time.Minute
	ttlHourly       = 15 * time.Minute
	ttlUptime       = 15 * time.Minute
	ttlTotalOnline  = time.Minute
	ttlPeakHour     = 24 * time.Hour
	ttlPredLatest   = 5 * time.Minute
	ttlPredRange    = 15 * time.Minute
	ttlPredNext24   = 15 * time.Minute
	ttlPredPeak     = 30 * time.Minute
	ttlPredDowntime = 30 * time.Minute
	ttlPredInsights = 15 * time.Minute
)

func scope(ns string, serverID int64) string {
	return ns + ":" + strconv.FormatInt(serverID, 10)
}

// Server listings. The list is split by whether it sorts on live player
// counts, so probe writes only drop the list pages that depend on them.
func keyServerList(q *models.ServerListQuery) string {
	if q.Sort == models.SortPlayerCount {
		return cache.Key(nsServers+":list:players", q)
	}
	return cache.Key(nsServers+":list:meta", q)
}

func keyServerRecord(id int64) string { return cache.Key(scope(nsServers, id)+":record", nil) }
func keyServerDetails(id int64) string { return cache.Key(scope(nsServers, id)+":details", nil) }
func keyFeatured(limit int) string { return cache.Key(nsServers+":featured", limit) }
func keyTop(limit int) string { return cache.Key(nsServers+":top", limit) }
func keyRising(limit int) string { return cache.Key(nsServers+":rising", limit) }
func keyActiveCount() string { return cache.Key(nsServers+":count:active", nil) }
func keyGlobalStats() string { return cache.Key(nsServers+":stats", nil) }

// Measurements.
func keyLatestMeasurement(id int64) string { return cache.Key(scope(nsMeasurements, id)+":latest", nil) }
func keyMeasurementRange(id int64, q *models.RangeQuery) string {
	return cache.Key(scope(nsMeasurements, id)+":range", q)
}
func keyHourly(id int64) string { return cache.Key(scope(nsMeasurements, id)+":hourly", nil) }
func keyUptime(id int64, days int) string { return cache.Key(scope(nsMeasurements, id)+":uptime", days) }
func keyPeakHour(id int64) string { return cache.Key(scope(nsMeasurements, id)+":peak", nil) }
func keyTotalOnline() string { return cache.Key(nsMeasurements+":global:total", nil) }

// Predictions.
type predictionKeyParams struct {
	Type  models.PredictionType `json:"type"`
	Limit int                   `json:"limit,omitempty"`
	Start *time.Time            `json:"start,omitempty"`
	End   *time.Time            `json:"end,omitempty"`
}

func keyPredLatest(id int64, p predictionKeyParams) string {
	return cache.Key(scope(nsPredictions, id)+":latest", p)
}
func keyPredRange(id int64, p predictionKeyParams) string {
	return cache.Key(scope(nsPredictions, id)+":range", p)
}
func keyPredNext24(id int64) string { return cache.Key(scope(nsPredictions, id)+":next24", nil) }
func keyPredPeak(id int64) string { return cache.Key(scope(nsPredictions, id)+":peak", nil) }
func keyPredDowntime(id int64) string { return cache.Key(scope(nsPredictions, id)+":downtime", nil) }
func keyPredInsights(id int64, limit int) string {
	return cache.Key(scope(nsPredictions, id)+":insights", limit)
}

// cachePolicy maps domain writes to the entries they make stale.
type cachePolicy struct {
	cache *cache.Cache
}

// serverChanged covers create, edit, approve, reject and delete.
func (p cachePolicy) serverChanged(ctx context.Context, serverID int64) {
	prefixes := []string{
		nsServers + ":list",
		nsServers + ":featured",
		nsServers + ":top",
		nsServers + ":rising",
		nsServers + ":count",
		nsServers + ":stats",
	}
	if serverID > 0 {
		prefixes = append(prefixes, scope(nsServers, serverID))
	}
	p.cache.InvalidatePrefix(ctx, prefixes...)
}

// ownerChanged flips has_owner on the record and on listings.
func (p cachePolicy) ownerChanged(ctx context.Context, serverID int64) {
	p.cache.InvalidatePrefix(ctx, scope(nsServers, serverID), nsServers+":list")
}

func (p cachePolicy) measurementWritten(ctx context.Context, serverID int64) {
	p.cache.InvalidatePrefix(ctx,
		scope(nsMeasurements, serverID),
		scope(nsServers, serverID),
		nsMeasurements+":global",
		nsServers+":list:players",
		nsServers+":featured",
		nsServers+":top",
		nsServers+":rising",
		nsServers+":stats",
	)
}

func (p cachePolicy) predictionWritten(ctx context.Context, serverID int64) {
	p.cache.InvalidatePrefix(ctx, scope(nsPredictions, serverID), scope(nsServers, serverID))
}

func (p cachePolicy) featuredChanged(ctx context.Context) {
	p.cache.InvalidatePrefix(ctx, nsServers+":featured")
}

// purged drops every derived read after a retention pass.
func (p cachePolicy) purged(ctx context.Context) {
	p.cache.InvalidatePrefix(ctx, nsMeasurements, nsPredictions, nsServers)
}
