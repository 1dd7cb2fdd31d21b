package repository

import (
	"context"
	"time"

	"github.com/brekfst/mcdirectory/models"
)

// MeasurementRepository reads and writes the append-only probe log.
//
// Player statistics (averages, minimum, maximum, peak hour, totals) only
// consider online samples. Uptime considers every sample.
type MeasurementRepository interface {
	Create(ctx context.Context, m *models.Measurement) error
	GetLatest(ctx context.Context, serverID int64) (*models.Measurement, error)
	// ListRange returns raw rows in [start, end) ordered by time.
	ListRange(ctx context.Context, serverID int64, start, end time.Time) ([]models.Measurement, error)
	// ListBuckets aggregates [start, end) into buckets of the given width,
	// aligned to the unix epoch.
	ListBuckets(ctx context.Context, serverID int64, start, end time.Time, bucket time.Duration) ([]models.MeasurementBucket, error)
	HourlyPlayerCounts(ctx context.Context, serverID int64, since time.Time) ([]models.HourlyPlayerCount, error)
	// UptimePercentage is online/all*100 over samples at or after since, 0
	// when there are none.
	UptimePercentage(ctx context.Context, serverID int64, since time.Time) (float64, error)
	PeakHour(ctx context.Context, serverID int64, since time.Time) (*models.PeakHour, error)
	// TotalOnlinePlayers sums the newest online sample of every server.
	TotalOnlinePlayers(ctx context.Context) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
