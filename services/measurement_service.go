package services

import (
	"context"
	"fmt"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/repository"
	"go.uber.org/zap"
)

const (
	peakHourWindow = 7 * 24 * time.Hour
	maxUptimeDays  = 365
)

// MeasurementService ingests probe results and serves the time-series reads.
type MeasurementService interface {
	Create(ctx context.Context, req *models.CreateMeasurementRequest) (*models.Measurement, error)
	GetLatest(ctx context.Context, serverID int64) (*models.Measurement, error)
	// GetRange returns raw rows in [q.Start, q.End); GetBuckets aggregates
	// the same window into q.Interval wide buckets.
	GetRange(ctx context.Context, serverID int64, q *models.RangeQuery) ([]models.Measurement, error)
	GetBuckets(ctx context.Context, serverID int64, q *models.RangeQuery) ([]models.MeasurementBucket, error)
	GetLast24HoursPlayerCounts(ctx context.Context, serverID int64) ([]models.HourlyPlayerCount, error)
	GetUptimePercentage(ctx context.Context, serverID int64, days int) (float64, error)
	GetPeakHour(ctx context.Context, serverID int64) (*models.PeakHour, error)
	GetTotalOnlinePlayers(ctx context.Context) (int, error)
	// Purge deletes measurements older than days and drops derived caches.
	Purge(ctx context.Context, days int) (int64, error)
}

type measurementService struct {
	measurementRepo repository.MeasurementRepository
	serverRepo      repository.ServerRepository
	cache           *cache.Cache
	policy          cachePolicy
	logger          *zap.Logger
	now             func() time.Time
}

func NewMeasurementService(
	measurementRepo repository.MeasurementRepository,
	serverRepo repository.ServerRepository,
	c *cache.Cache,
	logger *zap.Logger,
) MeasurementService {
	return &measurementService{
		measurementRepo: measurementRepo,
		serverRepo:      serverRepo,
		cache:           c,
		policy:          cachePolicy{cache: c},
		logger:          logger,
		now:             time.Now,
	}
}

func (s *measurementService) Create(ctx context.Context, req *models.CreateMeasurementRequest) (*models.Measurement, error) {
	now := s.now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	if _, err := s.serverRepo.GetByID(ctx, req.ServerID); err != nil {
		return nil, err
	}

	m := req.ToMeasurement(now)
	if err := s.measurementRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	if err := s.serverRepo.TouchLastSeen(ctx, m.ServerID, m.Timestamp); err != nil {
		// The row is stored; a failed touch only leaves last_seen stale.
		s.logger.Warn("failed to touch last_seen", zap.Int64("server_id", m.ServerID), zap.Error(err))
	}

	s.policy.measurementWritten(ctx, m.ServerID)
	return m, nil
}

// requireServer turns an unknown server id into ErrNotFound for reads whose
// empty result would otherwise be ambiguous.
func (s *measurementService) requireServer(ctx context.Context, serverID int64) error {
	_, err := s.serverRepo.GetByID(ctx, serverID)
	return err
}

func (s *measurementService) GetLatest(ctx context.Context, serverID int64) (*models.Measurement, error) {
	return cache.Remember(ctx, s.cache, keyLatestMeasurement(serverID), ttlLatest,
		func(ctx context.Context) (*models.Measurement, error) {
			if err := s.requireServer(ctx, serverID); err != nil {
				return nil, err
			}
			return s.measurementRepo.GetLatest(ctx, serverID)
		})
}

func validateRange(q *models.RangeQuery) error {
	if !q.End.After(q.Start) {
		return fmt.Errorf("%w: end time must be after start time", pkg.ErrBadRequest)
	}
	return nil
}

func (s *measurementService) GetRange(ctx context.Context, serverID int64, q *models.RangeQuery) ([]models.Measurement, error) {
	if err := validateRange(q); err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, keyMeasurementRange(serverID, q), ttlRange,
		func(ctx context.Context) ([]models.Measurement, error) {
			if err := s.requireServer(ctx, serverID); err != nil {
				return nil, err
			}
			return s.measurementRepo.ListRange(ctx, serverID, q.Start, q.End)
		})
}

func (s *measurementService) GetBuckets(ctx context.Context, serverID int64, q *models.RangeQuery) ([]models.MeasurementBucket, error) {
	if err := validateRange(q); err != nil {
		return nil, err
	}
	bucket, ok := models.ParseInterval(q.Interval)
	if !ok {
		return nil, fmt.Errorf("%w: invalid interval", pkg.ErrBadRequest)
	}
	q.Bucket = bucket

	return cache.Remember(ctx, s.cache, keyMeasurementRange(serverID, q), ttlRange,
		func(ctx context.Context) ([]models.MeasurementBucket, error) {
			if err := s.requireServer(ctx, serverID); err != nil {
				return nil, err
			}
			return s.measurementRepo.ListBuckets(ctx, serverID, q.Start, q.End, bucket)
		})
}

func (s *measurementService) GetLast24HoursPlayerCounts(ctx context.Context, serverID int64) ([]models.HourlyPlayerCount, error) {
	return cache.Remember(ctx, s.cache, keyHourly(serverID), ttlHourly,
		func(ctx context.Context) ([]models.HourlyPlayerCount, error) {
			return s.measurementRepo.HourlyPlayerCounts(ctx, serverID, s.now().Add(-24*time.Hour))
		})
}

func (s *measurementService) GetUptimePercentage(ctx context.Context, serverID int64, days int) (float64, error) {
	if days < 1 || days > maxUptimeDays {
		return 0, fmt.Errorf("%w: days must be between 1 and %d", pkg.ErrBadRequest, maxUptimeDays)
	}
	return cache.Remember(ctx, s.cache, keyUptime(serverID, days), ttlUptime,
		func(ctx context.Context) (float64, error) {
			since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
			return s.measurementRepo.UptimePercentage(ctx, serverID, since)
		})
}

func (s *measurementService) GetPeakHour(ctx context.Context, serverID int64) (*models.PeakHour, error) {
	return cache.Remember(ctx, s.cache, keyPeakHour(serverID), ttlPeakHour,
		func(ctx context.Context) (*models.PeakHour, error) {
			return s.measurementRepo.PeakHour(ctx, serverID, s.now().Add(-peakHourWindow))
		})
}

func (s *measurementService) GetTotalOnlinePlayers(ctx context.Context) (int, error) {
	return cache.Remember(ctx, s.cache, keyTotalOnline(), ttlTotalOnline,
		func(ctx context.Context) (int, error) {
			return s.measurementRepo.TotalOnlinePlayers(ctx)
		})
}

func (s *measurementService) Purge(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("%w: retention must be at least one day", pkg.ErrBadRequest)
	}
	n, err := s.measurementRepo.DeleteOlderThan(ctx, s.now().Add(-time.Duration(days)*24*time.Hour))
	if err != nil {
		return 0, err
	}
	s.policy.purged(ctx)
	return n, nil
}
