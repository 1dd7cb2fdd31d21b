package services

import (
	"context"
	"fmt"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/repository"
)

const (
	predictionHorizon       = 24 * time.Hour
	DefaultPredictionLimit  = 5
	MaxPredictionLimit      = 20
	maxPredictionRangeWidth = 31 * 24 * time.Hour
)

// PredictionService stores forecasts posted by the generator and serves
// them to the details page.
type PredictionService interface {
	Create(ctx context.Context, req *models.CreatePredictionRequest) (*models.Prediction, error)
	GetLatest(ctx context.Context, serverID int64, predictionType models.PredictionType, limit int) ([]models.Prediction, error)
	GetRange(ctx context.Context, serverID int64, predictionType models.PredictionType, start, end time.Time) ([]models.Prediction, error)
	GetNext24Hours(ctx context.Context, serverID int64) ([]models.PredictedPoint, error)
	// GetPeak returns nil when nothing is predicted for the next 24 hours.
	GetPeak(ctx context.Context, serverID int64) (*models.PredictedPeak, error)
	GetDowntime(ctx context.Context, serverID int64) ([]models.Prediction, error)
	GetInsights(ctx context.Context, serverID int64, limit int) ([]models.Prediction, error)
	Purge(ctx context.Context, days int) (int64, error)
}

type predictionService struct {
	predictionRepo repository.PredictionRepository
	serverRepo     repository.ServerRepository
	cache          *cache.Cache
	policy         cachePolicy
	now            func() time.Time
}

func NewPredictionService(
	predictionRepo repository.PredictionRepository,
	serverRepo repository.ServerRepository,
	c *cache.Cache,
) PredictionService {
	return &predictionService{
		predictionRepo: predictionRepo,
		serverRepo:     serverRepo,
		cache:          c,
		policy:         cachePolicy{cache: c},
		now:            time.Now,
	}
}

func (s *predictionService) Create(ctx context.Context, req *models.CreatePredictionRequest) (*models.Prediction, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}

	if _, err := s.serverRepo.GetByID(ctx, req.ServerID); err != nil {
		return nil, err
	}

	p := req.ToPrediction()
	if err := s.predictionRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.policy.predictionWritten(ctx, p.ServerID)
	return p, nil
}

func clampLimit(limit, def, max int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 1 || limit > max {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", pkg.ErrBadRequest, max)
	}
	return limit, nil
}

func (s *predictionService) GetLatest(ctx context.Context, serverID int64, predictionType models.PredictionType, limit int) ([]models.Prediction, error) {
	limit, err := clampLimit(limit, DefaultPredictionLimit, MaxPredictionLimit)
	if err != nil {
		return nil, err
	}

	key := keyPredLatest(serverID, predictionKeyParams{Type: predictionType, Limit: limit})
	return cache.Remember(ctx, s.cache, key, ttlPredLatest,
		func(ctx context.Context) ([]models.Prediction, error) {
			return s.predictionRepo.ListUpcoming(ctx, serverID, predictionType, s.now(), limit)
		})
}

func (s *predictionService) GetRange(ctx context.Context, serverID int64, predictionType models.PredictionType, start, end time.Time) ([]models.Prediction, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end time must be after start time", pkg.ErrBadRequest)
	}
	if end.Sub(start) > maxPredictionRangeWidth {
		return nil, fmt.Errorf("%w: range must not exceed 31 days", pkg.ErrBadRequest)
	}

	key := keyPredRange(serverID, predictionKeyParams{Type: predictionType, Start: &start, End: &end})
	return cache.Remember(ctx, s.cache, key, ttlPredRange,
		func(ctx context.Context) ([]models.Prediction, error) {
			return s.predictionRepo.ListRange(ctx, serverID, predictionType, start, end)
		})
}

func (s *predictionService) GetNext24Hours(ctx context.Context, serverID int64) ([]models.PredictedPoint, error) {
	return cache.Remember(ctx, s.cache, keyPredNext24(serverID), ttlPredNext24,
		func(ctx context.Context) ([]models.PredictedPoint, error) {
			now := s.now()
			rows, err := s.predictionRepo.ListRange(ctx, serverID, models.PredictionPlayerCount, now, now.Add(predictionHorizon))
			if err != nil {
				return nil, err
			}
			points := make([]models.PredictedPoint, len(rows))
			for i, p := range rows {
				points[i] = models.PredictedPoint{Time: p.PredictionTimestamp, PlayerCount: p.PredictionValue}
			}
			return points, nil
		})
}

func (s *predictionService) GetPeak(ctx context.Context, serverID int64) (*models.PredictedPeak, error) {
	return cache.Remember(ctx, s.cache, keyPredPeak(serverID), ttlPredPeak,
		func(ctx context.Context) (*models.PredictedPeak, error) {
			now := s.now()
			return s.predictionRepo.Peak(ctx, serverID, now, now.Add(predictionHorizon))
		})
}

func (s *predictionService) GetDowntime(ctx context.Context, serverID int64) ([]models.Prediction, error) {
	return cache.Remember(ctx, s.cache, keyPredDowntime(serverID), ttlPredDowntime,
		func(ctx context.Context) ([]models.Prediction, error) {
			now := s.now()
			return s.predictionRepo.ListRange(ctx, serverID, models.PredictionDowntime, now, now.Add(predictionHorizon))
		})
}

func (s *predictionService) GetInsights(ctx context.Context, serverID int64, limit int) ([]models.Prediction, error) {
	limit, err := clampLimit(limit, DefaultPredictionLimit, MaxPredictionLimit)
	if err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, keyPredInsights(serverID, limit), ttlPredInsights,
		func(ctx context.Context) ([]models.Prediction, error) {
			return s.predictionRepo.ListRecent(ctx, serverID, limit)
		})
}

func (s *predictionService) Purge(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("%w: retention must be at least one day", pkg.ErrBadRequest)
	}
	n, err := s.predictionRepo.DeleteOlderThan(ctx, s.now().Add(-time.Duration(days)*24*time.Hour))
	if err != nil {
		return 0, err
	}
	s.policy.purged(ctx)
	return n, nil
}
