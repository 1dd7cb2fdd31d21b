package repository

import (
	"context"
	"time"

	"github.com/brekfst/mcdirectory/models"
)

type PredictionRepository interface {
	Create(ctx context.Context, p *models.Prediction) error
	// ListUpcoming returns predictions of one type timestamped after now,
	// soonest first.
	ListUpcoming(ctx context.Context, serverID int64, predictionType models.PredictionType, now time.Time, limit int) ([]models.Prediction, error)
	// ListRange returns predictions of one type in [start, end], soonest first.
	ListRange(ctx context.Context, serverID int64, predictionType models.PredictionType, start, end time.Time) ([]models.Prediction, error)
	// Peak returns the highest player_count prediction in [start, end], or
	// nil when there is none.
	Peak(ctx context.Context, serverID int64, start, end time.Time) (*models.PredictedPeak, error)
	// ListRecent returns the most recently created predictions of any type.
	ListRecent(ctx context.Context, serverID int64, limit int) ([]models.Prediction, error)
	// DeleteOlderThan purges predictions whose forecast time is before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
