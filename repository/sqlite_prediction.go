package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
)

type sqlitePredictionRepo struct {
	db database.TxQuerier
}

func NewSQLitePredictionRepo(db database.TxQuerier) PredictionRepository {
	return &sqlitePredictionRepo{db: db}
}

const predictionColumns = `id, server_id, prediction_type, prediction_timestamp, prediction_value, insight, created_at`

func (r *sqlitePredictionRepo) Create(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO ai_predictions (server_id, prediction_type, prediction_timestamp, prediction_value, insight)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ServerID, p.PredictionType, dbTime(p.PredictionTimestamp), p.PredictionValue, p.Insight,
	).Scan(&p.ID, scanTime(&p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	p.PredictionTimestamp = p.PredictionTimestamp.UTC().Truncate(time.Second)
	return nil
}

func (r *sqlitePredictionRepo) query(ctx context.Context, what, query string, args ...any) ([]models.Prediction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	out := []models.Prediction{}
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.ID, &p.ServerID, &p.PredictionType, scanTime(&p.PredictionTimestamp),
			&p.PredictionValue, &p.Insight, scanTime(&p.CreatedAt)); err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction rows: %w", err)
	}
	return out, nil
}

func (r *sqlitePredictionRepo) ListUpcoming(ctx context.Context, serverID int64, predictionType models.PredictionType, now time.Time, limit int) ([]models.Prediction, error) {
	return r.query(ctx, "upcoming predictions", `
		SELECT `+predictionColumns+` FROM ai_predictions
		WHERE server_id = ? AND prediction_type = ? AND prediction_timestamp > ?
		ORDER BY prediction_timestamp ASC, id ASC
		LIMIT ?`,
		serverID, predictionType, dbTime(now), limit)
}

func (r *sqlitePredictionRepo) ListRange(ctx context.Context, serverID int64, predictionType models.PredictionType, start, end time.Time) ([]models.Prediction, error) {
	return r.query(ctx, "predictions in range", `
		SELECT `+predictionColumns+` FROM ai_predictions
		WHERE server_id = ? AND prediction_type = ? AND prediction_timestamp BETWEEN ? AND ?
		ORDER BY prediction_timestamp ASC, id ASC`,
		serverID, predictionType, dbTime(start), dbTime(end))
}

func (r *sqlitePredictionRepo) Peak(ctx context.Context, serverID int64, start, end time.Time) (*models.PredictedPeak, error) {
	peak := &models.PredictedPeak{}
	err := r.db.QueryRowContext(ctx, `
		SELECT prediction_value, prediction_timestamp FROM ai_predictions
		WHERE server_id = ? AND prediction_type = ? AND prediction_timestamp BETWEEN ? AND ?
		ORDER BY prediction_value DESC, prediction_timestamp ASC
		LIMIT 1`,
		serverID, models.PredictionPlayerCount, dbTime(start), dbTime(end),
	).Scan(&peak.PeakPlayers, scanTime(&peak.Time))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get predicted peak: %w", err)
	}
	return peak, nil
}

func (r *sqlitePredictionRepo) ListRecent(ctx context.Context, serverID int64, limit int) ([]models.Prediction, error) {
	return r.query(ctx, "recent predictions", `
		SELECT `+predictionColumns+` FROM ai_predictions
		WHERE server_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		serverID, limit)
}

func (r *sqlitePredictionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM ai_predictions WHERE prediction_timestamp < ?`, dbTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge predictions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
