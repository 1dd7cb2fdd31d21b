package services_test

import (
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetentionRunOnce(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Retained", true)
	now := time.Now().UTC()

	measure(t, env, server.ID, now.AddDate(0, 0, -40), true, 1)
	measure(t, env, server.ID, now.AddDate(0, 0, -31), true, 2)
	measure(t, env, server.ID, now.Add(-time.Hour), true, 3)

	require.NoError(t, env.repos.prediction.Create(t.Context(), &models.Prediction{
		ServerID:            server.ID,
		PredictionType:      models.PredictionPlayerCount,
		PredictionTimestamp: now.AddDate(0, 0, -10),
		PredictionValue:     12,
		Insight:             "stale",
	}))
	predict(t, env, server.ID, models.PredictionPlayerCount, now.Add(time.Hour), 20)

	resp, err := env.auth.Register(t.Context(), &models.RegisterRequest{
		Username: "tokenholder", Email: "holder@example.com", Password: "password1",
	})
	require.NoError(t, err)
	require.NoError(t, env.repos.token.Create(t.Context(), &models.PasswordResetToken{
		UserID:    resp.User.ID,
		TokenHash: sha256Hex("old"),
		ExpiresAt: now.Add(-time.Hour),
	}))

	// Warm a cached read so the purge has to drop it.
	uptime, err := env.measurements.GetUptimePercentage(t.Context(), server.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 100.0, uptime)

	worker := services.NewRetentionWorker(env.measurements, env.predictions, env.repos.token,
		time.Hour, 30, 7, zap.NewNop())

	res := worker.RunOnce(t.Context())
	assert.Equal(t, services.RetentionResult{Measurements: 2, Predictions: 1, ResetTokens: 1}, res)

	rows, err := env.measurements.GetRange(t.Context(), server.ID, &models.RangeQuery{
		Start: now.AddDate(0, 0, -60),
		End:   now,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].PlayerCount)

	// A second pass finds nothing left to delete.
	assert.Equal(t, services.RetentionResult{}, worker.RunOnce(t.Context()))
}

func TestRetentionStartStop(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Background", true)
	measure(t, env, server.ID, time.Now().UTC().AddDate(0, 0, -45), false, 0)

	worker := services.NewRetentionWorker(env.measurements, env.predictions, env.repos.token,
		time.Hour, 30, 7, zap.NewNop())
	worker.Start()
	worker.Start()

	// Start runs a pass right away.
	require.Eventually(t, func() bool {
		_, err := env.measurements.GetLatest(t.Context(), server.ID)
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)

	worker.Stop()
	worker.Stop()
}
