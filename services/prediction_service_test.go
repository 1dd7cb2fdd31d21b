package services_test

import (
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func predict(t *testing.T, env *testEnv, serverID int64, typ models.PredictionType, at time.Time, value float64) {
	t.Helper()
	_, err := env.predictions.Create(t.Context(), &models.CreatePredictionRequest{
		ServerID:            serverID,
		PredictionType:      string(typ),
		PredictionTimestamp: &at,
		PredictionValue:     &value,
		Insight:             "Expect " + string(typ) + " to change",
	})
	require.NoError(t, err)
}

func TestPredictionReads(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Forecast", true)

	// Empty forecasts are not errors.
	peak, err := env.predictions.GetPeak(t.Context(), server.ID)
	require.NoError(t, err)
	assert.Nil(t, peak)

	now := time.Now().UTC().Truncate(time.Second)
	predict(t, env, server.ID, models.PredictionPlayerCount, now.Add(time.Hour), 50)
	predict(t, env, server.ID, models.PredictionPlayerCount, now.Add(2*time.Hour), 80)
	predict(t, env, server.ID, models.PredictionPlayerCount, now.Add(30*time.Hour), 200)
	predict(t, env, server.ID, models.PredictionDowntime, now.Add(3*time.Hour), 0.9)

	t.Run("next 24 hours", func(t *testing.T) {
		points, err := env.predictions.GetNext24Hours(t.Context(), server.ID)
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, 50.0, points[0].PlayerCount)
		assert.Equal(t, 80.0, points[1].PlayerCount)
	})

	t.Run("peak ignores the far future", func(t *testing.T) {
		peak, err := env.predictions.GetPeak(t.Context(), server.ID)
		require.NoError(t, err)
		require.NotNil(t, peak)
		assert.Equal(t, 80.0, peak.PeakPlayers)
		assert.True(t, peak.Time.Equal(now.Add(2*time.Hour)))
	})

	t.Run("downtime", func(t *testing.T) {
		preds, err := env.predictions.GetDowntime(t.Context(), server.ID)
		require.NoError(t, err)
		require.Len(t, preds, 1)
		assert.Equal(t, models.PredictionDowntime, preds[0].PredictionType)
	})

	t.Run("latest upcoming by type", func(t *testing.T) {
		preds, err := env.predictions.GetLatest(t.Context(), server.ID, models.PredictionPlayerCount, 2)
		require.NoError(t, err)
		require.Len(t, preds, 2)
		for _, p := range preds {
			assert.Equal(t, models.PredictionPlayerCount, p.PredictionType)
		}
	})

	t.Run("range", func(t *testing.T) {
		preds, err := env.predictions.GetRange(t.Context(), server.ID, models.PredictionPlayerCount,
			now.Add(24*time.Hour), now.Add(48*time.Hour))
		require.NoError(t, err)
		require.Len(t, preds, 1)
		assert.Equal(t, 200.0, preds[0].PredictionValue)

		_, err = env.predictions.GetRange(t.Context(), server.ID, models.PredictionPlayerCount,
			now, now.Add(40*24*time.Hour))
		require.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("insights", func(t *testing.T) {
		preds, err := env.predictions.GetInsights(t.Context(), server.ID, 0)
		require.NoError(t, err)
		assert.Len(t, preds, 4)

		_, err = env.predictions.GetInsights(t.Context(), server.ID, 500)
		require.ErrorIs(t, err, pkg.ErrBadRequest)
	})
}

func TestPredictionCreateValidation(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Validate", true)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	value := 1.0

	tests := []struct {
		name string
		req  models.CreatePredictionRequest
		want error
	}{
		{
			name: "unknown type",
			req: models.CreatePredictionRequest{
				ServerID: server.ID, PredictionType: "weather", PredictionTimestamp: &future,
				PredictionValue: &value, Insight: "sunny",
			},
			want: pkg.ErrBadRequest,
		},
		{
			name: "past timestamp",
			req: models.CreatePredictionRequest{
				ServerID: server.ID, PredictionType: "latency", PredictionTimestamp: &past,
				PredictionValue: &value, Insight: "fast",
			},
			want: pkg.ErrBadRequest,
		},
		{
			name: "blank insight",
			req: models.CreatePredictionRequest{
				ServerID: server.ID, PredictionType: "growth", PredictionTimestamp: &future,
				PredictionValue: &value, Insight: "   ",
			},
			want: pkg.ErrBadRequest,
		},
		{
			name: "unknown server",
			req: models.CreatePredictionRequest{
				ServerID: server.ID + 1000, PredictionType: "growth", PredictionTimestamp: &future,
				PredictionValue: &value, Insight: "up",
			},
			want: pkg.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.predictions.Create(t.Context(), &tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
