package services_test

import (
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementAggregates(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Aggregates", true)
	t0 := time.Now().UTC().Truncate(time.Hour).Add(-3*time.Hour + 5*time.Minute)

	measure(t, env, server.ID, t0, true, 10)
	measure(t, env, server.ID, t0.Add(time.Hour), true, 14)
	measure(t, env, server.ID, t0.Add(2*time.Hour), false, 0)

	t.Run("uptime counts every sample", func(t *testing.T) {
		uptime, err := env.measurements.GetUptimePercentage(t.Context(), server.ID, 1)
		require.NoError(t, err)
		assert.InDelta(t, 66.67, uptime, 0.001)
	})

	t.Run("hourly counts skip offline hours", func(t *testing.T) {
		hourly, err := env.measurements.GetLast24HoursPlayerCounts(t.Context(), server.ID)
		require.NoError(t, err)
		require.Len(t, hourly, 2)
		assert.InDelta(t, 10, hourly[0].AvgPlayers, 0.001)
		assert.InDelta(t, 14, hourly[1].AvgPlayers, 0.001)
		assert.Equal(t, 14, hourly[1].MaxPlayers)
	})

	t.Run("buckets", func(t *testing.T) {
		buckets, err := env.measurements.GetBuckets(t.Context(), server.ID, &models.RangeQuery{
			Start:    t0.Add(-time.Minute),
			End:      t0.Add(3 * time.Hour),
			Interval: "1 hour",
		})
		require.NoError(t, err)
		require.Len(t, buckets, 3)

		assert.Equal(t, 100.0, buckets[0].UptimePercentage)
		require.NotNil(t, buckets[0].MaxPlayers)
		assert.Equal(t, 10, *buckets[0].MaxPlayers)

		last := buckets[2]
		assert.Equal(t, 0.0, last.UptimePercentage)
		assert.Nil(t, last.AvgPlayers)
		assert.Equal(t, 1, last.Samples)
	})

	t.Run("raw range is ordered", func(t *testing.T) {
		rows, err := env.measurements.GetRange(t.Context(), server.ID, &models.RangeQuery{
			Start: t0.Add(-time.Minute),
			End:   t0.Add(3 * time.Hour),
		})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.True(t, rows[0].Timestamp.Before(rows[1].Timestamp))
		assert.False(t, rows[2].IsOnline)
	})

	t.Run("peak hour", func(t *testing.T) {
		peak, err := env.measurements.GetPeakHour(t.Context(), server.ID)
		require.NoError(t, err)
		require.NotNil(t, peak.Hour)
		assert.Equal(t, t0.Add(time.Hour).Hour(), *peak.Hour)
		assert.InDelta(t, 14, peak.AvgPlayers, 0.001)
	})
}

func TestMeasurementLatest(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Latest", true)

	_, err := env.measurements.GetLatest(t.Context(), server.ID)
	require.ErrorIs(t, err, pkg.ErrNotFound)

	now := time.Now().UTC()
	measure(t, env, server.ID, now.Add(-2*time.Minute), true, 3)

	latest, err := env.measurements.GetLatest(t.Context(), server.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.PlayerCount)

	// A new sample must replace the cached value.
	measure(t, env, server.ID, now.Add(-time.Minute), true, 8)

	latest, err = env.measurements.GetLatest(t.Context(), server.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, latest.PlayerCount)
}

func TestMeasurementTotalOnlinePlayers(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	a := env.createServer(t, "Alpha", true)
	b := env.createServer(t, "Beta", true)
	now := time.Now().UTC()

	measure(t, env, a.ID, now.Add(-3*time.Minute), true, 50)
	measure(t, env, a.ID, now.Add(-2*time.Minute), true, 20)
	measure(t, env, b.ID, now.Add(-2*time.Minute), true, 7)
	measure(t, env, b.ID, now.Add(-time.Minute), false, 0)

	total, err := env.measurements.GetTotalOnlinePlayers(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 27, total)
}

func TestMeasurementCreateValidation(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Validation", true)
	online, motd, version := true, "motd", "1.21"
	future := time.Now().Add(10 * time.Minute)

	tests := []struct {
		name string
		req  *models.CreateMeasurementRequest
		want error
	}{
		{
			name: "missing fields",
			req:  &models.CreateMeasurementRequest{ServerID: server.ID},
			want: pkg.ErrBadRequest,
		},
		{
			name: "future timestamp",
			req: &models.CreateMeasurementRequest{
				ServerID: server.ID, Timestamp: &future, IsOnline: &online, MOTD: &motd, Version: &version,
			},
			want: pkg.ErrBadRequest,
		},
		{
			name: "unknown server",
			req: &models.CreateMeasurementRequest{
				ServerID: server.ID + 1000, IsOnline: &online, MOTD: &motd, Version: &version,
			},
			want: pkg.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.measurements.Create(t.Context(), tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMeasurementRangeValidation(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Ranges", true)
	now := time.Now().UTC()

	_, err := env.measurements.GetBuckets(t.Context(), server.ID, &models.RangeQuery{
		Start: now.Add(-time.Hour), End: now, Interval: "2 hours",
	})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = env.measurements.GetRange(t.Context(), server.ID, &models.RangeQuery{
		Start: now, End: now.Add(-time.Hour),
	})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = env.measurements.GetRange(t.Context(), server.ID+1000, &models.RangeQuery{
		Start: now.Add(-time.Hour), End: now,
	})
	require.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = env.measurements.GetUptimePercentage(t.Context(), server.ID, 0)
	require.ErrorIs(t, err, pkg.ErrBadRequest)
}
