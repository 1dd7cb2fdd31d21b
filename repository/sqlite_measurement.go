package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
)

type sqliteMeasurementRepo struct {
	db database.TxQuerier
}

func NewSQLiteMeasurementRepo(db database.TxQuerier) MeasurementRepository {
	return &sqliteMeasurementRepo{db: db}
}

const measurementColumns = `id, server_id, timestamp, is_online, player_count, motd, version,
	latency_ms, players_sample, favicon_hash, protocol_version, description, tags,
	whitelist_status, modded_status, forge_data, server_software`

func measurementDest(m *models.Measurement) []any {
	return []any{
		&m.ID, &m.ServerID, scanTime(&m.Timestamp), &m.IsOnline, &m.PlayerCount, &m.MOTD, &m.Version,
		&m.LatencyMs, &m.PlayersSample, &m.FaviconHash, &m.ProtocolVersion, &m.Description, &m.Tags,
		&m.WhitelistStatus, &m.ModdedStatus, &m.ForgeData, &m.ServerSoftware,
	}
}

func (r *sqliteMeasurementRepo) Create(ctx context.Context, m *models.Measurement) error {
	query := `
		INSERT INTO server_measurements (server_id, timestamp, is_online, player_count, motd, version,
			latency_ms, players_sample, favicon_hash, protocol_version, description, tags,
			whitelist_status, modded_status, forge_data, server_software)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		m.ServerID, dbTime(m.Timestamp), m.IsOnline, m.PlayerCount, m.MOTD, m.Version,
		m.LatencyMs, m.PlayersSample, m.FaviconHash, m.ProtocolVersion, m.Description, m.Tags,
		m.WhitelistStatus, m.ModdedStatus, m.ForgeData, m.ServerSoftware,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create measurement: %w", err)
	}

	m.Timestamp = m.Timestamp.UTC().Truncate(time.Second)
	return nil
}

func (r *sqliteMeasurementRepo) GetLatest(ctx context.Context, serverID int64) (*models.Measurement, error) {
	query := `SELECT ` + measurementColumns + ` FROM server_measurements
		WHERE server_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`

	m := &models.Measurement{}
	err := r.db.QueryRowContext(ctx, query, serverID).Scan(measurementDest(m)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no measurements for server", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest measurement: %w", err)
	}
	return m, nil
}

func (r *sqliteMeasurementRepo) ListRange(ctx context.Context, serverID int64, start, end time.Time) ([]models.Measurement, error) {
	query := `SELECT ` + measurementColumns + ` FROM server_measurements
		WHERE server_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, serverID, dbTime(start), dbTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	defer rows.Close()

	out := []models.Measurement{}
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(measurementDest(&m)...); err != nil {
			return nil, fmt.Errorf("failed to scan measurement row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating measurement rows: %w", err)
	}
	return out, nil
}

func (r *sqliteMeasurementRepo) ListBuckets(ctx context.Context, serverID int64, start, end time.Time, bucket time.Duration) ([]models.MeasurementBucket, error) {
	width := int64(bucket / time.Second)
	if width <= 0 {
		return nil, fmt.Errorf("%w: bucket width must be positive", pkg.ErrBadRequest)
	}

	query := `
		SELECT
			datetime((CAST(strftime('%s', timestamp) AS INTEGER) / ?) * ?, 'unixepoch') AS time_bucket,
			AVG(CASE WHEN is_online = 1 THEN player_count END),
			MAX(CASE WHEN is_online = 1 THEN player_count END),
			MIN(CASE WHEN is_online = 1 THEN player_count END),
			100.0 * SUM(CASE WHEN is_online = 1 THEN 1 ELSE 0 END) / COUNT(*),
			AVG(latency_ms),
			COUNT(*)
		FROM server_measurements
		WHERE server_id = ? AND timestamp >= ? AND timestamp < ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC`

	rows, err := r.db.QueryContext(ctx, query, width, width, serverID, dbTime(start), dbTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate measurements: %w", err)
	}
	defer rows.Close()

	out := []models.MeasurementBucket{}
	for rows.Next() {
		var (
			b          models.MeasurementBucket
			maxPlayers sql.NullInt64
			minPlayers sql.NullInt64
		)
		if err := rows.Scan(scanTime(&b.TimeBucket), &b.AvgPlayers, &maxPlayers, &minPlayers,
			&b.UptimePercentage, &b.AvgLatency, &b.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan measurement bucket: %w", err)
		}
		if maxPlayers.Valid {
			v := int(maxPlayers.Int64)
			b.MaxPlayers = &v
		}
		if minPlayers.Valid {
			v := int(minPlayers.Int64)
			b.MinPlayers = &v
		}
		b.UptimePercentage = round2(b.UptimePercentage)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating measurement buckets: %w", err)
	}
	return out, nil
}

func (r *sqliteMeasurementRepo) HourlyPlayerCounts(ctx context.Context, serverID int64, since time.Time) ([]models.HourlyPlayerCount, error) {
	query := `
		SELECT strftime('%Y-%m-%d %H:00:00', timestamp) AS hour,
			AVG(player_count), MAX(player_count)
		FROM server_measurements
		WHERE server_id = ? AND timestamp >= ? AND is_online = 1
		GROUP BY hour
		ORDER BY hour ASC`

	rows, err := r.db.QueryContext(ctx, query, serverID, dbTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly player counts: %w", err)
	}
	defer rows.Close()

	out := []models.HourlyPlayerCount{}
	for rows.Next() {
		var h models.HourlyPlayerCount
		if err := rows.Scan(scanTime(&h.Hour), &h.AvgPlayers, &h.MaxPlayers); err != nil {
			return nil, fmt.Errorf("failed to scan hourly player count: %w", err)
		}
		h.AvgPlayers = round2(h.AvgPlayers)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hourly player counts: %w", err)
	}
	return out, nil
}

func (r *sqliteMeasurementRepo) UptimePercentage(ctx context.Context, serverID int64, since time.Time) (float64, error) {
	var total, online int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_online = 1 THEN 1 ELSE 0 END), 0)
		FROM server_measurements
		WHERE server_id = ? AND timestamp >= ?`,
		serverID, dbTime(since),
	).Scan(&total, &online)
	if err != nil {
		return 0, fmt.Errorf("failed to compute uptime: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return round2(float64(online) / float64(total) * 100), nil
}

func (r *sqliteMeasurementRepo) PeakHour(ctx context.Context, serverID int64, since time.Time) (*models.PeakHour, error) {
	var (
		hour int
		avg  float64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT CAST(strftime('%H', timestamp) AS INTEGER) AS hour, AVG(player_count) AS avg_players
		FROM server_measurements
		WHERE server_id = ? AND timestamp >= ? AND is_online = 1
		GROUP BY hour
		ORDER BY avg_players DESC, hour ASC
		LIMIT 1`,
		serverID, dbTime(since),
	).Scan(&hour, &avg)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.PeakHour{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get peak hour: %w", err)
	}
	return &models.PeakHour{Hour: &hour, AvgPlayers: round2(avg)}, nil
}

func (r *sqliteMeasurementRepo) TotalOnlinePlayers(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(player_count), 0) FROM (
			SELECT player_count,
				ROW_NUMBER() OVER (PARTITION BY server_id ORDER BY timestamp DESC, id DESC) AS rn
			FROM server_measurements
			WHERE is_online = 1
		) WHERE rn = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum online players: %w", err)
	}
	return total, nil
}

func (r *sqliteMeasurementRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM server_measurements WHERE timestamp < ?`, dbTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge measurements: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
