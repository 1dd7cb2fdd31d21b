package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
)

type sqliteServerRepo struct {
	db database.TxQuerier
}

func NewSQLiteServerRepo(db database.TxQuerier) ServerRepository {
	return &sqliteServerRepo{db: db}
}

const serverColumns = `s.id, s.name, s.ip, s.hostname, s.website_url, s.country, s.gamemode,
	s.max_players, s.is_active, s.first_seen, s.last_seen`

// latestMeasurementSQL keeps the newest measurement row of each server.
const latestMeasurementSQL = `
	SELECT * FROM (
		SELECT m.*, ROW_NUMBER() OVER (PARTITION BY m.server_id ORDER BY m.timestamp DESC, m.id DESC) AS rn
		FROM server_measurements m
	) WHERE rn = 1`

func serverDest(s *models.Server) []any {
	return []any{
		&s.ID, &s.Name, &s.IP, &s.Hostname, &s.WebsiteURL, &s.Country, &s.Gamemode,
		&s.MaxPlayers, &s.IsActive, scanTime(&s.FirstSeen), scanTime(&s.LastSeen),
	}
}

// listSortColumns maps whitelisted sort names to SQL. Never interpolate
// anything outside this map.
var listSortColumns = map[string]string{
	models.SortName:        "s.name COLLATE NOCASE",
	models.SortPlayerCount: "COALESCE(lm.player_count, 0)",
	models.SortCountry:     "s.country",
	models.SortFirstSeen:   "s.first_seen",
	models.SortLastSeen:    "s.last_seen",
}

func (r *sqliteServerRepo) List(ctx context.Context, q *models.ServerListQuery) ([]models.ServerWithOwner, int, error) {
	var (
		where []string
		args  []any
	)

	if q.ActiveOnly {
		where = append(where, "s.is_active = 1")
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		where = append(where, `(s.name LIKE ? ESCAPE '\' OR s.ip LIKE ? ESCAPE '\' OR s.hostname LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if len(q.Gamemodes) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(s.gamemode) g
			WHERE lower(g.value) IN (`+placeholders(len(q.Gamemodes))+`))`)
		for _, gm := range q.Gamemodes {
			args = append(args, strings.ToLower(gm))
		}
	}
	if q.Country != "" {
		where = append(where, "s.country = ?")
		args = append(args, q.Country)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM servers s `+whereSQL, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count servers: %w", err)
	}
	if total == 0 {
		return []models.ServerWithOwner{}, 0, nil
	}

	sortCol, ok := listSortColumns[q.Sort]
	if !ok {
		sortCol = listSortColumns[models.SortName]
	}
	order := "ASC"
	if q.Order == "DESC" {
		order = "DESC"
	}

	join := ""
	if q.Sort == models.SortPlayerCount {
		join = `LEFT JOIN (` + latestMeasurementSQL + `) lm ON lm.server_id = s.id`
	}

	query := `
		SELECT ` + serverColumns + `,
			EXISTS (SELECT 1 FROM server_owners so WHERE so.server_id = s.id) AS has_owner
		FROM servers s ` + join + `
		` + whereSQL + `
		ORDER BY ` + sortCol + ` ` + order + `, s.id ASC
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers := make([]models.ServerWithOwner, 0, q.Limit)
	for rows.Next() {
		var s models.ServerWithOwner
		if err := rows.Scan(append(serverDest(&s.Server), &s.HasOwner)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan server row: %w", err)
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating server rows: %w", err)
	}

	return servers, total, nil
}

func (r *sqliteServerRepo) GetByID(ctx context.Context, id int64) (*models.ServerWithOwner, error) {
	query := `
		SELECT ` + serverColumns + `,
			EXISTS (SELECT 1 FROM server_owners so WHERE so.server_id = s.id) AS has_owner
		FROM servers s WHERE s.id = ?`

	s := &models.ServerWithOwner{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(append(serverDest(&s.Server), &s.HasOwner)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: server not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server by id: %w", err)
	}
	return s, nil
}

func (r *sqliteServerRepo) GetByIdentifier(ctx context.Context, ip, hostname string) (*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers s
		WHERE s.ip IN (?, ?) OR s.hostname IN (?, ?)
		ORDER BY s.id LIMIT 1`

	s := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, ip, hostname, ip, hostname).Scan(serverDest(s)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: server not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server by identifier: %w", err)
	}
	return s, nil
}

func (r *sqliteServerRepo) Create(ctx context.Context, server *models.Server) error {
	now := dbTime(time.Now())
	query := `
		INSERT INTO servers (name, ip, hostname, website_url, country, gamemode, max_players, is_active, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, first_seen, last_seen`

	err := r.db.QueryRowContext(ctx, query,
		server.Name, server.IP, server.Hostname, server.WebsiteURL, server.Country,
		server.Gamemode, server.MaxPlayers, server.IsActive, now, now,
	).Scan(&server.ID, scanTime(&server.FirstSeen), scanTime(&server.LastSeen))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: server with this IP or hostname already exists", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	return nil
}

func (r *sqliteServerRepo) Update(ctx context.Context, server *models.Server, now time.Time) error {
	query := `
		UPDATE servers SET name = ?, website_url = ?, country = ?, gamemode = ?, max_players = ?, last_seen = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		server.Name, server.WebsiteURL, server.Country, server.Gamemode, server.MaxPlayers,
		dbTime(now), server.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update server: %w", err)
	}
	if err := requireAffected(result, "server"); err != nil {
		return err
	}

	server.LastSeen = now.UTC().Truncate(time.Second)
	return nil
}

func (r *sqliteServerRepo) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE servers SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update server status: %w", err)
	}
	return requireAffected(result, "server")
}

func (r *sqliteServerRepo) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	// Backfilled measurements must not move last_seen backwards.
	_, err := r.db.ExecContext(ctx,
		`UPDATE servers SET last_seen = MAX(last_seen, ?) WHERE id = ?`, dbTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to touch server last_seen: %w", err)
	}
	return nil
}

func (r *sqliteServerRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	return requireAffected(result, "server")
}

func (r *sqliteServerRepo) queryServers(ctx context.Context, what, query string, args ...any) ([]models.Server, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	servers := []models.Server{}
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(serverDest(&s)...); err != nil {
			return nil, fmt.Errorf("failed to scan server row: %w", err)
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating server rows: %w", err)
	}
	return servers, nil
}

func (r *sqliteServerRepo) ListPending(ctx context.Context) ([]models.Server, error) {
	return r.queryServers(ctx, "pending servers",
		`SELECT `+serverColumns+` FROM servers s WHERE s.is_active = 0 ORDER BY s.first_seen ASC, s.id ASC`)
}

func (r *sqliteServerRepo) ListByOwner(ctx context.Context, userID string) ([]models.Server, error) {
	return r.queryServers(ctx, "owned servers",
		`SELECT `+serverColumns+` FROM servers s
		JOIN server_owners so ON so.server_id = s.id
		WHERE so.user_id = ?
		ORDER BY s.name COLLATE NOCASE`, userID)
}

func (r *sqliteServerRepo) ListFeatured(ctx context.Context, now time.Time, limit int) ([]models.FeaturedListing, error) {
	query := `
		SELECT ` + serverColumns + `, fs.position, fs.end_date,
			COALESCE(lm.player_count, 0), COALESCE(lm.is_online, 0), lm.motd, lm.version
		FROM featured_servers fs
		JOIN servers s ON s.id = fs.server_id
		LEFT JOIN (` + latestMeasurementSQL + `) lm ON lm.server_id = s.id
		WHERE fs.active = 1 AND s.is_active = 1
			AND (fs.end_date IS NULL OR fs.end_date > ?)
		ORDER BY fs.position ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, dbTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured servers: %w", err)
	}
	defer rows.Close()

	listings := []models.FeaturedListing{}
	for rows.Next() {
		var l models.FeaturedListing
		dest := append(serverDest(&l.Server),
			&l.Position, scanNullTime(&l.EndDate),
			&l.CurrentPlayers, &l.IsOnline, &l.MOTD, &l.Version)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan featured row: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating featured rows: %w", err)
	}
	return listings, nil
}

func (r *sqliteServerRepo) ListTopByPlayers(ctx context.Context, limit int) ([]models.ServerPlayerCount, error) {
	query := `
		SELECT ` + serverColumns + `, lm.player_count, lm.timestamp
		FROM servers s
		JOIN (
			SELECT * FROM (
				SELECT server_id, player_count, timestamp,
					ROW_NUMBER() OVER (PARTITION BY server_id ORDER BY timestamp DESC, id DESC) AS rn
				FROM server_measurements
				WHERE is_online = 1
			) WHERE rn = 1
		) lm ON lm.server_id = s.id
		WHERE s.is_active = 1
		ORDER BY lm.player_count DESC, s.id ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top servers: %w", err)
	}
	defer rows.Close()

	out := []models.ServerPlayerCount{}
	for rows.Next() {
		var sp models.ServerPlayerCount
		if err := rows.Scan(append(serverDest(&sp.Server), &sp.PlayerCount, scanTime(&sp.MeasuredAt))...); err != nil {
			return nil, fmt.Errorf("failed to scan top server row: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top server rows: %w", err)
	}
	return out, nil
}

func (r *sqliteServerRepo) ListRising(ctx context.Context, now time.Time, limit int) ([]models.RisingServer, error) {
	query := `
		WITH current_counts AS (
			SELECT server_id, player_count FROM (
				SELECT server_id, player_count,
					ROW_NUMBER() OVER (PARTITION BY server_id ORDER BY timestamp DESC, id DESC) AS rn
				FROM server_measurements
				WHERE timestamp > ?
			) WHERE rn = 1
		),
		past_counts AS (
			SELECT server_id, player_count FROM (
				SELECT server_id, player_count,
					ROW_NUMBER() OVER (PARTITION BY server_id ORDER BY timestamp DESC, id DESC) AS rn
				FROM server_measurements
				WHERE timestamp BETWEEN ? AND ?
			) WHERE rn = 1
		)
		SELECT ` + serverColumns + `, c.player_count, p.player_count, c.player_count - p.player_count AS growth
		FROM servers s
		JOIN current_counts c ON c.server_id = s.id
		JOIN past_counts p ON p.server_id = s.id
		WHERE s.is_active = 1 AND c.player_count > p.player_count
		ORDER BY growth DESC, s.id ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query,
		dbTime(now.Add(-time.Hour)),
		dbTime(now.Add(-25*time.Hour)), dbTime(now.Add(-24*time.Hour)),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rising servers: %w", err)
	}
	defer rows.Close()

	out := []models.RisingServer{}
	for rows.Next() {
		var rs models.RisingServer
		if err := rows.Scan(append(serverDest(&rs.Server), &rs.CurrentPlayers, &rs.PastPlayers, &rs.Growth)...); err != nil {
			return nil, fmt.Errorf("failed to scan rising server row: %w", err)
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rising server rows: %w", err)
	}
	return out, nil
}

func (r *sqliteServerRepo) Count(ctx context.Context, active *bool) (int, error) {
	query := `SELECT COUNT(*) FROM servers`
	var args []any
	if active != nil {
		query += ` WHERE is_active = ?`
		args = append(args, *active)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count servers: %w", err)
	}
	return count, nil
}
