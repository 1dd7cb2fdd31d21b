package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
)

type sqliteFeaturedRepo struct {
	db database.TxQuerier
}

func NewSQLiteFeaturedRepo(db database.TxQuerier) FeaturedRepository {
	return &sqliteFeaturedRepo{db: db}
}

const featuredColumns = `f.id, f.server_id, f.position, f.active, f.end_date, f.created_at, f.updated_at, s.name`

func featuredDest(f *models.FeaturedServer) []any {
	return []any{
		&f.ID, &f.ServerID, &f.Position, &f.Active, scanNullTime(&f.EndDate),
		scanTime(&f.CreatedAt), scanTime(&f.UpdatedAt), &f.ServerName,
	}
}

func (r *sqliteFeaturedRepo) List(ctx context.Context) ([]models.FeaturedServer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+featuredColumns+`
		FROM featured_servers f JOIN servers s ON s.id = f.server_id
		ORDER BY f.active DESC, f.position ASC, f.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured servers: %w", err)
	}
	defer rows.Close()

	out := []models.FeaturedServer{}
	for rows.Next() {
		var f models.FeaturedServer
		if err := rows.Scan(featuredDest(&f)...); err != nil {
			return nil, fmt.Errorf("failed to scan featured row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating featured rows: %w", err)
	}
	return out, nil
}

func (r *sqliteFeaturedRepo) GetByID(ctx context.Context, id int64) (*models.FeaturedServer, error) {
	f := &models.FeaturedServer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+featuredColumns+`
		FROM featured_servers f JOIN servers s ON s.id = f.server_id
		WHERE f.id = ?`, id).Scan(featuredDest(f)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: featured server not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get featured server: %w", err)
	}
	return f, nil
}

func (r *sqliteFeaturedRepo) ExistsForServer(ctx context.Context, serverID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM featured_servers WHERE server_id = ?)`, serverID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check featured server: %w", err)
	}
	return exists, nil
}

func (r *sqliteFeaturedRepo) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM featured_servers WHERE active = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count featured servers: %w", err)
	}
	return count, nil
}

func (r *sqliteFeaturedRepo) ShiftPositions(ctx context.Context, lo, hi, delta int, excludeID int64) error {
	if lo > hi || delta == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE featured_servers SET position = position + ?, updated_at = ?
		WHERE active = 1 AND position BETWEEN ? AND ? AND id <> ?`,
		delta, dbTime(time.Now()), lo, hi, excludeID)
	if err != nil {
		return fmt.Errorf("failed to shift featured positions: %w", err)
	}
	return nil
}

func (r *sqliteFeaturedRepo) Renumber(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE featured_servers SET position = ranked.rn
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY position, id) AS rn
			FROM featured_servers WHERE active = 1
		) AS ranked
		WHERE featured_servers.id = ranked.id AND featured_servers.position <> ranked.rn`)
	if err != nil {
		return fmt.Errorf("failed to renumber featured positions: %w", err)
	}
	return nil
}

func (r *sqliteFeaturedRepo) Create(ctx context.Context, f *models.FeaturedServer) error {
	now := dbTime(time.Now())
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO featured_servers (server_id, position, active, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`,
		f.ServerID, f.Position, f.Active, dbTimePtr(f.EndDate), now, now,
	).Scan(&f.ID, scanTime(&f.CreatedAt), scanTime(&f.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: Server is already featured", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create featured server: %w", err)
	}
	return nil
}

func (r *sqliteFeaturedRepo) Update(ctx context.Context, f *models.FeaturedServer) error {
	now := time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE featured_servers SET position = ?, active = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		f.Position, f.Active, dbTimePtr(f.EndDate), dbTime(now), f.ID)
	if err != nil {
		return fmt.Errorf("failed to update featured server: %w", err)
	}
	if err := requireAffected(result, "featured server"); err != nil {
		return err
	}
	f.UpdatedAt = now.UTC().Truncate(time.Second)
	return nil
}

func (r *sqliteFeaturedRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM featured_servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete featured server: %w", err)
	}
	return requireAffected(result, "featured server")
}
