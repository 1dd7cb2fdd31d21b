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

type sqliteClaimRepo struct {
	db database.TxQuerier
}

func NewSQLiteClaimRepo(db database.TxQuerier) ClaimRepository {
	return &sqliteClaimRepo{db: db}
}

const claimColumns = `c.id, c.server_id, c.username, c.email, c.status, c.reason, c.created_at, c.resolved_at,
	COALESCE(s.name, ''), COALESCE(s.ip, '')`

func claimDest(c *models.Claim) []any {
	return []any{
		&c.ID, &c.ServerID, &c.Username, &c.Email, &c.Status, &c.Reason,
		scanTime(&c.CreatedAt), scanNullTime(&c.ResolvedAt), &c.ServerName, &c.ServerIP,
	}
}

func (r *sqliteClaimRepo) Create(ctx context.Context, claim *models.Claim) error {
	query := `
		INSERT INTO server_claims (server_id, username, email, status)
		VALUES (?, ?, ?, 'pending')
		RETURNING id, status, created_at`

	err := r.db.QueryRowContext(ctx, query, claim.ServerID, claim.Username, claim.Email).
		Scan(&claim.ID, &claim.Status, scanTime(&claim.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: a pending claim already exists for this server and email", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

func (r *sqliteClaimRepo) GetByID(ctx context.Context, id int64) (*models.Claim, error) {
	c := &models.Claim{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+claimColumns+`
		FROM server_claims c LEFT JOIN servers s ON s.id = c.server_id
		WHERE c.id = ?`, id).Scan(claimDest(c)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: claim not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return c, nil
}

func (r *sqliteClaimRepo) HasPending(ctx context.Context, serverID int64, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM server_claims WHERE server_id = ? AND email = ? AND status = 'pending')`,
		serverID, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending claim: %w", err)
	}
	return exists, nil
}

func (r *sqliteClaimRepo) list(ctx context.Context, what, where, order string, args ...any) ([]models.Claim, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+claimColumns+`
		FROM server_claims c JOIN servers s ON s.id = c.server_id
		WHERE `+where+`
		ORDER BY `+order, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	claims := []models.Claim{}
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(claimDest(&c)...); err != nil {
			return nil, fmt.Errorf("failed to scan claim row: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim rows: %w", err)
	}
	return claims, nil
}

func (r *sqliteClaimRepo) ListPending(ctx context.Context) ([]models.Claim, error) {
	return r.list(ctx, "pending claims", "c.status = 'pending'", "c.created_at ASC, c.id ASC")
}

func (r *sqliteClaimRepo) ListByServer(ctx context.Context, serverID int64) ([]models.Claim, error) {
	return r.list(ctx, "server claims", "c.server_id = ?", "c.created_at DESC, c.id DESC", serverID)
}

func (r *sqliteClaimRepo) ListByEmail(ctx context.Context, email string, status models.ClaimStatus) ([]models.Claim, error) {
	if status == "" {
		return r.list(ctx, "user claims", "c.email = ?", "c.created_at DESC, c.id DESC", email)
	}
	return r.list(ctx, "user claims", "c.email = ? AND c.status = ?", "c.created_at DESC, c.id DESC", email, status)
}

func (r *sqliteClaimRepo) Resolve(ctx context.Context, id int64, status models.ClaimStatus, reason *string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE server_claims SET status = ?, reason = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'`,
		status, reason, dbTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to resolve claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var current models.ClaimStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM server_claims WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: claim not found", pkg.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get claim status: %w", err)
	}
	return fmt.Errorf("%w: Claim is already %s", pkg.ErrAlreadyExists, current)
}

func (r *sqliteClaimRepo) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM server_claims WHERE status = 'pending'`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending claims: %w", err)
	}
	return count, nil
}
