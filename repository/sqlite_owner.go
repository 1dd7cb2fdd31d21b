package repository

import (
	"context"
	"fmt"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/pkg"
)

type sqliteOwnerRepo struct {
	db database.TxQuerier
}

func NewSQLiteOwnerRepo(db database.TxQuerier) OwnerRepository {
	return &sqliteOwnerRepo{db: db}
}

func (r *sqliteOwnerRepo) Create(ctx context.Context, serverID int64, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO server_owners (server_id, user_id) VALUES (?, ?)`, serverID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: server already has an owner", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create server owner: %w", err)
	}
	return nil
}

func (r *sqliteOwnerRepo) HasOwner(ctx context.Context, serverID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM server_owners WHERE server_id = ?)`, serverID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check server owner: %w", err)
	}
	return exists, nil
}

func (r *sqliteOwnerRepo) IsOwner(ctx context.Context, serverID int64, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM server_owners WHERE server_id = ? AND user_id = ?)`,
		serverID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check server ownership: %w", err)
	}
	return exists, nil
}
