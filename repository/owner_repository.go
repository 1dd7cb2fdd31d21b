package repository

import "context"

// OwnerRepository manages the server_owners relation. A server has at most
// one owner; a second insert fails with ErrAlreadyExists.
type OwnerRepository interface {
	Create(ctx context.Context, serverID int64, userID string) error
	HasOwner(ctx context.Context, serverID int64) (bool, error)
	IsOwner(ctx context.Context, serverID int64, userID string) (bool, error)
}
