// Package repository is the data access layer. Each store is an interface
// with a SQLite implementation that takes a database.TxQuerier, so the same
// repository runs against the pool or inside a transaction.
package repository

import (
	"context"

	"github.com/brekfst/mcdirectory/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateProfile writes username and email. Either may collide with
	// another account, which is reported as ErrAlreadyExists.
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error
	// SetRole backs the promote command; there is no HTTP route for it.
	SetRole(ctx context.Context, userID string, role models.UserRole) error
}
