package repository

import (
	"context"
	"time"

	"github.com/brekfst/mcdirectory/models"
)

type ClaimRepository interface {
	// Create inserts a pending claim. A second pending claim for the same
	// (server, email) fails with ErrAlreadyExists.
	Create(ctx context.Context, claim *models.Claim) error
	GetByID(ctx context.Context, id int64) (*models.Claim, error)
	HasPending(ctx context.Context, serverID int64, email string) (bool, error)
	ListPending(ctx context.Context) ([]models.Claim, error)
	ListByServer(ctx context.Context, serverID int64) ([]models.Claim, error)
	// ListByEmail filters by status unless it is empty.
	ListByEmail(ctx context.Context, email string, status models.ClaimStatus) ([]models.Claim, error)
	// Resolve moves a pending claim to a terminal status. Unknown ids are
	// ErrNotFound; already resolved claims are ErrAlreadyExists.
	Resolve(ctx context.Context, id int64, status models.ClaimStatus, reason *string, at time.Time) error
	CountPending(ctx context.Context) (int, error)
}
