package repository

import (
	"context"

	"github.com/brekfst/mcdirectory/models"
)

// FeaturedRepository exposes the row-level operations the featured service
// composes inside one transaction to keep active positions dense.
type FeaturedRepository interface {
	List(ctx context.Context) ([]models.FeaturedServer, error)
	GetByID(ctx context.Context, id int64) (*models.FeaturedServer, error)
	ExistsForServer(ctx context.Context, serverID int64) (bool, error)
	CountActive(ctx context.Context) (int, error)
	// ShiftPositions adds delta to every active position in [lo, hi],
	// skipping excludeID.
	ShiftPositions(ctx context.Context, lo, hi, delta int, excludeID int64) error
	// Renumber rewrites active positions to 1..N in their current order.
	Renumber(ctx context.Context) error
	Create(ctx context.Context, f *models.FeaturedServer) error
	Update(ctx context.Context, f *models.FeaturedServer) error
	Delete(ctx context.Context, id int64) error
}
