package repository

import (
	"context"
	"time"

	"github.com/brekfst/mcdirectory/models"
)

type ServerRepository interface {
	// List returns one page of servers matching q and the total match count.
	List(ctx context.Context, q *models.ServerListQuery) ([]models.ServerWithOwner, int, error)
	GetByID(ctx context.Context, id int64) (*models.ServerWithOwner, error)
	// GetByIdentifier finds a server whose ip or hostname matches either
	// argument. Used for duplicate detection on submission.
	GetByIdentifier(ctx context.Context, ip, hostname string) (*models.Server, error)
	Create(ctx context.Context, server *models.Server) error
	// Update writes the editable fields and bumps last_seen.
	Update(ctx context.Context, server *models.Server, now time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ListPending(ctx context.Context) ([]models.Server, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Server, error)
	ListFeatured(ctx context.Context, now time.Time, limit int) ([]models.FeaturedListing, error)
	ListTopByPlayers(ctx context.Context, limit int) ([]models.ServerPlayerCount, error)
	ListRising(ctx context.Context, now time.Time, limit int) ([]models.RisingServer, error)
	// Count returns the number of servers, filtered by activity when active
	// is non-nil.
	Count(ctx context.Context, active *bool) (int, error)
}
