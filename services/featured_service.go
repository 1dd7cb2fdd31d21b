package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/repository"
	"go.uber.org/zap"
)

const lastPosition = math.MaxInt32

// FeaturedService manages the homepage promotion slots. Active slots always
// hold positions 1..N; every mutation runs in one transaction.
type FeaturedService interface {
	List(ctx context.Context) ([]models.FeaturedServer, error)
	// Add inserts at req.Position, shifting later slots down. A nil position
	// appends; a position past the end is clamped to N+1.
	Add(ctx context.Context, req *models.AddFeaturedRequest) (*models.FeaturedServer, error)
	// Update moves, (de)activates or re-dates a slot.
	Update(ctx context.Context, id int64, req *models.UpdateFeaturedRequest) (*models.FeaturedServer, error)
	Remove(ctx context.Context, id int64) error
}

type featuredService struct {
	db           *database.DB
	featuredRepo repository.FeaturedRepository
	serverRepo   repository.ServerRepository
	policy       cachePolicy
	logger       *zap.Logger
	now          func() time.Time
}

func NewFeaturedService(
	db *database.DB,
	featuredRepo repository.FeaturedRepository,
	serverRepo repository.ServerRepository,
	c *cache.Cache,
	logger *zap.Logger,
) FeaturedService {
	return &featuredService{
		db:           db,
		featuredRepo: featuredRepo,
		serverRepo:   serverRepo,
		policy:       cachePolicy{cache: c},
		logger:       logger,
		now:          time.Now,
	}
}

func (s *featuredService) List(ctx context.Context) ([]models.FeaturedServer, error) {
	return s.featuredRepo.List(ctx)
}

// insertPosition resolves a requested slot against n active slots.
func insertPosition(requested *int, n int) int {
	if requested == nil || *requested > n+1 {
		return n + 1
	}
	return *requested
}

func (s *featuredService) Add(ctx context.Context, req *models.AddFeaturedRequest) (*models.FeaturedServer, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}

	server, err := s.serverRepo.GetByID(ctx, req.ServerID)
	if err != nil {
		return nil, err
	}
	if !server.IsActive {
		return nil, fmt.Errorf("%w: Only active servers can be featured", pkg.ErrBadRequest)
	}

	var featured *models.FeaturedServer
	err = s.db.WithTx(ctx, func(q database.TxQuerier) error {
		txRepo := repository.NewSQLiteFeaturedRepo(q)

		exists, err := txRepo.ExistsForServer(ctx, req.ServerID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: Server is already featured", pkg.ErrAlreadyExists)
		}

		n, err := txRepo.CountActive(ctx)
		if err != nil {
			return err
		}
		pos := insertPosition(req.Position, n)

		if err := txRepo.ShiftPositions(ctx, pos, n, 1, 0); err != nil {
			return err
		}

		featured = &models.FeaturedServer{
			ServerID:   req.ServerID,
			Position:   pos,
			Active:     true,
			EndDate:    req.EndDate,
			ServerName: server.Name,
		}
		return txRepo.Create(ctx, featured)
	})
	if err != nil {
		return nil, err
	}

	s.policy.featuredChanged(ctx)
	s.logger.Info("server featured",
		zap.Int64("server_id", featured.ServerID),
		zap.Int("position", featured.Position))
	return featured, nil
}

func (s *featuredService) Update(ctx context.Context, id int64, req *models.UpdateFeaturedRequest) (*models.FeaturedServer, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}

	var featured *models.FeaturedServer
	err := s.db.WithTx(ctx, func(q database.TxQuerier) error {
		txRepo := repository.NewSQLiteFeaturedRepo(q)

		f, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := txRepo.CountActive(ctx)
		if err != nil {
			return err
		}

		wasActive := f.Active
		willActive := f.Active
		if req.Active != nil {
			willActive = *req.Active
		}

		switch {
		case wasActive && willActive:
			if req.Position != nil {
				target := min(*req.Position, n)
				if err := move(ctx, txRepo, f, target); err != nil {
					return err
				}
			}

		case wasActive && !willActive:
			if err := txRepo.ShiftPositions(ctx, f.Position+1, lastPosition, -1, f.ID); err != nil {
				return err
			}
			f.Position = 0
			f.Active = false

		case !wasActive && willActive:
			pos := insertPosition(req.Position, n)
			if err := txRepo.ShiftPositions(ctx, pos, n, 1, f.ID); err != nil {
				return err
			}
			f.Position = pos
			f.Active = true

		default:
			if req.Position != nil {
				return fmt.Errorf("%w: An inactive featured server has no position", pkg.ErrBadRequest)
			}
		}

		if req.EndDate != nil {
			f.EndDate = req.EndDate
		} else if req.ClearEndDate {
			f.EndDate = nil
		}

		if err := txRepo.Update(ctx, f); err != nil {
			return err
		}
		featured = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.policy.featuredChanged(ctx)
	return featured, nil
}

// move relocates an active slot to target, shifting the slots in between by
// one towards the vacated position.
func move(ctx context.Context, repo repository.FeaturedRepository, f *models.FeaturedServer, target int) error {
	cur := f.Position
	switch {
	case target < cur:
		if err := repo.ShiftPositions(ctx, target, cur-1, 1, f.ID); err != nil {
			return err
		}
	case target > cur:
		if err := repo.ShiftPositions(ctx, cur+1, target, -1, f.ID); err != nil {
			return err
		}
	}
	f.Position = target
	return nil
}

func (s *featuredService) Remove(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(q database.TxQuerier) error {
		txRepo := repository.NewSQLiteFeaturedRepo(q)

		f, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return err
		}
		if f.Active {
			return txRepo.ShiftPositions(ctx, f.Position+1, lastPosition, -1, f.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.policy.featuredChanged(ctx)
	s.logger.Info("featured server removed", zap.Int64("featured_id", id))
	return nil
}
