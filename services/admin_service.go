package services

import (
	"context"
	"fmt"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/repository"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// AdminService moderates server submissions and reports dashboard counts.
type AdminService interface {
	ListPendingServers(ctx context.Context) ([]models.Server, error)
	ApproveServer(ctx context.Context, id int64) (*models.Server, error)
	// RejectServer deletes a pending submission. Active servers cannot be
	// rejected.
	RejectServer(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.AdminStats, error)
}

type adminService struct {
	serverRepo   repository.ServerRepository
	claimRepo    repository.ClaimRepository
	featuredRepo repository.FeaturedRepository
	measurements MeasurementService
	policy       cachePolicy
	logger       *zap.Logger
}

func NewAdminService(
	serverRepo repository.ServerRepository,
	claimRepo repository.ClaimRepository,
	featuredRepo repository.FeaturedRepository,
	measurements MeasurementService,
	c *cache.Cache,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		serverRepo:   serverRepo,
		claimRepo:    claimRepo,
		featuredRepo: featuredRepo,
		measurements: measurements,
		policy:       cachePolicy{cache: c},
		logger:       logger,
	}
}

func (s *adminService) ListPendingServers(ctx context.Context) ([]models.Server, error) {
	return s.serverRepo.ListPending(ctx)
}

func (s *adminService) ApproveServer(ctx context.Context, id int64) (*models.Server, error) {
	server, err := s.serverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if server.IsActive {
		return nil, fmt.Errorf("%w: Server is already active", pkg.ErrAlreadyExists)
	}

	if err := s.serverRepo.SetActive(ctx, id, true); err != nil {
		return nil, err
	}
	server.IsActive = true

	s.policy.serverChanged(ctx, id)
	s.logger.Info("server approved", zap.Int64("server_id", id))
	return &server.Server, nil
}

func (s *adminService) RejectServer(ctx context.Context, id int64) error {
	server, err := s.serverRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if server.IsActive {
		return fmt.Errorf("%w: Cannot reject an active server", pkg.ErrAlreadyExists)
	}

	if err := s.serverRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.policy.serverChanged(ctx, id)
	s.logger.Info("server rejected", zap.Int64("server_id", id))
	return nil
}

func (s *adminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{}
	active, inactive := true, false

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) (err error) {
		stats.TotalServers, err = s.serverRepo.Count(ctx, nil)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		stats.ActiveServers, err = s.serverRepo.Count(ctx, &active)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		stats.PendingServers, err = s.serverRepo.Count(ctx, &inactive)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		stats.PendingClaims, err = s.claimRepo.CountPending(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		stats.TotalPlayers, err = s.measurements.GetTotalOnlinePlayers(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		stats.FeaturedServers, err = s.featuredRepo.CountActive(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
