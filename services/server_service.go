// Package services holds the business rules. Services never see HTTP types
// and never run SQL directly; they compose repositories, the cache and each
// other.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/repository"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultFeaturedLimit = 6
	DefaultTopLimit      = 5
	DefaultRisingLimit   = 4
	maxListingLimit      = 50
	detailInsightLimit   = 3
	globalStatsTopLimit  = 5
)

type ServerService interface {
	List(ctx context.Context, q *models.ServerListQuery) ([]models.ServerWithOwner, *pkg.Pagination, error)
	GetByID(ctx context.Context, id int64) (*models.ServerWithOwner, error)
	// GetByIdentifier finds a server by ip or hostname.
	GetByIdentifier(ctx context.Context, identifier string) (*models.Server, error)
	// GetDetails composes the record, live stats, predictions and history.
	GetDetails(ctx context.Context, id int64) (*models.ServerDetails, error)
	// Create stores a submission as inactive. A duplicate ip or hostname
	// returns a *pkg.ConflictError carrying the existing server id.
	Create(ctx context.Context, req *models.CreateServerRequest) (*models.Server, error)
	Update(ctx context.Context, id int64, req *models.UpdateServerRequest) (*models.Server, error)
	Delete(ctx context.Context, id int64) error
	ListFeatured(ctx context.Context, limit int) ([]models.FeaturedListing, error)
	ListTop(ctx context.Context, limit int) ([]models.ServerPlayerCount, error)
	ListRising(ctx context.Context, limit int) ([]models.RisingServer, error)
	CountActive(ctx context.Context) (int, error)
	GlobalStats(ctx context.Context) (*models.GlobalStats, error)
	IsOwner(ctx context.Context, serverID int64, userID string) (bool, error)
}

type serverService struct {
	serverRepo   repository.ServerRepository
	ownerRepo    repository.OwnerRepository
	featuredRepo repository.FeaturedRepository
	measurements MeasurementService
	predictions  PredictionService
	cache        *cache.Cache
	policy       cachePolicy
	now          func() time.Time
}

func NewServerService(
	serverRepo repository.ServerRepository,
	ownerRepo repository.OwnerRepository,
	featuredRepo repository.FeaturedRepository,
	measurements MeasurementService,
	predictions PredictionService,
	c *cache.Cache,
) ServerService {
	return &serverService{
		serverRepo:   serverRepo,
		ownerRepo:    ownerRepo,
		featuredRepo: featuredRepo,
		measurements: measurements,
		predictions:  predictions,
		cache:        c,
		policy:       cachePolicy{cache: c},
		now:          time.Now,
	}
}

type serverPage struct {
	Servers []models.ServerWithOwner `json:"servers"`
	Total   int                      `json:"total"`
}

func (s *serverService) List(ctx context.Context, q *models.ServerListQuery) ([]models.ServerWithOwner, *pkg.Pagination, error) {
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}

	page, err := cache.Remember(ctx, s.cache, keyServerList(q), ttlServerList,
		func(ctx context.Context) (serverPage, error) {
			servers, total, err := s.serverRepo.List(ctx, q)
			return serverPage{Servers: servers, Total: total}, err
		})
	if err != nil {
		return nil, nil, err
	}

	return page.Servers, pkg.NewPagination(page.Total, q.Page, q.Limit), nil
}

func (s *serverService) GetByID(ctx context.Context, id int64) (*models.ServerWithOwner, error) {
	return cache.Remember(ctx, s.cache, keyServerRecord(id), ttlServerDetail,
		func(ctx context.Context) (*models.ServerWithOwner, error) {
			return s.serverRepo.GetByID(ctx, id)
		})
}

func (s *serverService) GetByIdentifier(ctx context.Context, identifier string) (*models.Server, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier is required", pkg.ErrBadRequest)
	}
	return s.serverRepo.GetByIdentifier(ctx, identifier, identifier)
}

func (s *serverService) GetDetails(ctx context.Context, id int64) (*models.ServerDetails, error) {
	return cache.Remember(ctx, s.cache, keyServerDetails(id), ttlServerDetail,
		func(ctx context.Context) (*models.ServerDetails, error) {
			return s.loadDetails(ctx, id)
		})
}

func (s *serverService) loadDetails(ctx context.Context, id int64) (*models.ServerDetails, error) {
	server, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		latest   *models.Measurement
		uptime   float64
		points   []models.PredictedPoint
		peak     *models.PredictedPeak
		insights []models.Prediction
		hourly   []models.HourlyPlayerCount
	)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		m, err := s.measurements.GetLatest(ctx, id)
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		latest = m
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		uptime, err = s.measurements.GetUptimePercentage(ctx, id, 1)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		points, err = s.predictions.GetNext24Hours(ctx, id)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		peak, err = s.predictions.GetPeak(ctx, id)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		insights, err = s.predictions.GetInsights(ctx, id, detailInsightLimit)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		hourly, err = s.measurements.GetLast24HoursPlayerCounts(ctx, id)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	details := &models.ServerDetails{
		Server: *server,
		Predictions: models.DetailPredictions{
			PlayerCounts: points,
			Peak:         peak,
			Insights:     insights,
		},
		History: models.DetailHistory{PlayerCounts: hourly},
	}

	if latest != nil {
		at := latest.Timestamp
		details.Stats = &models.ServerStats{
			CurrentPlayers:   latest.PlayerCount,
			MaxPlayers:       server.MaxPlayers,
			IsOnline:         latest.IsOnline,
			UptimePercentage: uptime,
			LatencyMs:        latest.LatencyMs,
			Version:          latest.Version,
			MOTD:             latest.MOTD,
			Description:      latest.Description,
			FaviconHash:      latest.FaviconHash,
			Tags:             latest.Tags,
			WhitelistStatus:  latest.WhitelistStatus,
			ModdedStatus:     latest.ModdedStatus,
			ServerSoftware:   latest.ServerSoftware,
			PlayersSample:    latest.PlayersSample,
			LastMeasuredAt:   &at,
		}
	}

	return details, nil
}

func (s *serverService) Create(ctx context.Context, req *models.CreateServerRequest) (*models.Server, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkDuplicate(ctx, req.IP, req.Hostname); err != nil {
		return nil, err
	}

	server := &models.Server{
		Name:       req.Name,
		IP:         req.IP,
		Hostname:   req.Hostname,
		WebsiteURL: req.WebsiteURL,
		Country:    req.Country,
		Gamemode:   req.Gamemode,
		MaxPlayers: req.MaxPlayers,
		IsActive:   false,
	}

	if err := s.serverRepo.Create(ctx, server); err != nil {
		// A concurrent submission won the unique index; report it the same
		// way as a duplicate found up front.
		if errors.Is(err, pkg.ErrAlreadyExists) {
			if dupErr := s.checkDuplicate(ctx, req.IP, req.Hostname); dupErr != nil {
				return nil, dupErr
			}
		}
		return nil, err
	}

	s.policy.serverChanged(ctx, server.ID)
	return server, nil
}

// checkDuplicate returns a conflict naming the existing server, nil when
// neither identifier is taken.
func (s *serverService) checkDuplicate(ctx context.Context, ip, hostname string) error {
	existing, err := s.serverRepo.GetByIdentifier(ctx, ip, hostname)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return pkg.NewConflict(map[string]int64{"server_id": existing.ID},
		"Server with this IP or hostname already exists")
}

func (s *serverService) Update(ctx context.Context, id int64, req *models.UpdateServerRequest) (*models.Server, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", pkg.ErrBadRequest)
	}

	current, err := s.serverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	server := current.Server

	if req.Name != nil {
		server.Name = *req.Name
	}
	if req.WebsiteURL != nil {
		if url := strings.TrimSpace(*req.WebsiteURL); url == "" {
			server.WebsiteURL = nil
		} else {
			server.WebsiteURL = &url
		}
	}
	if req.Country != nil {
		server.Country = *req.Country
	}
	if req.Gamemode != nil {
		server.Gamemode = *req.Gamemode
	}
	if req.MaxPlayers != nil {
		server.MaxPlayers = *req.MaxPlayers
	}

	if err := s.serverRepo.Update(ctx, &server, s.now()); err != nil {
		return nil, err
	}

	s.policy.serverChanged(ctx, id)
	return &server, nil
}

func (s *serverService) Delete(ctx context.Context, id int64) error {
	if err := s.serverRepo.Delete(ctx, id); err != nil {
		return err
	}
	// The featured slot goes with the server; close the gap it leaves.
	if err := s.featuredRepo.Renumber(ctx); err != nil {
		return err
	}
	s.policy.serverChanged(ctx, id)
	return nil
}

func listingLimit(limit, def int) (int, error) {
	return clampLimit(limit, def, maxListingLimit)
}

func (s *serverService) ListFeatured(ctx context.Context, limit int) ([]models.FeaturedListing, error) {
	limit, err := listingLimit(limit, DefaultFeaturedLimit)
	if err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, keyFeatured(limit), ttlFeatured,
		func(ctx context.Context) ([]models.FeaturedListing, error) {
			return s.serverRepo.ListFeatured(ctx, s.now(), limit)
		})
}

func (s *serverService) ListTop(ctx context.Context, limit int) ([]models.ServerPlayerCount, error) {
	limit, err := listingLimit(limit, DefaultTopLimit)
	if err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, keyTop(limit), ttlTop,
		func(ctx context.Context) ([]models.ServerPlayerCount, error) {
			return s.serverRepo.ListTopByPlayers(ctx, limit)
		})
}

func (s *serverService) ListRising(ctx context.Context, limit int) ([]models.RisingServer, error) {
	limit, err := listingLimit(limit, DefaultRisingLimit)
	if err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, keyRising(limit), ttlRising,
		func(ctx context.Context) ([]models.RisingServer, error) {
			return s.serverRepo.ListRising(ctx, s.now(), limit)
		})
}

func (s *serverService) CountActive(ctx context.Context) (int, error) {
	return cache.Remember(ctx, s.cache, keyActiveCount(), ttlActiveCount,
		func(ctx context.Context) (int, error) {
			active := true
			return s.serverRepo.Count(ctx, &active)
		})
}

func (s *serverService) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	return cache.Remember(ctx, s.cache, keyGlobalStats(), ttlGlobalStats,
		func(ctx context.Context) (*models.GlobalStats, error) {
			stats := &models.GlobalStats{}

			p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
			p.Go(func(ctx context.Context) (err error) {
				stats.TotalServers, err = s.CountActive(ctx)
				return err
			})
			p.Go(func(ctx context.Context) (err error) {
				stats.TotalPlayers, err = s.measurements.GetTotalOnlinePlayers(ctx)
				return err
			})
			p.Go(func(ctx context.Context) (err error) {
				stats.TopServers, err = s.ListTop(ctx, globalStatsTopLimit)
				return err
			})
			if err := p.Wait(); err != nil {
				return nil, err
			}
			return stats, nil
		})
}

func (s *serverService) IsOwner(ctx context.Context, serverID int64, userID string) (bool, error) {
	return s.ownerRepo.IsOwner(ctx, serverID, userID)
}
