package main

import (
	"context"
	"time"

	"github.com/brekfst/mcdirectory/config"
	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/pkg/email"
	"github.com/brekfst/mcdirectory/pkg/ratelimit"
	"github.com/brekfst/mcdirectory/services"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	redisDialTimeout = 10 * time.Second
	mailRetries      = 3
)

type Services struct {
	Server      services.ServerService
	Measurement services.MeasurementService
	Prediction  services.PredictionService
	Claim       services.ClaimService
	Featured    services.FeaturedService
	Admin       services.AdminService
	Auth        services.AuthService
	Retention   services.RetentionWorker
}

type RateLimiters struct {
	Login *ratelimit.Limiter
	Reset *ratelimit.Limiter
}

func (l *RateLimiters) Close() {
	l.Login.Close()
	l.Reset.Close()
}

// initCache picks Redis when REDIS_ADDR is set. A Redis that never comes up
// falls back to the in-process store so the API still starts.
func initCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) *cache.Cache {
	logger = logger.Named("cache")
	if cfg.Redis.Addr == "" {
		logger.Info("cache backend selected", zap.String("backend", "memory"))
		return cache.New(cache.NewMemoryStore(), logger)
	}

	client, err := cache.DialRedis(ctx, rueidis.ClientOption{
		InitAddress:  []string{cfg.Redis.Addr},
		Password:     cfg.Redis.Password,
		SelectDB:     cfg.Redis.DB,
		DisableCache: true,
	}, redisDialTimeout, logger)
	if err != nil {
		logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
		return cache.New(cache.NewMemoryStore(), logger)
	}

	logger.Info("cache backend selected",
		zap.String("backend", "redis"),
		zap.String("addr", cfg.Redis.Addr))
	return cache.New(cache.NewRedisStore(client), logger)
}

// initMailer returns nil when Resend is not configured; services then log
// and skip sends.
func initMailer(cfg *config.Config, logger *zap.Logger) email.EmailSender {
	if cfg.Email.ResendAPIKey == "" {
		logger.Info("email disabled, RESEND_API_KEY not set")
		return nil
	}
	logger.Info("email enabled", zap.String("from", cfg.Email.FromEmail))
	return email.WithRetry(
		email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL),
		mailRetries, logger.Named("email"),
	)
}

// initServices builds the service layer. Measurement and prediction come
// first because the server details view and admin stats compose them.
func initServices(db *database.DB, repos *Repositories, c *cache.Cache, mailer email.EmailSender, cfg *config.Config, logger *zap.Logger) (*Services, *RateLimiters) {
	measurementService := services.NewMeasurementService(repos.Measurement, repos.Server, c, logger)
	predictionService := services.NewPredictionService(repos.Prediction, repos.Server, c)

	serverService := services.NewServerService(
		repos.Server, repos.Owner, repos.Featured,
		measurementService, predictionService, c,
	)
	claimService := services.NewClaimService(
		db, repos.Claim, repos.Server, repos.Owner, mailer, c, logger,
	)
	featuredService := services.NewFeaturedService(db, repos.Featured, repos.Server, c, logger)
	adminService := services.NewAdminService(
		repos.Server, repos.Claim, repos.Featured, measurementService, c, logger,
	)
	authService := services.NewAuthService(
		db, repos.User, repos.ResetToken, repos.Server, repos.Claim, mailer,
		cfg.JWT.Secret, cfg.JWT.Expiry, logger,
	)

	retention := services.NewRetentionWorker(
		measurementService, predictionService, repos.ResetToken,
		cfg.Retention.Interval, cfg.Retention.MeasurementDays, cfg.Retention.PredictionDays,
		logger.Named("retention"),
	)

	svcs := &Services{
		Server:      serverService,
		Measurement: measurementService,
		Prediction:  predictionService,
		Claim:       claimService,
		Featured:    featuredService,
		Admin:       adminService,
		Auth:        authService,
		Retention:   retention,
	}

	limiters := &RateLimiters{
		Login: ratelimit.New(5, 2*time.Minute),
		Reset: ratelimit.New(3, 15*time.Minute),
	}

	return svcs, limiters
}
