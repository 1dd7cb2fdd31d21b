// Command mcdirectory runs the server directory API.
//
//	mcdirectory serve     start the HTTP API (default)
//	mcdirectory migrate   apply pending migrations and exit
//	mcdirectory purge     run one retention pass and exit
//	mcdirectory promote   grant or revoke the admin role
//
// Configuration comes from the environment, see config.Load.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brekfst/mcdirectory/config"
	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/middleware"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/repository"
	"github.com/rs/cors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:   "mcdirectory",
		Usage:  "Game server directory and analytics API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: migrate,
			},
			{
				Name:  "purge",
				Usage: "Delete expired measurements, predictions and reset tokens",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "measurement-days",
						Usage: "Override RETENTION_MEASUREMENT_DAYS",
					},
					&cli.IntFlag{
						Name:  "prediction-days",
						Usage: "Override RETENTION_PREDICTION_DAYS",
					},
				},
				Action: purge,
			},
			{
				Name:      "promote",
				Usage:     "Grant the admin role to an existing account",
				ArgsUsage: "<email>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "revoke",
						Usage: "Demote the account back to a regular user",
					},
				},
				Action: promote,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// bootstrap loads config, the logger and the database shared by every
// command.
func bootstrap() (*config.Config, *zap.Logger, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.New(cfg.Database.Path, database.Migrations(), logger.Named("database"), cfg.Database.SlowQueryThreshold)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cfg, logger, db, nil
}

func migrate(_ context.Context, _ *cli.Command) error {
	_, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer db.Close()

	logger.Info("database is up to date")
	return nil
}

func purge(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer db.Close()

	if n := cmd.Int("measurement-days"); n > 0 {
		cfg.Retention.MeasurementDays = int(n)
	}
	if n := cmd.Int("prediction-days"); n > 0 {
		cfg.Retention.PredictionDays = int(n)
	}

	// Connect to the shared cache so a running API does not keep serving
	// purged rows.
	c := initCache(ctx, cfg, logger)
	defer c.Close()

	repos := initRepositories(db)
	svcs, limiters := initServices(db, repos, c, nil, cfg, logger)
	defer limiters.Close()

	res := svcs.Retention.RunOnce(ctx)
	logger.Info("purge complete",
		zap.Int64("measurements", res.Measurements),
		zap.Int64("predictions", res.Predictions),
		zap.Int64("reset_tokens", res.ResetTokens))
	return nil
}

func promote(ctx context.Context, cmd *cli.Command) error {
	addr := strings.ToLower(strings.TrimSpace(cmd.Args().First()))
	if addr == "" {
		return fmt.Errorf("usage: mcdirectory promote <email>")
	}

	_, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer db.Close()

	users := repository.NewSQLiteUserRepo(db.Query)
	user, err := users.GetByEmail(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", addr, err)
	}

	role := models.RoleAdmin
	if cmd.Bool("revoke") {
		role = models.RoleUser
	}
	if err := users.SetRole(ctx, user.ID, role); err != nil {
		return err
	}

	logger.Info("role updated",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("role", string(role)))
	return nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("mcdirectory starting",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr()))

	if cfg.Ingest.APIKey == "" {
		logger.Warn("API_KEY not set, ingestion endpoints will refuse every request")
	}

	c := initCache(ctx, cfg, logger)
	mailer := initMailer(cfg, logger)

	repos := initRepositories(db)
	svcs, limiters := initServices(db, repos, c, mailer, cfg, logger)
	h := initHandlers(svcs, limiters, c)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs, cfg.Ingest.APIKey)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	handler := middleware.AccessLog(logger.Named("http"), !cfg.Server.IsProduction())(corsHandler.Handler(mux))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	svcs.Retention.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
		runErr = err
	}

	// Stop the worker first so a pass does not outlive the database.
	svcs.Retention.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	limiters.Close()
	c.Close()
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", zap.Error(err))
	}

	logger.Info("server stopped")
	return runErr
}
