package services

import (
	"context"
	"sync"
	"time"

	"github.com/brekfst/mcdirectory/repository"
	"go.uber.org/zap"
)

const retentionPassTimeout = 5 * time.Minute

// RetentionWorker periodically deletes expired time-series rows and reset
// tokens. Start runs one pass immediately, then one per interval.
type RetentionWorker interface {
	Start()
	// Stop ends the loop and waits for an in-flight pass to finish.
	Stop()
	RunOnce(ctx context.Context) RetentionResult
}

// RetentionResult counts the rows removed by one pass.
type RetentionResult struct {
	Measurements int64 `json:"measurements"`
	Predictions  int64 `json:"predictions"`
	ResetTokens  int64 `json:"reset_tokens"`
}

type retentionWorker struct {
	measurements MeasurementService
	predictions  PredictionService
	tokenRepo    repository.PasswordResetRepository
	logger       *zap.Logger

	interval        time.Duration
	measurementDays int
	predictionDays  int

	stopCh  chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	started bool
}

func NewRetentionWorker(
	measurements MeasurementService,
	predictions PredictionService,
	tokenRepo repository.PasswordResetRepository,
	interval time.Duration,
	measurementDays, predictionDays int,
	logger *zap.Logger,
) RetentionWorker {
	return &retentionWorker{
		measurements:    measurements,
		predictions:     predictions,
		tokenRepo:       tokenRepo,
		logger:          logger,
		interval:        interval,
		measurementDays: measurementDays,
		predictionDays:  predictionDays,
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
	}
}

func (w *retentionWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	w.logger.Info("starting",
		zap.Duration("interval", w.interval),
		zap.Int("measurement_days", w.measurementDays),
		zap.Int("prediction_days", w.predictionDays))

	go func() {
		defer close(w.done)

		w.pass()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.pass()
			case <-w.stopCh:
				w.logger.Info("stopped")
				return
			}
		}
	}()
}

func (w *retentionWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.done
}

func (w *retentionWorker) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), retentionPassTimeout)
	defer cancel()
	w.RunOnce(ctx)
}

// RunOnce purges each store independently; a failure in one is logged and
// does not stop the others.
func (w *retentionWorker) RunOnce(ctx context.Context) RetentionResult {
	var res RetentionResult
	var err error

	if res.Measurements, err = w.measurements.Purge(ctx, w.measurementDays); err != nil {
		w.logger.Error("measurement purge failed", zap.Error(err))
	}
	if res.Predictions, err = w.predictions.Purge(ctx, w.predictionDays); err != nil {
		w.logger.Error("prediction purge failed", zap.Error(err))
	}
	if res.ResetTokens, err = w.tokenRepo.DeleteExpired(ctx, time.Now()); err != nil {
		w.logger.Error("reset token purge failed", zap.Error(err))
	}

	if res.Measurements > 0 || res.Predictions > 0 || res.ResetTokens > 0 {
		w.logger.Info("retention pass complete",
			zap.Int64("measurements", res.Measurements),
			zap.Int64("predictions", res.Predictions),
			zap.Int64("reset_tokens", res.ResetTokens))
	}
	return res
}
