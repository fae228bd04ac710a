package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/autolog"
	"github.com/nstreif/mlb-wins-pool/internal/client"
	"github.com/nstreif/mlb-wins-pool/internal/config"
)

// Scheduler manages the background auto-logging of daily totals:
// - a nightly cron entry logs the day's totals after the late games finish
// - a retry ticker re-runs the logger at a coarse interval, so a day whose
//   first attempt hit an upstream outage still gets logged once the API
//   recovers (re-running is free: the ledger upsert is idempotent)
type Scheduler struct {
	cfg      *config.Config
	client   *client.Client
	logger   *autolog.Logger
	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, cl *client.Client, logger *autolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		client:   cl,
		logger:   logger,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	// Nightly log cron job
	if _, err := s.cron.AddFunc(s.cfg.DailyLogCron, func() {
		log.Info().Msg("Running nightly totals log...")
		if err := s.logToday(ctx); err != nil {
			log.Error().Err(err).Msg("Nightly totals log failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly log: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.DailyLogCron).
		Msg("Nightly totals log scheduled")

	// Retry ticker
	s.ticker = time.NewTicker(s.cfg.LogRetryInterval)
	log.Info().
		Dur("interval", s.cfg.LogRetryInterval).
		Msg("Log retry ticker started")

	go s.retryLoop(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// retryLoop re-invokes the auto-logger until the process stops.
func (s *Scheduler) retryLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping log retry loop")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping log retry loop")
			return
		case <-s.ticker.C:
			if err := s.logToday(ctx); err != nil {
				log.Warn().Err(err).Msg("Retry log attempt failed, will retry next tick")
			}
		}
	}
}

// logToday runs the auto-logger once. Today's cache entry is dropped first
// so a cached morning snapshot cannot shadow the post-game standings.
func (s *Scheduler) logToday(ctx context.Context) error {
	if err := s.client.InvalidateToday(ctx, time.Now()); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate today's snapshot cache entry")
	}

	result, err := s.logger.RunOnce(ctx)
	if err != nil {
		return err
	}

	if result.Inserted {
		log.Info().
			Str("date", result.Date.Format("2006-01-02")).
			Msg("Today's totals logged by scheduler")
	}
	return nil
}
