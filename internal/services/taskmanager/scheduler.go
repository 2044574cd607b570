package taskmanager

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// CleanupScheduler periodically sweeps orphaned files out of the upload dir
type CleanupScheduler struct {
	manager *Manager
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewCleanupScheduler creates a new cleanup scheduler
func NewCleanupScheduler(manager *Manager, logger arbor.ILogger) *CleanupScheduler {
	return &CleanupScheduler{
		manager: manager,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start begins the scheduled cleanup
func (s *CleanupScheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = "0 * * * *" // Hourly
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runCleanup()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Orphan file cleanup scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *CleanupScheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Orphan file cleanup scheduler stopped")
}

func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.manager.CleanupOrphanFiles(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Scheduled cleanup removed orphan files")
	}
}
