package market

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is the job the scheduler runs
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs market refreshes on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	ctx       context.Context
	logger    *zap.Logger
}

// NewScheduler creates a scheduler; jobs observe ctx for cancellation
func NewScheduler(ctx context.Context, refresher Refresher, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		refresher: refresher,
		ctx:       ctx,
		logger:    logger,
	}
}

// Register adds the refresh job, e.g. with spec "@every 60s"
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register market refresh %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Market scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Market scheduler stopped")
}

// RunNow performs one refresh immediately
func (s *Scheduler) RunNow() {
	if err := s.refresher.Refresh(s.ctx); err != nil {
		s.logger.Error("Scheduled market refresh failed", zap.Error(err))
	}
}
