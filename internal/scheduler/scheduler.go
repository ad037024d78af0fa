package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kbadiane/chemstock/internal/config"
	syncsvc "github.com/kbadiane/chemstock/internal/service/sync"
)

// Scheduler runs the periodic background reconciliation: refresh the cached
// snapshot and drain the pending queue while connectivity lasts.
type Scheduler struct {
	cron        *cron.Cron
	coordinator *syncsvc.Coordinator
	cfg         config.Config
	logger      *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.Config, coordinator *syncsvc.Coordinator, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:        cron.New(),
		coordinator: coordinator,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start registers the reconcile job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Refresh.CronSchedule))

	_, err := s.cron.AddFunc(s.cfg.Refresh.CronSchedule, s.reconcile)
	if err != nil {
		s.logger.Error("failed to schedule background reconcile", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.coordinator.FetchChemicals(ctx); err != nil {
		s.logger.Warn("scheduled snapshot refresh failed", zap.Error(err))
	}

	result, err := s.coordinator.SyncPending(ctx)
	if err != nil {
		s.logger.Warn("scheduled pending drain failed", zap.Error(err))
		return
	}

	if result.Submitted > 0 {
		s.logger.Info("scheduled pending drain finished",
			zap.Int("submitted", result.Submitted),
			zap.Int("accepted", result.Accepted),
			zap.Int("remaining", result.Remaining))
	}
}
