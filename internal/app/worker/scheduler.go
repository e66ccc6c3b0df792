package worker

import (
	"context"
	"fmt"
	"studyhub/internal/app/service"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler periodically asks for a leaderboard refresh so the cached
// projection never drifts for longer than one schedule interval.
type Scheduler struct {
	cron      *cron.Cron
	refresher service.LeaderboardRefresher
	log       *zap.Logger
}

func NewScheduler(schedule string, refresher service.LeaderboardRefresher, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), refresher: refresher, log: log}
	if _, err := s.cron.AddFunc(schedule, s.enqueue); err != nil {
		return nil, fmt.Errorf("failed to schedule leaderboard refresh %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) enqueue() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.refresher.RequestRefresh(ctx); err != nil {
		s.log.Error("scheduled leaderboard refresh failed", zap.Error(err))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("leaderboard scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("leaderboard scheduler stopped")
}
