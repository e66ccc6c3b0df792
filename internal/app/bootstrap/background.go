package bootstrap

import (
	"context"
	"studyhub/internal/app/service"
	"studyhub/internal/app/worker"
	"studyhub/internal/domain/repository"
	"studyhub/internal/platform/config"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewLeaderboardService builds the leaderboard projection from config.
func NewLeaderboardService(store repository.LeaderboardRepository, rdb *redis.Client, cfg *config.Config, log *zap.Logger) *service.LeaderboardService {
	return service.NewLeaderboardService(store, rdb, service.LeaderboardOptions{
		CacheKey:  cfg.LeaderboardCacheKey,
		CacheTTL:  time.Duration(cfg.LeaderboardCacheTTLSeconds) * time.Second,
		QueueName: cfg.LeaderboardQueueName,
	}, log)
}

// StartBackground runs the leaderboard worker and its refresh schedule. The
// returned function stops both and waits for them, bounded by ctx.
func StartBackground(rdb *redis.Client, leaderboard *service.LeaderboardService, cfg *config.Config, log *zap.Logger) (func(ctx context.Context), error) {
	scheduler, err := worker.NewScheduler(cfg.LeaderboardRefreshSchedule, leaderboard, log)
	if err != nil {
		return nil, err
	}

	w := worker.NewLeaderboardWorker(rdb, leaderboard, worker.WorkerOptions{
		QueueName: cfg.LeaderboardQueueName,
		LockKey:   cfg.LeaderboardLockKey,
		LockTTL:   time.Duration(cfg.LeaderboardLockTTLSeconds) * time.Second,
	}, log)

	workerCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(workerCtx)
	}()
	scheduler.Start()

	// Warm the cache on boot.
	if err := leaderboard.RequestRefresh(workerCtx); err != nil {
		log.Warn("initial leaderboard refresh failed", zap.Error(err))
	}

	return func(ctx context.Context) {
		scheduler.Stop(ctx)
		cancel()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn("leaderboard worker did not stop in time")
		}
	}, nil
}
