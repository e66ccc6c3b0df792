package worker

import (
	"context"
	"errors"
	"studyhub/internal/app/service"
	"studyhub/internal/domain/model"
	"studyhub/internal/platform/queue"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Refresher rebuilds the leaderboard projection.
type Refresher interface {
	Refresh(ctx context.Context) ([]model.LeaderboardEntry, error)
}

type WorkerOptions struct {
	QueueName   string
	LockKey     string
	LockTTL     time.Duration
	PollTimeout time.Duration
	RetryDelay  time.Duration
}

// LeaderboardWorker consumes refresh requests. Only one refresh runs at a
// time across all instances, and a burst of requests collapses into one
// rebuild.
type LeaderboardWorker struct {
	rdb       *redis.Client
	refresher Refresher
	opts      WorkerOptions
	log       *zap.Logger
}

func NewLeaderboardWorker(rdb *redis.Client, refresher Refresher, opts WorkerOptions, log *zap.Logger) *LeaderboardWorker {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &LeaderboardWorker{rdb: rdb, refresher: refresher, opts: opts, log: log}
}

func (w *LeaderboardWorker) Start(ctx context.Context) {
	w.log.Info("leaderboard worker started", zap.String("queue", w.opts.QueueName))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("leaderboard worker stopping")
			return
		default:
		}

		// result is [queueName, value]
		result, err := w.rdb.BRPop(ctx, w.opts.PollTimeout, w.opts.QueueName).Result()
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
			case ctx.Err() != nil:
			default:
				w.log.Error("failed to pop refresh request", zap.String("queue", w.opts.QueueName), zap.Error(err))
				w.sleep(ctx, 5*time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		w.handle(ctx)
	}
}

// handle drops any requests queued behind the one just popped, then runs a
// single refresh under the lock.
func (w *LeaderboardWorker) handle(ctx context.Context) {
	if err := w.rdb.Del(ctx, w.opts.QueueName).Err(); err != nil {
		w.log.Warn("failed to coalesce refresh requests", zap.Error(err))
	}

	lock, err := queue.AcquireLock(ctx, w.rdb, w.opts.LockKey, w.opts.LockTTL)
	if err != nil {
		if errors.Is(err, queue.ErrLockHeld) {
			w.log.Debug("refresh already running elsewhere, re-queueing")
		} else {
			w.log.Error("failed to acquire refresh lock", zap.Error(err))
		}
		w.sleep(ctx, w.opts.RetryDelay)
		w.requeue(ctx)
		return
	}
	defer func() {
		released, err := lock.Release(context.WithoutCancel(ctx))
		switch {
		case err != nil:
			w.log.Error("failed to release refresh lock", zap.String("key", lock.Key()), zap.Error(err))
		case !released:
			w.log.Warn("refresh lock expired before release", zap.String("key", lock.Key()))
		}
	}()

	started := time.Now()
	entries, err := w.refresher.Refresh(ctx)
	if err != nil {
		w.log.Error("leaderboard refresh failed", zap.Error(err))
		return
	}
	w.log.Debug("leaderboard refreshed", zap.Int("entries", len(entries)), zap.Duration("took", time.Since(started)))
}

func (w *LeaderboardWorker) requeue(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.rdb.RPush(ctx, w.opts.QueueName, service.RefreshMessage).Err(); err != nil {
		w.log.Error("failed to re-queue refresh request", zap.Error(err))
	}
}

func (w *LeaderboardWorker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
