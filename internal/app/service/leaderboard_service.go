package service

import (
	"context"
	"encoding/json"
	"errors"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"studyhub/internal/domain/repository"
	"studyhub/internal/platform/metrics"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RefreshMessage is the payload pushed onto the refresh queue.
const RefreshMessage = "refresh"

type LeaderboardOptions struct {
	CacheKey  string
	CacheTTL  time.Duration
	QueueName string
}

// LeaderboardService serves the ranking of completed submissions. The
// projection is materialised in Redis and rebuilt from the store on a miss.
type LeaderboardService struct {
	repo repository.LeaderboardRepository
	rdb  *redis.Client
	opts LeaderboardOptions
	log  *zap.Logger
}

func NewLeaderboardService(repo repository.LeaderboardRepository, rdb *redis.Client, opts LeaderboardOptions, log *zap.Logger) *LeaderboardService {
	return &LeaderboardService{repo: repo, rdb: rdb, opts: opts, log: log}
}

// Rank returns the leaderboard, best mark first. Cache failures fall back to
// the store.
func (s *LeaderboardService) Rank(ctx context.Context) ([]model.LeaderboardEntry, error) {
	cached, err := s.rdb.Get(ctx, s.opts.CacheKey).Bytes()
	switch {
	case err == nil:
		var entries []model.LeaderboardEntry
		if jsonErr := json.Unmarshal(cached, &entries); jsonErr == nil {
			metrics.LeaderboardCache.WithLabelValues("hit").Inc()
			if entries == nil {
				entries = []model.LeaderboardEntry{}
			}
			return entries, nil
		}
		s.log.Warn("discarding unreadable leaderboard cache", zap.String("key", s.opts.CacheKey))
		metrics.LeaderboardCache.WithLabelValues("error").Inc()
		if err := s.rdb.Del(ctx, s.opts.CacheKey).Err(); err != nil {
			s.log.Warn("failed to drop leaderboard cache", zap.Error(err))
		}
	case errors.Is(err, redis.Nil):
		metrics.LeaderboardCache.WithLabelValues("miss").Inc()
	default:
		s.log.Warn("leaderboard cache unavailable", zap.Error(err))
		metrics.LeaderboardCache.WithLabelValues("error").Inc()
	}

	return s.rebuild(ctx, false)
}

// Refresh rebuilds the projection from the store and replaces the cache.
func (s *LeaderboardService) Refresh(ctx context.Context) ([]model.LeaderboardEntry, error) {
	return s.rebuild(ctx, true)
}

// rebuild reads the store and caches the result. Without overwrite the cache
// is only filled if still empty, so a slow read never replaces a board the
// worker wrote after it.
func (s *LeaderboardService) rebuild(ctx context.Context, overwrite bool) ([]model.LeaderboardEntry, error) {
	rows, err := s.repo.ListCompleted(ctx)
	if err != nil {
		return nil, common.Errorf("failed to load leaderboard: %w", err)
	}
	entries := model.BuildLeaderboard(rows)

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, common.Errorf("failed to encode leaderboard: %w", err)
	}
	if overwrite {
		err = s.rdb.Set(ctx, s.opts.CacheKey, payload, s.opts.CacheTTL).Err()
	} else {
		err = s.rdb.SetNX(ctx, s.opts.CacheKey, payload, s.opts.CacheTTL).Err()
	}
	if err != nil {
		s.log.Warn("failed to cache leaderboard", zap.Error(err))
	}
	return entries, nil
}

// RequestRefresh invalidates the cached projection and queues a rebuild for
// the worker.
func (s *LeaderboardService) RequestRefresh(ctx context.Context) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.opts.CacheKey)
		pipe.LPush(ctx, s.opts.QueueName, RefreshMessage)
		return nil
	})
	if err != nil {
		return common.Errorf("failed to request leaderboard refresh: %w", err)
	}
	return nil
}

// QueueName is the list the worker consumes.
func (s *LeaderboardService) QueueName() string {
	return s.opts.QueueName
}
