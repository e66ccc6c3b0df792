// Command worker runs the leaderboard refresher on its own, for deployments
// that set RUN_EMBEDDED_WORKER=false on the API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"studyhub/internal/app/bootstrap"
	"studyhub/internal/platform/config"
	"studyhub/internal/platform/logger"
	"studyhub/internal/platform/queue"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer zl.Sync()
	zl = zl.With(zap.String("component", "worker"))

	if err := run(cfg, zl); err != nil {
		zl.Fatal("worker exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zl)
	if err != nil {
		return err
	}
	defer rdb.Close()

	leaderboard := bootstrap.NewLeaderboardService(store.Leaderboard, rdb, cfg, zl)
	stop, err := bootstrap.StartBackground(rdb, leaderboard, cfg, zl)
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT or SIGTERM
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	zl.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stop(shutdownCtx)

	zl.Info("worker exited cleanly")
	return nil
}
