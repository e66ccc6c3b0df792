package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"studyhub/internal/api"
	"studyhub/internal/app/bootstrap"
	"studyhub/internal/app/service"
	"studyhub/internal/common/security"
	"studyhub/internal/platform/config"
	"studyhub/internal/platform/logger"
	"studyhub/internal/platform/queue"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// 2. Initialize Logger
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	// 3. Initialize Store
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. Initialize Redis
	rdb, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zl)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 5. Initialize Services
	tokens := security.NewTokenManager(cfg.JWTKey, cfg.JWTExp)
	leaderboardService := bootstrap.NewLeaderboardService(store.Leaderboard, rdb, cfg, zl)
	authService := service.NewAuthService(store.Users, tokens, rdb, zl)
	assignmentService := service.NewAssignmentService(store.Assignments, leaderboardService, zl)
	submissionService := service.NewSubmissionService(store.Submissions, store.Assignments, zl)
	gradingService := service.NewGradingService(store.Submissions, store.Assignments, rdb, cfg.GradeLockTTL, leaderboardService, zl)

	// 6. Initialize Leaderboard Worker and Scheduler, unless cmd/worker runs them
	stopBackground := func(context.Context) {}
	if cfg.EmbeddedWorker {
		stopBackground, err = bootstrap.StartBackground(rdb, leaderboardService, cfg, zl)
		if err != nil {
			return err
		}
	}

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(
		authService,
		assignmentService,
		submissionService,
		gradingService,
		leaderboardService,
		tokens,
		api.RouterOptions{AllowedOrigins: cfg.CORSAllowedOrigins, CookieSecure: cfg.CookieSecure},
		zl,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("port", cfg.APIPort), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("could not listen on %s: %w", cfg.APIPort, err)
	}

	zl.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	stopBackground(shutdownCtx)

	zl.Info("server and worker stopped gracefully")
	return nil
}
