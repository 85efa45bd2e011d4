// Package main is the StreakFarm API server entrypoint. It wires config,
// storage, cache, services, the HTTP API, and the daily reward scheduler,
// then serves until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streakfarm/streakfarm-api/internal/api"
	"github.com/streakfarm/streakfarm-api/internal/api/jobs"
	"github.com/streakfarm/streakfarm-api/internal/api/miniapp"
	"github.com/streakfarm/streakfarm-api/internal/auth"
	"github.com/streakfarm/streakfarm-api/internal/cache"
	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/internal/notifier"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/internal/service/badges"
	"github.com/streakfarm/streakfarm-api/internal/service/boxes"
	"github.com/streakfarm/streakfarm-api/internal/service/leaderboard"
	"github.com/streakfarm/streakfarm-api/internal/service/ledger"
	"github.com/streakfarm/streakfarm-api/internal/service/referrals"
	"github.com/streakfarm/streakfarm-api/internal/service/scheduler"
	"github.com/streakfarm/streakfarm-api/internal/service/streak"
	"github.com/streakfarm/streakfarm-api/internal/service/users"
	"github.com/streakfarm/streakfarm-api/internal/service/wallet"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting StreakFarm API server")

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	boxRepo := repository.NewBoxRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)

	// Services.
	ledgerService := ledger.NewService(ledgerRepo, redisCache, log)
	badgeService := badges.NewService(badgeRepo, userRepo, boxRepo, log)
	if err := badgeService.SeedCatalog(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed badge catalog")
	}

	boxService := boxes.NewService(
		boxRepo, userRepo, badgeService, ledgerService,
		boxes.NewSeededGenerator(time.Now().UnixNano()), cfg, log,
	)
	telegramNotifier := notifier.NewTelegramNotifier(&cfg.Telegram, log)
	streakService := streak.NewService(
		userRepo, milestoneRepo, ledgerService, badgeService, boxService,
		telegramNotifier, &cfg.Rewards, log,
	)
	referralService := referrals.NewService(userRepo, userRepo, ledgerService, &cfg.Rewards, log)
	walletService := wallet.NewService(userRepo, ledgerService, &cfg.Rewards, log)
	leaderboardService := leaderboard.NewService(ledgerRepo, badgeRepo, redisCache, log)
	userService := users.NewService(userRepo, referralService, log)

	schedulerService := scheduler.NewService(cfg, boxService, streakService, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP API.
	verifier := auth.NewVerifier(cfg.Telegram.BotToken, time.Duration(cfg.Telegram.InitDataMaxAge)*time.Second)
	miniappHandler := miniapp.NewHandler(
		userService, streakService, boxService, badgeService,
		leaderboardService, ledgerService, walletService, referralService, log,
	)
	jobsHandler := jobs.NewHandler(schedulerService, boxService, streakService, log)
	router := api.NewRouter(cfg, verifier, miniappHandler, jobsHandler, db, redisCache, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Int("port", cfg.Metrics.Port).Str("path", cfg.Metrics.Path).Msg("Metrics server started")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	log.Info().Msg("StreakFarm API server ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	log.Info().Msg("Server stopped")
}
