package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/simbroker/internal/auth"
	"github.com/yourorg/simbroker/internal/authz"
	"github.com/yourorg/simbroker/internal/config"
	"github.com/yourorg/simbroker/internal/execution"
	"github.com/yourorg/simbroker/internal/gateway"
	"github.com/yourorg/simbroker/internal/marketdata"
	"github.com/yourorg/simbroker/internal/pnl"
	pgRepo "github.com/yourorg/simbroker/internal/repository/postgres"
	redisRepo "github.com/yourorg/simbroker/internal/repository/redis"
	"github.com/yourorg/simbroker/internal/risk"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := pgRepo.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	if err := pgRepo.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	redisClient, err := redisRepo.Connect(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	logger.Info("redis connected")

	userRepo := pgRepo.NewUserRepo(db)
	accountRepo := pgRepo.NewAccountRepo(db)
	membershipRepo := pgRepo.NewMembershipRepo(db)
	groupRepo := pgRepo.NewGroupRepo(db)
	barRepo := pgRepo.NewPriceBarRepo(db)
	watchlistRepo := pgRepo.NewWatchlistRepo(db)
	newsRepo := pgRepo.NewNewsRepo(db)
	txRepo := pgRepo.NewTransactionRepo(db)
	priceCache := redisRepo.NewPriceCache(redisClient)

	profiles := marketdata.DefaultProfiles()
	if cfg.ProfilesPath != "" {
		loaded, err := marketdata.LoadProfiles(cfg.ProfilesPath)
		if err != nil {
			logger.Error("failed to load simulator profiles", "path", cfg.ProfilesPath, "err", err)
			os.Exit(1)
		}
		profiles = loaded
	}

	feed := marketdata.NewFeed(barRepo, priceCache)
	simulator := marketdata.NewSimulator(barRepo, priceCache, profiles, cfg.SimInterval, cfg.SimSymbolLimit, logger)

	authzSvc := authz.NewService(membershipRepo)
	evaluator := risk.NewEvaluator(feed, txRepo, accountRepo, risk.DefaultLimits())
	orderSvc := execution.NewOrderService(txRepo, feed, authzSvc, evaluator, logger)
	aggregator := pnl.NewAggregator(txRepo, accountRepo, feed)

	jwtSvc := auth.NewJWTService(cfg.JWTSecret)

	hub := gateway.NewHub(priceCache, logger)

	handlers := gateway.NewHandlers(
		userRepo, txRepo, accountRepo, membershipRepo, groupRepo, barRepo,
		watchlistRepo, newsRepo, orderSvc, aggregator, simulator,
		authzSvc, jwtSvc, logger,
	)
	router := gateway.NewRouter(handlers, hub, jwtSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	if !cfg.SimDisabled {
		if err := simulator.Start(); err != nil {
			logger.Error("failed to start simulator", "err", err)
			os.Exit(1)
		}
		defer simulator.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("server stopped")
}
