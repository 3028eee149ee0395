package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/bids"
	"github.com/gavelworks/auctionhouse-backend/internal/cron"
	"github.com/gavelworks/auctionhouse-backend/internal/ledger"
	"github.com/gavelworks/auctionhouse-backend/internal/notifications"
	"github.com/gavelworks/auctionhouse-backend/internal/settlement"
	"github.com/gavelworks/auctionhouse-backend/pkg/config"
	"github.com/gavelworks/auctionhouse-backend/pkg/db"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
	"github.com/gavelworks/auctionhouse-backend/pkg/metrics"
	"github.com/gavelworks/auctionhouse-backend/pkg/migrate"
	"github.com/gavelworks/auctionhouse-backend/pkg/redis"
)

const lockKeyFormat = "ah:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	auctionRepo := auctions.NewRepository(gormDB)
	auctionSvc, err := auctions.NewService(auctions.ServiceParams{
		Repo: auctionRepo,
		DB:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}

	dispatcher, err := notifications.NewInAppDispatcher(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		AuctionSvc:  auctionSvc,
		AuctionRepo: auctionRepo,
		BidRepo:     bids.NewRepository(gormDB),
		Ledger:      ledgerSvc,
		Dispatcher:  dispatcher,
		DB:          dbClient,
		Log:         logg,
		Metrics:     settlementMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewSettlementSweepJob(cron.SettlementSweepJobParams{
		Logger:   logg,
		Auctions: auctionSvc,
		Settler:  settlementSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweep job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
