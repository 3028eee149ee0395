package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/gavelworks/auctionhouse-backend/api/routes"
	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/bids"
	"github.com/gavelworks/auctionhouse-backend/internal/ledger"
	"github.com/gavelworks/auctionhouse-backend/internal/notifications"
	"github.com/gavelworks/auctionhouse-backend/internal/settlement"
	"github.com/gavelworks/auctionhouse-backend/pkg/config"
	"github.com/gavelworks/auctionhouse-backend/pkg/db"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
	"github.com/gavelworks/auctionhouse-backend/pkg/migrate"
	"github.com/gavelworks/auctionhouse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	notificationRepo := notifications.NewRepository(gormDB)
	notificationSvc, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewInAppDispatcher(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	bidRepo := bids.NewRepository(gormDB)
	bidSvc, err := bids.NewService(bids.ServiceParams{
		Repo:        bidRepo,
		AuctionRepo: auctionRepo,
		Ledger:      ledgerSvc,
		Dispatcher:  dispatcher,
		DB:          dbClient,
		Log:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		AuctionSvc:  auctionSvc,
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		Ledger:      ledgerSvc,
		Dispatcher:  dispatcher,
		DB:          dbClient,
		Log:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Auctions:      auctionSvc,
			Bids:          bidSvc,
			Ledger:        ledgerSvc,
			Settlement:    settlementSvc,
			Notifications: notificationSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
