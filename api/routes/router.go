package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gavelworks/auctionhouse-backend/api/controllers"
	"github.com/gavelworks/auctionhouse-backend/api/middleware"
	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/bids"
	"github.com/gavelworks/auctionhouse-backend/internal/ledger"
	"github.com/gavelworks/auctionhouse-backend/internal/notifications"
	"github.com/gavelworks/auctionhouse-backend/internal/settlement"
	"github.com/gavelworks/auctionhouse-backend/pkg/config"
	"github.com/gavelworks/auctionhouse-backend/pkg/db"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
	"github.com/gavelworks/auctionhouse-backend/pkg/redis"
)

// RouterParams groups every dependency the HTTP edge needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         redis.Pinger
	Auctions      *auctions.Service
	Bids          *bids.Service
	Ledger        ledger.Service
	Settlement    *settlement.Service
	Notifications notifications.Service
}

// NewRouter assembles the chi router. The edge stays thin; every rule
// lives in the internal services.
func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auctions", func(r chi.Router) {
			r.Post("/", controllers.CreateAuction(p.Auctions, logg))
			r.Get("/{auctionId}", controllers.GetAuction(p.Auctions, logg))
			r.Get("/{auctionId}/bids", controllers.ListAuctionBids(p.Bids, logg))
			r.Post("/{auctionId}/bids", controllers.PlaceBid(p.Bids, logg))
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/{ownerId}", controllers.GetWalletBalances(p.Ledger, logg))
			r.Get("/{ownerId}/transactions", controllers.ListWalletTransactions(p.Ledger, logg))
		})

		r.Route("/users/{userId}/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1/auctions", func(r chi.Router) {
		r.Post("/{auctionId}/close", controllers.AdminCloseAuction(p.Auctions, logg))
		r.Post("/{auctionId}/settle", controllers.AdminSettleAuction(p.Settlement, logg))
	})

	return r
}
