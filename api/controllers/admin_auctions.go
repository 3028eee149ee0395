package controllers

import (
	"net/http"

	"github.com/gavelworks/auctionhouse-backend/api/responses"
	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/settlement"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
)

// AdminCloseAuction force-closes an auction ahead of its end time.
func AdminCloseAuction(svc *auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Close(r.Context(), auctionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "closed"})
	}
}

// AdminSettleAuction drives close and settle synchronously, surfacing any
// failure to the caller instead of leaving it to the sweep.
func AdminSettleAuction(svc *settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ManuallySettle(r.Context(), auctionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "settled"})
	}
}
