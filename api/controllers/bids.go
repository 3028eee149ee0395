package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelworks/auctionhouse-backend/api/responses"
	"github.com/gavelworks/auctionhouse-backend/api/validators"
	"github.com/gavelworks/auctionhouse-backend/internal/bids"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
)

type placeBidRequest struct {
	BidderID uuid.UUID       `json:"bidderId" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

// PlaceBid admits a bid on an open auction.
func PlaceBid(svc *bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req placeBidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		placed, err := svc.PlaceBid(r.Context(), auctionID, req.BidderID, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, placed)
	}
}
