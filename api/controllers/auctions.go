package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelworks/auctionhouse-backend/api/responses"
	"github.com/gavelworks/auctionhouse-backend/api/validators"
	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/bids"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
)

type createAuctionRequest struct {
	SellerID      uuid.UUID       `json:"sellerId" validate:"required"`
	Title         string          `json:"title" validate:"required,max=200"`
	Description   *string         `json:"description"`
	StartingPrice decimal.Decimal `json:"startingPrice" validate:"required"`
	StartTime     time.Time       `json:"startTime" validate:"required"`
	EndTime       time.Time       `json:"endTime" validate:"required"`
}

// CreateAuction opens a new auction.
func CreateAuction(svc *auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAuctionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auction, err := svc.Create(r.Context(), auctions.CreateAuctionInput{
			SellerID:      req.SellerID,
			Title:         req.Title,
			Description:   req.Description,
			StartingPrice: req.StartingPrice,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, auction)
	}
}

// GetAuction returns a single auction by id.
func GetAuction(svc *auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auction, err := svc.Get(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auction)
	}
}

// ListAuctionBids returns an auction's bids, leader first.
func ListAuctionBids(svc *bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listed, err := svc.ListByAuction(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listed)
	}
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
