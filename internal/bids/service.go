// Package bids implements bid admission. All check-then-write steps run
// under the auction row lock so concurrent submissions on the same auction
// serialize; a losing racer observes the winner's bid and is rejected.
package bids

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/ledger"
	"github.com/gavelworks/auctionhouse-backend/internal/notifications"
	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the bid service.
type ServiceParams struct {
	Repo        Repository
	AuctionRepo auctions.Repository
	Ledger      ledger.Service
	Dispatcher  notifications.Dispatcher
	DB          txRunner
	Log         *logger.Logger
	Now         func() time.Time
}

// Service admits bids and maintains the hold-at-bid-time funds policy: the
// current leader always has exactly one FREEZE hold covering their bid, and
// a superseded leader's hold is released in the same transaction that
// admits the superseding bid.
type Service struct {
	repo        Repository
	auctionRepo auctions.Repository
	ledger      ledger.Service
	dispatcher  notifications.Dispatcher
	db          txRunner
	log         *logger.Logger
	now         func() time.Time
}

// NewService builds a bid service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.AuctionRepo == nil {
		return nil, errors.New("auction repo is required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if params.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Log == nil {
		return nil, errors.New("logger is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		repo:        params.Repo,
		auctionRepo: params.AuctionRepo,
		ledger:      params.Ledger,
		dispatcher:  params.Dispatcher,
		db:          params.DB,
		log:         params.Log,
		now:         params.Now,
	}, nil
}

// PlaceBid validates and persists a bid. Verify-and-freeze, release of the
// superseded hold, and the bid insert commit or roll back as one unit.
func (s *Service) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal) (*models.Bid, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	if bidderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bidder id required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var (
		placed *models.Bid
		outbid *models.Bid
		lot    *models.Auction
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		auctionRepo := s.auctionRepo.WithTx(tx)
		bidRepo := s.repo.WithTx(tx)
		ledgerSvc := s.ledger.WithTx(tx)
		now := s.now()

		auction, err := auctionRepo.FindByIDForUpdate(ctx, auctionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock auction")
		}
		if auction == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		if auction.SellerID == bidderID {
			return pkgerrors.New(pkgerrors.CodeValidation, "seller cannot bid on own auction")
		}
		if !auction.AcceptsBidsAt(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction is not accepting bids")
		}

		highest, err := bidRepo.HighestBid(ctx, auctionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load highest bid")
		}
		if highest != nil {
			if amount.LessThanOrEqual(highest.Amount) {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("bid %s does not exceed current highest %s", amount, highest.Amount))
			}
		} else if amount.LessThan(auction.StartingPrice) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("bid %s below starting price %s", amount, auction.StartingPrice))
		}

		freeze := func() error { return ledgerSvc.Freeze(ctx, bidderID, amount, auctionID) }
		if highest == nil || highest.BidderID == bidderID {
			if err := freeze(); err != nil {
				return err
			}
			if highest != nil {
				if err := ledgerSvc.Release(ctx, highest.BidderID, highest.Amount, auctionID); err != nil {
					return err
				}
			}
		} else {
			// Two distinct wallets are locked here; take them in the same
			// byte order the ledger uses for settlement so overlapping
			// operations on the same pair cannot deadlock.
			release := func() error { return ledgerSvc.Release(ctx, highest.BidderID, highest.Amount, auctionID) }
			ordered := []func() error{freeze, release}
			if bytes.Compare(highest.BidderID[:], bidderID[:]) < 0 {
				ordered = []func() error{release, freeze}
			}
			for _, op := range ordered {
				if err := op(); err != nil {
					return err
				}
			}
		}

		bid := &models.Bid{
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			PlacedAt:  now,
		}
		if err := bidRepo.Create(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist bid")
		}
		placed = bid
		lot = auction
		if highest != nil && highest.BidderID != bidderID {
			outbid = highest
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outbid != nil {
		s.notifyOutbid(ctx, lot, outbid, placed.Amount)
	}
	return placed, nil
}

// notifyOutbid tells the superseded leader they lost the lead. The bid is
// already committed, so delivery failures are logged and swallowed.
func (s *Service) notifyOutbid(ctx context.Context, auction *models.Auction, superseded *models.Bid, newAmount decimal.Decimal) {
	link := fmt.Sprintf("/auctions/%s", auction.ID)
	intent := notifications.Intent{
		UserID:  superseded.BidderID,
		Type:    enums.NotificationTypeOutbid,
		Title:   "You have been outbid",
		Message: fmt.Sprintf("A bid of %s topped yours on %q.", newAmount, auction.Title),
		Link:    &link,
	}
	if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
		logCtx := s.log.WithAuctionID(ctx, auction.ID.String())
		s.log.Warn(logCtx, fmt.Sprintf("outbid notification failed for bidder %s: %v", superseded.BidderID, err))
	}
}

// ListByAuction returns an auction's bids, leader first.
func (s *Service) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	auction, err := s.auctionRepo.FindByID(ctx, auctionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auction")
	}
	if auction == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	found, err := s.repo.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}
	return found, nil
}
