// Package settlement finalizes closed auctions. A settlement attempt is
// all-or-nothing: funds movement, the winning bid reference and the
// terminal state commit together or not at all, so a failed attempt leaves
// the auction eligible for retry.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/bids"
	"github.com/gavelworks/auctionhouse-backend/internal/ledger"
	"github.com/gavelworks/auctionhouse-backend/internal/notifications"
	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
	"github.com/gavelworks/auctionhouse-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the settlement orchestrator.
type ServiceParams struct {
	AuctionSvc  *auctions.Service
	AuctionRepo auctions.Repository
	BidRepo     bids.Repository
	Ledger      ledger.Service
	Dispatcher  notifications.Dispatcher
	DB          txRunner
	Log         *logger.Logger
	Metrics     *metrics.SettlementMetrics
}

// Service drives CLOSED auctions to SETTLED.
type Service struct {
	auctionSvc  *auctions.Service
	auctionRepo auctions.Repository
	bidRepo     bids.Repository
	ledger      ledger.Service
	dispatcher  notifications.Dispatcher
	db          txRunner
	log         *logger.Logger
	metrics     *metrics.SettlementMetrics
}

// NewService builds a settlement orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.AuctionSvc == nil {
		return nil, errors.New("auction service is required")
	}
	if params.AuctionRepo == nil {
		return nil, errors.New("auction repo is required")
	}
	if params.BidRepo == nil {
		return nil, errors.New("bid repo is required")
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
	return &Service{
		auctionSvc:  params.AuctionSvc,
		auctionRepo: params.AuctionRepo,
		bidRepo:     params.BidRepo,
		ledger:      params.Ledger,
		dispatcher:  params.Dispatcher,
		db:          params.DB,
		log:         params.Log,
		metrics:     params.Metrics,
	}, nil
}

type outcome struct {
	auction    *models.Auction
	winningBid *models.Bid
	applied    bool
}

// Settle finalizes one auction. Calling it on an already completed auction
// is a no-op; any ledger failure aborts the attempt with the auction left
// CLOSED for a later retry. Notification intents fire only after the
// settlement transaction has committed.
func (s *Service) Settle(ctx context.Context, auctionID uuid.UUID) error {
	if auctionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}

	var result outcome
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		auctionRepo := s.auctionRepo.WithTx(tx)
		bidRepo := s.bidRepo.WithTx(tx)
		ledgerSvc := s.ledger.WithTx(tx)

		auction, err := auctionRepo.FindByIDForUpdate(ctx, auctionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock auction")
		}
		if auction == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		if auction.Completed {
			return nil
		}
		if auction.State != enums.AuctionStateClosed {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("auction in state %s cannot settle", auction.State))
		}

		highest, err := bidRepo.HighestBid(ctx, auctionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load highest bid")
		}

		if highest != nil {
			if err := ledgerSvc.Settle(ctx, highest.BidderID, auction.SellerID, highest.Amount, auctionID); err != nil {
				return err
			}
			if err := auctionRepo.MarkSettled(ctx, auctionID, &highest.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize auction")
			}
		} else if err := auctionRepo.MarkSettled(ctx, auctionID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize auction")
		}

		result = outcome{auction: auction, winningBid: highest, applied: true}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, auctionID, err)
		return err
	}
	if !result.applied {
		s.metrics.IncOutcome(metrics.SettlementOutcomeNoop)
		return nil
	}

	s.notify(ctx, result)
	if result.winningBid != nil {
		s.metrics.IncOutcome(metrics.SettlementOutcomeSettled)
	} else {
		s.metrics.IncOutcome(metrics.SettlementOutcomeNoBids)
	}
	return nil
}

// ManuallySettle drives a single auction through close and settle
// synchronously, surfacing every failure to the caller.
func (s *Service) ManuallySettle(ctx context.Context, auctionID uuid.UUID) error {
	if _, err := s.auctionSvc.Get(ctx, auctionID); err != nil {
		return err
	}
	if err := s.auctionSvc.Close(ctx, auctionID); err != nil {
		return err
	}
	return s.Settle(ctx, auctionID)
}

func (s *Service) recordFailure(ctx context.Context, auctionID uuid.UUID, err error) {
	logCtx := s.log.WithAuctionID(ctx, auctionID.String())
	if pkgerrors.HasCode(err, pkgerrors.CodeInvariant) {
		s.metrics.IncOutcome(metrics.SettlementOutcomeInvariant)
		s.log.Error(logCtx, "settlement aborted on ledger invariant violation, auction left for inspection", err)
		return
	}
	s.metrics.IncOutcome(metrics.SettlementOutcomeFailed)
	s.log.Error(logCtx, "settlement attempt failed", err)
}

// notify emits post-commit intents. Delivery failures are logged and
// swallowed; settlement has already committed.
func (s *Service) notify(ctx context.Context, result outcome) {
	auction := result.auction
	link := fmt.Sprintf("/auctions/%s", auction.ID)

	intents := make([]notifications.Intent, 0, 2)
	if result.winningBid != nil {
		intents = append(intents,
			notifications.Intent{
				UserID:  result.winningBid.BidderID,
				Type:    enums.NotificationTypeAuctionWon,
				Title:   "You won the auction",
				Message: fmt.Sprintf("Your bid of %s won %q.", result.winningBid.Amount, auction.Title),
				Link:    &link,
			},
			notifications.Intent{
				UserID:  auction.SellerID,
				Type:    enums.NotificationTypeAuctionCompleted,
				Title:   "Your auction sold",
				Message: fmt.Sprintf("%q sold for %s.", auction.Title, result.winningBid.Amount),
				Link:    &link,
			},
		)
	} else {
		intents = append(intents, notifications.Intent{
			UserID:  auction.SellerID,
			Type:    enums.NotificationTypeAuctionNoBids,
			Title:   "Your auction ended without bids",
			Message: fmt.Sprintf("%q ended without any bids.", auction.Title),
			Link:    &link,
		})
	}

	for _, intent := range intents {
		if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
			logCtx := s.log.WithAuctionID(ctx, auction.ID.String())
			s.log.Warn(logCtx, fmt.Sprintf("notification dispatch failed for %s: %v", intent.Type, err))
		}
	}
}

// settleTimeout bounds a single settlement attempt driven by the sweep.
const settleTimeout = 30 * time.Second

// SettleWithTimeout wraps Settle with a per-attempt deadline for scheduler
// callers.
func (s *Service) SettleWithTimeout(ctx context.Context, auctionID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	return s.Settle(ctx, auctionID)
}
