package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
)

// A single cycle never drains an unbounded backlog; leftovers wait for the
// next tick.
const defaultSweepBatchSize = 100

type dueAuctionFinder interface {
	FindDue(ctx context.Context, limit int) ([]models.Auction, error)
	Close(ctx context.Context, id uuid.UUID) error
}

type auctionSettler interface {
	SettleWithTimeout(ctx context.Context, auctionID uuid.UUID) error
}

// SettlementSweepJobParams configure the settlement sweep.
type SettlementSweepJobParams struct {
	Logger    *logger.Logger
	Auctions  dueAuctionFinder
	Settler   auctionSettler
	BatchSize int
}

// NewSettlementSweepJob builds the job that drives due auctions through
// close and settle.
func NewSettlementSweepJob(params SettlementSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Auctions == nil {
		return nil, fmt.Errorf("auction service required")
	}
	if params.Settler == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &settlementSweepJob{
		logg:      params.Logger,
		auctions:  params.Auctions,
		settler:   params.Settler,
		batchSize: batchSize,
	}, nil
}

type settlementSweepJob struct {
	logg      *logger.Logger
	auctions  dueAuctionFinder
	settler   auctionSettler
	batchSize int
}

func (j *settlementSweepJob) Name() string { return "settlement-sweep" }

// Run drives each due auction independently. A failure on one auction is
// logged and aggregated but never blocks the remaining auctions; failed
// auctions stay due and are retried on the next cycle.
func (j *settlementSweepJob) Run(ctx context.Context) error {
	due, err := j.auctions.FindDue(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("find due auctions: %w", err)
	}

	var errs []error
	settled := 0
	for _, auction := range due {
		if err := j.sweepOne(ctx, auction.ID); err != nil {
			logCtx := j.logg.WithAuctionID(ctx, auction.ID.String())
			j.logg.Error(logCtx, "sweep failed for auction", err)
			errs = append(errs, fmt.Errorf("auction %s: %w", auction.ID, err))
			continue
		}
		settled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"settled": settled,
		"failed":  len(errs),
	})
	j.logg.Info(logCtx, "settlement sweep complete")
	return multierr.Combine(errs...)
}

func (j *settlementSweepJob) sweepOne(ctx context.Context, auctionID uuid.UUID) error {
	if err := j.auctions.Close(ctx, auctionID); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := j.settler.SettleWithTimeout(ctx, auctionID); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}
