// Package auctions owns the auction lifecycle. An auction is created OPEN,
// moves to CLOSED once its window elapses or an admin forces it, and is
// finalized to SETTLED by the settlement orchestrator.
package auctions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the auction service.
type ServiceParams struct {
	Repo Repository
	DB   txRunner
	Now  func() time.Time
}

// Service drives auction state transitions.
type Service struct {
	repo Repository
	db   txRunner
	now  func() time.Time
}

// NewService builds an auction service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{repo: params.Repo, db: params.DB, now: params.Now}, nil
}

// CreateAuctionInput carries the fields a seller-facing caller provides.
type CreateAuctionInput struct {
	SellerID      uuid.UUID
	Title         string
	Description   *string
	StartingPrice decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
}

func (in CreateAuctionInput) validate() error {
	if in.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if in.StartingPrice.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "starting price must be positive")
	}
	if !in.EndTime.After(in.StartTime) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end time must be after start time")
	}
	return nil
}

// Create opens a new auction.
func (s *Service) Create(ctx context.Context, input CreateAuctionInput) (*models.Auction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	auction := &models.Auction{
		SellerID:      input.SellerID,
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		StartingPrice: input.StartingPrice,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		State:         enums.AuctionStateOpen,
	}
	if err := s.repo.Create(ctx, auction); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create auction")
	}
	return auction, nil
}

// Get loads a single auction.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	auction, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auction")
	}
	if auction == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	return auction, nil
}

// Close moves an OPEN auction to CLOSED. Repeated calls on an already
// CLOSED or SETTLED auction are no-ops, tolerating overlapping sweeps and
// admin actions racing the scheduler.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		auction, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock auction")
		}
		if auction == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		if auction.State != enums.AuctionStateOpen {
			return nil
		}
		if err := repo.UpdateState(ctx, id, enums.AuctionStateClosed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close auction")
		}
		return nil
	})
}

// FindDue lists auctions whose window elapsed but whose settlement has not
// completed.
func (s *Service) FindDue(ctx context.Context, limit int) ([]models.Auction, error) {
	due, err := s.repo.FindDue(ctx, s.now(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find due auctions")
	}
	return due, nil
}
