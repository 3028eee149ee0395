package bids

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
)

// Repository manages bid persistence. Bids are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bid *models.Bid) error
	// HighestBid returns the auction's current leader: highest amount, ties
	// broken by earliest placement. Nil when the auction has no bids.
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bid repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bid *models.Bid) error {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *repository) HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC, placed_at ASC").
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

func (r *repository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	var found []models.Bid
	if err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC, placed_at ASC").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}
