package auctions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
)

// Repository manages auction persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, auction *models.Auction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	// FindByIDForUpdate acquires the auction row lock; callers must hold an
	// open transaction. Bid admission and settlement serialize on this lock.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	// FindDue returns auctions whose end time has passed and that have not
	// completed settlement, oldest first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
	UpdateState(ctx context.Context, id uuid.UUID, state enums.AuctionState) error
	// MarkSettled finalizes the auction: terminal state, completed flag and
	// the winning bid reference (nil when the auction drew no bids).
	MarkSettled(ctx context.Context, id uuid.UUID, winningBidID *uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an auction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, auction *models.Auction) error {
	if auction.ID == uuid.Nil {
		auction.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(auction).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).First(&auction, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &auction, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&auction, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &auction, nil
}

func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	var auctions []models.Auction
	q := r.db.WithContext(ctx).
		Where("completed = ? AND end_time <= ?", false, now).
		Order("end_time ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&auctions).Error; err != nil {
		return nil, err
	}
	return auctions, nil
}

func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, state enums.AuctionState) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, winningBidID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":          enums.AuctionStateSettled,
			"completed":      true,
			"winning_bid_id": winningBidID,
		}).Error
}
