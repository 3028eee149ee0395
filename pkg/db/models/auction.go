package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
)

// Auction is a time-boxed sale accepting successive bids.
//
// Related entities are referenced by id only; bids and wallets are loaded
// explicitly by their owning repositories.
type Auction struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	Title         string             `gorm:"column:title;type:text;not null"`
	Description   *string            `gorm:"column:description;type:text"`
	StartingPrice decimal.Decimal    `gorm:"column:starting_price;type:numeric(20,2);not null"`
	StartTime     time.Time          `gorm:"column:start_time;type:timestamptz;not null"`
	EndTime       time.Time          `gorm:"column:end_time;type:timestamptz;not null"`
	State         enums.AuctionState `gorm:"column:state;type:auction_state;not null;default:'open'"`
	WinningBidID  *uuid.UUID         `gorm:"column:winning_bid_id;type:uuid"`
	Completed     bool               `gorm:"column:completed;not null;default:false"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// AcceptsBidsAt reports whether the auction admits bids at the given instant.
func (a Auction) AcceptsBidsAt(now time.Time) bool {
	if a.State != enums.AuctionStateOpen {
		return false
	}
	return !now.Before(a.StartTime) && now.Before(a.EndTime)
}

// DueAt reports whether the auction's end time has elapsed.
func (a Auction) DueAt(now time.Time) bool {
	return !now.Before(a.EndTime)
}
