package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid records an offer by a bidder on an auction. Immutable once written.
type Bid struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuctionID uuid.UUID       `gorm:"column:auction_id;type:uuid;not null;index"`
	BidderID  uuid.UUID       `gorm:"column:bidder_id;type:uuid;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	PlacedAt  time.Time       `gorm:"column:placed_at;type:timestamptz;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
