package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
)

// LedgerTransaction is an immutable audit record of a single wallet
// mutation. Rows are only ever appended, never edited or deleted.
type LedgerTransaction struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID         uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type             enums.LedgerTransactionType `gorm:"column:type;type:ledger_transaction_type;not null"`
	Amount           decimal.Decimal             `gorm:"column:amount;type:numeric(20,2);not null"`
	RelatedAuctionID *uuid.UUID                  `gorm:"column:related_auction_id;type:uuid"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
