package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a user's internal-currency balances. One wallet per user.
//
// Balances are mutated only by the ledger service, always under a row lock
// and always alongside a LedgerTransaction row.
type Wallet struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID          uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	AvailableBalance decimal.Decimal `gorm:"column:available_balance;type:numeric(20,2);not null"`
	FrozenBalance    decimal.Decimal `gorm:"column:frozen_balance;type:numeric(20,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Total returns available plus frozen funds.
func (w Wallet) Total() decimal.Decimal {
	return w.AvailableBalance.Add(w.FrozenBalance)
}
