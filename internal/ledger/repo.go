package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
)

// Repository manages persistence for wallets and their append-only
// transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	// FindWalletByOwnerForUpdate acquires the wallet row lock; callers must
	// hold an open transaction.
	FindWalletByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	UpdateWalletBalances(ctx context.Context, walletID uuid.UUID, available, frozen decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error
	ListTransactionsByWallet(ctx context.Context, walletID uuid.UUID) ([]models.LedgerTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindWalletByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateWalletBalances(ctx context.Context, walletID uuid.UUID, available, frozen decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]any{
			"available_balance": available,
			"frozen_balance":    frozen,
		}).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactionsByWallet(ctx context.Context, walletID uuid.UUID) ([]models.LedgerTransaction, error) {
	var txns []models.LedgerTransaction
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
