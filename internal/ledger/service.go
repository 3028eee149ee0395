// Package ledger owns every wallet balance mutation. Funds move between
// the available and frozen buckets only here, always inside a transaction
// holding the wallet row lock, and always paired with an immutable
// LedgerTransaction audit row.
package ledger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
)

// Service defines the wallet mutation and read operations.
type Service interface {
	// WithTx returns a Service whose mutations join the given transaction
	// instead of opening their own.
	WithTx(tx *gorm.DB) Service
	// Freeze moves amount from available to frozen against a standing bid.
	Freeze(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, auctionID uuid.UUID) error
	// Release returns a superseded hold from frozen to available.
	Release(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, auctionID uuid.UUID) error
	// Settle debits the winner's frozen balance and credits the seller's
	// available balance, all-or-nothing.
	Settle(ctx context.Context, winnerOwnerID, sellerOwnerID uuid.UUID, amount decimal.Decimal, auctionID uuid.UUID) error
	Balances(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	Transactions(ctx context.Context, ownerID uuid.UUID) ([]models.LedgerTransaction, error)
}

// txRunner abstracts the transaction boundary so operations compose with an
// enclosing transaction (bid placement) or run standalone.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type boundRunner struct {
	tx *gorm.DB
}

func (b boundRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(b.tx)
}

type service struct {
	repo Repository
	db   txRunner
}

// NewService wires a ledger service with the provided repository and
// transaction runner.
func NewService(repo Repository, db txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, db: db}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), db: boundRunner{tx: tx}}
}

func (s *service) Freeze(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, auctionID uuid.UUID) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := lockWallet(ctx, repo, ownerID)
		if err != nil {
			return err
		}
		if wallet.AvailableBalance.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds,
				fmt.Sprintf("available balance %s below requested hold %s", wallet.AvailableBalance, amount)).
				WithDetails(map[string]any{
					"available": wallet.AvailableBalance.String(),
					"requested": amount.String(),
				})
		}
		return applyMutation(ctx, repo, wallet, walletMutation{
			available: wallet.AvailableBalance.Sub(amount),
			frozen:    wallet.FrozenBalance.Add(amount),
			txnType:   enums.LedgerTransactionTypeFreeze,
			amount:    amount,
			auctionID: auctionID,
		})
	})
}

func (s *service) Release(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, auctionID uuid.UUID) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := lockWallet(ctx, repo, ownerID)
		if err != nil {
			return err
		}
		if wallet.FrozenBalance.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("frozen balance %s below requested release %s", wallet.FrozenBalance, amount))
		}
		return applyMutation(ctx, repo, wallet, walletMutation{
			available: wallet.AvailableBalance.Add(amount),
			frozen:    wallet.FrozenBalance.Sub(amount),
			txnType:   enums.LedgerTransactionTypeRelease,
			amount:    amount,
			auctionID: auctionID,
		})
	})
}

func (s *service) Settle(ctx context.Context, winnerOwnerID, sellerOwnerID uuid.UUID, amount decimal.Decimal, auctionID uuid.UUID) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if winnerOwnerID == sellerOwnerID {
		return pkgerrors.New(pkgerrors.CodeValidation, "winner and seller must differ")
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Lock both wallet rows in a deterministic order so two overlapping
		// settlements can never deadlock.
		first, second := winnerOwnerID, sellerOwnerID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}
		wallets := map[uuid.UUID]*models.Wallet{}
		for _, ownerID := range []uuid.UUID{first, second} {
			wallet, err := lockWallet(ctx, repo, ownerID)
			if err != nil {
				return err
			}
			wallets[ownerID] = wallet
		}

		winner := wallets[winnerOwnerID]
		seller := wallets[sellerOwnerID]

		if winner.FrozenBalance.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInvariant,
				fmt.Sprintf("winner frozen balance %s below settlement amount %s", winner.FrozenBalance, amount))
		}

		if err := applyMutation(ctx, repo, winner, walletMutation{
			available: winner.AvailableBalance,
			frozen:    winner.FrozenBalance.Sub(amount),
			txnType:   enums.LedgerTransactionTypeDebit,
			amount:    amount,
			auctionID: auctionID,
		}); err != nil {
			return err
		}
		return applyMutation(ctx, repo, seller, walletMutation{
			available: seller.AvailableBalance.Add(amount),
			frozen:    seller.FrozenBalance,
			txnType:   enums.LedgerTransactionTypeCredit,
			amount:    amount,
			auctionID: auctionID,
		})
	})
}

func (s *service) Balances(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	wallet, err := s.repo.FindWalletByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return wallet, nil
}

func (s *service) Transactions(ctx context.Context, ownerID uuid.UUID) ([]models.LedgerTransaction, error) {
	wallet, err := s.Balances(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactionsByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger transactions")
	}
	return txns, nil
}

type walletMutation struct {
	available decimal.Decimal
	frozen    decimal.Decimal
	txnType   enums.LedgerTransactionType
	amount    decimal.Decimal
	auctionID uuid.UUID
}

func applyMutation(ctx context.Context, repo Repository, wallet *models.Wallet, m walletMutation) error {
	if err := repo.UpdateWalletBalances(ctx, wallet.ID, m.available, m.frozen); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balances")
	}
	txn := &models.LedgerTransaction{
		WalletID:         wallet.ID,
		Type:             m.txnType,
		Amount:           m.amount,
		RelatedAuctionID: auctionRef(m.auctionID),
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger transaction")
	}
	wallet.AvailableBalance = m.available
	wallet.FrozenBalance = m.frozen
	return nil
}

func lockWallet(ctx context.Context, repo Repository, ownerID uuid.UUID) (*models.Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	wallet, err := repo.FindWalletByOwnerForUpdate(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}
	if wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return wallet, nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}

func auctionRef(auctionID uuid.UUID) *uuid.UUID {
	if auctionID == uuid.Nil {
		return nil
	}
	ref := auctionID
	return &ref
}
