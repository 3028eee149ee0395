package bids

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse-backend/internal/auctions"
	"github.com/gavelworks/auctionhouse-backend/internal/ledger"
	"github.com/gavelworks/auctionhouse-backend/internal/notifications"
	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
	"github.com/gavelworks/auctionhouse-backend/pkg/logger"
)

type testRunner struct {
	db *gorm.DB
}

func (r testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupBidsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:bids_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS auctions (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  starting_price NUMERIC NOT NULL,
  start_time DATETIME NOT NULL,
  end_time DATETIME NOT NULL,
  state TEXT NOT NULL DEFAULT 'open',
  winning_bid_id TEXT,
  completed INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS bids (
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL,
  bidder_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  placed_at DATETIME NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL UNIQUE,
  available_balance NUMERIC NOT NULL DEFAULT 0,
  frozen_balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS ledger_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  related_auction_id TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, now time.Time) *Service {
	t.Helper()
	return newTestServiceWith(t, db, now, auctions.NewRepository(db))
}

func newTestServiceWith(t *testing.T, db *gorm.DB, now time.Time, auctionRepo auctions.Repository) *Service {
	t.Helper()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), testRunner{db: db})
	require.NoError(t, err)

	dispatcher, err := notifications.NewInAppDispatcher(notifications.NewRepository(db))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(db),
		AuctionRepo: auctionRepo,
		Ledger:      ledgerSvc,
		Dispatcher:  dispatcher,
		DB:          testRunner{db: db},
		Log:         logger.New(logger.Options{ServiceName: "bids-test", Output: io.Discard}),
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func seedAuction(t *testing.T, db *gorm.DB, state enums.AuctionState, start, end time.Time) *models.Auction {
	t.Helper()

	auction := &models.Auction{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Title:         "Estate clock",
		StartingPrice: decimal.RequireFromString("50.00"),
		StartTime:     start,
		EndTime:       end,
		State:         state,
	}
	require.NoError(t, db.Create(auction).Error)
	return auction
}

func seedWallet(t *testing.T, db *gorm.DB, available string) *models.Wallet {
	t.Helper()
	return seedWalletOwned(t, db, uuid.New(), available)
}

func seedWalletOwned(t *testing.T, db *gorm.DB, ownerID uuid.UUID, available string) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		AvailableBalance: decimal.RequireFromString(available),
		FrozenBalance:    decimal.Zero,
	}
	require.NoError(t, db.Create(wallet).Error)
	return wallet
}

func reloadWallet(t *testing.T, db *gorm.DB, id uuid.UUID) models.Wallet {
	t.Helper()

	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, "id = ?", id).Error)
	return wallet
}

func countBids(t *testing.T, db *gorm.DB, auctionID uuid.UUID) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&models.Bid{}).Where("auction_id = ?", auctionID).Count(&n).Error)
	return n
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uuid.UUID) []models.Notification {
	t.Helper()

	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&rows).Error)
	return rows
}

func TestPlaceBid_firstBidFreezesFunds(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
	wallet := seedWallet(t, db, "200.00")

	bid, err := svc.PlaceBid(ctx, auction.ID, wallet.OwnerID, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	assert.Equal(t, auction.ID, bid.AuctionID)
	assert.True(t, bid.Amount.Equal(decimal.RequireFromString("60.00")))

	after := reloadWallet(t, db, wallet.ID)
	assert.True(t, after.AvailableBalance.Equal(decimal.RequireFromString("140.00")))
	assert.True(t, after.FrozenBalance.Equal(decimal.RequireFromString("60.00")))
}

func TestPlaceBid_outbidReleasesSupersededHold(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
	first := seedWallet(t, db, "100.00")
	second := seedWallet(t, db, "200.00")

	_, err := svc.PlaceBid(ctx, auction.ID, first.OwnerID, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, auction.ID, second.OwnerID, decimal.RequireFromString("80.00"))
	require.NoError(t, err)

	// The outbid bidder's hold is gone; only the leader holds funds.
	firstAfter := reloadWallet(t, db, first.ID)
	assert.True(t, firstAfter.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, firstAfter.FrozenBalance.Equal(decimal.Zero))

	secondAfter := reloadWallet(t, db, second.ID)
	assert.True(t, secondAfter.AvailableBalance.Equal(decimal.RequireFromString("120.00")))
	assert.True(t, secondAfter.FrozenBalance.Equal(decimal.RequireFromString("80.00")))

	// Losing the lead notifies the superseded bidder.
	notes := notificationsFor(t, db, first.OwnerID)
	require.Len(t, notes, 1)
	assert.Equal(t, enums.NotificationTypeOutbid, notes[0].Type)
	assert.Empty(t, notificationsFor(t, db, second.OwnerID))
}

func TestPlaceBid_selfOutbidSwapsHold(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
	wallet := seedWallet(t, db, "200.00")

	_, err := svc.PlaceBid(ctx, auction.ID, wallet.OwnerID, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, auction.ID, wallet.OwnerID, decimal.RequireFromString("90.00"))
	require.NoError(t, err)

	// Exactly one active hold, covering the newer bid only.
	after := reloadWallet(t, db, wallet.ID)
	assert.True(t, after.AvailableBalance.Equal(decimal.RequireFromString("110.00")))
	assert.True(t, after.FrozenBalance.Equal(decimal.RequireFromString("90.00")))

	// Raising your own bid is not an outbid.
	assert.Empty(t, notificationsFor(t, db, wallet.OwnerID))
}

// Outbidding swaps holds on two distinct wallets. Run the swap with the
// superseded bidder on either side of the byte ordering the ledger locks
// wallets in, so both acquisition orders stay covered.
func TestPlaceBid_outbidHoldSwapEitherWalletOrder(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-ffff-ffff-ffff-fffffffffff0")

	cases := []struct {
		name    string
		leader  uuid.UUID
		overbid uuid.UUID
	}{
		{name: "leader sorts first", leader: low, overbid: high},
		{name: "overbidder sorts first", leader: high, overbid: low},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupBidsTestDB(t)
			now := time.Now()
			svc := newTestService(t, db, now)
			ctx := context.Background()

			auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
			leader := seedWalletOwned(t, db, tc.leader, "100.00")
			overbidder := seedWalletOwned(t, db, tc.overbid, "200.00")

			_, err := svc.PlaceBid(ctx, auction.ID, leader.OwnerID, decimal.RequireFromString("60.00"))
			require.NoError(t, err)
			_, err = svc.PlaceBid(ctx, auction.ID, overbidder.OwnerID, decimal.RequireFromString("80.00"))
			require.NoError(t, err)

			leaderAfter := reloadWallet(t, db, leader.ID)
			assert.True(t, leaderAfter.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
			assert.True(t, leaderAfter.FrozenBalance.Equal(decimal.Zero))

			overbidderAfter := reloadWallet(t, db, overbidder.ID)
			assert.True(t, overbidderAfter.AvailableBalance.Equal(decimal.RequireFromString("120.00")))
			assert.True(t, overbidderAfter.FrozenBalance.Equal(decimal.RequireFromString("80.00")))
		})
	}
}

// auctionLockGate sequences two bidders through the per-auction lock: the
// first caller announces itself and proceeds, later callers park until the
// test lets them through.
type auctionLockGate struct {
	mu      sync.Mutex
	entered bool
	firstIn chan struct{}
	release chan struct{}
}

type gatingAuctionRepo struct {
	auctions.Repository
	gate *auctionLockGate
}

func (r gatingAuctionRepo) WithTx(tx *gorm.DB) auctions.Repository {
	return gatingAuctionRepo{Repository: r.Repository.WithTx(tx), gate: r.gate}
}

func (r gatingAuctionRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	r.gate.mu.Lock()
	first := !r.gate.entered
	r.gate.entered = true
	r.gate.mu.Unlock()
	if first {
		close(r.gate.firstIn)
	} else {
		<-r.gate.release
	}
	return r.Repository.FindByIDForUpdate(ctx, id)
}

func TestPlaceBid_concurrentEqualBidsSingleWinner(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	gate := &auctionLockGate{firstIn: make(chan struct{}), release: make(chan struct{})}
	svc := newTestServiceWith(t, db, now, gatingAuctionRepo{Repository: auctions.NewRepository(db), gate: gate})
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
	first := seedWallet(t, db, "100.00")
	second := seedWallet(t, db, "100.00")
	amount := decimal.RequireFromString("60.00")

	firstErr := make(chan error, 1)
	secondErr := make(chan error, 1)
	go func() {
		_, err := svc.PlaceBid(ctx, auction.ID, first.OwnerID, amount)
		firstErr <- err
	}()
	<-gate.firstIn

	// The second bidder arrives while the first still holds the auction
	// lock and parks before reading any state.
	go func() {
		_, err := svc.PlaceBid(ctx, auction.ID, second.OwnerID, amount)
		secondErr <- err
	}()
	require.NoError(t, <-firstErr)
	close(gate.release)

	err := <-secondErr
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	// Exactly one bid and one hold survive.
	assert.EqualValues(t, 1, countBids(t, db, auction.ID))
	firstAfter := reloadWallet(t, db, first.ID)
	assert.True(t, firstAfter.AvailableBalance.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, firstAfter.FrozenBalance.Equal(amount))
	secondAfter := reloadWallet(t, db, second.ID)
	assert.True(t, secondAfter.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, secondAfter.FrozenBalance.Equal(decimal.Zero))
}

func TestPlaceBid_tooLowRejected(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
	leader := seedWallet(t, db, "100.00")
	challenger := seedWallet(t, db, "100.00")

	// Below starting price with no bids yet.
	_, err := svc.PlaceBid(ctx, auction.ID, leader.OwnerID, decimal.RequireFromString("49.99"))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.PlaceBid(ctx, auction.ID, leader.OwnerID, decimal.RequireFromString("60.00"))
	require.NoError(t, err)

	// Equal to the current highest is not an overbid.
	_, err = svc.PlaceBid(ctx, auction.ID, challenger.OwnerID, decimal.RequireFromString("60.00"))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	challengerAfter := reloadWallet(t, db, challenger.ID)
	assert.True(t, challengerAfter.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, challengerAfter.FrozenBalance.Equal(decimal.Zero))
	assert.EqualValues(t, 1, countBids(t, db, auction.ID))
}

func TestPlaceBid_insufficientFundsLeavesNoTrace(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
	wallet := seedWallet(t, db, "55.00")

	_, err := svc.PlaceBid(ctx, auction.ID, wallet.OwnerID, decimal.RequireFromString("60.00"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds))

	// No bid row, no partial freeze.
	after := reloadWallet(t, db, wallet.ID)
	assert.True(t, after.AvailableBalance.Equal(decimal.RequireFromString("55.00")))
	assert.True(t, after.FrozenBalance.Equal(decimal.Zero))
	assert.EqualValues(t, 0, countBids(t, db, auction.ID))

	var txnCount int64
	require.NoError(t, db.Model(&models.LedgerTransaction{}).Where("wallet_id = ?", wallet.ID).Count(&txnCount).Error)
	assert.EqualValues(t, 0, txnCount)
}

func TestPlaceBid_stateAndWindowChecks(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	wallet := seedWallet(t, db, "500.00")
	amount := decimal.RequireFromString("60.00")

	closed := seedAuction(t, db, enums.AuctionStateClosed, now.Add(-2*time.Hour), now.Add(-time.Hour))
	_, err := svc.PlaceBid(ctx, closed.ID, wallet.OwnerID, amount)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	// Still OPEN in the database but past its end time.
	expired := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-2*time.Hour), now.Add(-time.Minute))
	_, err = svc.PlaceBid(ctx, expired.ID, wallet.OwnerID, amount)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	notStarted := seedAuction(t, db, enums.AuctionStateOpen, now.Add(time.Hour), now.Add(2*time.Hour))
	_, err = svc.PlaceBid(ctx, notStarted.ID, wallet.OwnerID, amount)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.PlaceBid(ctx, uuid.New(), wallet.OwnerID, amount)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestPlaceBid_sellerCannotBid(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))

	_, err := svc.PlaceBid(ctx, auction.ID, auction.SellerID, decimal.RequireFromString("60.00"))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestListByAuction(t *testing.T) {
	db := setupBidsTestDB(t)
	now := time.Now()
	svc := newTestService(t, db, now)
	ctx := context.Background()

	auction := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Hour), now.Add(time.Hour))
	first := seedWallet(t, db, "100.00")
	second := seedWallet(t, db, "200.00")

	_, err := svc.PlaceBid(ctx, auction.ID, first.OwnerID, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, auction.ID, second.OwnerID, decimal.RequireFromString("80.00"))
	require.NoError(t, err)

	listed, err := svc.ListByAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].Amount.Equal(decimal.RequireFromString("80.00")))
	assert.True(t, listed[1].Amount.Equal(decimal.RequireFromString("60.00")))

	_, err = svc.ListByAuction(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
