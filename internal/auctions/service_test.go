package auctions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
)

type testRunner struct {
	db *gorm.DB
}

func (r testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, now time.Time) (*Service, *gorm.DB) {
	t.Helper()

	db := setupAuctionsTestDB(t)
	svc, err := NewService(ServiceParams{
		Repo: NewRepository(db),
		DB:   testRunner{db: db},
		Now:  func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc, db
}

func TestServiceCreate(t *testing.T) {
	now := time.Now()
	svc, db := newTestService(t, now)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAuctionInput{
		SellerID:      uuid.New(),
		Title:         "  Vintage synthesizer  ",
		StartingPrice: decimal.RequireFromString("50.00"),
		StartTime:     now,
		EndTime:       now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "Vintage synthesizer", created.Title)
	assert.Equal(t, enums.AuctionStateOpen, created.State)
	assert.False(t, created.Completed)

	var reloaded models.Auction
	require.NoError(t, db.First(&reloaded, "id = ?", created.ID).Error)
	assert.Equal(t, enums.AuctionStateOpen, reloaded.State)
}

func TestServiceCreate_validation(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateAuctionInput
	}{
		{
			name: "missing seller",
			input: CreateAuctionInput{
				Title:         "Lot",
				StartingPrice: decimal.RequireFromString("10.00"),
				StartTime:     now,
				EndTime:       now.Add(time.Hour),
			},
		},
		{
			name: "blank title",
			input: CreateAuctionInput{
				SellerID:      uuid.New(),
				Title:         "   ",
				StartingPrice: decimal.RequireFromString("10.00"),
				StartTime:     now,
				EndTime:       now.Add(time.Hour),
			},
		},
		{
			name: "zero starting price",
			input: CreateAuctionInput{
				SellerID:  uuid.New(),
				Title:     "Lot",
				StartTime: now,
				EndTime:   now.Add(time.Hour),
			},
		},
		{
			name: "window inverted",
			input: CreateAuctionInput{
				SellerID:      uuid.New(),
				Title:         "Lot",
				StartingPrice: decimal.RequireFromString("10.00"),
				StartTime:     now.Add(time.Hour),
				EndTime:       now,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestServiceGet(t *testing.T) {
	now := time.Now()
	svc, db := newTestService(t, now)
	ctx := context.Background()

	seeded := seedAuction(t, db, enums.AuctionStateOpen, now.Add(time.Hour), false)

	found, err := svc.Get(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestServiceClose(t *testing.T) {
	now := time.Now()
	svc, db := newTestService(t, now)
	ctx := context.Background()

	seeded := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Minute), false)

	require.NoError(t, svc.Close(ctx, seeded.ID))

	var reloaded models.Auction
	require.NoError(t, db.First(&reloaded, "id = ?", seeded.ID).Error)
	assert.Equal(t, enums.AuctionStateClosed, reloaded.State)

	// Closing again is a no-op, tolerating overlapping sweeps.
	require.NoError(t, svc.Close(ctx, seeded.ID))
	require.NoError(t, db.First(&reloaded, "id = ?", seeded.ID).Error)
	assert.Equal(t, enums.AuctionStateClosed, reloaded.State)
}

func TestServiceClose_settledStaysSettled(t *testing.T) {
	now := time.Now()
	svc, db := newTestService(t, now)
	ctx := context.Background()

	seeded := seedAuction(t, db, enums.AuctionStateSettled, now.Add(-time.Hour), true)

	require.NoError(t, svc.Close(ctx, seeded.ID))

	var reloaded models.Auction
	require.NoError(t, db.First(&reloaded, "id = ?", seeded.ID).Error)
	assert.Equal(t, enums.AuctionStateSettled, reloaded.State)
}

func TestServiceClose_notFound(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	err := svc.Close(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestServiceFindDue(t *testing.T) {
	now := time.Now()
	svc, db := newTestService(t, now)
	ctx := context.Background()

	due := seedAuction(t, db, enums.AuctionStateOpen, now.Add(-time.Minute), false)
	seedAuction(t, db, enums.AuctionStateOpen, now.Add(time.Hour), false)

	found, err := svc.FindDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)
}
