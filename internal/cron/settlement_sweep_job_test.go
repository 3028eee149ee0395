package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
)

type fakeAuctionFinder struct {
	due       []models.Auction
	findErr   error
	closed    []uuid.UUID
	closeErrs map[uuid.UUID]error
}

func (f *fakeAuctionFinder) FindDue(ctx context.Context, limit int) ([]models.Auction, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if limit > 0 && len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeAuctionFinder) Close(ctx context.Context, id uuid.UUID) error {
	if err := f.closeErrs[id]; err != nil {
		return err
	}
	f.closed = append(f.closed, id)
	return nil
}

type fakeSettler struct {
	settled    []uuid.UUID
	settleErrs map[uuid.UUID]error
}

func (f *fakeSettler) SettleWithTimeout(ctx context.Context, auctionID uuid.UUID) error {
	if err := f.settleErrs[auctionID]; err != nil {
		return err
	}
	f.settled = append(f.settled, auctionID)
	return nil
}

func dueAuctions(n int) []models.Auction {
	out := make([]models.Auction, n)
	for i := range out {
		out[i] = models.Auction{ID: uuid.New()}
	}
	return out
}

func TestSettlementSweepJobDrivesAllDueAuctions(t *testing.T) {
	due := dueAuctions(3)
	finder := &fakeAuctionFinder{due: due}
	settler := &fakeSettler{}

	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:   testLogger(),
		Auctions: finder,
		Settler:  settler,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "settlement-sweep" {
		t.Fatalf("unexpected job name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(finder.closed) != 3 || len(settler.settled) != 3 {
		t.Fatalf("expected 3 closed and settled, got %d/%d", len(finder.closed), len(settler.settled))
	}
}

func TestSettlementSweepJobIsolatesFailures(t *testing.T) {
	due := dueAuctions(3)
	failing := due[1].ID
	finder := &fakeAuctionFinder{due: due}
	settler := &fakeSettler{settleErrs: map[uuid.UUID]error{failing: errors.New("frozen balance corrupt")}}

	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:   testLogger(),
		Auctions: finder,
		Settler:  settler,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	runErr := job.Run(context.Background())
	if runErr == nil {
		t.Fatal("expected aggregated error")
	}
	// The failing auction must not block the others.
	if len(settler.settled) != 2 {
		t.Fatalf("expected 2 settled, got %d", len(settler.settled))
	}
	for _, id := range settler.settled {
		if id == failing {
			t.Fatalf("failing auction should not appear settled")
		}
	}
}

func TestSettlementSweepJobCloseFailureSkipsSettle(t *testing.T) {
	due := dueAuctions(2)
	failing := due[0].ID
	finder := &fakeAuctionFinder{due: due, closeErrs: map[uuid.UUID]error{failing: errors.New("lock timeout")}}
	settler := &fakeSettler{}

	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:   testLogger(),
		Auctions: finder,
		Settler:  settler,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if runErr := job.Run(context.Background()); runErr == nil {
		t.Fatal("expected aggregated error")
	}
	if len(settler.settled) != 1 {
		t.Fatalf("expected 1 settled, got %d", len(settler.settled))
	}
	if settler.settled[0] != due[1].ID {
		t.Fatalf("wrong auction settled")
	}
}

func TestSettlementSweepJobBatchLimit(t *testing.T) {
	due := dueAuctions(5)
	finder := &fakeAuctionFinder{due: due}
	settler := &fakeSettler{}

	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:    testLogger(),
		Auctions:  finder,
		Settler:   settler,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(settler.settled) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(settler.settled))
	}
}
