package usage

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
)

type usageStoreStub struct {
	record pgrepo.UsageLimitRecord
}

func (s usageStoreStub) Get(context.Context, int64, time.Time, *time.Location) (pgrepo.UsageLimitRecord, error) {
	return s.record, nil
}

func (s usageStoreStub) AddAdWatch(context.Context, pgx.Tx, int64, time.Time, *time.Location, int, int) (pgrepo.UsageLimitRecord, error) {
	return s.record, nil
}

type subscriptionStub struct {
	premium bool
}

func (s subscriptionStub) IsPremiumActive(context.Context, int64) (bool, error) {
	return s.premium, nil
}

func newServiceForTest(record pgrepo.UsageLimitRecord, premium bool) *Service {
	svc := NewService(nil, usageStoreStub{record: record}, subscriptionStub{premium: premium}, Config{
		FreeLikesPerDay:         25,
		FreeSuperLikesPerWeek:   1,
		PremiumSuperLikesPerDay: 5,
		AdsWatchedPerDay:        3,
		BonusLikesPerAd:         1,
	})
	svc.now = func() time.Time {
		return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestGetSnapshotFreeUser(t *testing.T) {
	svc := newServiceForTest(pgrepo.UsageLimitRecord{
		LikesUsed:          10,
		BonusLikes:         2,
		SuperLikesWeekUsed: 1,
		AdsWatched:         1,
	}, false)

	snapshot, err := svc.GetSnapshot(context.Background(), 1, "UTC")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}

	if snapshot.IsPremium {
		t.Fatal("expected free tier")
	}
	if snapshot.LikesLimit != 25 {
		t.Fatalf("likes limit = %d, want 25", snapshot.LikesLimit)
	}
	if snapshot.LikesLeft != 17 {
		t.Fatalf("likes left = %d, want 17 (15 daily + 2 bonus)", snapshot.LikesLeft)
	}
	if !snapshot.SuperLikesWeekly {
		t.Fatal("free super-likes accrue weekly")
	}
	if snapshot.SuperLikesLeft != 0 {
		t.Fatalf("super likes left = %d, want 0", snapshot.SuperLikesLeft)
	}
	if snapshot.AdsLeft != 2 {
		t.Fatalf("ads left = %d, want 2", snapshot.AdsLeft)
	}
	if snapshot.ResetAt.IsZero() {
		t.Fatal("reset time must be set")
	}
}

func TestGetSnapshotPremiumUser(t *testing.T) {
	svc := newServiceForTest(pgrepo.UsageLimitRecord{
		LikesUsed:      999,
		SuperLikesUsed: 3,
	}, true)

	snapshot, err := svc.GetSnapshot(context.Background(), 1, "UTC")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}

	if !snapshot.IsPremium {
		t.Fatal("expected premium tier")
	}
	if snapshot.LikesLimit != 0 {
		t.Fatalf("premium likes limit = %d, want 0 (unlimited)", snapshot.LikesLimit)
	}
	if snapshot.SuperLikesWeekly {
		t.Fatal("premium super-likes accrue daily")
	}
	if snapshot.SuperLikesLimit != 5 || snapshot.SuperLikesLeft != 2 {
		t.Fatalf("super likes = %d/%d left, want 2 of 5", snapshot.SuperLikesLeft, snapshot.SuperLikesLimit)
	}
}

func TestGetSnapshotClampsNegativeLeftovers(t *testing.T) {
	svc := newServiceForTest(pgrepo.UsageLimitRecord{
		LikesUsed:          40,
		SuperLikesWeekUsed: 4,
		AdsWatched:         9,
	}, false)

	snapshot, err := svc.GetSnapshot(context.Background(), 1, "UTC")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}

	if snapshot.LikesLeft != 0 || snapshot.SuperLikesLeft != 0 || snapshot.AdsLeft != 0 {
		t.Fatalf("leftovers must clamp at zero, got %d/%d/%d",
			snapshot.LikesLeft, snapshot.SuperLikesLeft, snapshot.AdsLeft)
	}
}

func TestGetSnapshotRejectsInvalidUser(t *testing.T) {
	svc := newServiceForTest(pgrepo.UsageLimitRecord{}, false)

	if _, err := svc.GetSnapshot(context.Background(), 0, "UTC"); err != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestResolveTimezoneFallsBackToUTC(t *testing.T) {
	svc := newServiceForTest(pgrepo.UsageLimitRecord{}, false)

	if loc := svc.resolveTimezone("Not/AZone"); loc != time.UTC {
		t.Fatalf("invalid timezone must fall back to UTC, got %v", loc)
	}
	if loc := svc.resolveTimezone("Asia/Kathmandu"); loc.String() != "Asia/Kathmandu" {
		t.Fatalf("unexpected location: %v", loc)
	}
}
