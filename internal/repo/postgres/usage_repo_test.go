package postgres

import (
	"testing"
	"time"
)

func TestApplyResetsSamePeriodKeepsCounters(t *testing.T) {
	// Wednesday morning, watermark from the same day.
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	rec := UsageLimitRecord{
		UserID:             7,
		LikesUsed:          12,
		SuperLikesUsed:     2,
		SuperLikesWeekUsed: 1,
		AdsWatched:         1,
		BonusLikes:         3,
		LastResetAt:        now.Add(-6 * time.Hour),
		LastWeeklyResetAt:  now.Add(-48 * time.Hour),
	}

	applyResets(&rec, now, time.UTC)

	if rec.LikesUsed != 12 || rec.SuperLikesUsed != 2 || rec.AdsWatched != 1 || rec.BonusLikes != 3 {
		t.Fatalf("same-day counters must survive, got %+v", rec)
	}
	if rec.SuperLikesWeekUsed != 1 {
		t.Fatalf("same-week counter must survive, got %d", rec.SuperLikesWeekUsed)
	}
}

func TestApplyResetsElapsedDayZeroesDailyCounters(t *testing.T) {
	// Wednesday, watermark from Tuesday. The weekly counter stays.
	now := time.Date(2026, 8, 19, 0, 30, 0, 0, time.UTC)
	rec := UsageLimitRecord{
		UserID:             7,
		LikesUsed:          25,
		SuperLikesUsed:     5,
		SuperLikesWeekUsed: 1,
		AdsWatched:         3,
		BonusLikes:         2,
		LastResetAt:        time.Date(2026, 8, 18, 23, 50, 0, 0, time.UTC),
		LastWeeklyResetAt:  time.Date(2026, 8, 17, 8, 0, 0, 0, time.UTC),
	}

	applyResets(&rec, now, time.UTC)

	if rec.LikesUsed != 0 || rec.SuperLikesUsed != 0 || rec.AdsWatched != 0 || rec.BonusLikes != 0 {
		t.Fatalf("elapsed day must zero daily counters, got %+v", rec)
	}
	if rec.SuperLikesWeekUsed != 1 {
		t.Fatalf("weekly counter must survive a daily reset, got %d", rec.SuperLikesWeekUsed)
	}
	if !rec.LastResetAt.Equal(now.UTC()) {
		t.Fatalf("daily watermark must advance to now, got %v", rec.LastResetAt)
	}
}

func TestApplyResetsElapsedWeekZeroesWeeklyCounter(t *testing.T) {
	// Monday, watermark from the previous week's Sunday.
	now := time.Date(2026, 8, 17, 9, 0, 0, 0, time.UTC)
	rec := UsageLimitRecord{
		UserID:             7,
		SuperLikesWeekUsed: 1,
		LastResetAt:        time.Date(2026, 8, 16, 22, 0, 0, 0, time.UTC),
		LastWeeklyResetAt:  time.Date(2026, 8, 16, 22, 0, 0, 0, time.UTC),
	}

	applyResets(&rec, now, time.UTC)

	if rec.SuperLikesWeekUsed != 0 {
		t.Fatalf("elapsed week must zero the weekly counter, got %d", rec.SuperLikesWeekUsed)
	}
	if !rec.LastWeeklyResetAt.Equal(now.UTC()) {
		t.Fatalf("weekly watermark must advance to now, got %v", rec.LastWeeklyResetAt)
	}
}

func TestApplyResetsHonorsUserTimezone(t *testing.T) {
	// 23:30 UTC on the 18th is already the 19th in Kathmandu, so a watermark
	// from Kathmandu's 18th must reset even though UTC still agrees on the day.
	loc, err := time.LoadLocation("Asia/Kathmandu")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	now := time.Date(2026, 8, 18, 23, 30, 0, 0, time.UTC)
	rec := UsageLimitRecord{
		UserID:      7,
		LikesUsed:   10,
		LastResetAt: time.Date(2026, 8, 18, 10, 0, 0, 0, time.UTC),
	}

	applyResets(&rec, now, loc)

	if rec.LikesUsed != 0 {
		t.Fatalf("local-midnight boundary must reset daily counters, got %d likes used", rec.LikesUsed)
	}

	// The same pair of instants is one day in UTC.
	utcRec := UsageLimitRecord{
		UserID:      7,
		LikesUsed:   10,
		LastResetAt: time.Date(2026, 8, 18, 10, 0, 0, 0, time.UTC),
	}
	applyResets(&utcRec, now, time.UTC)
	if utcRec.LikesUsed != 10 {
		t.Fatalf("UTC view of the same instants must not reset, got %d likes used", utcRec.LikesUsed)
	}
}
