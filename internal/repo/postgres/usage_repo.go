package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeshi-rangzen/momomi-sub000/internal/domain/rules"
)

var (
	ErrLikeLimitReached      = errors.New("daily like limit reached")
	ErrSuperLikeLimitReached = errors.New("super-like limit reached")
	ErrAdLimitReached        = errors.New("daily ad watch limit reached")
)

type UsageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *UsageRepo {
	return &UsageRepo{pool: pool}
}

type UsageLimitRecord struct {
	UserID             int64
	LikesUsed          int
	SuperLikesUsed     int
	SuperLikesWeekUsed int
	AdsWatched         int
	BonusLikes         int
	LastResetAt        time.Time
	LastWeeklyResetAt  time.Time
}

type LikeSpend struct {
	FromBonus bool
	Record    UsageLimitRecord
}

// ConsumeLike spends one like inside the caller's transaction. The bonus
// pool earned from ads is drained before the daily counter moves.
func (r *UsageRepo) ConsumeLike(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, loc *time.Location, dailyCap int) (LikeSpend, error) {
	if userID <= 0 || dailyCap <= 0 {
		return LikeSpend{}, fmt.Errorf("invalid like consume payload")
	}

	rec, err := r.lockForUpdate(ctx, tx, userID, now, loc)
	if err != nil {
		return LikeSpend{}, err
	}

	spend := LikeSpend{}
	switch {
	case rec.BonusLikes > 0:
		rec.BonusLikes--
		spend.FromBonus = true
	case rec.LikesUsed < dailyCap:
		rec.LikesUsed++
	default:
		return LikeSpend{}, ErrLikeLimitReached
	}

	if err := r.save(ctx, tx, rec); err != nil {
		return LikeSpend{}, err
	}
	spend.Record = rec
	return spend, nil
}

// ConsumeSuperLike spends one super-like. Free tier is bounded by the weekly
// counter, premium by the daily one; both counters always advance.
func (r *UsageRepo) ConsumeSuperLike(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, loc *time.Location, limit int, weekly bool) (UsageLimitRecord, error) {
	if userID <= 0 || limit <= 0 {
		return UsageLimitRecord{}, fmt.Errorf("invalid super-like consume payload")
	}

	rec, err := r.lockForUpdate(ctx, tx, userID, now, loc)
	if err != nil {
		return UsageLimitRecord{}, err
	}

	if weekly {
		if rec.SuperLikesWeekUsed >= limit {
			return UsageLimitRecord{}, ErrSuperLikeLimitReached
		}
	} else if rec.SuperLikesUsed >= limit {
		return UsageLimitRecord{}, ErrSuperLikeLimitReached
	}

	rec.SuperLikesUsed++
	rec.SuperLikesWeekUsed++

	if err := r.save(ctx, tx, rec); err != nil {
		return UsageLimitRecord{}, err
	}
	return rec, nil
}

// AddAdWatch records one watched ad and credits the bonus like pool.
func (r *UsageRepo) AddAdWatch(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, loc *time.Location, adsPerDay, bonusPerAd int) (UsageLimitRecord, error) {
	if userID <= 0 || adsPerDay <= 0 || bonusPerAd <= 0 {
		return UsageLimitRecord{}, fmt.Errorf("invalid ad watch payload")
	}

	rec, err := r.lockForUpdate(ctx, tx, userID, now, loc)
	if err != nil {
		return UsageLimitRecord{}, err
	}

	if rec.AdsWatched >= adsPerDay {
		return UsageLimitRecord{}, ErrAdLimitReached
	}
	rec.AdsWatched++
	rec.BonusLikes += bonusPerAd

	if err := r.save(ctx, tx, rec); err != nil {
		return UsageLimitRecord{}, err
	}
	return rec, nil
}

// Get returns the effective counters. Elapsed watermarks read as zeroed
// counters without writing anything back.
func (r *UsageRepo) Get(ctx context.Context, userID int64, now time.Time, loc *time.Location) (UsageLimitRecord, error) {
	if userID <= 0 {
		return UsageLimitRecord{}, fmt.Errorf("invalid user id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.pool == nil {
		return freshRecord(userID, now), nil
	}

	var rec UsageLimitRecord
	err := r.pool.QueryRow(ctx, `
SELECT user_id, likes_used, super_likes_used, super_likes_week_used, ads_watched, bonus_likes, last_reset_at, last_weekly_reset_at
FROM usage_limits
WHERE user_id = $1
LIMIT 1
`, userID).Scan(
		&rec.UserID,
		&rec.LikesUsed,
		&rec.SuperLikesUsed,
		&rec.SuperLikesWeekUsed,
		&rec.AdsWatched,
		&rec.BonusLikes,
		&rec.LastResetAt,
		&rec.LastWeeklyResetAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return freshRecord(userID, now), nil
		}
		return UsageLimitRecord{}, fmt.Errorf("get usage limits: %w", err)
	}

	applyResets(&rec, now, loc)
	return rec, nil
}

// lockForUpdate lazily creates the row, locks it, and applies the watermark
// resets so callers always see current-period counters.
func (r *UsageRepo) lockForUpdate(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, loc *time.Location) (UsageLimitRecord, error) {
	if tx == nil {
		return UsageLimitRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO usage_limits (
	user_id,
	likes_used,
	super_likes_used,
	super_likes_week_used,
	ads_watched,
	bonus_likes,
	last_reset_at,
	last_weekly_reset_at
) VALUES ($1, 0, 0, 0, 0, 0, $2, $2)
ON CONFLICT (user_id) DO NOTHING
`, userID, now.UTC()); err != nil {
		return UsageLimitRecord{}, fmt.Errorf("ensure usage limits row: %w", err)
	}

	var rec UsageLimitRecord
	err := tx.QueryRow(ctx, `
SELECT user_id, likes_used, super_likes_used, super_likes_week_used, ads_watched, bonus_likes, last_reset_at, last_weekly_reset_at
FROM usage_limits
WHERE user_id = $1
FOR UPDATE
`, userID).Scan(
		&rec.UserID,
		&rec.LikesUsed,
		&rec.SuperLikesUsed,
		&rec.SuperLikesWeekUsed,
		&rec.AdsWatched,
		&rec.BonusLikes,
		&rec.LastResetAt,
		&rec.LastWeeklyResetAt,
	)
	if err != nil {
		return UsageLimitRecord{}, fmt.Errorf("lock usage limits row: %w", err)
	}

	applyResets(&rec, now, loc)
	return rec, nil
}

func (r *UsageRepo) save(ctx context.Context, tx pgx.Tx, rec UsageLimitRecord) error {
	if _, err := tx.Exec(ctx, `
UPDATE usage_limits
SET
	likes_used = $2,
	super_likes_used = $3,
	super_likes_week_used = $4,
	ads_watched = $5,
	bonus_likes = $6,
	last_reset_at = $7,
	last_weekly_reset_at = $8,
	updated_at = NOW()
WHERE user_id = $1
`,
		rec.UserID,
		rec.LikesUsed,
		rec.SuperLikesUsed,
		rec.SuperLikesWeekUsed,
		rec.AdsWatched,
		rec.BonusLikes,
		rec.LastResetAt.UTC(),
		rec.LastWeeklyResetAt.UTC(),
	); err != nil {
		return fmt.Errorf("save usage limits: %w", err)
	}

	return nil
}

func applyResets(rec *UsageLimitRecord, now time.Time, loc *time.Location) {
	if !rules.SameDay(rec.LastResetAt, now, loc) {
		rec.LikesUsed = 0
		rec.SuperLikesUsed = 0
		rec.AdsWatched = 0
		rec.BonusLikes = 0
		rec.LastResetAt = now.UTC()
	}
	if !rules.SameWeek(rec.LastWeeklyResetAt, now, loc) {
		rec.SuperLikesWeekUsed = 0
		rec.LastWeeklyResetAt = now.UTC()
	}
}

func freshRecord(userID int64, now time.Time) UsageLimitRecord {
	return UsageLimitRecord{
		UserID:            userID,
		LastResetAt:       now.UTC(),
		LastWeeklyResetAt: now.UTC(),
	}
}
