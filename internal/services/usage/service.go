package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeshi-rangzen/momomi-sub000/internal/domain/rules"
	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDailyLimit      = errors.New("daily likes limit reached")
	ErrSuperLikeLimit  = errors.New("super-like limit reached")
	ErrAdLimit         = errors.New("daily ad watch limit reached")
	ErrDependenciesNil = errors.New("usage dependencies are not configured")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type UsageStore interface {
	Get(ctx context.Context, userID int64, now time.Time, loc *time.Location) (pgrepo.UsageLimitRecord, error)
	AddAdWatch(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, loc *time.Location, adsPerDay, bonusPerAd int) (pgrepo.UsageLimitRecord, error)
}

type SubscriptionChecker interface {
	IsPremiumActive(ctx context.Context, userID int64) (bool, error)
}

type Config struct {
	FreeLikesPerDay         int
	FreeSuperLikesPerWeek   int
	PremiumSuperLikesPerDay int
	AdsWatchedPerDay        int
	BonusLikesPerAd         int
	DefaultTimezone         string
}

// Snapshot is the effective view of a user's counters after lazy resets.
// LikesLimit of zero means unlimited.
type Snapshot struct {
	IsPremium        bool
	LikesUsed        int
	LikesLimit       int
	LikesLeft        int
	BonusLikes       int
	SuperLikesUsed   int
	SuperLikesLimit  int
	SuperLikesLeft   int
	SuperLikesWeekly bool
	AdsWatched       int
	AdsLeft          int
	ResetAt          time.Time
}

type Service struct {
	pool          *pgxpool.Pool
	store         UsageStore
	subscriptions SubscriptionChecker
	cfg           Config
	now           func() time.Time
}

func NewService(pool *pgxpool.Pool, store UsageStore, subscriptions SubscriptionChecker, cfg Config) *Service {
	if cfg.FreeLikesPerDay <= 0 {
		cfg.FreeLikesPerDay = rules.FreeLikesPerDay
	}
	if cfg.FreeSuperLikesPerWeek <= 0 {
		cfg.FreeSuperLikesPerWeek = rules.FreeSuperLikesPerWeek
	}
	if cfg.PremiumSuperLikesPerDay <= 0 {
		cfg.PremiumSuperLikesPerDay = rules.PremiumSuperLikesPerDay
	}
	if cfg.AdsWatchedPerDay <= 0 {
		cfg.AdsWatchedPerDay = rules.AdsWatchedPerDay
	}
	if cfg.BonusLikesPerAd <= 0 {
		cfg.BonusLikesPerAd = rules.BonusLikesPerAd
	}
	if strings.TrimSpace(cfg.DefaultTimezone) == "" {
		cfg.DefaultTimezone = "UTC"
	}

	return &Service{
		pool:          pool,
		store:         store,
		subscriptions: subscriptions,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *Service) GetSnapshot(ctx context.Context, userID int64, timezone string) (Snapshot, error) {
	if userID <= 0 {
		return Snapshot{}, ErrValidation
	}
	if s.store == nil || s.subscriptions == nil {
		return Snapshot{}, ErrDependenciesNil
	}

	now := s.now().UTC()
	loc := s.resolveTimezone(timezone)

	isPremium, err := s.subscriptions.IsPremiumActive(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolve subscription tier: %w", err)
	}

	rec, err := s.store.Get(ctx, userID, now, loc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read usage counters: %w", err)
	}

	return s.compose(rec, isPremium, now, loc), nil
}

// WatchAd records one rewarded ad view and credits bonus likes.
func (s *Service) WatchAd(ctx context.Context, userID int64, timezone string) (Snapshot, error) {
	if userID <= 0 {
		return Snapshot{}, ErrValidation
	}
	if s.pool == nil || s.store == nil || s.subscriptions == nil {
		return Snapshot{}, ErrDependenciesNil
	}

	now := s.now().UTC()
	loc := s.resolveTimezone(timezone)

	isPremium, err := s.subscriptions.IsPremiumActive(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolve subscription tier: %w", err)
	}

	var rec pgrepo.UsageLimitRecord
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		updated, err := s.store.AddAdWatch(txCtx, tx, userID, now, loc, s.cfg.AdsWatchedPerDay, s.cfg.BonusLikesPerAd)
		if err != nil {
			if errors.Is(err, pgrepo.ErrAdLimitReached) {
				return ErrAdLimit
			}
			return err
		}
		rec = updated
		return nil
	}); err != nil {
		return Snapshot{}, err
	}

	return s.compose(rec, isPremium, now, loc), nil
}

func (s *Service) compose(rec pgrepo.UsageLimitRecord, isPremium bool, now time.Time, loc *time.Location) Snapshot {
	snapshot := Snapshot{
		IsPremium:      isPremium,
		LikesUsed:      rec.LikesUsed,
		BonusLikes:     rec.BonusLikes,
		SuperLikesUsed: rec.SuperLikesUsed,
		AdsWatched:     rec.AdsWatched,
		ResetAt:        rules.NextResetAt(now, loc),
	}

	if !isPremium {
		snapshot.LikesLimit = s.cfg.FreeLikesPerDay
		snapshot.LikesLeft = s.cfg.FreeLikesPerDay - rec.LikesUsed + rec.BonusLikes
		if snapshot.LikesLeft < 0 {
			snapshot.LikesLeft = 0
		}
		snapshot.SuperLikesWeekly = true
		snapshot.SuperLikesUsed = rec.SuperLikesWeekUsed
		snapshot.SuperLikesLimit = s.cfg.FreeSuperLikesPerWeek
		snapshot.SuperLikesLeft = s.cfg.FreeSuperLikesPerWeek - rec.SuperLikesWeekUsed
	} else {
		snapshot.SuperLikesLimit = s.cfg.PremiumSuperLikesPerDay
		snapshot.SuperLikesLeft = s.cfg.PremiumSuperLikesPerDay - rec.SuperLikesUsed
	}
	if snapshot.SuperLikesLeft < 0 {
		snapshot.SuperLikesLeft = 0
	}

	snapshot.AdsLeft = s.cfg.AdsWatchedPerDay - rec.AdsWatched
	if snapshot.AdsLeft < 0 {
		snapshot.AdsLeft = 0
	}

	return snapshot
}

func (s *Service) resolveTimezone(explicit string) *time.Location {
	candidate := strings.TrimSpace(explicit)
	if candidate == "" {
		candidate = strings.TrimSpace(s.cfg.DefaultTimezone)
	}
	if candidate == "" {
		candidate = "UTC"
	}

	loc, err := time.LoadLocation(candidate)
	if err != nil {
		return time.UTC
	}
	return loc
}
