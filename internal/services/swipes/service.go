package swipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeshi-rangzen/momomi-sub000/internal/domain/enums"
	"github.com/yeshi-rangzen/momomi-sub000/internal/domain/rules"
	"github.com/yeshi-rangzen/momomi-sub000/internal/infra/push"
	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
	redrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/redis"
	usagesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/usage"
)

const (
	OutcomeLiked      = "Liked"
	OutcomeSuperLiked = "SuperLiked"
	OutcomePassed     = "Passed"
	OutcomeMatched    = "Matched"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrTargetNotFound   = errors.New("target user not found")
	ErrPairBlocked      = errors.New("pair is blocked")
	ErrAlreadyProcessed = errors.New("decision already recorded for this pair")
	ErrNothingToUndo    = errors.New("no decision to undo")
	ErrUndoNotAllowed   = errors.New("only a pass can be undone")
	ErrUndoExpired      = errors.New("undo window has elapsed")
)

type SwipeStore interface {
	Create(ctx context.Context, tx pgx.Tx, viewerID, targetID int64, kind enums.DecisionKind, now time.Time) (pgrepo.DecisionRecord, error)
	GetPositiveFrom(ctx context.Context, tx pgx.Tx, fromID, toID int64) (bool, bool, error)
	HasUnmatchedBetween(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error)
	GetLastByViewer(ctx context.Context, tx pgx.Tx, viewerID int64) (pgrepo.DecisionRecord, error)
	DeleteByID(ctx context.Context, tx pgx.Tx, decisionID int64) error
}

type ConversationStore interface {
	CreateIfMissing(ctx context.Context, tx pgx.Tx, userID, targetID int64, superLike bool, now time.Time) (bool, error)
}

type UsageStore interface {
	ConsumeLike(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, loc *time.Location, dailyCap int) (pgrepo.LikeSpend, error)
	ConsumeSuperLike(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, loc *time.Location, limit int, weekly bool) (pgrepo.UsageLimitRecord, error)
}

type RestrictionStore interface {
	PairRestricted(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error)
}

type ProfileStore interface {
	GetViewerContext(ctx context.Context, userID int64) (pgrepo.ViewerContext, error)
}

type SubscriptionChecker interface {
	IsPremiumActive(ctx context.Context, userID int64) (bool, error)
}

type RateLimiter interface {
	AllowLike(ctx context.Context, userID int64) (int64, bool, error)
}

type QuotaSnapshotProvider interface {
	GetSnapshot(ctx context.Context, userID int64, timezone string) (usagesvc.Snapshot, error)
}

type Cache interface {
	Get(ctx context.Context, ns, key string, out interface{}) error
	Set(ctx context.Context, ns, key string, value interface{}, ttl time.Duration) error
	InvalidateDecision(ctx context.Context, userIDs []int64, pageSizes []int) error
	InvalidateMatchChange(ctx context.Context, userID, targetID int64, pageSizes []int) error
}

type Notifier interface {
	Publish(ctx context.Context, event push.Event) error
}

type PresenceChecker interface {
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

type Config struct {
	FreeLikesPerDay         int
	FreeSuperLikesPerWeek   int
	PremiumSuperLikesPerDay int
	UndoWindow              time.Duration
	PairStatusTTL           time.Duration
	DefaultTimezone         string
	PageSizes               []int
}

type DecisionResult struct {
	Outcome      string
	MatchCreated bool
	Quota        usagesvc.Snapshot
}

type UndoResult struct {
	UndoneTargetID int64
}

type Service struct {
	pool          *pgxpool.Pool
	swipeStore    SwipeStore
	conversations ConversationStore
	usageStore    UsageStore
	restrictions  RestrictionStore
	profiles      ProfileStore
	subscriptions SubscriptionChecker
	rateLimiter   RateLimiter
	quotaView     QuotaSnapshotProvider
	cache         Cache
	notifier      Notifier
	presence      PresenceChecker
	cfg           Config
	now           func() time.Time
}

type Dependencies struct {
	Pool          *pgxpool.Pool
	SwipeStore    SwipeStore
	Conversations ConversationStore
	UsageStore    UsageStore
	Restrictions  RestrictionStore
	Profiles      ProfileStore
	Subscriptions SubscriptionChecker
	RateLimiter   RateLimiter
	QuotaView     QuotaSnapshotProvider
	Cache         Cache
	Notifier      Notifier
	Presence      PresenceChecker
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.FreeLikesPerDay <= 0 {
		cfg.FreeLikesPerDay = rules.FreeLikesPerDay
	}
	if cfg.FreeSuperLikesPerWeek <= 0 {
		cfg.FreeSuperLikesPerWeek = rules.FreeSuperLikesPerWeek
	}
	if cfg.PremiumSuperLikesPerDay <= 0 {
		cfg.PremiumSuperLikesPerDay = rules.PremiumSuperLikesPerDay
	}
	if cfg.UndoWindow <= 0 {
		cfg.UndoWindow = 5 * time.Minute
	}
	if cfg.PairStatusTTL <= 0 {
		cfg.PairStatusTTL = 5 * time.Minute
	}
	if strings.TrimSpace(cfg.DefaultTimezone) == "" {
		cfg.DefaultTimezone = "UTC"
	}
	if len(cfg.PageSizes) == 0 {
		cfg.PageSizes = []int{10, 20, 50}
	}

	return &Service{
		pool:          deps.Pool,
		swipeStore:    deps.SwipeStore,
		conversations: deps.Conversations,
		usageStore:    deps.UsageStore,
		restrictions:  deps.Restrictions,
		profiles:      deps.Profiles,
		subscriptions: deps.Subscriptions,
		rateLimiter:   deps.RateLimiter,
		quotaView:     deps.QuotaView,
		cache:         deps.Cache,
		notifier:      deps.Notifier,
		presence:      deps.Presence,
		cfg:           cfg,
		now:           time.Now,
	}
}

// RecordDecision runs the whole swipe state machine in one transaction:
// restriction checks, quota consumption, decision insert, reciprocity
// lookup, conversation creation. Cache invalidation and the push handoff
// happen after commit and never block the response.
func (s *Service) RecordDecision(ctx context.Context, viewerID, targetID int64, kindRaw, timezone string) (DecisionResult, error) {
	if viewerID <= 0 || targetID <= 0 || viewerID == targetID {
		return DecisionResult{}, ErrValidation
	}

	kind, err := normalizeKind(kindRaw)
	if err != nil {
		return DecisionResult{}, err
	}

	if s.pool == nil || s.swipeStore == nil || s.conversations == nil || s.usageStore == nil || s.restrictions == nil || s.profiles == nil || s.subscriptions == nil {
		return DecisionResult{}, fmt.Errorf("swipe dependencies are not configured")
	}

	now := s.now().UTC()
	loc := s.resolveTimezone(timezone)

	target, err := s.profiles.GetViewerContext(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return DecisionResult{}, ErrTargetNotFound
		}
		return DecisionResult{}, fmt.Errorf("load target profile: %w", err)
	}

	premium, err := s.subscriptions.IsPremiumActive(ctx, viewerID)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("resolve subscription tier: %w", err)
	}

	if err := s.applyBurstGate(ctx, viewerID, premium, kind.Positive()); err != nil {
		return DecisionResult{}, err
	}

	// Advisory fast path. The in-transaction checks below stay the ground
	// truth; a cache miss or stale entry only costs one round trip.
	if s.cache != nil {
		var restricted bool
		if err := s.cache.Get(ctx, redrepo.NamespacePairStatus, redrepo.PairStatusKey(viewerID, targetID), &restricted); err == nil && restricted {
			return DecisionResult{}, ErrPairBlocked
		}
	}

	matchCreated := false
	superLikeInvolved := false
	if err := pgrepo.WithTxRetry(ctx, s.pool, 3, func(txCtx context.Context, tx pgx.Tx) error {
		unmatched, err := s.swipeStore.HasUnmatchedBetween(txCtx, tx, viewerID, targetID)
		if err != nil {
			return err
		}
		if unmatched {
			return ErrPairBlocked
		}

		restricted, err := s.restrictions.PairRestricted(txCtx, tx, viewerID, targetID)
		if err != nil {
			return err
		}
		if restricted {
			return ErrPairBlocked
		}

		switch kind {
		case enums.DecisionLike:
			if !premium {
				if _, err := s.usageStore.ConsumeLike(txCtx, tx, viewerID, now, loc, s.cfg.FreeLikesPerDay); err != nil {
					if errors.Is(err, pgrepo.ErrLikeLimitReached) {
						return usagesvc.ErrDailyLimit
					}
					return err
				}
			}
		case enums.DecisionSuperLike:
			limit := s.cfg.FreeSuperLikesPerWeek
			weekly := true
			if premium {
				limit = s.cfg.PremiumSuperLikesPerDay
				weekly = false
			}
			if _, err := s.usageStore.ConsumeSuperLike(txCtx, tx, viewerID, now, loc, limit, weekly); err != nil {
				if errors.Is(err, pgrepo.ErrSuperLikeLimitReached) {
					return usagesvc.ErrSuperLikeLimit
				}
				return err
			}
		}

		if _, err := s.swipeStore.Create(txCtx, tx, viewerID, targetID, kind, now); err != nil {
			if errors.Is(err, pgrepo.ErrDecisionExists) {
				return ErrAlreadyProcessed
			}
			return err
		}

		if !kind.Positive() {
			return nil
		}

		reciprocal, targetSuper, err := s.swipeStore.GetPositiveFrom(txCtx, tx, targetID, viewerID)
		if err != nil {
			return err
		}
		if !reciprocal {
			return nil
		}

		superLikeInvolved = targetSuper || kind == enums.DecisionSuperLike
		created, err := s.conversations.CreateIfMissing(txCtx, tx, viewerID, targetID, superLikeInvolved, now)
		if err != nil {
			return err
		}
		matchCreated = created
		return nil
	}); err != nil {
		if errors.Is(err, ErrPairBlocked) && s.cache != nil {
			restricted := true
			_ = s.cache.Set(ctx, redrepo.NamespacePairStatus, redrepo.PairStatusKey(viewerID, targetID), restricted, s.cfg.PairStatusTTL)
		}
		return DecisionResult{}, err
	}

	s.afterDecision(viewerID, targetID, kind, matchCreated, superLikeInvolved, target)

	result := DecisionResult{
		Outcome:      outcomeFor(kind, matchCreated),
		MatchCreated: matchCreated,
	}
	if s.quotaView != nil {
		snapshot, err := s.quotaView.GetSnapshot(ctx, viewerID, timezone)
		if err != nil {
			return DecisionResult{}, fmt.Errorf("read quota snapshot: %w", err)
		}
		result.Quota = snapshot
	}

	return result, nil
}

// Undo removes the viewer's most recent decision. Only a pass qualifies and
// only inside the configured window; likes and matches are permanent.
func (s *Service) Undo(ctx context.Context, viewerID int64) (UndoResult, error) {
	if viewerID <= 0 {
		return UndoResult{}, ErrValidation
	}
	if s.pool == nil || s.swipeStore == nil {
		return UndoResult{}, fmt.Errorf("swipe dependencies are not configured")
	}

	now := s.now().UTC()
	var undoneTargetID int64
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		last, err := s.swipeStore.GetLastByViewer(txCtx, tx, viewerID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrDecisionNotFound) {
				return ErrNothingToUndo
			}
			return err
		}
		if err := undoEligibility(last, now, s.cfg.UndoWindow); err != nil {
			return err
		}

		if err := s.swipeStore.DeleteByID(txCtx, tx, last.ID); err != nil {
			return err
		}
		undoneTargetID = last.TargetID
		return nil
	}); err != nil {
		return UndoResult{}, err
	}

	if s.cache != nil {
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.cache.InvalidateDecision(bgCtx, []int64{viewerID}, s.cfg.PageSizes)
		}()
	}

	return UndoResult{UndoneTargetID: undoneTargetID}, nil
}

// afterDecision fans out cache invalidation and hands fresh matches and
// received super-likes to the push pipeline when the target is offline and
// opted in. Best-effort on purpose: failures here never surface to the
// swipe response.
func (s *Service) afterDecision(viewerID, targetID int64, kind enums.DecisionKind, matchCreated, superLike bool, target pgrepo.ViewerContext) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if s.cache != nil {
			if matchCreated {
				_ = s.cache.InvalidateMatchChange(bgCtx, viewerID, targetID, s.cfg.PageSizes)
			} else {
				_ = s.cache.InvalidateDecision(bgCtx, []int64{viewerID, targetID}, s.cfg.PageSizes)
			}
		}

		eventType := notificationEvent(kind, matchCreated)
		if eventType == "" || s.notifier == nil || !target.NotificationsEnabled {
			return
		}
		if s.presence != nil {
			online, err := s.presence.IsOnline(bgCtx, targetID)
			if err == nil && online {
				return
			}
		}

		_ = s.notifier.Publish(bgCtx, push.Event{
			Type:       eventType,
			UserID:     targetID,
			ActorID:    viewerID,
			SuperLike:  superLike || kind == enums.DecisionSuperLike,
			OccurredAt: s.now().UTC(),
		})
	}()
}

// notificationEvent picks what the target hears about. A match always beats
// the plain super-like event; the SuperLike flag on the payload keeps the
// tier visible either way.
func notificationEvent(kind enums.DecisionKind, matchCreated bool) string {
	switch {
	case matchCreated:
		return push.EventMatchCreated
	case kind == enums.DecisionSuperLike:
		return push.EventSuperLikeReceived
	default:
		return ""
	}
}

// undoEligibility gates the rewind: only the most recent decision qualifies,
// only when it is a pass, and only inside the window. Likes and matches are
// permanent.
func undoEligibility(last pgrepo.DecisionRecord, now time.Time, window time.Duration) error {
	if last.Kind != enums.DecisionPass {
		return ErrUndoNotAllowed
	}
	if now.Sub(last.CreatedAt.UTC()) > window {
		return ErrUndoExpired
	}
	return nil
}

// applyBurstGate throttles premium users, who skip the daily counter and
// could otherwise hammer likes without bound.
func (s *Service) applyBurstGate(ctx context.Context, viewerID int64, premium, positive bool) error {
	if !positive || !premium || s.rateLimiter == nil {
		return nil
	}

	retryAfter, allowed, err := s.rateLimiter.AllowLike(ctx, viewerID)
	if err != nil {
		return fmt.Errorf("apply burst limiter: %w", err)
	}
	if !allowed {
		return usagesvc.TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
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

func outcomeFor(kind enums.DecisionKind, matchCreated bool) string {
	if matchCreated {
		return OutcomeMatched
	}
	switch kind {
	case enums.DecisionSuperLike:
		return OutcomeSuperLiked
	case enums.DecisionPass:
		return OutcomePassed
	default:
		return OutcomeLiked
	}
}

func normalizeKind(input string) (enums.DecisionKind, error) {
	value := strings.ToUpper(strings.TrimSpace(input))
	value = strings.ReplaceAll(value, "_", "")
	kind := enums.DecisionKind(value)
	if !kind.Valid() || kind == enums.DecisionUnmatched {
		return "", ErrValidation
	}
	return kind, nil
}
