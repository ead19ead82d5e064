package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeshi-rangzen/momomi-sub000/internal/domain/enums"
	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
	redrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/redis"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrInvalidReportReason = errors.New("invalid report reason")
	ErrMatchNotFound       = errors.New("match not found")
)

type ConversationStore interface {
	ListForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.ConversationRecord, error)
	DeleteByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error)
}

type SwipeStore interface {
	MarkUnmatched(ctx context.Context, tx pgx.Tx, userID, targetID int64, now time.Time) error
}

type BlockStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, actorID, targetID int64, now time.Time) error
	CreateReport(ctx context.Context, tx pgx.Tx, reporterID, targetID int64, reason enums.ReportReason, details string, now time.Time) error
}

type Cache interface {
	Get(ctx context.Context, ns, key string, out interface{}) error
	Set(ctx context.Context, ns, key string, value interface{}, ttl time.Duration) error
	InvalidateMatchChange(ctx context.Context, userID, targetID int64, pageSizes []int) error
}

type Config struct {
	ListLimit int
	CacheTTL  time.Duration
	PageSizes []int
}

type MatchItem struct {
	ID            int64     `json:"id"`
	PartnerUserID int64     `json:"partner_user_id"`
	DisplayName   string    `json:"display_name"`
	Age           int       `json:"age"`
	IsSuperLike   bool      `json:"is_super_like"`
	CreatedAt     time.Time `json:"created_at"`
}

type Service struct {
	pool          *pgxpool.Pool
	conversations ConversationStore
	swipeStore    SwipeStore
	blockStore    BlockStore
	cache         Cache
	cfg           Config
	now           func() time.Time
}

type Dependencies struct {
	Pool          *pgxpool.Pool
	Conversations ConversationStore
	SwipeStore    SwipeStore
	BlockStore    BlockStore
	Cache         Cache
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if len(cfg.PageSizes) == 0 {
		cfg.PageSizes = []int{10, 20, 50}
	}

	return &Service{
		pool:          deps.Pool,
		conversations: deps.Conversations,
		swipeStore:    deps.SwipeStore,
		blockStore:    deps.BlockStore,
		cache:         deps.Cache,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *Service) List(ctx context.Context, userID int64) ([]MatchItem, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.conversations == nil {
		return nil, fmt.Errorf("conversation store is nil")
	}

	cacheKey := redrepo.MatchesKey(userID)
	if s.cache != nil {
		var cached []MatchItem
		if err := s.cache.Get(ctx, redrepo.NamespaceMatches, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	rows, err := s.conversations.ListForUser(ctx, userID, s.cfg.ListLimit)
	if err != nil {
		return nil, err
	}

	items := make([]MatchItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, MatchItem{
			ID:            row.ID,
			PartnerUserID: row.PartnerUserID,
			DisplayName:   row.DisplayName,
			Age:           row.Age,
			IsSuperLike:   row.IsSuperLike,
			CreatedAt:     row.CreatedAt,
		})
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, redrepo.NamespaceMatches, cacheKey, items, s.cfg.CacheTTL)
	}

	return items, nil
}

// Unmatch dissolves a match: both decision rows move to the terminal state
// and the conversation goes away, atomically.
func (s *Service) Unmatch(ctx context.Context, userID, targetID int64) error {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return ErrValidation
	}
	if s.pool == nil || s.conversations == nil || s.swipeStore == nil {
		return fmt.Errorf("unmatch dependencies are not configured")
	}

	now := s.now().UTC()
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		deleted, err := s.conversations.DeleteByUsers(txCtx, tx, userID, targetID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrMatchNotFound
		}
		return s.swipeStore.MarkUnmatched(txCtx, tx, userID, targetID, now)
	}); err != nil {
		return err
	}

	s.invalidatePair(userID, targetID)
	return nil
}

// Block records the block and dissolves any match with the target.
func (s *Service) Block(ctx context.Context, userID, targetID int64) error {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return ErrValidation
	}
	if s.pool == nil || s.conversations == nil || s.swipeStore == nil || s.blockStore == nil {
		return fmt.Errorf("block dependencies are not configured")
	}

	now := s.now().UTC()
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.blockStore.Upsert(txCtx, tx, userID, targetID, now); err != nil {
			return err
		}
		if _, err := s.conversations.DeleteByUsers(txCtx, tx, userID, targetID); err != nil {
			return err
		}
		return s.swipeStore.MarkUnmatched(txCtx, tx, userID, targetID, now)
	}); err != nil {
		return err
	}

	s.invalidatePair(userID, targetID)
	return nil
}

// Report files the report and applies the same removal as a block.
func (s *Service) Report(ctx context.Context, userID, targetID int64, reasonRaw, details string) error {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return ErrValidation
	}
	reason := enums.ReportReason(reasonRaw)
	if !reason.Valid() {
		return ErrInvalidReportReason
	}
	if s.pool == nil || s.conversations == nil || s.swipeStore == nil || s.blockStore == nil {
		return fmt.Errorf("report dependencies are not configured")
	}

	now := s.now().UTC()
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.blockStore.CreateReport(txCtx, tx, userID, targetID, reason, details, now); err != nil {
			return err
		}
		if _, err := s.conversations.DeleteByUsers(txCtx, tx, userID, targetID); err != nil {
			return err
		}
		return s.swipeStore.MarkUnmatched(txCtx, tx, userID, targetID, now)
	}); err != nil {
		return err
	}

	s.invalidatePair(userID, targetID)
	return nil
}

func (s *Service) invalidatePair(userID, targetID int64) {
	if s.cache == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.cache.InvalidateMatchChange(bgCtx, userID, targetID, s.cfg.PageSizes)
	}()
}
