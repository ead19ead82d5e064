package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
	redrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/redis"
)

const (
	ModeLocal  = "local"
	ModeGlobal = "global"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrViewerNotFound   = errors.New("viewer not found")
	ErrLocationRequired = errors.New("viewer location is required for local discovery")
	ErrDependenciesNil  = errors.New("discovery dependencies are not configured")
)

type ProfileStore interface {
	GetViewerContext(ctx context.Context, userID int64) (pgrepo.ViewerContext, error)
	GetViewerPreferences(ctx context.Context, userID int64) (pgrepo.ViewerPreferences, error)
	ListLocalCandidates(ctx context.Context, q pgrepo.CandidateQuery) ([]pgrepo.CandidateRecord, error)
	ListGlobalCandidates(ctx context.Context, q pgrepo.CandidateQuery) ([]pgrepo.CandidateRecord, error)
}

type Cache interface {
	Get(ctx context.Context, ns, key string, out interface{}) error
	Set(ctx context.Context, ns, key string, value interface{}, ttl time.Duration) error
}

type SubscriptionChecker interface {
	IsPremiumActive(ctx context.Context, userID int64) (bool, error)
}

type PhotoSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

type Config struct {
	DefaultCount    int
	MaxCount        int
	GlobalOverFetch int
	CacheTTL        time.Duration
}

type Card struct {
	UserID      int64    `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Age         int      `json:"age"`
	Heritage    []string `json:"heritage,omitempty"`
	Religion    []string `json:"religion,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	PhotoURL    string   `json:"photo_url,omitempty"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
}

type Result struct {
	Mode       string `json:"mode"`
	Candidates []Card `json:"candidates"`
	HasMore    bool   `json:"has_more"`
	Exhausted  bool   `json:"exhausted"`
}

type Service struct {
	profiles      ProfileStore
	cache         Cache
	subscriptions SubscriptionChecker
	signer        PhotoSigner
	cfg           Config
	now           func() time.Time
}

func NewService(profiles ProfileStore, cache Cache, subscriptions SubscriptionChecker, signer PhotoSigner, cfg Config) *Service {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 20
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 50
	}
	if cfg.GlobalOverFetch <= 0 {
		cfg.GlobalOverFetch = 3
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}

	return &Service{
		profiles:      profiles,
		cache:         cache,
		subscriptions: subscriptions,
		signer:        signer,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Discover assembles a page of candidates for the viewer. The cache is
// read-through and fail-open: redis trouble never blocks a page.
func (s *Service) Discover(ctx context.Context, viewerID int64, mode string, count int) (Result, error) {
	if viewerID <= 0 {
		return Result{}, ErrValidation
	}
	if s.profiles == nil || s.subscriptions == nil {
		return Result{}, ErrDependenciesNil
	}

	if count <= 0 {
		count = s.cfg.DefaultCount
	}
	if count > s.cfg.MaxCount {
		count = s.cfg.MaxCount
	}

	viewer, err := s.profiles.GetViewerContext(ctx, viewerID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Result{}, ErrViewerNotFound
		}
		return Result{}, fmt.Errorf("load viewer context: %w", err)
	}
	if !viewer.IsActive || !viewer.IsDiscoverable {
		return Result{}, ErrViewerNotFound
	}

	resolvedMode, err := s.resolveMode(mode, viewer)
	if err != nil {
		return Result{}, err
	}
	if resolvedMode == ModeLocal && (viewer.LastLat == nil || viewer.LastLon == nil) {
		return Result{}, ErrLocationRequired
	}

	cacheKey := redrepo.DiscoveryKey(viewerID, resolvedMode, count)
	if s.cache != nil {
		var cached Result
		if err := s.cache.Get(ctx, redrepo.NamespaceDiscovery, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	premium, err := s.subscriptions.IsPremiumActive(ctx, viewerID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve subscription tier: %w", err)
	}

	prefs, err := s.profiles.GetViewerPreferences(ctx, viewerID)
	if err != nil {
		return Result{}, fmt.Errorf("load viewer preferences: %w", err)
	}

	query := pgrepo.CandidateQuery{
		ViewerUserID:  viewerID,
		ViewerGender:  viewer.Gender,
		InterestedIn:  viewer.InterestedIn,
		AgeMin:        viewer.AgeMin,
		AgeMax:        viewer.AgeMax,
		ViewerLat:     viewer.LastLat,
		ViewerLon:     viewer.LastLon,
		MaxDistanceKM: viewer.MaxDistanceKM,
		Now:           s.now().UTC(),
	}

	var fetched []pgrepo.CandidateRecord
	var fetchLimit int
	switch resolvedMode {
	case ModeLocal:
		fetchLimit = count
		query.Limit = fetchLimit
		fetched, err = s.profiles.ListLocalCandidates(ctx, query)
	case ModeGlobal:
		fetchLimit = count * s.cfg.GlobalOverFetch
		query.Limit = fetchLimit
		fetched, err = s.profiles.ListGlobalCandidates(ctx, query)
	}
	if err != nil {
		return Result{}, fmt.Errorf("list %s candidates: %w", resolvedMode, err)
	}

	filtered := ApplyFilters(fetched, prefs, premium)

	result := Result{
		Mode:      resolvedMode,
		HasMore:   len(filtered) > count || len(fetched) == fetchLimit,
		Exhausted: len(fetched) == 0,
	}
	if len(filtered) > count {
		filtered = filtered[:count]
	}
	result.Candidates = s.buildCards(ctx, filtered)

	if s.cache != nil {
		_ = s.cache.Set(ctx, redrepo.NamespaceDiscovery, cacheKey, result, s.cfg.CacheTTL)
	}

	return result, nil
}

func (s *Service) resolveMode(mode string, viewer pgrepo.ViewerContext) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(mode))
	switch normalized {
	case "":
		if viewer.GlobalDiscoveryEnabled {
			return ModeGlobal, nil
		}
		return ModeLocal, nil
	case ModeLocal, ModeGlobal:
		return normalized, nil
	default:
		return "", ErrValidation
	}
}

func (s *Service) buildCards(ctx context.Context, records []pgrepo.CandidateRecord) []Card {
	cards := make([]Card, 0, len(records))
	for _, record := range records {
		card := Card{
			UserID:      record.UserID,
			DisplayName: record.DisplayName,
			Age:         record.Age,
			Heritage:    record.Heritage,
			Religion:    record.Religion,
			Languages:   record.Languages,
			DistanceKM:  record.DistanceKM,
		}
		if s.signer != nil && record.PrimaryPhoto != "" {
			if url, err := s.signer.PresignGet(ctx, record.PrimaryPhoto); err == nil {
				card.PhotoURL = url
			}
		}
		cards = append(cards, card)
	}
	return cards
}
