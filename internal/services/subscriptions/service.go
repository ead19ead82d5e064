package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeshi-rangzen/momomi-sub000/internal/domain/enums"
	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type SubscriptionStore interface {
	GetStatus(ctx context.Context, userID int64) (pgrepo.SubscriptionRecord, error)
}

type Status struct {
	Tier      enums.SubscriptionTier
	ExpiresAt *time.Time
}

type Service struct {
	store SubscriptionStore
	now   func() time.Time
}

func NewService(store SubscriptionStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// GetStatus evaluates expiry lazily: a premium row past its expiry reads as
// free tier without any write.
func (s *Service) GetStatus(ctx context.Context, userID int64) (Status, error) {
	if userID <= 0 {
		return Status{}, ErrValidation
	}
	if s.store == nil {
		return Status{}, fmt.Errorf("subscription store is nil")
	}

	rec, err := s.store.GetStatus(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("get subscription status: %w", err)
	}

	status := Status{Tier: rec.Tier, ExpiresAt: rec.ExpiresAt}
	if status.Tier == enums.TierPremium && rec.ExpiresAt != nil && s.now().UTC().After(*rec.ExpiresAt) {
		status.Tier = enums.TierFree
	}
	if status.Tier != enums.TierPremium {
		status.Tier = enums.TierFree
	}

	return status, nil
}

func (s *Service) IsPremiumActive(ctx context.Context, userID int64) (bool, error) {
	status, err := s.GetStatus(ctx, userID)
	if err != nil {
		return false, err
	}
	return status.Tier == enums.TierPremium, nil
}
