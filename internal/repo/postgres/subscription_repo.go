package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeshi-rangzen/momomi-sub000/internal/domain/enums"
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

type SubscriptionRecord struct {
	UserID    int64
	Tier      enums.SubscriptionTier
	ExpiresAt *time.Time
}

// GetStatus returns the stored subscription. A missing row means free tier.
func (r *SubscriptionRepo) GetStatus(ctx context.Context, userID int64) (SubscriptionRecord, error) {
	if userID <= 0 {
		return SubscriptionRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return SubscriptionRecord{UserID: userID, Tier: enums.TierFree}, nil
	}

	var rec SubscriptionRecord
	var tier string
	err := r.pool.QueryRow(ctx, `
SELECT user_id, tier, expires_at
FROM subscriptions
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&rec.UserID, &tier, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubscriptionRecord{UserID: userID, Tier: enums.TierFree}, nil
		}
		return SubscriptionRecord{}, fmt.Errorf("get subscription status: %w", err)
	}

	rec.Tier = enums.SubscriptionTier(tier)
	return rec, nil
}
