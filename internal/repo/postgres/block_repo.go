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

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

// Upsert records a directed block. Repeated blocks refresh the timestamp
// instead of erroring.
func (r *BlockRepo) Upsert(ctx context.Context, tx pgx.Tx, actorID, targetID int64, now time.Time) error {
	if actorID <= 0 || targetID <= 0 || actorID == targetID {
		return fmt.Errorf("invalid block payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO blocks (
	actor_user_id,
	target_user_id,
	created_at
) VALUES ($1, $2, $3)
ON CONFLICT (actor_user_id, target_user_id) DO UPDATE SET created_at = EXCLUDED.created_at
`, actorID, targetID, now.UTC()); err != nil {
		return fmt.Errorf("upsert block: %w", err)
	}

	return nil
}

// CreateReport files a report. One report per (reporter, target) pair is
// kept; repeats are dropped silently.
func (r *BlockRepo) CreateReport(ctx context.Context, tx pgx.Tx, reporterID, targetID int64, reason enums.ReportReason, details string, now time.Time) error {
	if reporterID <= 0 || targetID <= 0 || reporterID == targetID {
		return fmt.Errorf("invalid report payload")
	}
	if !reason.Valid() {
		return fmt.Errorf("invalid report reason")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO reports (
	reporter_user_id,
	target_user_id,
	reason,
	details,
	created_at
) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (reporter_user_id, target_user_id) DO NOTHING
`, reporterID, targetID, string(reason), details, now.UTC()); err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	return nil
}

// PairRestricted reports whether a block or report in either direction
// exists between the pair.
func (r *BlockRepo) PairRestricted(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 {
		return false, fmt.Errorf("invalid pair lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
WHERE EXISTS (
	SELECT 1
	FROM blocks b
	WHERE (b.actor_user_id = $1 AND b.target_user_id = $2)
		OR (b.actor_user_id = $2 AND b.target_user_id = $1)
)
OR EXISTS (
	SELECT 1
	FROM reports rp
	WHERE (rp.reporter_user_id = $1 AND rp.target_user_id = $2)
		OR (rp.reporter_user_id = $2 AND rp.target_user_id = $1)
)
`, userID, targetID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup pair restrictions: %w", err)
	}

	return true, nil
}
