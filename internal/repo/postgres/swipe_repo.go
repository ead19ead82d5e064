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

var (
	ErrDecisionNotFound = errors.New("decision not found")
	ErrDecisionExists   = errors.New("decision already exists for pair")
)

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type DecisionRecord struct {
	ID        int64
	ViewerID  int64
	TargetID  int64
	Kind      enums.DecisionKind
	CreatedAt time.Time
}

// Create inserts a decision for the ordered (viewer, target) pair. A second
// decision on the same pair is rejected, never overwritten.
func (r *SwipeRepo) Create(ctx context.Context, tx pgx.Tx, viewerID, targetID int64, kind enums.DecisionKind, now time.Time) (DecisionRecord, error) {
	if viewerID <= 0 || targetID <= 0 || !kind.Valid() {
		return DecisionRecord{}, fmt.Errorf("invalid decision payload")
	}
	if tx == nil {
		return DecisionRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec DecisionRecord
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	viewer_id,
	target_id,
	kind,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (viewer_id, target_id) DO NOTHING
RETURNING id, viewer_id, target_id, kind, created_at
`, viewerID, targetID, string(kind), now.UTC()).Scan(
		&rec.ID,
		&rec.ViewerID,
		&rec.TargetID,
		&rec.Kind,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DecisionRecord{}, ErrDecisionExists
		}
		return DecisionRecord{}, fmt.Errorf("create decision: %w", err)
	}

	return rec, nil
}

// GetPositiveFrom reports whether a live like or super-like exists from one
// user towards another, and whether it was a super-like.
func (r *SwipeRepo) GetPositiveFrom(ctx context.Context, tx pgx.Tx, fromID, toID int64) (bool, bool, error) {
	if fromID <= 0 || toID <= 0 {
		return false, false, fmt.Errorf("invalid reciprocity lookup payload")
	}
	if tx == nil {
		return false, false, fmt.Errorf("transaction is required")
	}

	var kind string
	err := tx.QueryRow(ctx, `
SELECT kind
FROM swipes
WHERE viewer_id = $1 AND target_id = $2 AND kind IN ('LIKE', 'SUPERLIKE')
LIMIT 1
`, fromID, toID).Scan(&kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("lookup reciprocal decision: %w", err)
	}

	return true, enums.DecisionKind(kind) == enums.DecisionSuperLike, nil
}

// HasUnmatchedBetween reports whether either direction of the pair carries a
// terminal UNMATCHED record, which blocks any further decision.
func (r *SwipeRepo) HasUnmatchedBetween(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 {
		return false, fmt.Errorf("invalid pair lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM swipes
WHERE kind = 'UNMATCHED'
	AND (
		(viewer_id = $1 AND target_id = $2)
		OR (viewer_id = $2 AND target_id = $1)
	)
LIMIT 1
`, userID, targetID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup unmatched state: %w", err)
	}

	return true, nil
}

func (r *SwipeRepo) GetLastByViewer(ctx context.Context, tx pgx.Tx, viewerID int64) (DecisionRecord, error) {
	if viewerID <= 0 {
		return DecisionRecord{}, fmt.Errorf("invalid viewer id")
	}
	if tx == nil {
		return DecisionRecord{}, fmt.Errorf("transaction is required")
	}

	var rec DecisionRecord
	err := tx.QueryRow(ctx, `
SELECT id, viewer_id, target_id, kind, created_at
FROM swipes
WHERE viewer_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
`, viewerID).Scan(
		&rec.ID,
		&rec.ViewerID,
		&rec.TargetID,
		&rec.Kind,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DecisionRecord{}, ErrDecisionNotFound
		}
		return DecisionRecord{}, fmt.Errorf("get last decision by viewer: %w", err)
	}

	return rec, nil
}

func (r *SwipeRepo) DeleteByID(ctx context.Context, tx pgx.Tx, decisionID int64) error {
	if decisionID <= 0 {
		return fmt.Errorf("invalid decision id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
DELETE FROM swipes
WHERE id = $1
`, decisionID)
	if err != nil {
		return fmt.Errorf("delete decision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDecisionNotFound
	}
	return nil
}

// MarkUnmatched transitions both directions of a matched pair to the
// terminal UNMATCHED state. Used only by the removal flows.
func (r *SwipeRepo) MarkUnmatched(ctx context.Context, tx pgx.Tx, userID, targetID int64, now time.Time) error {
	if userID <= 0 || targetID <= 0 {
		return fmt.Errorf("invalid unmatch payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
UPDATE swipes
SET kind = 'UNMATCHED', updated_at = $3
WHERE (viewer_id = $1 AND target_id = $2)
	OR (viewer_id = $2 AND target_id = $1)
`, userID, targetID, now.UTC()); err != nil {
		return fmt.Errorf("mark pair unmatched: %w", err)
	}

	return nil
}
