package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

type ConversationRecord struct {
	ID            int64
	PartnerUserID int64
	DisplayName   string
	Age           int
	IsSuperLike   bool
	CreatedAt     time.Time
}

// CreateIfMissing inserts the conversation for the unordered pair. The
// canonical participant_a_id < participant_b_id invariant plus the unique
// index makes the insert idempotent under concurrent match races.
func (r *ConversationRepo) CreateIfMissing(ctx context.Context, tx pgx.Tx, userID, targetID int64, superLike bool, now time.Time) (bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return false, fmt.Errorf("invalid conversation payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userA := userID
	userB := targetID
	if userA > userB {
		userA, userB = userB, userA
	}

	var conversationID int64
	err := tx.QueryRow(ctx, `
INSERT INTO conversations (
	participant_a_id,
	participant_b_id,
	is_super_like,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (participant_a_id, participant_b_id) DO NOTHING
RETURNING id
`, userA, userB, superLike, now.UTC()).Scan(&conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create conversation: %w", err)
	}

	return conversationID > 0, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64, limit int) ([]ConversationRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []ConversationRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	c.id,
	CASE WHEN c.participant_a_id = $1 THEN c.participant_b_id ELSE c.participant_a_id END AS partner_user_id,
	COALESCE(p.display_name, ''),
	COALESCE(DATE_PART('year', AGE(NOW(), p.birthdate::timestamp))::int, 0),
	c.is_super_like,
	c.created_at
FROM conversations c
JOIN profiles p ON p.user_id = CASE WHEN c.participant_a_id = $1 THEN c.participant_b_id ELSE c.participant_a_id END
WHERE
	(c.participant_a_id = $1 OR c.participant_b_id = $1)
	AND NOT EXISTS (
		SELECT 1
		FROM blocks b
		WHERE b.actor_user_id = CASE WHEN c.participant_a_id = $1 THEN c.participant_b_id ELSE c.participant_a_id END
			AND b.target_user_id = $1
	)
ORDER BY c.created_at DESC, c.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]ConversationRecord, 0, limit)
	for rows.Next() {
		var item ConversationRecord
		if err := rows.Scan(
			&item.ID,
			&item.PartnerUserID,
			&item.DisplayName,
			&item.Age,
			&item.IsSuperLike,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate conversations: %w", rows.Err())
	}

	return items, nil
}

// DeleteByUsers removes the conversation for the unordered pair along with
// its messages. Returns whether a conversation existed.
func (r *ConversationRepo) DeleteByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 {
		return false, fmt.Errorf("invalid conversation delete payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	userA := userID
	userB := targetID
	if userA > userB {
		userA, userB = userB, userA
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM messages
WHERE conversation_id IN (
	SELECT id FROM conversations
	WHERE participant_a_id = $1 AND participant_b_id = $2
)
`, userA, userB); err != nil {
		return false, fmt.Errorf("delete conversation messages: %w", err)
	}

	result, err := tx.Exec(ctx, `
DELETE FROM conversations
WHERE participant_a_id = $1 AND participant_b_id = $2
`, userA, userB)
	if err != nil {
		return false, fmt.Errorf("delete conversation: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
