package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, pgx.Tx) error) error {
	return withTx(ctx, pool, pgx.TxOptions{}, fn)
}

// WithTxRetry runs fn under serializable isolation and re-runs it on
// serialization or deadlock failures, up to attempts total runs. Business
// errors pass through untouched.
//
// Serializable matters for decision writes: two concurrent opposite-direction
// likes insert different rows, so the pair unique index never collides and
// under read committed neither transaction sees the other's reciprocity row.
// Only the serialization failure gives the retry a second run that does.
func WithTxRetry(ctx context.Context, pool *pgxpool.Pool, attempts int, fn func(context.Context, pgx.Tx) error) error {
	if attempts <= 0 {
		attempts = 3
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = withTx(ctx, pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func withTx(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(context.Context, pgx.Tx) error) error {
	if pool == nil {
		return errors.New("postgres pool is nil")
	}

	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	default:
		return false
	}
}
