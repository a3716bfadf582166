package pgutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
)

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil) // default isolation level
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("rollback after fn error: %v (fn err: %w)", rbErr, err)
		}
		return fmt.Errorf("fn: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// RetryPolicy bounds how often a transaction is re-run after a serialization
// failure or deadlock.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// WithRetryTx runs fn through WithTx, re-running the whole transaction when
// Postgres reports a serialization failure or deadlock. Every attempt starts
// from a clean rollback, so fn must not keep state between attempts.
// When attempts run out the error wraps both ErrRetriesExhausted and
// apperr.ErrUpstream.
func WithRetryTx(ctx context.Context, db *sql.DB, p RetryPolicy, fn func(*sql.Tx) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = WithTx(ctx, db, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		slog.Warn("retrying transaction", "attempt", attempt, "error", err)

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry tx: %w", ctx.Err())
		case <-time.After(p.Backoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, errors.Join(ErrRetriesExhausted, apperr.ErrUpstream, err))
}
