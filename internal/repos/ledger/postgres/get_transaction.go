package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/google/uuid"
)

func (r *ledgerRepo) Get(ctx context.Context, id uuid.UUID) (ledger.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_transactions
		WHERE id = $1
	`, id))

	return notFoundOr(t, err, "get transaction")
}

func (r *ledgerRepo) GetByIdempotencyKey(ctx context.Context, key string) (ledger.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_transactions
		WHERE idempotency_key = $1
	`, key))

	return notFoundOr(t, err, "get transaction by idempotency key")
}

func (r *ledgerRepo) LockByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (ledger.Transaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_transactions
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key))

	return notFoundOr(t, err, "lock transaction by idempotency key")
}

func notFoundOr(t ledger.Transaction, err error, op string) (ledger.Transaction, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}

		return ledger.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}
