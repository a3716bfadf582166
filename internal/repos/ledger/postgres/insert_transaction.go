package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/google/uuid"
)

// Insert stores t and returns it with its id and created_at filled in.
func (r *ledgerRepo) Insert(ctx context.Context, tx *sql.Tx, t ledger.Transaction) (ledger.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	stored, err := scanTransaction(tx.QueryRowContext(ctx, `
		INSERT INTO ledger_transactions (
			id, type, status, source_holder, source_counterparty,
			dest_holder, dest_counterparty, gross_amount, fee_amount, net_amount,
			idempotency_key, request_hash, reversal_of, note, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+transactionColumns,
		t.ID, t.Type, t.Status, t.Source.HolderID, t.Source.CounterpartyID,
		t.Dest.HolderID, t.Dest.CounterpartyID, t.Gross, t.Fee, t.Net,
		nullString(t.IdempotencyKey), t.RequestHash, t.ReversalOf, t.Note, t.CreatedBy,
	))
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			switch pgutils.ConstraintName(err) {
			case "ledger_transactions_idempotency_key_key":
				return ledger.Transaction{}, ledger.ErrDuplicateIdempotencyKey
			case "ledger_transactions_reversal_of_key":
				return ledger.Transaction{}, ledger.ErrAlreadyReversed
			}
		}

		return ledger.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	return stored, nil
}
