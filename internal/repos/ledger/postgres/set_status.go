package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/google/uuid"
)

// SetStatus moves a transaction from one status to another. It fails with
// ErrStatusTransition when the row is no longer in the from status.
func (r *ledgerRepo) SetStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to ledger.Status) (ledger.Transaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx, `
		UPDATE ledger_transactions
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING `+transactionColumns,
		id, from, to,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrStatusTransition
		}

		return ledger.Transaction{}, fmt.Errorf("set transaction status: %w", err)
	}

	return t, nil
}
