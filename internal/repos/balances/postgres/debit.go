package balances

import (
	"context"
	"database/sql"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
)

// Debit removes amount from the available part of the balance. A missing row
// and a short balance both surface as ErrInsufficientFunds; callers lock the
// row first when they need to tell the two apart.
func (r *balancesRepo) Debit(ctx context.Context, tx *sql.Tx, key balances.Key, amount int64) (balances.Balance, error) {
	return scanMutation(tx.QueryRowContext(ctx, `
		UPDATE balances
		SET total_units = total_units - $3,
		    updated_at = now()
		WHERE holder_id = $1 AND counterparty_id = $2
		  AND total_units - reserved_units >= $3
		RETURNING `+balanceColumns,
		key.HolderID, key.CounterpartyID, amount,
	), "debit balance", balances.ErrInsufficientFunds)
}
