package balances

import (
	"context"
	"database/sql"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
)

func (r *balancesRepo) Credit(ctx context.Context, tx *sql.Tx, key balances.Key, amount int64) (balances.Balance, error) {
	return scanMutation(tx.QueryRowContext(ctx, `
		UPDATE balances
		SET total_units = total_units + $3,
		    updated_at = now()
		WHERE holder_id = $1 AND counterparty_id = $2
		RETURNING `+balanceColumns,
		key.HolderID, key.CounterpartyID, amount,
	), "credit balance", balances.ErrBalanceNotFound)
}
