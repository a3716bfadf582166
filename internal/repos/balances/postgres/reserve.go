package balances

import (
	"context"
	"database/sql"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
)

func (r *balancesRepo) Reserve(ctx context.Context, tx *sql.Tx, key balances.Key, units int64) (balances.Balance, error) {
	return scanMutation(tx.QueryRowContext(ctx, `
		UPDATE balances
		SET reserved_units = reserved_units + $3,
		    updated_at = now()
		WHERE holder_id = $1 AND counterparty_id = $2
		  AND total_units - reserved_units >= $3
		RETURNING `+balanceColumns,
		key.HolderID, key.CounterpartyID, units,
	), "reserve units", balances.ErrInsufficientFunds)
}

func (r *balancesRepo) Unreserve(ctx context.Context, tx *sql.Tx, key balances.Key, units int64) (balances.Balance, error) {
	return scanMutation(tx.QueryRowContext(ctx, `
		UPDATE balances
		SET reserved_units = reserved_units - $3,
		    updated_at = now()
		WHERE holder_id = $1 AND counterparty_id = $2
		  AND reserved_units >= $3
		RETURNING `+balanceColumns,
		key.HolderID, key.CounterpartyID, units,
	), "unreserve units", balances.ErrReservedUnderflow)
}

// ConsumeReserved spends reserved units: both reserved and total drop.
func (r *balancesRepo) ConsumeReserved(ctx context.Context, tx *sql.Tx, key balances.Key, units int64) (balances.Balance, error) {
	return scanMutation(tx.QueryRowContext(ctx, `
		UPDATE balances
		SET reserved_units = reserved_units - $3,
		    total_units = total_units - $3,
		    updated_at = now()
		WHERE holder_id = $1 AND counterparty_id = $2
		  AND reserved_units >= $3
		RETURNING `+balanceColumns,
		key.HolderID, key.CounterpartyID, units,
	), "consume reserved units", balances.ErrReservedUnderflow)
}
