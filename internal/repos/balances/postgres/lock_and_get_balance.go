package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
)

func (r *balancesRepo) LockAndGet(ctx context.Context, tx *sql.Tx, key balances.Key) (balances.Balance, error) {
	b, err := scanBalance(tx.QueryRowContext(ctx, `
		SELECT `+balanceColumns+`
		FROM balances
		WHERE holder_id = $1 AND counterparty_id = $2
		FOR UPDATE
	`, key.HolderID, key.CounterpartyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return balances.Balance{}, balances.ErrBalanceNotFound
		}

		return balances.Balance{}, fmt.Errorf("lock/get balance: %w", err)
	}

	return b, nil
}
