package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
)

func (r *balancesRepo) Get(ctx context.Context, key balances.Key) (balances.Balance, error) {
	b, err := scanBalance(r.db.QueryRowContext(ctx, `
		SELECT `+balanceColumns+`
		FROM balances
		WHERE holder_id = $1 AND counterparty_id = $2
	`, key.HolderID, key.CounterpartyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return balances.Balance{}, balances.ErrBalanceNotFound
		}

		return balances.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	return b, nil
}
