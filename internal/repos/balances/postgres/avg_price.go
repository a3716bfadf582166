package balances

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/shopspring/decimal"
)

func (r *balancesRepo) SetAvgPrice(ctx context.Context, tx *sql.Tx, key balances.Key, price decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE balances
		SET avg_acquisition_price = $3,
		    updated_at = now()
		WHERE holder_id = $1 AND counterparty_id = $2
	`, key.HolderID, key.CounterpartyID, price)
	if err != nil {
		return fmt.Errorf("set avg price: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return balances.ErrBalanceNotFound
	}

	return nil
}
