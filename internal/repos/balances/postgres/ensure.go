package balances

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
)

// Ensure creates a zero balance for key if none exists yet.
func (r *balancesRepo) Ensure(ctx context.Context, tx *sql.Tx, key balances.Key) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (holder_id, counterparty_id)
		VALUES ($1, $2)
		ON CONFLICT (holder_id, counterparty_id) DO NOTHING
	`, key.HolderID, key.CounterpartyID)
	if err != nil {
		return fmt.Errorf("ensure balance: %w", err)
	}

	return nil
}
