package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/ledger"
)

func (r *ledgerRepo) InsertEntries(ctx context.Context, tx *sql.Tx, entries []ledger.Entry) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_entries (transaction_id, holder_id, counterparty_id, delta, kind)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert entry: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, e.TransactionID, e.Key.HolderID, e.Key.CounterpartyID, e.Delta, e.Kind)
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Key, err)
		}
	}

	return nil
}
