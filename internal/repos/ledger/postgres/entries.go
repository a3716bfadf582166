package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/google/uuid"
)

func (r *ledgerRepo) Entries(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transaction_id, holder_id, counterparty_id, delta, kind, created_at
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY id
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry

		err := rows.Scan(&e.ID, &e.TransactionID, &e.Key.HolderID, &e.Key.CounterpartyID, &e.Delta, &e.Kind, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return out, nil
}

// SumEntries is the balance implied by the entry log for key.
func (r *ledgerRepo) SumEntries(ctx context.Context, key balances.Key) (int64, error) {
	var sum int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta), 0)::BIGINT
		FROM ledger_entries
		WHERE holder_id = $1 AND counterparty_id = $2
	`, key.HolderID, key.CounterpartyID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum entries: %w", err)
	}

	return sum, nil
}
