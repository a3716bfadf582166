package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/repos/ledger"
)

func (r *ledgerRepo) ListByHolder(ctx context.Context, holderID string, limit int, before time.Time) ([]ledger.Transaction, error) {
	cursor := sql.NullTime{Time: before, Valid: !before.IsZero()}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_transactions t
		WHERE (
			source_holder = $1 OR dest_holder = $1
			OR EXISTS (
				SELECT 1 FROM ledger_entries e
				WHERE e.transaction_id = t.id AND e.holder_id = $1
			)
		)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, holderID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}
