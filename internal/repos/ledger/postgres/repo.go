package ledger

import (
	"database/sql"

	"github.com/fastprodman/creatorledger/internal/repos/ledger"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

const transactionColumns = `id, type, status, source_holder, source_counterparty,
	dest_holder, dest_counterparty, gross_amount, fee_amount, net_amount,
	COALESCE(idempotency_key, ''), request_hash, reversal_of, note, created_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (ledger.Transaction, error) {
	var t ledger.Transaction

	err := row.Scan(
		&t.ID, &t.Type, &t.Status,
		&t.Source.HolderID, &t.Source.CounterpartyID,
		&t.Dest.HolderID, &t.Dest.CounterpartyID,
		&t.Gross, &t.Fee, &t.Net,
		&t.IdempotencyKey, &t.RequestHash, &t.ReversalOf, &t.Note, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return ledger.Transaction{}, err
	}

	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
