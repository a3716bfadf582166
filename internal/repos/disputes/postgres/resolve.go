package disputes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	"github.com/google/uuid"
)

func (r *disputesRepo) Resolve(ctx context.Context, tx *sql.Tx, id uuid.UUID, res disputes.Resolution) (disputes.Dispute, error) {
	out, err := scanDispute(tx.QueryRowContext(ctx, `
		UPDATE disputes
		SET status = $2,
		    amount_approved = $3,
		    reviewed_by = $4,
		    notes = $5,
		    reviewed_at = clock_timestamp()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+disputeColumns,
		id, res.Status, res.AmountApproved, res.ReviewedBy, res.Notes,
	))
	if err == nil {
		return out, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return disputes.Dispute{}, fmt.Errorf("resolve dispute: %w", err)
	}

	var exists bool

	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM disputes WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return disputes.Dispute{}, fmt.Errorf("check dispute: %w", err)
	}

	if !exists {
		return disputes.Dispute{}, disputes.ErrDisputeNotFound
	}

	return disputes.Dispute{}, disputes.ErrAlreadyResolved
}
