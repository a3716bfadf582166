package disputes

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	"github.com/google/uuid"
)

func (r *disputesRepo) InsertAudit(ctx context.Context, tx *sql.Tx, a disputes.Audit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dispute_audits (dispute_id, action, actor_id, amount_approved, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, a.DisputeID, a.Action, a.ActorID, a.AmountApproved, a.Notes)
	if err != nil {
		return fmt.Errorf("insert dispute audit: %w", err)
	}

	return nil
}

func (r *disputesRepo) Audits(ctx context.Context, disputeID uuid.UUID) ([]disputes.Audit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dispute_id, action, actor_id, amount_approved, notes, created_at
		FROM dispute_audits
		WHERE dispute_id = $1
		ORDER BY id
	`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("list dispute audits: %w", err)
	}
	defer rows.Close()

	var out []disputes.Audit
	for rows.Next() {
		var a disputes.Audit
		if err := rows.Scan(&a.ID, &a.DisputeID, &a.Action, &a.ActorID, &a.AmountApproved, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispute audit: %w", err)
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispute audits: %w", err)
	}

	return out, nil
}
