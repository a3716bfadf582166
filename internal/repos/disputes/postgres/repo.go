package disputes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	"github.com/google/uuid"
)

var _ disputes.Disputes = (*disputesRepo)(nil)

type disputesRepo struct{ db *sql.DB }

func New(db *sql.DB) *disputesRepo {
	return &disputesRepo{db: db}
}

const disputeColumns = `id, session_id, opened_by, reason, status, amount_requested,
	amount_approved, reviewed_by, reviewed_at, notes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispute(row rowScanner) (disputes.Dispute, error) {
	var d disputes.Dispute

	err := row.Scan(
		&d.ID, &d.SessionID, &d.OpenedBy, &d.Reason, &d.Status, &d.AmountRequested,
		&d.AmountApproved, &d.ReviewedBy, &d.ReviewedAt, &d.Notes, &d.CreatedAt,
	)

	return d, err
}

func (r *disputesRepo) Insert(ctx context.Context, tx *sql.Tx, in disputes.Dispute) (disputes.Dispute, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}

	out, err := scanDispute(tx.QueryRowContext(ctx, `
		INSERT INTO disputes (id, session_id, opened_by, reason, status, amount_requested)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING `+disputeColumns,
		in.ID, in.SessionID, in.OpenedBy, in.Reason, in.AmountRequested,
	))
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return disputes.Dispute{}, disputes.ErrPendingForSession
		}

		return disputes.Dispute{}, fmt.Errorf("insert dispute: %w", err)
	}

	return out, nil
}

func (r *disputesRepo) Get(ctx context.Context, id uuid.UUID) (disputes.Dispute, error) {
	out, err := scanDispute(r.db.QueryRowContext(ctx, `
		SELECT `+disputeColumns+` FROM disputes WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return disputes.Dispute{}, disputes.ErrDisputeNotFound
		}

		return disputes.Dispute{}, fmt.Errorf("get dispute: %w", err)
	}

	return out, nil
}

func (r *disputesRepo) ListByStatus(ctx context.Context, status disputes.Status, limit int) ([]disputes.Dispute, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+disputeColumns+`
		FROM disputes
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var out []disputes.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disputes: %w", err)
	}

	return out, nil
}
