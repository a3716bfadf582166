package payouts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/payouts"
	"github.com/google/uuid"
)

var _ payouts.Payouts = (*payoutsRepo)(nil)

type payoutsRepo struct{ db *sql.DB }

func New(db *sql.DB) *payoutsRepo {
	return &payoutsRepo{db: db}
}

const payoutColumns = `id, user_id, amount, destination, reservation_id, status,
	reviewed_by, reason, transaction_id, created_at, updated_at`

func scanPayout(row *sql.Row) (payouts.Request, error) {
	var p payouts.Request

	err := row.Scan(
		&p.ID, &p.UserID, &p.Amount, &p.Destination, &p.ReservationID, &p.Status,
		&p.ReviewedBy, &p.Reason, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	)

	return p, err
}

func (r *payoutsRepo) Insert(ctx context.Context, tx *sql.Tx, in payouts.Request) (payouts.Request, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}

	out, err := scanPayout(tx.QueryRowContext(ctx, `
		INSERT INTO payout_requests (id, user_id, amount, destination, reservation_id, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING `+payoutColumns,
		in.ID, in.UserID, in.Amount, in.Destination, in.ReservationID,
	))
	if err != nil {
		return payouts.Request{}, fmt.Errorf("insert payout request: %w", err)
	}

	return out, nil
}

func (r *payoutsRepo) Get(ctx context.Context, id uuid.UUID) (payouts.Request, error) {
	return notFoundOr(scanPayout(r.db.QueryRowContext(ctx, `
		SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1
	`, id)))
}

func (r *payoutsRepo) LockAndGet(ctx context.Context, tx *sql.Tx, id uuid.UUID) (payouts.Request, error) {
	return notFoundOr(scanPayout(tx.QueryRowContext(ctx, `
		SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1 FOR UPDATE
	`, id)))
}

func (r *payoutsRepo) Resolve(ctx context.Context, tx *sql.Tx, id uuid.UUID, rev payouts.Review) (payouts.Request, error) {
	out, err := scanPayout(tx.QueryRowContext(ctx, `
		UPDATE payout_requests
		SET status = $2,
		    reviewed_by = $3,
		    reason = $4,
		    transaction_id = $5,
		    updated_at = clock_timestamp()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+payoutColumns,
		id, rev.Status, rev.ReviewedBy, rev.Reason, rev.TransactionID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payouts.Request{}, payouts.ErrPayoutNotPending
		}

		return payouts.Request{}, fmt.Errorf("resolve payout request: %w", err)
	}

	return out, nil
}

func notFoundOr(p payouts.Request, err error) (payouts.Request, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payouts.Request{}, payouts.ErrPayoutNotFound
		}

		return payouts.Request{}, fmt.Errorf("get payout request: %w", err)
	}

	return p, nil
}
