package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/reservations"
	"github.com/google/uuid"
)

func (r *reservationsRepo) Resolve(ctx context.Context, tx *sql.Tx, id uuid.UUID, to reservations.Status) (reservations.Reservation, error) {
	out, err := scanReservation(tx.QueryRowContext(ctx, `
		UPDATE reservations
		SET status = $2,
		    resolved_at = clock_timestamp()
		WHERE id = $1 AND status = 'held'
		RETURNING `+reservationColumns,
		id, to,
	))
	if err == nil {
		return out, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return reservations.Reservation{}, fmt.Errorf("resolve reservation: %w", err)
	}

	var exists bool

	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return reservations.Reservation{}, fmt.Errorf("check reservation: %w", err)
	}

	if !exists {
		return reservations.Reservation{}, reservations.ErrReservationNotFound
	}

	return reservations.Reservation{}, reservations.ErrNotHeld
}
