package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/reservations"
	"github.com/google/uuid"
)

var _ reservations.Reservations = (*reservationsRepo)(nil)

type reservationsRepo struct{ db *sql.DB }

func New(db *sql.DB) *reservationsRepo {
	return &reservationsRepo{db: db}
}

const reservationColumns = `id, holder_id, counterparty_id, units, kind, reference_id,
	status, created_at, resolved_at`

func scanReservation(row *sql.Row) (reservations.Reservation, error) {
	var r reservations.Reservation

	err := row.Scan(
		&r.ID, &r.Key.HolderID, &r.Key.CounterpartyID, &r.Units, &r.Kind,
		&r.ReferenceID, &r.Status, &r.CreatedAt, &r.ResolvedAt,
	)

	return r, err
}

func (r *reservationsRepo) Insert(ctx context.Context, tx *sql.Tx, in reservations.Reservation) (reservations.Reservation, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}

	out, err := scanReservation(tx.QueryRowContext(ctx, `
		INSERT INTO reservations (id, holder_id, counterparty_id, units, kind, reference_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'held')
		RETURNING `+reservationColumns,
		in.ID, in.Key.HolderID, in.Key.CounterpartyID, in.Units, in.Kind, in.ReferenceID,
	))
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return reservations.Reservation{}, reservations.ErrDuplicateReference
		}

		return reservations.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}

	return out, nil
}

func (r *reservationsRepo) Get(ctx context.Context, id uuid.UUID) (reservations.Reservation, error) {
	out, err := scanReservation(r.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reservations.Reservation{}, reservations.ErrReservationNotFound
		}

		return reservations.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}

	return out, nil
}
