package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	"github.com/google/uuid"
)

var _ sessions.Sessions = (*sessionsRepo)(nil)

type sessionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *sessionsRepo {
	return &sessionsRepo{db: db}
}

const sessionColumns = `id, buyer_id, seller_id, units, status, reservation_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (sessions.Session, error) {
	var s sessions.Session

	err := row.Scan(&s.ID, &s.BuyerID, &s.SellerID, &s.Units, &s.Status, &s.ReservationID, &s.CreatedAt, &s.UpdatedAt)

	return s, err
}

func (r *sessionsRepo) Insert(ctx context.Context, tx *sql.Tx, in sessions.Session) (sessions.Session, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}

	out, err := scanSession(tx.QueryRowContext(ctx, `
		INSERT INTO sessions (id, buyer_id, seller_id, units, status, reservation_id)
		VALUES ($1, $2, $3, $4, 'booked', $5)
		RETURNING `+sessionColumns,
		in.ID, in.BuyerID, in.SellerID, in.Units, in.ReservationID,
	))
	if err != nil {
		return sessions.Session{}, fmt.Errorf("insert session: %w", err)
	}

	return out, nil
}

func (r *sessionsRepo) Get(ctx context.Context, id uuid.UUID) (sessions.Session, error) {
	out, err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessions.Session{}, sessions.ErrSessionNotFound
		}

		return sessions.Session{}, fmt.Errorf("get session: %w", err)
	}

	return out, nil
}

func (r *sessionsRepo) LockAndGet(ctx context.Context, tx *sql.Tx, id uuid.UUID) (sessions.Session, error) {
	out, err := scanSession(tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessions.Session{}, sessions.ErrSessionNotFound
		}

		return sessions.Session{}, fmt.Errorf("lock/get session: %w", err)
	}

	return out, nil
}
