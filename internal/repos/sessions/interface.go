package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = fmt.Errorf("session %w", apperr.ErrNotFound)
	ErrInvalidState    = fmt.Errorf("session state does not allow this: %w", apperr.ErrConflict)
)

type Status string

const (
	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDisputed  Status = "disputed"
	StatusSettled   Status = "settled"
	StatusNoShow    Status = "no_show"
)

type Session struct {
	ID            uuid.UUID
	BuyerID       string
	SellerID      string
	Units         int64
	Status        Status
	ReservationID uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Sessions interface {
	Insert(ctx context.Context, tx *sql.Tx, s Session) (Session, error)
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	LockAndGet(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Session, error)
	// Transition moves the session to `to` only if its current status is one
	// of from; otherwise ErrInvalidState.
	Transition(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []Status, to Status) (Session, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Session, error)
}
