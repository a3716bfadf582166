package reservations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/google/uuid"
)

var (
	ErrReservationNotFound = fmt.Errorf("reservation %w", apperr.ErrNotFound)
	ErrNotHeld             = fmt.Errorf("reservation is not held: %w", apperr.ErrConflict)
	ErrDuplicateReference  = fmt.Errorf("reservation already exists for reference: %w", apperr.ErrConflict)
)

type Kind string

const (
	KindSession Kind = "session"
	KindPayout  Kind = "payout"
)

type Status string

const (
	StatusHeld      Status = "held"
	StatusReleased  Status = "released"
	StatusConsumed  Status = "consumed"
	StatusForfeited Status = "forfeited"
)

type Reservation struct {
	ID          uuid.UUID
	Key         balances.Key
	Units       int64
	Kind        Kind
	ReferenceID string
	Status      Status
	CreatedAt   time.Time
	ResolvedAt  sql.NullTime
}

type Reservations interface {
	Insert(ctx context.Context, tx *sql.Tx, r Reservation) (Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (Reservation, error)
	// Resolve moves a held reservation to a terminal status. Any other
	// current status yields ErrNotHeld and changes nothing.
	Resolve(ctx context.Context, tx *sql.Tx, id uuid.UUID, to Status) (Reservation, error)
}
