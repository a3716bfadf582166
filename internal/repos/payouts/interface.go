package payouts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/google/uuid"
)

var (
	ErrPayoutNotFound   = fmt.Errorf("payout request %w", apperr.ErrNotFound)
	ErrPayoutNotPending = fmt.Errorf("payout request is not pending: %w", apperr.ErrConflict)
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

type Request struct {
	ID            uuid.UUID
	UserID        string
	Amount        int64
	Destination   string
	ReservationID uuid.UUID
	Status        Status
	ReviewedBy    string
	Reason        string
	TransactionID uuid.NullUUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Review struct {
	Status        Status
	ReviewedBy    string
	Reason        string
	TransactionID uuid.NullUUID
}

type Payouts interface {
	Insert(ctx context.Context, tx *sql.Tx, r Request) (Request, error)
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	LockAndGet(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Request, error)
	// Resolve applies rev only while the request is pending.
	Resolve(ctx context.Context, tx *sql.Tx, id uuid.UUID, rev Review) (Request, error)
}
