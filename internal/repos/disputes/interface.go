package disputes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/google/uuid"
)

var (
	ErrDisputeNotFound   = fmt.Errorf("dispute %w", apperr.ErrNotFound)
	ErrAlreadyResolved   = fmt.Errorf("dispute already resolved: %w", apperr.ErrConflict)
	ErrPendingForSession = fmt.Errorf("session already has a pending dispute: %w", apperr.ErrConflict)
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

type Dispute struct {
	ID              uuid.UUID
	SessionID       uuid.UUID
	OpenedBy        string
	Reason          string
	Status          Status
	AmountRequested int64
	AmountApproved  int64
	ReviewedBy      string
	ReviewedAt      sql.NullTime
	Notes           string
	CreatedAt       time.Time
}

// Audit is an append-only record of an action taken on a dispute.
type Audit struct {
	ID             int64
	DisputeID      uuid.UUID
	Action         string
	ActorID        string
	AmountApproved int64
	Notes          string
	CreatedAt      time.Time
}

type Resolution struct {
	Status         Status
	AmountApproved int64
	ReviewedBy     string
	Notes          string
}

type Disputes interface {
	Insert(ctx context.Context, tx *sql.Tx, d Dispute) (Dispute, error)
	Get(ctx context.Context, id uuid.UUID) (Dispute, error)
	// Resolve applies res only while the dispute is pending; otherwise
	// ErrAlreadyResolved.
	Resolve(ctx context.Context, tx *sql.Tx, id uuid.UUID, res Resolution) (Dispute, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Dispute, error)
	InsertAudit(ctx context.Context, tx *sql.Tx, a Audit) error
	Audits(ctx context.Context, disputeID uuid.UUID) ([]Audit, error)
}
