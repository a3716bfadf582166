package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventTransferCompleted = "transfer.completed"
	EventTransferReversed  = "transfer.reversed"
	EventDisputeResolved   = "dispute.resolved"
	EventPayoutCompleted   = "payout.completed"
)

type Event struct {
	ID           uuid.UUID
	EventType    string
	PartitionKey string
	Payload      json.RawMessage
	CreatedAt    time.Time
	SentAt       sql.NullTime
}

type Outbox interface {
	// Enqueue stores an event in the caller's transaction, so it becomes
	// visible exactly when the mutation it describes commits.
	Enqueue(ctx context.Context, tx *sql.Tx, eventType, partitionKey string, payload any) (Event, error)
	// ClaimPending locks up to limit unsent events, skipping rows another
	// relay already holds.
	ClaimPending(ctx context.Context, tx *sql.Tx, limit int) ([]Event, error)
	MarkSent(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) error
}
