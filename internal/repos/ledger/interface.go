package ledger

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
	ErrTransactionNotFound     = fmt.Errorf("transaction %w", apperr.ErrNotFound)
	ErrDuplicateIdempotencyKey = fmt.Errorf("duplicate idempotency key: %w", apperr.ErrConflict)
	ErrAlreadyReversed         = fmt.Errorf("transaction already reversed: %w", apperr.ErrConflict)
	ErrStatusTransition        = fmt.Errorf("transaction status changed concurrently: %w", apperr.ErrConflict)
)

type TxType string

const (
	TypeDeposit          TxType = "deposit"
	TypePurchase         TxType = "purchase"
	TypePayout           TxType = "payout"
	TypeP2P              TxType = "p2p"
	TypeBrandTransfer    TxType = "brand_transfer"
	TypeBudgetAllocation TxType = "budget_allocation"
	TypeRefund           TxType = "refund"
	TypeAdjustment       TxType = "adjustment"
	TypeConsumption      TxType = "consumption"
	TypeEarning          TxType = "earning"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type EntryKind string

const (
	EntryDebit  EntryKind = "debit"
	EntryCredit EntryKind = "credit"
	EntryFee    EntryKind = "fee"
)

// Transaction is the immutable header of one money movement. An empty
// Source or Dest holder is the outside world (provider deposits, payouts).
type Transaction struct {
	ID             uuid.UUID
	Type           TxType
	Status         Status
	Source         balances.Key
	Dest           balances.Key
	Gross          int64
	Fee            int64
	Net            int64
	IdempotencyKey string
	// RequestHash fingerprints the request that used IdempotencyKey, so a
	// key reused for a different request is told apart from a retry.
	RequestHash string
	ReversalOf  uuid.NullUUID
	Note           string
	CreatedBy      string
	CreatedAt      time.Time
}

// Entry is one signed leg of a transaction against a single balance.
type Entry struct {
	ID            int64
	TransactionID uuid.UUID
	Key           balances.Key
	Delta         int64
	Kind          EntryKind
	CreatedAt     time.Time
}

type Ledger interface {
	Insert(ctx context.Context, tx *sql.Tx, t Transaction) (Transaction, error)
	InsertEntries(ctx context.Context, tx *sql.Tx, entries []Entry) error
	Get(ctx context.Context, id uuid.UUID) (Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (Transaction, error)
	LockByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (Transaction, error)
	SetStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to Status) (Transaction, error)
	Entries(ctx context.Context, transactionID uuid.UUID) ([]Entry, error)
	SumEntries(ctx context.Context, key balances.Key) (int64, error)
	// ListByHolder returns transactions with an entry on any balance of
	// holderID, newest first. A zero before means no upper bound.
	ListByHolder(ctx context.Context, holderID string, limit int, before time.Time) ([]Transaction, error)
}
