package balances

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrBalanceNotFound   = fmt.Errorf("balance %w", apperr.ErrNotFound)
	ErrInsufficientFunds = fmt.Errorf("balance: %w", apperr.ErrInsufficientBalance)
	ErrReservedUnderflow = fmt.Errorf("balance: reserved units underflow: %w", apperr.ErrConflict)
)

// Key addresses one balance: holder's units with respect to a counterparty.
// An empty CounterpartyID is the holder's platform-wide wallet.
type Key struct {
	HolderID       string `json:"holderId"`
	CounterpartyID string `json:"counterpartyId"`
}

// Wallet returns the platform-wide wallet key of holderID.
func Wallet(holderID string) Key { return Key{HolderID: holderID} }

func (k Key) String() string {
	if k.CounterpartyID == "" {
		return k.HolderID
	}

	return k.HolderID + "/" + k.CounterpartyID
}

// Less orders keys for deterministic row locking.
func (k Key) Less(o Key) bool {
	if k.HolderID != o.HolderID {
		return k.HolderID < o.HolderID
	}

	return k.CounterpartyID < o.CounterpartyID
}

type Balance struct {
	Key
	TotalUnits          int64
	ReservedUnits       int64
	AvgAcquisitionPrice decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Available is the part of the balance not carved out by reservations.
func (b Balance) Available() int64 { return b.TotalUnits - b.ReservedUnits }

// Balances is the only code path allowed to touch balance columns. Every
// mutating method runs inside the caller's transaction and is a single
// conditional UPDATE, so no caller ever computes a new balance in memory.
type Balances interface {
	Get(ctx context.Context, key Key) (Balance, error)
	LockAndGet(ctx context.Context, tx *sql.Tx, key Key) (Balance, error)
	Ensure(ctx context.Context, tx *sql.Tx, key Key) error
	Credit(ctx context.Context, tx *sql.Tx, key Key, amount int64) (Balance, error)
	Debit(ctx context.Context, tx *sql.Tx, key Key, amount int64) (Balance, error)
	Reserve(ctx context.Context, tx *sql.Tx, key Key, units int64) (Balance, error)
	Unreserve(ctx context.Context, tx *sql.Tx, key Key, units int64) (Balance, error)
	ConsumeReserved(ctx context.Context, tx *sql.Tx, key Key, units int64) (Balance, error)
	SetAvgPrice(ctx context.Context, tx *sql.Tx, key Key, price decimal.Decimal) error
}
