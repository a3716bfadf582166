package ledger

import (
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/services/fees"
)

// PlatformHolder is the holder of the platform fee sink.
const PlatformHolder = "platform"

// CampaignBudget is the balance holding a campaign's allocated budget.
func CampaignBudget(brandID, campaignID string) balances.Key {
	return balances.Key{HolderID: campaignID, CounterpartyID: brandID}
}

// ResourceLedger is the admin resource guarding adjustments, reversals and
// reconciliation.
const ResourceLedger = "ledger"

var (
	ErrIdempotencyMismatch = fmt.Errorf("idempotency key reused with different parameters: %w", apperr.ErrConflict)
	ErrDepositFailed       = fmt.Errorf("deposit already failed: %w", apperr.ErrConflict)
	ErrDepositCompleted    = fmt.Errorf("deposit already completed: %w", apperr.ErrConflict)
)

// Leg is one balance change of a posting.
type Leg struct {
	Key   balances.Key
	Delta int64
	Kind  ledgerrepo.EntryKind
	// FromReserved spends reserved units for a negative Delta instead of
	// available ones.
	FromReserved bool
}

// Posting is a transaction header plus the balance changes it makes. Event
// names the outbox event to enqueue; empty means none. Request, when set, is
// the caller request the posting was derived from and is what an idempotent
// retry must repeat.
type Posting struct {
	Header  ledgerrepo.Transaction
	Legs    []Leg
	Event   string
	Request any
}

type Posted struct {
	Transaction ledgerrepo.Transaction
	Balances    map[balances.Key]balances.Balance
}

type FeeLeg struct {
	Sink   balances.Key
	Amount int64
}

type TransferRequest struct {
	Type           ledgerrepo.TxType
	Source         balances.Key
	Dest           balances.Key
	Gross          int64
	Fees           []FeeLeg
	IdempotencyKey string
	Note           string
	ActorID        string
}

type TransferResult struct {
	Transaction   ledgerrepo.Transaction
	SourceBalance balances.Balance
	DestBalance   balances.Balance
	Replayed      bool
}

type P2PRequest struct {
	SenderID       string
	RecipientID    string
	Amount         int64
	Note           string
	IdempotencyKey string
}

type PurchaseRequest struct {
	BuyerID        string
	SellerID       string
	CommunityID    string
	Units          int64
	UnitPrice      int64
	IdempotencyKey string
}

type PurchaseResult struct {
	TransferResult
	Fees         fees.Breakdown
	UnitsBalance balances.Balance
}

type EarningRequest struct {
	ActorID        string
	BrandID        string
	CampaignID     string
	CreatorID      string
	Amount         int64
	Note           string
	IdempotencyKey string
}

type AdjustRequest struct {
	ActorID        string
	Key            balances.Key
	Delta          int64
	Note           string
	IdempotencyKey string
}

type Reconciliation struct {
	Key        balances.Key `json:"key"`
	TotalUnits int64        `json:"totalUnits"`
	EntrySum   int64        `json:"entrySum"`
	Balanced   bool         `json:"balanced"`
	CheckedAt  time.Time    `json:"checkedAt"`
}

// TransferEvent is the outbox payload for transfer.completed and
// transfer.reversed.
type TransferEvent struct {
	TransactionID string    `json:"transactionId"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Dest          string    `json:"dest"`
	Gross         int64     `json:"gross"`
	Fee           int64     `json:"fee"`
	Net           int64     `json:"net"`
	ReversalOf    string    `json:"reversalOf,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newTransferEvent(t ledgerrepo.Transaction) TransferEvent {
	ev := TransferEvent{
		TransactionID: t.ID.String(),
		Type:          string(t.Type),
		Source:        t.Source.String(),
		Dest:          t.Dest.String(),
		Gross:         t.Gross,
		Fee:           t.Fee,
		Net:           t.Net,
		CreatedAt:     t.CreatedAt,
	}
	if t.ReversalOf.Valid {
		ev.ReversalOf = t.ReversalOf.UUID.String()
	}

	return ev
}
