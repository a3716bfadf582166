package api

import (
	"time"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/payouts"
	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	"github.com/fastprodman/creatorledger/internal/services/fees"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
	"github.com/fastprodman/creatorledger/pkg/money"
)

// --- Requests ---

type p2pRequest struct {
	RecipientID string `json:"recipientId" validate:"required,max=128"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Note        string `json:"note" validate:"max=500"`
}

type personalToBrandRequest struct {
	BrandID string `json:"brandId" validate:"required,max=128"`
	Amount  int64  `json:"amount" validate:"gt=0"`
}

type brandToPersonalRequest struct {
	BrandID string `json:"brandId" validate:"required,max=128"`
	UserID  string `json:"userId" validate:"required,max=128"`
	Amount  int64  `json:"amount" validate:"gt=0"`
}

type allocationRequest struct {
	CampaignID string `json:"campaignId" validate:"required,max=128"`
	Amount     int64  `json:"amount" validate:"gt=0"`
}

type earningRequest struct {
	CreatorID string `json:"creatorId" validate:"required,max=128"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Note      string `json:"note" validate:"max=500"`
}

type purchaseRequest struct {
	SellerID    string `json:"sellerId" validate:"required,max=128"`
	CommunityID string `json:"communityId" validate:"max=128"`
	Units       int64  `json:"units" validate:"gt=0"`
	UnitPrice   int64  `json:"unitPrice" validate:"gt=0"`
}

type checkoutRequest struct {
	HolderID    string `json:"holderId" validate:"required,max=128"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
	RedirectURL string `json:"redirectUrl" validate:"omitempty,url"`
}

type bookSessionRequest struct {
	SellerID string `json:"sellerId" validate:"required,max=128"`
	Units    int64  `json:"units" validate:"gt=0"`
}

type settleBatchRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=500"`
}

type openDisputeRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type resolveDisputeRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve deny"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type payoutRequest struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	Destination string `json:"destination" validate:"required,max=256"`
}

type rejectPayoutRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type adjustmentRequest struct {
	HolderID       string `json:"holderId" validate:"required,max=128"`
	CounterpartyID string `json:"counterpartyId" validate:"max=128"`
	Delta          int64  `json:"delta" validate:"ne=0"`
	Note           string `json:"note" validate:"required,max=500"`
}

type reverseRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// --- Responses ---

type balanceResponse struct {
	HolderID            string    `json:"holderId"`
	CounterpartyID      string    `json:"counterpartyId,omitempty"`
	TotalUnits          int64     `json:"totalUnits"`
	ReservedUnits       int64     `json:"reservedUnits"`
	AvailableUnits      int64     `json:"availableUnits"`
	AvgAcquisitionPrice string    `json:"avgAcquisitionPrice,omitempty"`
	Total               string    `json:"total,omitempty"`
	Reserved            string    `json:"reserved,omitempty"`
	Available           string    `json:"available,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// newBalanceResponse renders wallets with money display strings and unit
// balances with their cost basis.
func newBalanceResponse(b balances.Balance) balanceResponse {
	out := balanceResponse{
		HolderID:       b.HolderID,
		CounterpartyID: b.CounterpartyID,
		TotalUnits:     b.TotalUnits,
		ReservedUnits:  b.ReservedUnits,
		AvailableUnits: b.Available(),
		UpdatedAt:      b.UpdatedAt,
	}

	if b.CounterpartyID == "" {
		out.Total = money.FormatMinor(b.TotalUnits)
		out.Reserved = money.FormatMinor(b.ReservedUnits)
		out.Available = money.FormatMinor(b.Available())
	} else {
		out.AvgAcquisitionPrice = b.AvgAcquisitionPrice.StringFixed(4)
	}

	return out
}

type transactionResponse struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Source         string    `json:"source,omitempty"`
	Dest           string    `json:"dest,omitempty"`
	Gross          int64     `json:"gross"`
	Fee            int64     `json:"fee"`
	Net            int64     `json:"net"`
	GrossDisplay   string    `json:"grossDisplay"`
	FeeDisplay     string    `json:"feeDisplay"`
	NetDisplay     string    `json:"netDisplay"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
	ReversalOf     string    `json:"reversalOf,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newTransactionResponse(t ledgerrepo.Transaction) transactionResponse {
	out := transactionResponse{
		ID:             t.ID.String(),
		Type:           string(t.Type),
		Status:         string(t.Status),
		Gross:          t.Gross,
		Fee:            t.Fee,
		Net:            t.Net,
		GrossDisplay:   money.FormatMinor(t.Gross),
		FeeDisplay:     money.FormatMinor(t.Fee),
		NetDisplay:     money.FormatMinor(t.Net),
		IdempotencyKey: t.IdempotencyKey,
		Note:           t.Note,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
	}

	if t.Source.HolderID != "" {
		out.Source = t.Source.String()
	}

	if t.Dest.HolderID != "" {
		out.Dest = t.Dest.String()
	}

	if t.ReversalOf.Valid {
		out.ReversalOf = t.ReversalOf.UUID.String()
	}

	return out
}

type transferResponse struct {
	Transaction   transactionResponse `json:"transaction"`
	SourceBalance *balanceResponse    `json:"sourceBalance,omitempty"`
	DestBalance   *balanceResponse    `json:"destBalance,omitempty"`
	Replayed      bool                `json:"replayed"`
}

func optionalBalance(b balances.Balance) *balanceResponse {
	if b.HolderID == "" {
		return nil
	}

	out := newBalanceResponse(b)

	return &out
}

func newTransferResponse(res ledger.TransferResult) transferResponse {
	return transferResponse{
		Transaction:   newTransactionResponse(res.Transaction),
		SourceBalance: optionalBalance(res.SourceBalance),
		DestBalance:   optionalBalance(res.DestBalance),
		Replayed:      res.Replayed,
	}
}

type purchaseResponse struct {
	transferResponse
	Fees         fees.Breakdown   `json:"fees"`
	UnitsBalance *balanceResponse `json:"unitsBalance,omitempty"`
}

type sessionResponse struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyerId"`
	SellerID      string    `json:"sellerId"`
	Units         int64     `json:"units"`
	Status        string    `json:"status"`
	ReservationID string    `json:"reservationId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newSessionResponse(s sessions.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID.String(),
		BuyerID:       s.BuyerID,
		SellerID:      s.SellerID,
		Units:         s.Units,
		Status:        string(s.Status),
		ReservationID: s.ReservationID.String(),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

type disputeResponse struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"sessionId"`
	OpenedBy        string     `json:"openedBy"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	AmountRequested int64      `json:"amountRequested"`
	AmountApproved  int64      `json:"amountApproved"`
	ReviewedBy      string     `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func newDisputeResponse(d disputes.Dispute) disputeResponse {
	out := disputeResponse{
		ID:              d.ID.String(),
		SessionID:       d.SessionID.String(),
		OpenedBy:        d.OpenedBy,
		Reason:          d.Reason,
		Status:          string(d.Status),
		AmountRequested: d.AmountRequested,
		AmountApproved:  d.AmountApproved,
		ReviewedBy:      d.ReviewedBy,
		Notes:           d.Notes,
		CreatedAt:       d.CreatedAt,
	}

	if d.ReviewedAt.Valid {
		out.ReviewedAt = &d.ReviewedAt.Time
	}

	return out
}

type auditResponse struct {
	Action         string    `json:"action"`
	ActorID        string    `json:"actorId"`
	AmountApproved int64     `json:"amountApproved"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type payoutResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amountDisplay"`
	Destination   string    `json:"destination"`
	Status        string    `json:"status"`
	ReviewedBy    string    `json:"reviewedBy,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newPayoutResponse(p payouts.Request) payoutResponse {
	out := payoutResponse{
		ID:            p.ID.String(),
		UserID:        p.UserID,
		Amount:        p.Amount,
		AmountDisplay: money.FormatMinor(p.Amount),
		Destination:   p.Destination,
		Status:        string(p.Status),
		ReviewedBy:    p.ReviewedBy,
		Reason:        p.Reason,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}

	if p.TransactionID.Valid {
		out.TransactionID = p.TransactionID.UUID.String()
	}

	return out
}
