package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/outbox"
	"github.com/google/uuid"
)

// Adjust applies a manual correction. A positive delta credits the balance
// from outside the platform; a negative one debits it, limited by the
// available balance.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (TransferResult, error) {
	if err := s.requireAdmin(ctx, req.ActorID, ResourceLedger); err != nil {
		return TransferResult{}, err
	}

	if req.Key.HolderID == "" {
		return TransferResult{}, apperr.Invalid("holderId", "is required")
	}

	if req.Delta == 0 {
		return TransferResult{}, apperr.Invalid("delta", "must not be zero")
	}

	hdr := ledgerrepo.Transaction{
		Type:           ledgerrepo.TypeAdjustment,
		Status:         ledgerrepo.StatusCompleted,
		IdempotencyKey: ClientKey(req.ActorID, req.IdempotencyKey),
		Note:           req.Note,
		CreatedBy:      req.ActorID,
	}

	leg := Leg{Key: req.Key, Delta: req.Delta, Kind: ledgerrepo.EntryCredit}
	if req.Delta > 0 {
		hdr.Dest = req.Key
		hdr.Gross, hdr.Net = req.Delta, req.Delta
	} else {
		hdr.Source = req.Key
		hdr.Gross, hdr.Net = -req.Delta, -req.Delta
		leg.Kind = ledgerrepo.EntryDebit
	}

	return s.submit(ctx, Posting{Header: hdr, Legs: []Leg{leg}, Event: outbox.EventTransferCompleted, Request: req}, nil)
}

var irreversible = map[ledgerrepo.TxType]bool{
	ledgerrepo.TypeRefund:      true,
	ledgerrepo.TypeDeposit:     true,
	ledgerrepo.TypeAdjustment:  true,
	ledgerrepo.TypeConsumption: true,
	ledgerrepo.TypePayout:      true,
}

// Reverse undoes a completed transfer with a compensating refund that
// negates every entry of the original. A transaction can be reversed once.
func (s *Service) Reverse(ctx context.Context, actorID string, id uuid.UUID, reason string) (TransferResult, error) {
	if err := s.requireAdmin(ctx, actorID, ResourceLedger); err != nil {
		return TransferResult{}, err
	}

	orig, err := s.ledger.Get(ctx, id)
	if err != nil {
		return TransferResult{}, fmt.Errorf("get transaction: %w", err)
	}

	if irreversible[orig.Type] {
		return TransferResult{}, apperr.Invalid("transaction", "%s transactions cannot be reversed", orig.Type)
	}

	if orig.Status != ledgerrepo.StatusCompleted {
		return TransferResult{}, apperr.Invalid("transaction", "only completed transactions can be reversed, got %s", orig.Status)
	}

	entries, err := s.ledger.Entries(ctx, orig.ID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("get entries: %w", err)
	}

	legs := make([]Leg, len(entries))
	for i, e := range entries {
		kind := ledgerrepo.EntryCredit
		if e.Delta > 0 {
			kind = ledgerrepo.EntryDebit
		}
		legs[i] = Leg{Key: e.Key, Delta: -e.Delta, Kind: kind}
	}

	return s.submit(ctx, Posting{
		Header: ledgerrepo.Transaction{
			Type:       ledgerrepo.TypeRefund,
			Status:     ledgerrepo.StatusCompleted,
			Source:     orig.Dest,
			Dest:       orig.Source,
			Gross:      orig.Gross,
			Fee:        orig.Fee,
			Net:        orig.Net,
			ReversalOf: uuid.NullUUID{UUID: orig.ID, Valid: true},
			Note:       reason,
			CreatedBy:  actorID,
		},
		Legs:  legs,
		Event: outbox.EventTransferReversed,
	}, nil)
}

// Reconcile compares a balance with the sum of its entries.
func (s *Service) Reconcile(ctx context.Context, actorID string, key balances.Key) (Reconciliation, error) {
	if err := s.requireAdmin(ctx, actorID, ResourceLedger); err != nil {
		return Reconciliation{}, err
	}

	b, err := s.balances.Get(ctx, key)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("get balance: %w", err)
	}

	sum, err := s.ledger.SumEntries(ctx, key)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("sum entries: %w", err)
	}

	return Reconciliation{
		Key:        key,
		TotalUnits: b.TotalUnits,
		EntrySum:   sum,
		Balanced:   sum == b.TotalUnits,
		CheckedAt:  time.Now().UTC(),
	}, nil
}
