package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/outbox"
)

var transferTypes = map[ledgerrepo.TxType]bool{
	ledgerrepo.TypeP2P:              true,
	ledgerrepo.TypePurchase:         true,
	ledgerrepo.TypeBrandTransfer:    true,
	ledgerrepo.TypeBudgetAllocation: true,
	ledgerrepo.TypeEarning:          true,
}

// Transfer moves Gross from Source: each fee leg goes to its sink and the
// remainder to Dest.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	return s.transfer(ctx, req, nil)
}

// transfer submits req. request, if not nil, replaces req as the fingerprint
// of an idempotent retry, for callers whose legs are derived from it.
func (s *Service) transfer(ctx context.Context, req TransferRequest, request any) (TransferResult, error) {
	p, err := s.transferPosting(req)
	if err != nil {
		return TransferResult{}, err
	}

	if request != nil {
		p.Request = request
	}

	return s.submit(ctx, p, nil)
}

func (s *Service) transferPosting(req TransferRequest) (Posting, error) {
	if !transferTypes[req.Type] {
		return Posting{}, apperr.Invalid("type", "%q is not a transfer type", req.Type)
	}

	if req.Gross <= 0 {
		return Posting{}, apperr.Invalid("amount", "must be positive, got %d", req.Gross)
	}

	if req.Source.HolderID == "" || req.Dest.HolderID == "" {
		return Posting{}, apperr.Invalid("holder", "source and destination are required")
	}

	if req.Source == req.Dest {
		return Posting{}, apperr.Invalid("destination", "must differ from source")
	}

	legs := []Leg{{Key: req.Source, Delta: -req.Gross, Kind: ledgerrepo.EntryDebit}}

	var feeTotal int64
	for _, f := range req.Fees {
		if f.Amount < 0 {
			return Posting{}, apperr.Invalid("fee", "must not be negative, got %d", f.Amount)
		}

		if f.Amount == 0 {
			continue
		}

		if f.Sink.HolderID == "" {
			return Posting{}, apperr.Invalid("fee", "sink is required")
		}

		feeTotal += f.Amount
		if feeTotal > req.Gross {
			return Posting{}, apperr.Invalid("fee", "fees %d exceed amount %d", feeTotal, req.Gross)
		}

		legs = append(legs, Leg{Key: f.Sink, Delta: f.Amount, Kind: ledgerrepo.EntryFee})
	}

	net := req.Gross - feeTotal
	if net > 0 {
		legs = append(legs, Leg{Key: req.Dest, Delta: net, Kind: ledgerrepo.EntryCredit})
	}

	return Posting{
		Header: ledgerrepo.Transaction{
			Type:           req.Type,
			Status:         ledgerrepo.StatusCompleted,
			Source:         req.Source,
			Dest:           req.Dest,
			Gross:          req.Gross,
			Fee:            feeTotal,
			Net:            net,
			IdempotencyKey: req.IdempotencyKey,
			Note:           req.Note,
			CreatedBy:      req.ActorID,
		},
		Legs:    legs,
		Event:   outbox.EventTransferCompleted,
		Request: req,
	}, nil
}

// submit runs p in its own retried transaction, honoring the idempotency key.
// after runs in the same transaction once the posting is applied.
func (s *Service) submit(ctx context.Context, p Posting, after func(ctx context.Context, tx *sql.Tx, posted Posted) error) (TransferResult, error) {
	if p.Header.IdempotencyKey != "" {
		p.Header.RequestHash = requestHash(p)

		res, found, err := s.replay(ctx, p.Header)
		if found || err != nil {
			return res, err
		}
	}

	var posted Posted

	err := pgutils.WithRetryTx(ctx, s.db, s.cfg.Retry, func(tx *sql.Tx) error {
		var err error

		posted, err = s.Post(ctx, tx, p)
		if err != nil {
			return err
		}

		if after != nil {
			return after(ctx, tx, posted)
		}

		return nil
	})
	if errors.Is(err, ledgerrepo.ErrDuplicateIdempotencyKey) {
		// Lost a race against a concurrent request with the same key.
		res, found, rerr := s.replay(ctx, p.Header)
		if found || rerr != nil {
			return res, rerr
		}
	}

	if err != nil {
		return TransferResult{}, fmt.Errorf("%s transfer: %w", p.Header.Type, err)
	}

	return TransferResult{
		Transaction:   posted.Transaction,
		SourceBalance: posted.Balances[p.Header.Source],
		DestBalance:   posted.Balances[p.Header.Dest],
	}, nil
}

// replay returns the stored result for want's idempotency key, if any.
func (s *Service) replay(ctx context.Context, want ledgerrepo.Transaction) (TransferResult, bool, error) {
	got, err := s.ledger.GetByIdempotencyKey(ctx, want.IdempotencyKey)
	if err != nil {
		if errors.Is(err, ledgerrepo.ErrTransactionNotFound) {
			return TransferResult{}, false, nil
		}

		return TransferResult{}, false, fmt.Errorf("look up idempotency key: %w", err)
	}

	if got.Type != want.Type || got.RequestHash != want.RequestHash {
		return TransferResult{}, true, ErrIdempotencyMismatch
	}

	res := TransferResult{Transaction: got, Replayed: true}

	if res.SourceBalance, err = s.currentBalance(ctx, got.Source); err != nil {
		return TransferResult{}, true, err
	}

	if res.DestBalance, err = s.currentBalance(ctx, got.Dest); err != nil {
		return TransferResult{}, true, err
	}

	return res, true, nil
}

func (s *Service) currentBalance(ctx context.Context, key balances.Key) (balances.Balance, error) {
	if key.HolderID == "" {
		return balances.Balance{}, nil
	}

	b, err := s.balances.Get(ctx, key)
	if err != nil && !errors.Is(err, balances.ErrBalanceNotFound) {
		return balances.Balance{}, fmt.Errorf("get balance %s: %w", key, err)
	}

	return b, nil
}
