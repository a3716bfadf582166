package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/outbox"
)

func depositPosting(holderID string, amount int64, key, actorID string) (Posting, error) {
	if holderID == "" {
		return Posting{}, apperr.Invalid("holderId", "is required")
	}

	if amount <= 0 {
		return Posting{}, apperr.Invalid("amount", "must be positive, got %d", amount)
	}

	dest := balances.Wallet(holderID)

	return Posting{
		Header: ledgerrepo.Transaction{
			Type:           ledgerrepo.TypeDeposit,
			Status:         ledgerrepo.StatusCompleted,
			Dest:           dest,
			Gross:          amount,
			Net:            amount,
			IdempotencyKey: key,
			CreatedBy:      actorID,
		},
		Legs:  []Leg{{Key: dest, Delta: amount, Kind: ledgerrepo.EntryCredit}},
		Event: outbox.EventTransferCompleted,
	}, nil
}

// Deposit credits money arriving from the payment provider. providerTxID
// keys the deposit, so provider retries are harmless.
func (s *Service) Deposit(ctx context.Context, holderID string, amount int64, providerTxID string) (TransferResult, error) {
	if providerTxID == "" {
		return TransferResult{}, apperr.Invalid("providerTxId", "is required")
	}

	p, err := depositPosting(holderID, amount, ProviderKey(providerTxID), "")
	if err != nil {
		return TransferResult{}, err
	}

	return s.submit(ctx, p, nil)
}

// CreatePendingDeposit records a deposit awaiting provider confirmation.
// Balances do not change until CompleteDeposit.
func (s *Service) CreatePendingDeposit(ctx context.Context, actorID, holderID string, amount int64, checkoutID string) (ledgerrepo.Transaction, error) {
	p, err := depositPosting(holderID, amount, CheckoutKey(checkoutID), actorID)
	if err != nil {
		return ledgerrepo.Transaction{}, err
	}

	p.Header.Status = ledgerrepo.StatusPending

	var t ledgerrepo.Transaction

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err = s.ledger.Insert(ctx, tx, p.Header)
		return err
	})
	if err != nil {
		return ledgerrepo.Transaction{}, fmt.Errorf("create pending deposit: %w", err)
	}

	return t, nil
}

// CompleteDeposit credits a pending checkout deposit. Completing an already
// completed deposit is a replay and changes nothing.
func (s *Service) CompleteDeposit(ctx context.Context, checkoutID string) (TransferResult, error) {
	var res TransferResult

	err := pgutils.WithRetryTx(ctx, s.db, s.cfg.Retry, func(tx *sql.Tx) error {
		res = TransferResult{}

		t, err := s.ledger.LockByIdempotencyKey(ctx, tx, CheckoutKey(checkoutID))
		if err != nil {
			return err
		}

		switch t.Status {
		case ledgerrepo.StatusCompleted:
			res = TransferResult{Transaction: t, Replayed: true}
			return nil
		case ledgerrepo.StatusFailed:
			return ErrDepositFailed
		}

		t, err = s.ledger.SetStatus(ctx, tx, t.ID, ledgerrepo.StatusPending, ledgerrepo.StatusCompleted)
		if err != nil {
			return err
		}

		legs := []Leg{{Key: t.Dest, Delta: t.Net, Kind: ledgerrepo.EntryCredit}}

		locked, err := s.applyLegs(ctx, tx, legs)
		if err != nil {
			return err
		}

		if err := s.record(ctx, tx, t, legs, outbox.EventTransferCompleted); err != nil {
			return err
		}

		res = TransferResult{Transaction: t, DestBalance: locked[t.Dest]}

		return nil
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("complete deposit %s: %w", checkoutID, err)
	}

	if res.Replayed {
		if res.DestBalance, err = s.currentBalance(ctx, res.Transaction.Dest); err != nil {
			return TransferResult{}, err
		}
	}

	return res, nil
}

// FailDeposit marks a pending checkout deposit failed. It is a no-op for a
// deposit that already failed.
func (s *Service) FailDeposit(ctx context.Context, checkoutID string) (ledgerrepo.Transaction, error) {
	var t ledgerrepo.Transaction

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		t, err = s.ledger.LockByIdempotencyKey(ctx, tx, CheckoutKey(checkoutID))
		if err != nil {
			return err
		}

		switch t.Status {
		case ledgerrepo.StatusFailed:
			return nil
		case ledgerrepo.StatusCompleted:
			return ErrDepositCompleted
		}

		t, err = s.ledger.SetStatus(ctx, tx, t.ID, ledgerrepo.StatusPending, ledgerrepo.StatusFailed)

		return err
	})
	if err != nil {
		return ledgerrepo.Transaction{}, fmt.Errorf("fail deposit %s: %w", checkoutID, err)
	}

	return t, nil
}
