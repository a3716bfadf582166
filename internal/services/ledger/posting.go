package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
)

// Post records p inside tx. Callers own the transaction, so a posting can be
// composed with other writes (reservations, sessions, payouts) atomically.
func (s *Service) Post(ctx context.Context, tx *sql.Tx, p Posting) (Posted, error) {
	// The header goes first: a reused idempotency key or a second reversal
	// fails here, before any balance is touched.
	t, err := s.ledger.Insert(ctx, tx, p.Header)
	if err != nil {
		return Posted{}, fmt.Errorf("insert transaction: %w", err)
	}

	locked, err := s.applyLegs(ctx, tx, p.Legs)
	if err != nil {
		return Posted{}, err
	}

	if err := s.record(ctx, tx, t, p.Legs, p.Event); err != nil {
		return Posted{}, err
	}

	return Posted{Transaction: t, Balances: locked}, nil
}

// applyLegs locks every affected balance in key order and applies the legs.
// Balances that only receive are created on demand; a debited balance must
// already exist.
func (s *Service) applyLegs(ctx context.Context, tx *sql.Tx, legs []Leg) (map[balances.Key]balances.Balance, error) {
	if len(legs) == 0 {
		return nil, apperr.Invalid("legs", "posting has no legs")
	}

	debited := make(map[balances.Key]bool, len(legs))
	keys := make([]balances.Key, 0, len(legs))

	for _, l := range legs {
		if l.Key.HolderID == "" {
			return nil, apperr.Invalid("holder", "leg has no holder")
		}

		if l.Delta == 0 {
			return nil, apperr.Invalid("delta", "leg on %s is zero", l.Key)
		}

		if !slices.Contains(keys, l.Key) {
			keys = append(keys, l.Key)
		}

		if l.Delta < 0 {
			debited[l.Key] = true
		}
	}

	slices.SortFunc(keys, func(a, b balances.Key) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})

	locked := make(map[balances.Key]balances.Balance, len(keys))

	for _, k := range keys {
		if !debited[k] {
			if err := s.balances.Ensure(ctx, tx, k); err != nil {
				return nil, err
			}
		}

		b, err := s.balances.LockAndGet(ctx, tx, k)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}
		locked[k] = b
	}

	// Debits first so a short balance fails before anything is credited.
	ordered := slices.Clone(legs)
	slices.SortStableFunc(ordered, func(a, b Leg) int {
		return boolRank(a.Delta > 0) - boolRank(b.Delta > 0)
	})

	for _, l := range ordered {
		var (
			b   balances.Balance
			err error
		)

		switch {
		case l.Delta < 0 && l.FromReserved:
			b, err = s.balances.ConsumeReserved(ctx, tx, l.Key, -l.Delta)
		case l.Delta < 0:
			if locked[l.Key].Available() < -l.Delta {
				return nil, fmt.Errorf("debit %s by %d: %w", l.Key, -l.Delta, balances.ErrInsufficientFunds)
			}
			b, err = s.balances.Debit(ctx, tx, l.Key, -l.Delta)
		default:
			b, err = s.balances.Credit(ctx, tx, l.Key, l.Delta)
		}

		if err != nil {
			return nil, fmt.Errorf("apply %s %+d: %w", l.Key, l.Delta, err)
		}
		locked[l.Key] = b
	}

	return locked, nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}

	return 0
}

// record writes the entries and the outbox event for an applied posting.
func (s *Service) record(ctx context.Context, tx *sql.Tx, t ledgerrepo.Transaction, legs []Leg, event string) error {
	entries := make([]ledgerrepo.Entry, len(legs))
	for i, l := range legs {
		entries[i] = ledgerrepo.Entry{
			TransactionID: t.ID,
			Key:           l.Key,
			Delta:         l.Delta,
			Kind:          l.Kind,
		}
	}

	if err := s.ledger.InsertEntries(ctx, tx, entries); err != nil {
		return fmt.Errorf("insert entries: %w", err)
	}

	if event == "" {
		return nil
	}

	partition := t.Source.HolderID
	if partition == "" {
		partition = t.Dest.HolderID
	}

	if _, err := s.outbox.Enqueue(ctx, tx, event, partition, newTransferEvent(t)); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	return nil
}
