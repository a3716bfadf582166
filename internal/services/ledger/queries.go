package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// GetBalance reads without locking.
func (s *Service) GetBalance(ctx context.Context, key balances.Key) (balances.Balance, error) {
	b, err := s.balances.Get(ctx, key)
	if err != nil {
		return balances.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	return b, nil
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (ledgerrepo.Transaction, error) {
	t, err := s.ledger.Get(ctx, id)
	if err != nil {
		return ledgerrepo.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}

// ListTransactions pages through a holder's transactions, newest first.
// Pass the CreatedAt of the last row as before to get the next page.
func (s *Service) ListTransactions(ctx context.Context, holderID string, limit int, before time.Time) ([]ledgerrepo.Transaction, error) {
	switch {
	case limit < 0 || limit > MaxListLimit:
		return nil, apperr.Invalid("limit", "must be within [1, %d]", MaxListLimit)
	case limit == 0:
		limit = DefaultListLimit
	}

	out, err := s.ledger.ListByHolder(ctx, holderID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return out, nil
}
