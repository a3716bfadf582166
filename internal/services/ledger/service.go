// Package ledger moves value between balances. Every movement is one
// Postgres transaction that locks the affected balance rows in key order,
// applies conditional updates, and appends the transaction, its entries and
// an outbox event.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	pgbalances "github.com/fastprodman/creatorledger/internal/repos/balances/postgres"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	pgledger "github.com/fastprodman/creatorledger/internal/repos/ledger/postgres"
	"github.com/fastprodman/creatorledger/internal/repos/outbox"
	pgoutbox "github.com/fastprodman/creatorledger/internal/repos/outbox/postgres"
	"github.com/fastprodman/creatorledger/internal/repos/roles"
	pgroles "github.com/fastprodman/creatorledger/internal/repos/roles/postgres"
	"github.com/fastprodman/creatorledger/internal/services/fees"
)

type Config struct {
	Retry        pgutils.RetryPolicy
	MinP2PAmount int64
}

type Service struct {
	db       *sql.DB
	balances balances.Balances
	ledger   ledgerrepo.Ledger
	outbox   outbox.Outbox
	roles    roles.Roles
	fees     *fees.Schedule
	cfg      Config
}

func New(db *sql.DB, schedule *fees.Schedule, cfg Config) *Service {
	return &Service{
		db:       db,
		balances: pgbalances.New(db),
		ledger:   pgledger.New(db),
		outbox:   pgoutbox.New(db),
		roles:    pgroles.New(db),
		fees:     schedule,
		cfg:      cfg,
	}
}

// Retry exposes the retry policy so callers composing Post in their own
// transactions retry the same way.
func (s *Service) Retry() pgutils.RetryPolicy { return s.cfg.Retry }

func (s *Service) requireAdmin(ctx context.Context, actorID, resource string) error {
	ok, err := s.roles.IsAdmin(ctx, actorID, resource)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}

	if !ok {
		return fmt.Errorf("%s is not an admin of %s: %w", actorID, resource, apperr.ErrForbidden)
	}

	return nil
}
