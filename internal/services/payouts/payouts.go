package payouts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/outbox"
	"github.com/fastprodman/creatorledger/internal/repos/payouts"
	pgpayouts "github.com/fastprodman/creatorledger/internal/repos/payouts/postgres"
	"github.com/fastprodman/creatorledger/internal/repos/reservations"
	"github.com/fastprodman/creatorledger/internal/repos/roles"
	pgroles "github.com/fastprodman/creatorledger/internal/repos/roles/postgres"
	resvc "github.com/fastprodman/creatorledger/internal/services/reservations"
	"github.com/google/uuid"
)

const ResourcePayouts = "payouts"

type Reserver interface {
	Hold(ctx context.Context, tx *sql.Tx, key balances.Key, units int64, kind reservations.Kind, ref string) (reservations.Reservation, error)
	Release(ctx context.Context, tx *sql.Tx, id uuid.UUID) (reservations.Reservation, error)
	Consume(ctx context.Context, tx *sql.Tx, id uuid.UUID, st resvc.Settlement) (reservations.Reservation, ledgerrepo.Transaction, error)
}

type Service struct {
	db       *sql.DB
	payouts  payouts.Payouts
	reserver Reserver
	roles    roles.Roles
	retry    pgutils.RetryPolicy
}

func New(db *sql.DB, reserver Reserver, retry pgutils.RetryPolicy) *Service {
	return &Service{
		db:       db,
		payouts:  pgpayouts.New(db),
		reserver: reserver,
		roles:    pgroles.New(db),
		retry:    retry,
	}
}

// Request holds amount on the user's wallet until an admin completes or
// rejects the payout.
func (s *Service) Request(ctx context.Context, userID string, amount int64, destination string) (payouts.Request, error) {
	if amount <= 0 {
		return payouts.Request{}, apperr.Invalid("amount", "must be positive, got %d", amount)
	}

	if destination == "" {
		return payouts.Request{}, apperr.Invalid("destination", "is required")
	}

	var out payouts.Request

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		id := uuid.New()

		r, err := s.reserver.Hold(ctx, tx, balances.Wallet(userID), amount, reservations.KindPayout, id.String())
		if err != nil {
			return err
		}

		out, err = s.payouts.Insert(ctx, tx, payouts.Request{
			ID:            id,
			UserID:        userID,
			Amount:        amount,
			Destination:   destination,
			ReservationID: r.ID,
		})

		return err
	})
	if err != nil {
		return payouts.Request{}, fmt.Errorf("request payout: %w", err)
	}

	return out, nil
}

// Complete pays out the held amount: the hold is consumed and a payout
// transaction leaves the platform.
func (s *Service) Complete(ctx context.Context, adminID string, id uuid.UUID) (payouts.Request, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return payouts.Request{}, err
	}

	var out payouts.Request

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		p, err := s.payouts.LockAndGet(ctx, tx, id)
		if err != nil {
			return err
		}

		if p.Status != payouts.StatusPending {
			return payouts.ErrPayoutNotPending
		}

		_, t, err := s.reserver.Consume(ctx, tx, p.ReservationID, resvc.Settlement{
			Type:    ledgerrepo.TypePayout,
			ActorID: adminID,
			Note:    "payout to " + p.Destination,
			Event:   outbox.EventPayoutCompleted,
		})
		if err != nil {
			return err
		}

		out, err = s.payouts.Resolve(ctx, tx, id, payouts.Review{
			Status:        payouts.StatusCompleted,
			ReviewedBy:    adminID,
			TransactionID: uuid.NullUUID{UUID: t.ID, Valid: true},
		})

		return err
	})
	if err != nil {
		return payouts.Request{}, fmt.Errorf("complete payout: %w", err)
	}

	return out, nil
}

// Reject returns the held amount to the user's available balance.
func (s *Service) Reject(ctx context.Context, adminID string, id uuid.UUID, reason string) (payouts.Request, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return payouts.Request{}, err
	}

	var out payouts.Request

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		var err error

		out, err = s.payouts.Resolve(ctx, tx, id, payouts.Review{
			Status:     payouts.StatusRejected,
			ReviewedBy: adminID,
			Reason:     reason,
		})
		if err != nil {
			return err
		}

		_, err = s.reserver.Release(ctx, tx, out.ReservationID)

		return err
	})
	if err != nil {
		return payouts.Request{}, fmt.Errorf("reject payout: %w", err)
	}

	return out, nil
}

// Get returns a payout request to its owner or a payouts admin.
func (s *Service) Get(ctx context.Context, actorID string, id uuid.UUID) (payouts.Request, error) {
	p, err := s.payouts.Get(ctx, id)
	if err != nil {
		return payouts.Request{}, fmt.Errorf("get payout: %w", err)
	}

	if p.UserID != actorID {
		if err := s.requireAdmin(ctx, actorID); err != nil {
			return payouts.Request{}, err
		}
	}

	return p, nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID string) error {
	ok, err := s.roles.IsAdmin(ctx, actorID, ResourcePayouts)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}

	if !ok {
		return fmt.Errorf("%s may not review payouts: %w", actorID, apperr.ErrForbidden)
	}

	return nil
}
