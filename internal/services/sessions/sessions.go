package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/reservations"
	"github.com/fastprodman/creatorledger/internal/repos/roles"
	pgroles "github.com/fastprodman/creatorledger/internal/repos/roles/postgres"
	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	pgsessions "github.com/fastprodman/creatorledger/internal/repos/sessions/postgres"
	resvc "github.com/fastprodman/creatorledger/internal/services/reservations"
	"github.com/google/uuid"
)

// ResourceSessions is the admin resource for completing and settling
// sessions on behalf of sellers.
const ResourceSessions = "sessions"

type Reserver interface {
	Hold(ctx context.Context, tx *sql.Tx, key balances.Key, units int64, kind reservations.Kind, ref string) (reservations.Reservation, error)
	Release(ctx context.Context, tx *sql.Tx, id uuid.UUID) (reservations.Reservation, error)
	Consume(ctx context.Context, tx *sql.Tx, id uuid.UUID, st resvc.Settlement) (reservations.Reservation, ledgerrepo.Transaction, error)
	Forfeit(ctx context.Context, tx *sql.Tx, id uuid.UUID, actorID string) (reservations.Reservation, ledgerrepo.Transaction, error)
}

type Service struct {
	db       *sql.DB
	sessions sessions.Sessions
	reserver Reserver
	roles    roles.Roles
	retry    pgutils.RetryPolicy
}

func New(db *sql.DB, reserver Reserver, retry pgutils.RetryPolicy) *Service {
	return &Service{
		db:       db,
		sessions: pgsessions.New(db),
		reserver: reserver,
		roles:    pgroles.New(db),
		retry:    retry,
	}
}

// Book creates a session and holds the buyer's units with the seller.
func (s *Service) Book(ctx context.Context, buyerID, sellerID string, units int64) (sessions.Session, error) {
	if sellerID == "" {
		return sessions.Session{}, apperr.Invalid("sellerId", "is required")
	}

	if buyerID == sellerID {
		return sessions.Session{}, apperr.Invalid("sellerId", "cannot book your own session")
	}

	if units <= 0 {
		return sessions.Session{}, apperr.Invalid("units", "must be positive, got %d", units)
	}

	var out sessions.Session

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		id := uuid.New()
		key := balances.Key{HolderID: buyerID, CounterpartyID: sellerID}

		r, err := s.reserver.Hold(ctx, tx, key, units, reservations.KindSession, id.String())
		if err != nil {
			return err
		}

		out, err = s.sessions.Insert(ctx, tx, sessions.Session{
			ID:            id,
			BuyerID:       buyerID,
			SellerID:      sellerID,
			Units:         units,
			ReservationID: r.ID,
		})

		return err
	})
	if err != nil {
		return sessions.Session{}, fmt.Errorf("book session: %w", err)
	}

	return out, nil
}

// Cancel releases the held units. Either party may cancel a booked session.
func (s *Service) Cancel(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error) {
	var out sessions.Session

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		sess, err := s.sessions.LockAndGet(ctx, tx, id)
		if err != nil {
			return err
		}

		if actorID != sess.BuyerID && actorID != sess.SellerID {
			return fmt.Errorf("only session parties may cancel: %w", apperr.ErrForbidden)
		}

		out, err = s.sessions.Transition(ctx, tx, id, []sessions.Status{sessions.StatusBooked}, sessions.StatusCancelled)
		if err != nil {
			return err
		}

		_, err = s.reserver.Release(ctx, tx, sess.ReservationID)

		return err
	})
	if err != nil {
		return sessions.Session{}, fmt.Errorf("cancel session: %w", err)
	}

	return out, nil
}

// Complete marks a booked session delivered. Units stay held until Settle.
func (s *Service) Complete(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return sessions.Session{}, fmt.Errorf("get session: %w", err)
	}

	if actorID != sess.SellerID {
		if err := s.requireAdmin(ctx, actorID); err != nil {
			return sessions.Session{}, err
		}
	}

	var out sessions.Session

	err = pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		var err error
		out, err = s.sessions.Transition(ctx, tx, id, []sessions.Status{sessions.StatusBooked}, sessions.StatusCompleted)
		return err
	})
	if err != nil {
		return sessions.Session{}, fmt.Errorf("complete session: %w", err)
	}

	return out, nil
}

// NoShow closes a booked session the buyer did not attend. The held units
// are forfeited. Only the seller or a sessions admin may report it.
func (s *Service) NoShow(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error) {
	var out sessions.Session

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		sess, err := s.sessions.LockAndGet(ctx, tx, id)
		if err != nil {
			return err
		}

		if actorID != sess.SellerID {
			if err := s.requireAdmin(ctx, actorID); err != nil {
				return err
			}
		}

		out, err = s.sessions.Transition(ctx, tx, id, []sessions.Status{sessions.StatusBooked}, sessions.StatusNoShow)
		if err != nil {
			return err
		}

		_, _, err = s.reserver.Forfeit(ctx, tx, sess.ReservationID, actorID)

		return err
	})
	if err != nil {
		return sessions.Session{}, fmt.Errorf("no-show session: %w", err)
	}

	return out, nil
}

// Settle consumes the held units of a completed session.
func (s *Service) Settle(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return sessions.Session{}, err
	}

	var out sessions.Session

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		var err error
		out, err = s.settle(ctx, tx, actorID, id)
		return err
	})
	if err != nil {
		return sessions.Session{}, fmt.Errorf("settle session: %w", err)
	}

	return out, nil
}

func (s *Service) settle(ctx context.Context, tx *sql.Tx, actorID string, id uuid.UUID) (sessions.Session, error) {
	sess, err := s.sessions.Transition(ctx, tx, id, []sessions.Status{sessions.StatusCompleted}, sessions.StatusSettled)
	if err != nil {
		return sessions.Session{}, err
	}

	_, _, err = s.reserver.Consume(ctx, tx, sess.ReservationID, resvc.Settlement{
		Type:    ledgerrepo.TypeConsumption,
		ActorID: actorID,
		Note:    "session " + sess.ID.String(),
	})
	if err != nil {
		return sessions.Session{}, err
	}

	return sess, nil
}

// SettleCompleted settles up to limit completed sessions, oldest first.
// Each session settles in its own transaction; a session that changed state
// in the meantime is skipped.
func (s *Service) SettleCompleted(ctx context.Context, actorID string, limit int) ([]sessions.Session, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	pending, err := s.sessions.ListByStatus(ctx, sessions.StatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}

	settled := make([]sessions.Session, 0, len(pending))

	for _, p := range pending {
		var sess sessions.Session

		err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
			var err error
			sess, err = s.settle(ctx, tx, actorID, p.ID)
			return err
		})
		if err != nil {
			if apperr.IsExpected(err) {
				slog.WarnContext(ctx, "skip session settlement", "session_id", p.ID, "error", err)
				continue
			}

			return settled, fmt.Errorf("settle session %s: %w", p.ID, err)
		}

		settled = append(settled, sess)
	}

	return settled, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (sessions.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return sessions.Session{}, fmt.Errorf("get session: %w", err)
	}

	return sess, nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID string) error {
	ok, err := s.roles.IsAdmin(ctx, actorID, ResourceSessions)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}

	if !ok {
		return fmt.Errorf("%s may not manage sessions: %w", actorID, apperr.ErrForbidden)
	}

	return nil
}
