// Package disputes lets a buyer contest a session and an admin settle the
// contest. Approval refunds the held units to the buyer; denial hands the
// session back to the payout pipeline.
package disputes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	pgdisputes "github.com/fastprodman/creatorledger/internal/repos/disputes/postgres"
	"github.com/fastprodman/creatorledger/internal/repos/outbox"
	pgoutbox "github.com/fastprodman/creatorledger/internal/repos/outbox/postgres"
	"github.com/fastprodman/creatorledger/internal/repos/reservations"
	"github.com/fastprodman/creatorledger/internal/repos/roles"
	pgroles "github.com/fastprodman/creatorledger/internal/repos/roles/postgres"
	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	pgsessions "github.com/fastprodman/creatorledger/internal/repos/sessions/postgres"
	"github.com/google/uuid"
)

const ResourceDisputes = "disputes"

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

type Releaser interface {
	Release(ctx context.Context, tx *sql.Tx, id uuid.UUID) (reservations.Reservation, error)
}

// ResolvedEvent is the dispute.resolved outbox payload.
type ResolvedEvent struct {
	DisputeID      string    `json:"disputeId"`
	SessionID      string    `json:"sessionId"`
	Status         string    `json:"status"`
	AmountApproved int64     `json:"amountApproved"`
	ReviewedBy     string    `json:"reviewedBy"`
	ResolvedAt     time.Time `json:"resolvedAt"`
}

type Service struct {
	db       *sql.DB
	disputes disputes.Disputes
	sessions sessions.Sessions
	outbox   outbox.Outbox
	roles    roles.Roles
	releaser Releaser
	retry    pgutils.RetryPolicy
}

func New(db *sql.DB, releaser Releaser, retry pgutils.RetryPolicy) *Service {
	return &Service{
		db:       db,
		disputes: pgdisputes.New(db),
		sessions: pgsessions.New(db),
		outbox:   pgoutbox.New(db),
		roles:    pgroles.New(db),
		releaser: releaser,
		retry:    retry,
	}
}

// Open contests a booked or completed session. Only the buyer may open a
// dispute, and the session stays frozen until it is resolved.
func (s *Service) Open(ctx context.Context, actorID string, sessionID uuid.UUID, reason string) (disputes.Dispute, error) {
	var out disputes.Dispute

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		sess, err := s.sessions.LockAndGet(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		if actorID != sess.BuyerID {
			return fmt.Errorf("only the buyer may dispute a session: %w", apperr.ErrForbidden)
		}

		_, err = s.sessions.Transition(ctx, tx, sessionID,
			[]sessions.Status{sessions.StatusBooked, sessions.StatusCompleted}, sessions.StatusDisputed)
		if err != nil {
			return err
		}

		out, err = s.disputes.Insert(ctx, tx, disputes.Dispute{
			SessionID:       sessionID,
			OpenedBy:        actorID,
			Reason:          reason,
			AmountRequested: sess.Units,
		})
		if err != nil {
			return err
		}

		return s.disputes.InsertAudit(ctx, tx, disputes.Audit{
			DisputeID: out.ID,
			Action:    "opened",
			ActorID:   actorID,
			Notes:     reason,
		})
	})
	if err != nil {
		return disputes.Dispute{}, fmt.Errorf("open dispute: %w", err)
	}

	return out, nil
}

// Resolve decides a pending dispute. A dispute resolves once; later attempts
// fail with a conflict and change nothing.
func (s *Service) Resolve(ctx context.Context, actorID string, id uuid.UUID, decision Decision, notes string) (disputes.Dispute, error) {
	if decision != DecisionApprove && decision != DecisionDeny {
		return disputes.Dispute{}, apperr.Invalid("decision", "must be %q or %q", DecisionApprove, DecisionDeny)
	}

	if err := s.requireAdmin(ctx, actorID); err != nil {
		return disputes.Dispute{}, err
	}

	var out disputes.Dispute

	err := pgutils.WithRetryTx(ctx, s.db, s.retry, func(tx *sql.Tx) error {
		current, err := s.disputes.Get(ctx, id)
		if err != nil {
			return err
		}

		res := disputes.Resolution{Status: disputes.StatusDenied, ReviewedBy: actorID, Notes: notes}
		if decision == DecisionApprove {
			res.Status = disputes.StatusApproved
			res.AmountApproved = current.AmountRequested
		}

		out, err = s.disputes.Resolve(ctx, tx, id, res)
		if err != nil {
			return err
		}

		sess, err := s.sessions.LockAndGet(ctx, tx, out.SessionID)
		if err != nil {
			return err
		}

		if decision == DecisionApprove {
			if _, err := s.sessions.Transition(ctx, tx, sess.ID, []sessions.Status{sessions.StatusDisputed}, sessions.StatusCancelled); err != nil {
				return err
			}

			if _, err := s.releaser.Release(ctx, tx, sess.ReservationID); err != nil {
				return err
			}
		} else {
			if _, err := s.sessions.Transition(ctx, tx, sess.ID, []sessions.Status{sessions.StatusDisputed}, sessions.StatusCompleted); err != nil {
				return err
			}
		}

		err = s.disputes.InsertAudit(ctx, tx, disputes.Audit{
			DisputeID:      out.ID,
			Action:         string(out.Status),
			ActorID:        actorID,
			AmountApproved: out.AmountApproved,
			Notes:          notes,
		})
		if err != nil {
			return err
		}

		_, err = s.outbox.Enqueue(ctx, tx, outbox.EventDisputeResolved, sess.BuyerID, ResolvedEvent{
			DisputeID:      out.ID.String(),
			SessionID:      sess.ID.String(),
			Status:         string(out.Status),
			AmountApproved: out.AmountApproved,
			ReviewedBy:     actorID,
			ResolvedAt:     out.ReviewedAt.Time,
		})

		return err
	})
	if err != nil {
		return disputes.Dispute{}, fmt.Errorf("resolve dispute: %w", err)
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (disputes.Dispute, error) {
	d, err := s.disputes.Get(ctx, id)
	if err != nil {
		return disputes.Dispute{}, fmt.Errorf("get dispute: %w", err)
	}

	return d, nil
}

func (s *Service) List(ctx context.Context, actorID string, status disputes.Status, limit int) ([]disputes.Dispute, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	switch status {
	case disputes.StatusPending, disputes.StatusApproved, disputes.StatusDenied:
	default:
		return nil, apperr.Invalid("status", "unknown dispute status %q", status)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	out, err := s.disputes.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}

	return out, nil
}

func (s *Service) Audits(ctx context.Context, actorID string, id uuid.UUID) ([]disputes.Audit, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	out, err := s.disputes.Audits(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list dispute audits: %w", err)
	}

	return out, nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID string) error {
	ok, err := s.roles.IsAdmin(ctx, actorID, ResourceDisputes)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}

	if !ok {
		return fmt.Errorf("%s may not resolve disputes: %w", actorID, apperr.ErrForbidden)
	}

	return nil
}
