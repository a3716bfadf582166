// Package reservations carves units out of a balance for a pending
// obligation. A reservation starts held and ends exactly once: released back
// to the holder, or consumed (or forfeited) out of the balance.
//
// Every method except Get runs inside the caller's transaction.
package reservations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	pgbalances "github.com/fastprodman/creatorledger/internal/repos/balances/postgres"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/reservations"
	pgreservations "github.com/fastprodman/creatorledger/internal/repos/reservations/postgres"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
	"github.com/google/uuid"
)

// Poster records ledger postings inside an existing transaction.
type Poster interface {
	Post(ctx context.Context, tx *sql.Tx, p ledger.Posting) (ledger.Posted, error)
}

// Settlement describes the ledger transaction written when a reservation is
// consumed.
type Settlement struct {
	Type    ledgerrepo.TxType
	ActorID string
	Note    string
	Event   string
}

type Service struct {
	balances     balances.Balances
	reservations reservations.Reservations
	poster       Poster
}

func New(db *sql.DB, poster Poster) *Service {
	return &Service{
		balances:     pgbalances.New(db),
		reservations: pgreservations.New(db),
		poster:       poster,
	}
}

// Hold reserves units of key for ref. It fails with an insufficient balance
// error when fewer than units are available.
func (s *Service) Hold(ctx context.Context, tx *sql.Tx, key balances.Key, units int64, kind reservations.Kind, ref string) (reservations.Reservation, error) {
	if units <= 0 {
		return reservations.Reservation{}, apperr.Invalid("units", "must be positive, got %d", units)
	}

	if _, err := s.balances.Reserve(ctx, tx, key, units); err != nil {
		return reservations.Reservation{}, fmt.Errorf("reserve %d on %s: %w", units, key, err)
	}

	r, err := s.reservations.Insert(ctx, tx, reservations.Reservation{
		Key:         key,
		Units:       units,
		Kind:        kind,
		ReferenceID: ref,
	})
	if err != nil {
		return reservations.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}

	return r, nil
}

// Release returns held units to the available balance.
func (s *Service) Release(ctx context.Context, tx *sql.Tx, id uuid.UUID) (reservations.Reservation, error) {
	r, err := s.reservations.Resolve(ctx, tx, id, reservations.StatusReleased)
	if err != nil {
		return reservations.Reservation{}, fmt.Errorf("release reservation: %w", err)
	}

	if _, err := s.balances.Unreserve(ctx, tx, r.Key, r.Units); err != nil {
		return reservations.Reservation{}, fmt.Errorf("unreserve %s: %w", r.Key, err)
	}

	return r, nil
}

// Consume spends held units and records the spend as a ledger transaction.
func (s *Service) Consume(ctx context.Context, tx *sql.Tx, id uuid.UUID, st Settlement) (reservations.Reservation, ledgerrepo.Transaction, error) {
	return s.spend(ctx, tx, id, reservations.StatusConsumed, st)
}

// Forfeit spends held units like Consume but records them as forfeited.
func (s *Service) Forfeit(ctx context.Context, tx *sql.Tx, id uuid.UUID, actorID string) (reservations.Reservation, ledgerrepo.Transaction, error) {
	return s.spend(ctx, tx, id, reservations.StatusForfeited, Settlement{
		Type:    ledgerrepo.TypeConsumption,
		ActorID: actorID,
		Note:    "forfeited",
	})
}

func (s *Service) spend(ctx context.Context, tx *sql.Tx, id uuid.UUID, to reservations.Status, st Settlement) (reservations.Reservation, ledgerrepo.Transaction, error) {
	r, err := s.reservations.Resolve(ctx, tx, id, to)
	if err != nil {
		return reservations.Reservation{}, ledgerrepo.Transaction{}, fmt.Errorf("%s reservation: %w", to, err)
	}

	posted, err := s.poster.Post(ctx, tx, ledger.Posting{
		Header: ledgerrepo.Transaction{
			Type:      st.Type,
			Status:    ledgerrepo.StatusCompleted,
			Source:    r.Key,
			Gross:     r.Units,
			Net:       r.Units,
			Note:      st.Note,
			CreatedBy: st.ActorID,
		},
		Legs: []ledger.Leg{{
			Key:          r.Key,
			Delta:        -r.Units,
			Kind:         ledgerrepo.EntryDebit,
			FromReserved: true,
		}},
		Event: st.Event,
	})
	if err != nil {
		return reservations.Reservation{}, ledgerrepo.Transaction{}, fmt.Errorf("post %s: %w", st.Type, err)
	}

	return r, posted.Transaction, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (reservations.Reservation, error) {
	r, err := s.reservations.Get(ctx, id)
	if err != nil {
		return reservations.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}

	return r, nil
}
