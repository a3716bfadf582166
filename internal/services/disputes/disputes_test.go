package disputes

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgtestutil"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	"github.com/fastprodman/creatorledger/internal/services/fees"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
	"github.com/fastprodman/creatorledger/internal/services/reservations"
	sessionsvc "github.com/fastprodman/creatorledger/internal/services/sessions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const admin = "admin-1"

var unitsKey = balances.Key{HolderID: "buyer", CounterpartyID: "seller"}

type fixture struct {
	db       *sql.DB
	ledger   *ledger.Service
	sessions *sessionsvc.Service
	disputes *Service
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	_, err := db.Exec(`INSERT INTO admin_roles (user_id, resource) VALUES ($1, 'disputes'), ($1, 'sessions'), ($1, 'ledger')`, admin)
	require.NoError(t, err)

	retry := pgutils.RetryPolicy{MaxAttempts: 5, Backoff: 5 * time.Millisecond}
	led := ledger.New(db, &fees.Schedule{}, ledger.Config{Retry: retry})
	res := reservations.New(db, led)

	_, err = led.Deposit(t.Context(), "buyer", 1_000, "seed")
	require.NoError(t, err)

	_, err = led.Purchase(t.Context(), ledger.PurchaseRequest{BuyerID: "buyer", SellerID: "seller", Units: 10, UnitPrice: 10})
	require.NoError(t, err)

	return fixture{
		db:       db,
		ledger:   led,
		sessions: sessionsvc.New(db, res, retry),
		disputes: New(db, res, retry),
	}
}

func (f fixture) units(t *testing.T) balances.Balance {
	t.Helper()

	b, err := f.ledger.GetBalance(t.Context(), unitsKey)
	require.NoError(t, err)

	return b
}

func TestDisputes_ApproveReleasesHold(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := t.Context()

	sess, err := f.sessions.Book(ctx, "buyer", "seller", 4)
	require.NoError(t, err)

	_, err = f.disputes.Open(ctx, "seller", sess.ID, "not me")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	d, err := f.disputes.Open(ctx, "buyer", sess.ID, "no show")
	require.NoError(t, err)
	require.Equal(t, disputes.StatusPending, d.Status)
	require.Equal(t, int64(4), d.AmountRequested)

	_, err = f.disputes.Open(ctx, "buyer", sess.ID, "again")
	require.ErrorIs(t, err, apperr.ErrConflict, "session is already disputed")

	_, err = f.disputes.Resolve(ctx, "buyer", d.ID, DecisionApprove, "")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.disputes.Resolve(ctx, admin, d.ID, Decision("maybe"), "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	resolved, err := f.disputes.Resolve(ctx, admin, d.ID, DecisionApprove, "refund")
	require.NoError(t, err)
	require.Equal(t, disputes.StatusApproved, resolved.Status)
	require.Equal(t, int64(4), resolved.AmountApproved)
	require.Equal(t, admin, resolved.ReviewedBy)

	b := f.units(t)
	require.Equal(t, int64(10), b.TotalUnits)
	require.Equal(t, int64(0), b.ReservedUnits)

	got, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusCancelled, got.Status)

	_, err = f.disputes.Resolve(ctx, admin, d.ID, DecisionDeny, "changed my mind")
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, int64(10), f.units(t).TotalUnits, "second resolution changes nothing")

	audits, err := f.disputes.Audits(ctx, admin, d.ID)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	require.Equal(t, "opened", audits[0].Action)
	require.Equal(t, "approved", audits[1].Action)

	var events int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM outbox_events WHERE event_type = 'dispute.resolved'`).Scan(&events))
	require.Equal(t, 1, events)
}

func TestDisputes_DenyReturnsToPayoutPipeline(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := t.Context()

	sess, err := f.sessions.Book(ctx, "buyer", "seller", 4)
	require.NoError(t, err)

	_, err = f.sessions.Complete(ctx, "seller", sess.ID)
	require.NoError(t, err)

	d, err := f.disputes.Open(ctx, "buyer", sess.ID, "bad quality")
	require.NoError(t, err)

	_, err = f.sessions.Settle(ctx, admin, sess.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "disputed sessions do not settle")

	denied, err := f.disputes.Resolve(ctx, admin, d.ID, DecisionDeny, "delivered")
	require.NoError(t, err)
	require.Equal(t, disputes.StatusDenied, denied.Status)
	require.Equal(t, int64(0), denied.AmountApproved)
	require.Equal(t, int64(4), f.units(t).ReservedUnits)

	_, err = f.sessions.Settle(ctx, admin, sess.ID)
	require.NoError(t, err)

	b := f.units(t)
	require.Equal(t, int64(6), b.TotalUnits)
	require.Equal(t, int64(0), b.ReservedUnits)

	_, err = f.disputes.Open(ctx, "buyer", sess.ID, "too late")
	require.ErrorIs(t, err, apperr.ErrConflict, "settled sessions cannot be disputed")

	pending, err := f.disputes.List(ctx, admin, disputes.StatusPending, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDisputes_ConcurrentResolutionsOneWins(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := t.Context()

	sess, err := f.sessions.Book(ctx, "buyer", "seller", 4)
	require.NoError(t, err)

	d, err := f.disputes.Open(ctx, "buyer", sess.ID, "no show")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	won, conflicted := 0, 0

	for _, decision := range []Decision{DecisionApprove, DecisionDeny, DecisionApprove} {
		wg.Add(1)
		go func(decision Decision) {
			defer wg.Done()

			_, err := f.disputes.Resolve(ctx, admin, d.ID, decision, "")

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				won++
			case apperr.IsExpected(err):
				conflicted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(decision)
	}
	wg.Wait()

	require.Equal(t, 1, won)
	require.Equal(t, 2, conflicted)

	b := f.units(t)
	require.LessOrEqual(t, b.ReservedUnits, b.TotalUnits)
	require.Contains(t, []int64{0, 4}, b.ReservedUnits)

	_, err = f.disputes.Resolve(ctx, admin, uuid.New(), DecisionApprove, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
