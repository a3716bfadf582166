package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgtestutil"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/reservations"
	"github.com/fastprodman/creatorledger/internal/services/fees"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
	"github.com/stretchr/testify/require"
)

var unitsKey = balances.Key{HolderID: "buyer", CounterpartyID: "seller"}

// setup gives buyer 10 units of seller, bought through the ledger so the
// entry log stays consistent.
func setup(t *testing.T) (*Service, *ledger.Service, *sql.DB) {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	_, err := db.Exec(`INSERT INTO admin_roles (user_id, resource) VALUES ('admin-1', '*')`)
	require.NoError(t, err)

	led := ledger.New(db, &fees.Schedule{}, ledger.Config{
		Retry: pgutils.RetryPolicy{MaxAttempts: 5, Backoff: 5 * time.Millisecond},
	})

	_, err = led.Deposit(t.Context(), "buyer", 1_000, "seed")
	require.NoError(t, err)

	_, err = led.Purchase(t.Context(), ledger.PurchaseRequest{BuyerID: "buyer", SellerID: "seller", Units: 10, UnitPrice: 10})
	require.NoError(t, err)

	return New(db, led), led, db
}

func inTx[T any](t *testing.T, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	t.Helper()

	var out T

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})

	return out, err
}

func balanceOf(t *testing.T, led *ledger.Service) balances.Balance {
	t.Helper()

	b, err := led.GetBalance(t.Context(), unitsKey)
	require.NoError(t, err)

	return b
}

func TestReservation_TenUnitsHoldFour(t *testing.T) {
	t.Parallel()

	svc, led, db := setup(t)
	ctx := t.Context()

	held, err := inTx(t, db, func(tx *sql.Tx) (reservations.Reservation, error) {
		return svc.Hold(ctx, tx, unitsKey, 4, reservations.KindSession, "s-1")
	})
	require.NoError(t, err)
	require.Equal(t, reservations.StatusHeld, held.Status)

	b := balanceOf(t, led)
	require.Equal(t, int64(10), b.TotalUnits)
	require.Equal(t, int64(4), b.ReservedUnits)
	require.Equal(t, int64(6), b.Available())

	_, err = inTx(t, db, func(tx *sql.Tx) (reservations.Reservation, error) {
		return svc.Hold(ctx, tx, unitsKey, 7, reservations.KindSession, "s-2")
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientBalance)

	_, err = inTx(t, db, func(tx *sql.Tx) (ledgerrepo.Transaction, error) {
		_, posted, err := svc.Consume(ctx, tx, held.ID, Settlement{Type: ledgerrepo.TypeConsumption, ActorID: "system"})
		return posted, err
	})
	require.NoError(t, err)

	b = balanceOf(t, led)
	require.Equal(t, int64(6), b.TotalUnits)
	require.Equal(t, int64(0), b.ReservedUnits)

	for name, op := range map[string]func(tx *sql.Tx) (reservations.Reservation, error){
		"release": func(tx *sql.Tx) (reservations.Reservation, error) { return svc.Release(ctx, tx, held.ID) },
		"consume": func(tx *sql.Tx) (reservations.Reservation, error) {
			r, _, err := svc.Consume(ctx, tx, held.ID, Settlement{Type: ledgerrepo.TypeConsumption})
			return r, err
		},
		"forfeit": func(tx *sql.Tx) (reservations.Reservation, error) {
			r, _, err := svc.Forfeit(ctx, tx, held.ID, "system")
			return r, err
		},
	} {
		_, err := inTx(t, db, op)
		require.ErrorIs(t, err, apperr.ErrConflict, name)
	}

	b = balanceOf(t, led)
	require.Equal(t, int64(6), b.TotalUnits, "terminal reservation transitions change nothing")

	got, err := svc.Get(ctx, held.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusConsumed, got.Status)

	rec, err := led.Reconcile(ctx, "admin-1", unitsKey)
	require.NoError(t, err)
	require.True(t, rec.Balanced)
}

func TestReservation_ReleaseRestoresAvailable(t *testing.T) {
	t.Parallel()

	svc, led, db := setup(t)
	ctx := t.Context()

	held, err := inTx(t, db, func(tx *sql.Tx) (reservations.Reservation, error) {
		return svc.Hold(ctx, tx, unitsKey, 10, reservations.KindSession, "s-1")
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), balanceOf(t, led).Available())

	released, err := inTx(t, db, func(tx *sql.Tx) (reservations.Reservation, error) {
		return svc.Release(ctx, tx, held.ID)
	})
	require.NoError(t, err)
	require.Equal(t, reservations.StatusReleased, released.Status)

	b := balanceOf(t, led)
	require.Equal(t, int64(10), b.TotalUnits)
	require.Equal(t, int64(10), b.Available())

	_, err = inTx(t, db, func(tx *sql.Tx) (reservations.Reservation, error) {
		return svc.Hold(ctx, tx, balances.Key{HolderID: "nobody", CounterpartyID: "seller"}, 1, reservations.KindSession, "s-x")
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientBalance, "no balance is the same as no units")
}

func TestReservation_ConcurrentHoldsNeverExceedTotal(t *testing.T) {
	t.Parallel()

	svc, led, db := setup(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			err := pgutils.WithTx(context.Background(), db, func(tx *sql.Tx) error {
				_, err := svc.Hold(context.Background(), tx, unitsKey, 3, reservations.KindSession, fmt.Sprintf("s-%d", i))
				return err
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, apperr.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 3, success)

	b := balanceOf(t, led)
	require.Equal(t, int64(9), b.ReservedUnits)
	require.LessOrEqual(t, b.ReservedUnits, b.TotalUnits)
}
