package sessions

import (
	"errors"
	"testing"

	"github.com/fastprodman/creatorledger/internal/infra/pgtestutil"
	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	"github.com/google/uuid"
)

func TestSessions_Transition_Table(t *testing.T) {
	t.Parallel()

	type tc struct {
		name    string
		from    []sessions.Status
		to      sessions.Status
		want    sessions.Status
		wantErr error
	}

	tests := []tc{
		{name: "booked_to_completed", from: []sessions.Status{sessions.StatusBooked}, to: sessions.StatusCompleted, want: sessions.StatusCompleted},
		{name: "any_of_set", from: []sessions.Status{sessions.StatusCompleted, sessions.StatusBooked}, to: sessions.StatusDisputed, want: sessions.StatusDisputed},
		{name: "wrong_state", from: []sessions.Status{sessions.StatusCompleted}, to: sessions.StatusSettled, want: sessions.StatusBooked, wantErr: sessions.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			resID := uuid.New()
			_, err := db.Exec(`INSERT INTO balances (holder_id, counterparty_id, total_units, reserved_units) VALUES ('buyer', 'seller', 10, 4)`)
			if err != nil {
				t.Fatalf("seed balance: %v", err)
			}
			_, err = db.Exec(`
				INSERT INTO reservations (id, holder_id, counterparty_id, units, kind, reference_id)
				VALUES ($1, 'buyer', 'seller', 4, 'session', 's-1')
			`, resID)
			if err != nil {
				t.Fatalf("seed reservation: %v", err)
			}

			repo := New(db)
			ctx := t.Context()

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin tx: %v", err)
			}
			defer func() { _ = tx.Rollback() }()

			s, err := repo.Insert(ctx, tx, sessions.Session{BuyerID: "buyer", SellerID: "seller", Units: 4, ReservationID: resID})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}

			_, err = repo.Transition(ctx, tx, s.ID, tt.from, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if tt.wantErr != nil {
				got, err := repo.LockAndGet(ctx, tx, s.ID)
				if err != nil {
					t.Fatalf("lock/get: %v", err)
				}
				if got.Status != tt.want {
					t.Fatalf("status should be unchanged: want %s, got %s", tt.want, got.Status)
				}
				return
			}

			if err := tx.Commit(); err != nil {
				t.Fatalf("commit: %v", err)
			}

			got, err := repo.Get(ctx, s.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Status != tt.want {
				t.Fatalf("status: want %s, got %s", tt.want, got.Status)
			}
		})
	}
}
