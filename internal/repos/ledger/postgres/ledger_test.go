package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/creatorledger/internal/infra/pgtestutil"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/google/uuid"
)

func insertCommitted(t *testing.T, db *sql.DB, repo *ledgerRepo, in ledger.Transaction) (ledger.Transaction, error) {
	t.Helper()

	ctx := t.Context()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	out, err := repo.Insert(ctx, tx, in)
	if err != nil {
		return ledger.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	return out, nil
}

func p2p(key string, gross int64) ledger.Transaction {
	return ledger.Transaction{
		Type:           ledger.TypeP2P,
		Status:         ledger.StatusCompleted,
		Source:         balances.Wallet("alice"),
		Dest:           balances.Wallet("bob"),
		Gross:          gross,
		Net:            gross,
		IdempotencyKey: key,
		CreatedBy:      "alice",
	}
}

func TestLedger_Insert_Table(t *testing.T) {
	t.Parallel()

	type tc struct {
		name    string
		first   ledger.Transaction
		second  func(first ledger.Transaction) ledger.Transaction
		wantErr error
	}

	tests := []tc{
		{
			name:    "duplicate_idempotency_key",
			first:   p2p("k-1", 100),
			second:  func(ledger.Transaction) ledger.Transaction { return p2p("k-1", 200) },
			wantErr: ledger.ErrDuplicateIdempotencyKey,
		},
		{
			name:   "empty_keys_do_not_collide",
			first:  p2p("", 100),
			second: func(ledger.Transaction) ledger.Transaction { return p2p("", 100) },
		},
		{
			name:  "refund_referencing_original",
			first: p2p("k-2", 100),
			second: func(first ledger.Transaction) ledger.Transaction {
				r := p2p("", 100)
				r.Type = ledger.TypeRefund
				r.ReversalOf = uuid.NullUUID{UUID: first.ID, Valid: true}
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			repo := New(db)

			first, err := insertCommitted(t, db, repo, tt.first)
			if err != nil {
				t.Fatalf("first insert: %v", err)
			}
			if first.ID == uuid.Nil || first.CreatedAt.IsZero() {
				t.Fatalf("insert should fill id and created_at, got %+v", first)
			}

			_, err = insertCommitted(t, db, repo, tt.second(first))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("second insert: %v", err)
			}
		})
	}
}

func TestLedger_ReversalOfIsUnique(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	orig, err := insertCommitted(t, db, repo, p2p("orig", 500))
	if err != nil {
		t.Fatalf("insert original: %v", err)
	}

	reversal := func() ledger.Transaction {
		r := p2p("", 500)
		r.Type = ledger.TypeRefund
		r.Source, r.Dest = r.Dest, r.Source
		r.ReversalOf = uuid.NullUUID{UUID: orig.ID, Valid: true}
		return r
	}

	if _, err := insertCommitted(t, db, repo, reversal()); err != nil {
		t.Fatalf("first reversal: %v", err)
	}

	_, err = insertCommitted(t, db, repo, reversal())
	if !errors.Is(err, ledger.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
}

func TestLedger_ListByHolder_Chronological(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		tr, err := insertCommitted(t, db, repo, p2p("", int64(100+i)))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, tr.ID)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	got, err := repo.ListByHolder(ctx, "bob", 3, time.Time{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 rows, got %d", len(got))
	}
	for i, want := range []uuid.UUID{ids[4], ids[3], ids[2]} {
		if got[i].ID != want {
			t.Fatalf("row %d: want %s, got %s", i, want, got[i].ID)
		}
	}

	older, err := repo.ListByHolder(ctx, "alice", 10, got[2].CreatedAt)
	if err != nil {
		t.Fatalf("list before cursor: %v", err)
	}
	if len(older) != 2 || older[0].ID != ids[1] || older[1].ID != ids[0] {
		t.Fatalf("cursor page mismatch: %+v", older)
	}

	none, err := repo.ListByHolder(ctx, "carol", 10, time.Time{})
	if err != nil {
		t.Fatalf("list unrelated holder: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("want no rows for unrelated holder, got %d", len(none))
	}
}

func TestLedger_ListByHolder_FeeSink(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := t.Context()

	if _, err := db.ExecContext(ctx, `INSERT INTO balances (holder_id) VALUES ('platform'), ('bob')`); err != nil {
		t.Fatalf("seed balances: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	in := p2p("", 1_000)
	in.Fee, in.Net = 50, 950

	stored, err := repo.Insert(ctx, tx, in)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = repo.InsertEntries(ctx, tx, []ledger.Entry{
		{TransactionID: stored.ID, Key: balances.Wallet("bob"), Delta: 950, Kind: ledger.EntryCredit},
		{TransactionID: stored.ID, Key: balances.Wallet("platform"), Delta: 50, Kind: ledger.EntryFee},
	})
	if err != nil {
		t.Fatalf("insert entries: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.ListByHolder(ctx, "platform", 10, time.Time{})
	if err != nil {
		t.Fatalf("list fee sink: %v", err)
	}
	if len(got) != 1 || got[0].ID != stored.ID {
		t.Fatalf("fee sink should see the transaction it was credited by, got %+v", got)
	}
}

func TestLedger_SetStatus_Conditional(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	pending := p2p("checkout:abc", 1_000)
	pending.Type = ledger.TypeDeposit
	pending.Status = ledger.StatusPending
	pending.Source = balances.Key{}

	stored, err := insertCommitted(t, db, repo, pending)
	if err != nil {
		t.Fatalf("insert pending: %v", err)
	}

	ctx := t.Context()

	for i, want := range []error{nil, ledger.ErrStatusTransition} {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin tx: %v", err)
		}

		_, err = repo.SetStatus(ctx, tx, stored.ID, ledger.StatusPending, ledger.StatusCompleted)
		if !errors.Is(err, want) {
			_ = tx.Rollback()
			t.Fatalf("attempt %d: expected %v, got %v", i, want, err)
		}

		if err == nil {
			if err := tx.Commit(); err != nil {
				t.Fatalf("commit: %v", err)
			}
		} else {
			_ = tx.Rollback()
		}
	}

	got, err := repo.GetByIdempotencyKey(ctx, "checkout:abc")
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if got.Status != ledger.StatusCompleted {
		t.Fatalf("want completed, got %s", got.Status)
	}

	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}
