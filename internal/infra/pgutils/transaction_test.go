package pgutils

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/infra/pgtestutil"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, ConstraintName: "c_name"})
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		unique    bool
		check     bool
	}{
		{"serialization", wrap(pgerrcode.SerializationFailure), true, false, false},
		{"deadlock", wrap(pgerrcode.DeadlockDetected), true, false, false},
		{"unique", wrap(pgerrcode.UniqueViolation), false, true, false},
		{"check", wrap(pgerrcode.CheckViolation), false, false, true},
		{"plain", errors.New("boom"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Fatalf("IsRetryable: want %v, got %v", tt.retryable, got)
			}
			if got := IsUniqueViolation(tt.err); got != tt.unique {
				t.Fatalf("IsUniqueViolation: want %v, got %v", tt.unique, got)
			}
			if got := IsCheckViolation(tt.err); got != tt.check {
				t.Fatalf("IsCheckViolation: want %v, got %v", tt.check, got)
			}
		})
	}

	if ConstraintName(wrap(pgerrcode.UniqueViolation)) != "c_name" {
		t.Fatal("expected constraint name to be extracted")
	}
}

func TestWithRetryTx_RetriesSerializationFailures(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	attempts := 0
	err := WithRetryTx(t.Context(), db, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, func(tx *sql.Tx) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}

		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts: want 3, got %d", attempts)
	}
}

func TestWithRetryTx_ExhaustedIsUpstream(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	attempts := 0
	err := WithRetryTx(t.Context(), db, RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, func(tx *sql.Tx) error {
		attempts++
		return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	})
	if !errors.Is(err, apperr.ErrUpstream) || !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("want upstream + exhausted, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts: want 2, got %d", attempts)
	}
}

func TestWithRetryTx_DoesNotRetryBusinessErrors(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	attempts := 0
	err := WithRetryTx(t.Context(), db, RetryPolicy{MaxAttempts: 5}, func(tx *sql.Tx) error {
		attempts++
		return apperr.ErrInsufficientBalance
	})
	if !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("want insufficient balance, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts: want 1, got %d", attempts)
	}
}
