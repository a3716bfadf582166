package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/clients/checkout"
	"github.com/fastprodman/creatorledger/internal/identity"
	"github.com/fastprodman/creatorledger/internal/infra/logging"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/payouts"
	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	disputesvc "github.com/fastprodman/creatorledger/internal/services/disputes"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// IdempotencyHeader carries the client's request idempotency key on
// mutating endpoints.
const IdempotencyHeader = "Idempotency-Key"

type Ledger interface {
	GetBalance(ctx context.Context, key balances.Key) (balances.Balance, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (ledgerrepo.Transaction, error)
	ListTransactions(ctx context.Context, holderID string, limit int, before time.Time) ([]ledgerrepo.Transaction, error)
	Reconcile(ctx context.Context, actorID string, key balances.Key) (ledger.Reconciliation, error)
	P2PTransfer(ctx context.Context, req ledger.P2PRequest) (ledger.TransferResult, error)
	PersonalToBrand(ctx context.Context, userID, brandID string, amount int64, idemKey string) (ledger.TransferResult, error)
	BrandToPersonal(ctx context.Context, actorID, brandID, userID string, amount int64, idemKey string) (ledger.TransferResult, error)
	AllocateBudget(ctx context.Context, actorID, brandID, campaignID string, amount int64, idemKey string) (ledger.TransferResult, error)
	PayEarning(ctx context.Context, req ledger.EarningRequest) (ledger.TransferResult, error)
	Purchase(ctx context.Context, req ledger.PurchaseRequest) (ledger.PurchaseResult, error)
	Deposit(ctx context.Context, holderID string, amount int64, providerTxID string) (ledger.TransferResult, error)
	CreatePendingDeposit(ctx context.Context, actorID, holderID string, amount int64, checkoutID string) (ledgerrepo.Transaction, error)
	CompleteDeposit(ctx context.Context, checkoutID string) (ledger.TransferResult, error)
	FailDeposit(ctx context.Context, checkoutID string) (ledgerrepo.Transaction, error)
	Adjust(ctx context.Context, req ledger.AdjustRequest) (ledger.TransferResult, error)
	Reverse(ctx context.Context, actorID string, id uuid.UUID, reason string) (ledger.TransferResult, error)
}

type Sessions interface {
	Book(ctx context.Context, buyerID, sellerID string, units int64) (sessions.Session, error)
	Cancel(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error)
	Complete(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error)
	Settle(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error)
	NoShow(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error)
	SettleCompleted(ctx context.Context, actorID string, limit int) ([]sessions.Session, error)
	Get(ctx context.Context, id uuid.UUID) (sessions.Session, error)
}

type Disputes interface {
	Open(ctx context.Context, actorID string, sessionID uuid.UUID, reason string) (disputes.Dispute, error)
	Resolve(ctx context.Context, actorID string, id uuid.UUID, decision disputesvc.Decision, notes string) (disputes.Dispute, error)
	List(ctx context.Context, actorID string, status disputes.Status, limit int) ([]disputes.Dispute, error)
	Audits(ctx context.Context, actorID string, id uuid.UUID) ([]disputes.Audit, error)
}

type Payouts interface {
	Request(ctx context.Context, userID string, amount int64, destination string) (payouts.Request, error)
	Complete(ctx context.Context, adminID string, id uuid.UUID) (payouts.Request, error)
	Reject(ctx context.Context, adminID string, id uuid.UUID, reason string) (payouts.Request, error)
	Get(ctx context.Context, actorID string, id uuid.UUID) (payouts.Request, error)
}

type Checkout interface {
	CreateCheckout(ctx context.Context, req checkout.CreateRequest) (checkout.Checkout, error)
}

// Authorizer answers admin checks for reads the services do not guard
// themselves.
type Authorizer interface {
	IsAdmin(ctx context.Context, userID, resource string) (bool, error)
}

type Deps struct {
	Ledger        Ledger
	Sessions      Sessions
	Disputes      Disputes
	Payouts       Payouts
	Checkout      Checkout
	Authorizer    Authorizer
	WebhookSecret string
	// Dev exposes internal error text in 500 responses.
	Dev bool
}

// HandlerProvider exposes the ledger services as HTTP handlers.
type HandlerProvider struct {
	Deps
	validate *validator.Validate
}

func NewHandler(d Deps) *HandlerProvider {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &HandlerProvider{Deps: d, validate: v}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInsufficientBalance), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error onto the HTTP error taxonomy.
// Business outcomes go back verbatim; anything else is logged and hidden
// outside DEV.
func (h *HandlerProvider) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeError(w, status, verr.Error())
		return
	}

	if status != http.StatusInternalServerError {
		if status == http.StatusBadGateway {
			logging.FromContext(r.Context()).WarnContext(r.Context(), "upstream failure", slog.Any("error", err))
		}

		writeError(w, status, err.Error())

		return
	}

	logging.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", slog.Any("error", err))

	msg := "internal error"
	if h.Dev {
		msg = err.Error()
	}

	writeError(w, status, msg)
}

// decodeJSON reads a size-capped body into dst and validates it.
func (h *HandlerProvider) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "empty body")
		}

		return apperr.Invalid("body", "invalid JSON: %v", err)
	}

	return h.validateStruct(dst)
}

func (h *HandlerProvider) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return apperr.Invalid(fe.Field(), "failed %s=%s", fe.Tag(), fe.Param())
		}

		return apperr.Invalid(fe.Field(), "failed %s", fe.Tag())
	}

	return fmt.Errorf("validate request: %w", err)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a UUID")
	}

	return id, nil
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid("limit", "must be a non-negative integer")
	}

	return n, nil
}

func idempotencyKey(r *http.Request) (string, error) {
	k := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if len(k) > 255 {
		return "", apperr.Invalid(IdempotencyHeader, "longer than 255 characters")
	}

	return k, nil
}

func caller(r *http.Request) (identity.Identity, error) {
	return identity.FromContext(r.Context())
}

// canRead reports whether userID may read a holder's balances: its own,
// or one it administers.
func (h *HandlerProvider) canRead(ctx context.Context, userID, holderID string, resources ...string) (bool, error) {
	if userID == holderID {
		return true, nil
	}

	for _, res := range resources {
		ok, err := h.Authorizer.IsAdmin(ctx, userID, res)
		if err != nil {
			return false, fmt.Errorf("check admin: %w", err)
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}
