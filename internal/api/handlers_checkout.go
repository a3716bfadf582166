package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/clients/checkout"
	"github.com/fastprodman/creatorledger/internal/infra/logging"
	"github.com/fastprodman/creatorledger/internal/repos/roles"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
)

// CreateCheckoutHandler handles POST /checkouts. Users top up their own
// wallet; brand admins top up the brand wallet.
func (h *HandlerProvider) CreateCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req checkoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ok, err := h.canRead(r.Context(), id.UserID, req.HolderID, roles.BrandResource(req.HolderID))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if !ok {
		writeError(w, http.StatusForbidden, "not allowed to top up this wallet")
		return
	}

	co, err := h.Checkout.CreateCheckout(r.Context(), checkout.CreateRequest{
		HolderID:    req.HolderID,
		ActorID:     id.UserID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RedirectURL: req.RedirectURL,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	t, err := h.Ledger.CreatePendingDeposit(r.Context(), id.UserID, req.HolderID, req.Amount, co.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"checkoutId":  co.ID,
		"checkoutUrl": co.URL,
		"transaction": newTransactionResponse(t),
	})
}

// CheckoutWebhookHandler handles POST /webhooks/checkout. Redelivered events
// are acknowledged with 200 and change nothing.
func (h *HandlerProvider) CheckoutWebhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = checkout.VerifySignature(h.WebhookSecret, r.Header.Get(checkout.SignatureHeader), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ev, err := checkout.ParseEvent(body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	log := logging.FromContext(r.Context()).With(
		slog.String("event_type", ev.Type),
		slog.String("checkout_id", ev.CheckoutID),
		slog.String("payment_id", ev.PaymentID),
	)

	switch ev.Type {
	case checkout.EventPaymentSucceeded:
		res, err := h.creditCheckout(r, ev)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		log.InfoContext(r.Context(), "checkout payment credited", slog.Bool("replayed", res.Replayed))
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "replayed": res.Replayed})

	case checkout.EventPaymentFailed:
		if ev.CheckoutID != "" {
			_, err := h.Ledger.FailDeposit(r.Context(), ev.CheckoutID)
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				h.writeServiceError(w, r, err)
				return
			}
		}

		log.InfoContext(r.Context(), "checkout payment failed")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		log.DebugContext(r.Context(), "checkout event ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

// creditCheckout completes the pending deposit opened for the checkout.
// Payments for checkouts this service never opened fall back to a direct
// deposit keyed by the provider's payment id.
func (h *HandlerProvider) creditCheckout(r *http.Request, ev checkout.Event) (ledger.TransferResult, error) {
	if ev.CheckoutID != "" {
		res, err := h.Ledger.CompleteDeposit(r.Context(), ev.CheckoutID)
		if err == nil || !errors.Is(err, apperr.ErrNotFound) {
			return res, err
		}
	}

	if ev.HolderID == "" || ev.Amount <= 0 {
		return ledger.TransferResult{}, apperr.Invalid("metadata", "holder and amount are required for an unknown checkout")
	}

	return h.Ledger.Deposit(r.Context(), ev.HolderID, ev.Amount, ev.PaymentID)
}
