package api

import (
	"net/http"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	"github.com/fastprodman/creatorledger/internal/repos/roles"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
	"github.com/go-chi/chi/v5"
)

func holderKey(r *http.Request) balances.Key {
	return balances.Key{
		HolderID:       chi.URLParam(r, "holderId"),
		CounterpartyID: r.URL.Query().Get("counterparty"),
	}
}

// GetBalanceHandler handles GET /balances/{holderId}?counterparty=
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key := holderKey(r)

	ok, err := h.canRead(r.Context(), id.UserID, key.HolderID, roles.BrandResource(key.HolderID), ledger.ResourceLedger)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if !ok {
		writeError(w, http.StatusForbidden, "not allowed to read this balance")
		return
	}

	b, err := h.Ledger.GetBalance(r.Context(), key)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBalanceResponse(b))
}

// ListTransactionsHandler handles GET /balances/{holderId}/transactions?limit=&before=
func (h *HandlerProvider) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	holderID := chi.URLParam(r, "holderId")

	ok, err := h.canRead(r.Context(), id.UserID, holderID, roles.BrandResource(holderID), ledger.ResourceLedger)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if !ok {
		writeError(w, http.StatusForbidden, "not allowed to read this history")
		return
	}

	limit, err := limitParam(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.writeServiceError(w, r, apperr.Invalid("before", "must be an RFC 3339 timestamp"))
			return
		}
	}

	txs, err := h.Ledger.ListTransactions(r.Context(), holderID, limit, before)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		items = append(items, newTransactionResponse(t))
	}

	resp := map[string]any{"transactions": items}
	if len(txs) > 0 {
		resp["nextBefore"] = txs[len(txs)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ReconcileHandler handles GET /balances/{holderId}/reconcile?counterparty=
func (h *HandlerProvider) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	rec, err := h.Ledger.Reconcile(r.Context(), id.UserID, holderKey(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetTransactionHandler handles GET /transactions/{id}. Parties of the
// transaction and ledger admins may read it.
func (h *HandlerProvider) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	txID, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	t, err := h.Ledger.GetTransaction(r.Context(), txID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if t.Source.HolderID != id.UserID && t.Dest.HolderID != id.UserID {
		ok, err := h.canRead(r.Context(), id.UserID, "", ledger.ResourceLedger)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		if !ok {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

// P2PTransferHandler handles POST /transfers/p2p
func (h *HandlerProvider) P2PTransferHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req p2pRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key, err := idempotencyKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.P2PTransfer(r.Context(), ledger.P2PRequest{
		SenderID:       id.UserID,
		RecipientID:    req.RecipientID,
		Amount:         req.Amount,
		Note:           req.Note,
		IdempotencyKey: key,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeTransfer(w, res)
}

// PersonalToBrandHandler handles POST /transfers/personal-to-brand
func (h *HandlerProvider) PersonalToBrandHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req personalToBrandRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key, err := idempotencyKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.PersonalToBrand(r.Context(), id.UserID, req.BrandID, req.Amount, key)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeTransfer(w, res)
}

// BrandToPersonalHandler handles POST /transfers/brand-to-personal
func (h *HandlerProvider) BrandToPersonalHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req brandToPersonalRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key, err := idempotencyKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.BrandToPersonal(r.Context(), id.UserID, req.BrandID, req.UserID, req.Amount, key)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeTransfer(w, res)
}

// AllocateBudgetHandler handles POST /brands/{brandId}/allocations
func (h *HandlerProvider) AllocateBudgetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req allocationRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key, err := idempotencyKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.AllocateBudget(r.Context(), id.UserID, chi.URLParam(r, "brandId"), req.CampaignID, req.Amount, key)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeTransfer(w, res)
}

// PayEarningHandler handles POST /brands/{brandId}/campaigns/{campaignId}/earnings
func (h *HandlerProvider) PayEarningHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req earningRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key, err := idempotencyKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.PayEarning(r.Context(), ledger.EarningRequest{
		ActorID:        id.UserID,
		BrandID:        chi.URLParam(r, "brandId"),
		CampaignID:     chi.URLParam(r, "campaignId"),
		CreatorID:      req.CreatorID,
		Amount:         req.Amount,
		Note:           req.Note,
		IdempotencyKey: key,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeTransfer(w, res)
}

// PurchaseHandler handles POST /purchases
func (h *HandlerProvider) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req purchaseRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key, err := idempotencyKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.Purchase(r.Context(), ledger.PurchaseRequest{
		BuyerID:        id.UserID,
		SellerID:       req.SellerID,
		CommunityID:    req.CommunityID,
		Units:          req.Units,
		UnitPrice:      req.UnitPrice,
		IdempotencyKey: key,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}

	writeJSON(w, status, purchaseResponse{
		transferResponse: newTransferResponse(res.TransferResult),
		Fees:             res.Fees,
		UnitsBalance:     optionalBalance(res.UnitsBalance),
	})
}

// AdjustHandler handles POST /admin/adjustments
func (h *HandlerProvider) AdjustHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req adjustmentRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key, err := idempotencyKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.Adjust(r.Context(), ledger.AdjustRequest{
		ActorID:        id.UserID,
		Key:            balances.Key{HolderID: req.HolderID, CounterpartyID: req.CounterpartyID},
		Delta:          req.Delta,
		Note:           req.Note,
		IdempotencyKey: key,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeTransfer(w, res)
}

// ReverseHandler handles POST /admin/transactions/{id}/reverse
func (h *HandlerProvider) ReverseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	txID, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req reverseRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.Ledger.Reverse(r.Context(), id.UserID, txID, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeTransfer(w, res)
}

// writeTransfer answers 201 for a new transaction and 200 for a replay.
func writeTransfer(w http.ResponseWriter, res ledger.TransferResult) {
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}

	writeJSON(w, status, newTransferResponse(res))
}
