package api

import (
	"net/http"
)

// RequestPayoutHandler handles POST /payouts
func (h *HandlerProvider) RequestPayoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req payoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.Payouts.Request(r.Context(), id.UserID, req.Amount, req.Destination)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newPayoutResponse(p))
}

// GetPayoutHandler handles GET /payouts/{id}
func (h *HandlerProvider) GetPayoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pid, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.Payouts.Get(r.Context(), id.UserID, pid)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPayoutResponse(p))
}

// CompletePayoutHandler handles POST /payouts/{id}/complete
func (h *HandlerProvider) CompletePayoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pid, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.Payouts.Complete(r.Context(), id.UserID, pid)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPayoutResponse(p))
}

// RejectPayoutHandler handles POST /payouts/{id}/reject
func (h *HandlerProvider) RejectPayoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pid, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req rejectPayoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.Payouts.Reject(r.Context(), id.UserID, pid, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPayoutResponse(p))
}
