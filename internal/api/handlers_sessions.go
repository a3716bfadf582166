package api

import (
	"context"
	"net/http"

	"github.com/fastprodman/creatorledger/internal/repos/disputes"
	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	disputesvc "github.com/fastprodman/creatorledger/internal/services/disputes"
	sessionsvc "github.com/fastprodman/creatorledger/internal/services/sessions"
	"github.com/google/uuid"
)

// BookSessionHandler handles POST /sessions
func (h *HandlerProvider) BookSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req bookSessionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	s, err := h.Sessions.Book(r.Context(), id.UserID, req.SellerID, req.Units)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSessionResponse(s))
}

// GetSessionHandler handles GET /sessions/{id}. Only the two parties and
// session admins see a session.
func (h *HandlerProvider) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sid, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	s, err := h.Sessions.Get(r.Context(), sid)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if s.BuyerID != id.UserID && s.SellerID != id.UserID {
		ok, err := h.canRead(r.Context(), id.UserID, "", sessionsvc.ResourceSessions)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

type sessionAction func(ctx context.Context, actorID string, id uuid.UUID) (sessions.Session, error)

// sessionActionHandler serves POST /sessions/{id}/cancel|complete|settle.
func (h *HandlerProvider) sessionActionHandler(action sessionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := caller(r)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		sid, err := uuidParam(r, "id")
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		s, err := action(r.Context(), id.UserID, sid)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, newSessionResponse(s))
	}
}

// SettleCompletedHandler handles POST /admin/sessions/settle
func (h *HandlerProvider) SettleCompletedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req settleBatchRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	settled, err := h.Sessions.SettleCompleted(r.Context(), id.UserID, req.Limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]sessionResponse, 0, len(settled))
	for _, s := range settled {
		items = append(items, newSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, map[string]any{"settled": items})
}

// OpenDisputeHandler handles POST /sessions/{id}/disputes
func (h *HandlerProvider) OpenDisputeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sid, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req openDisputeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	d, err := h.Disputes.Open(r.Context(), id.UserID, sid, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newDisputeResponse(d))
}

// ListDisputesHandler handles GET /disputes?status=pending&limit=
func (h *HandlerProvider) ListDisputesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	limit, err := limitParam(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := disputes.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = disputes.StatusPending
	}

	list, err := h.Disputes.List(r.Context(), id.UserID, status, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]disputeResponse, 0, len(list))
	for _, d := range list {
		items = append(items, newDisputeResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{"disputes": items})
}

// ResolveDisputeHandler handles POST /disputes/{id}/resolve
func (h *HandlerProvider) ResolveDisputeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	did, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req resolveDisputeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	d, err := h.Disputes.Resolve(r.Context(), id.UserID, did, disputesvc.Decision(req.Decision), req.Notes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newDisputeResponse(d))
}

// DisputeAuditsHandler handles GET /disputes/{id}/audits
func (h *HandlerProvider) DisputeAuditsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	did, err := uuidParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	audits, err := h.Disputes.Audits(r.Context(), id.UserID, did)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]auditResponse, 0, len(audits))
	for _, a := range audits {
		items = append(items, auditResponse{
			Action:         a.Action,
			ActorID:        a.ActorID,
			AmountApproved: a.AmountApproved,
			Notes:          a.Notes,
			CreatedAt:      a.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"audits": items})
}
