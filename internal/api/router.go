package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter registers every endpoint. limiter may be nil to disable rate
// limiting.
func NewRouter(h *HandlerProvider, auth Authenticator, limiter RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhooks/checkout", h.CheckoutWebhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(authenticate(auth))

		r.Get("/balances/{holderId}", h.GetBalanceHandler)
		r.Get("/balances/{holderId}/transactions", h.ListTransactionsHandler)
		r.Get("/balances/{holderId}/reconcile", h.ReconcileHandler)
		r.Get("/transactions/{id}", h.GetTransactionHandler)
		r.Get("/sessions/{id}", h.GetSessionHandler)
		r.Get("/disputes", h.ListDisputesHandler)
		r.Get("/disputes/{id}/audits", h.DisputeAuditsHandler)
		r.Get("/payouts/{id}", h.GetPayoutHandler)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(limiter))

			r.Post("/transfers/p2p", h.P2PTransferHandler)
			r.Post("/transfers/personal-to-brand", h.PersonalToBrandHandler)
			r.Post("/transfers/brand-to-personal", h.BrandToPersonalHandler)
			r.Post("/brands/{brandId}/allocations", h.AllocateBudgetHandler)
			r.Post("/brands/{brandId}/campaigns/{campaignId}/earnings", h.PayEarningHandler)
			r.Post("/purchases", h.PurchaseHandler)
			r.Post("/checkouts", h.CreateCheckoutHandler)

			r.Post("/sessions", h.BookSessionHandler)
			r.Post("/sessions/{id}/cancel", h.sessionActionHandler(h.Sessions.Cancel))
			r.Post("/sessions/{id}/complete", h.sessionActionHandler(h.Sessions.Complete))
			r.Post("/sessions/{id}/settle", h.sessionActionHandler(h.Sessions.Settle))
			r.Post("/sessions/{id}/no-show", h.sessionActionHandler(h.Sessions.NoShow))
			r.Post("/sessions/{id}/disputes", h.OpenDisputeHandler)
			r.Post("/disputes/{id}/resolve", h.ResolveDisputeHandler)

			r.Post("/payouts", h.RequestPayoutHandler)
			r.Post("/payouts/{id}/complete", h.CompletePayoutHandler)
			r.Post("/payouts/{id}/reject", h.RejectPayoutHandler)

			r.Post("/admin/adjustments", h.AdjustHandler)
			r.Post("/admin/transactions/{id}/reverse", h.ReverseHandler)
			r.Post("/admin/sessions/settle", h.SettleCompletedHandler)
		})
	})

	return r
}
