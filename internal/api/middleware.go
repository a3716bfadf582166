package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fastprodman/creatorledger/internal/identity"
	"github.com/fastprodman/creatorledger/internal/infra/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// requestLogger tags every request with a correlation id, stores a scoped
// logger in the context and logs the outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, reqID)

		l := slog.Default().With(slog.String("request_id", reqID))
		ctx := logging.WithLogger(r.Context(), l)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		l.InfoContext(ctx, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type Authenticator interface {
	Resolve(authHeader string) (identity.Identity, error)
}

// authenticate resolves the bearer token and rejects anonymous requests.
func authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.Resolve(r.Header.Get("Authorization"))
			if err != nil {
				logging.FromContext(r.Context()).DebugContext(r.Context(), "authentication failed", slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "unauthorized")

				return
			}

			l := logging.FromContext(r.Context()).With(slog.String("user_id", id.UserID))
			ctx := logging.WithLogger(identity.WithIdentity(r.Context(), id), l)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
