package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/model"
)

// AdminChecker decides whether an identity may use admin endpoints.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id *model.Identity) (bool, error)
}

// RequireAdmin returns middleware that rejects non-admin callers.
// Must be applied after Auth middleware.
func RequireAdmin(checker AdminChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.IdentityFromContext(r.Context())
			if id == nil {
				writeAuthError(w)
				return
			}

			ok, err := checker.IsAdmin(r.Context(), id)
			if err != nil {
				logger.Error("admin check failed",
					slog.String("user_id", id.UID),
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
				return
			}
			if !ok {
				logger.Warn("admin access denied",
					slog.String("user_id", id.UID),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusForbidden, CodeForbidden, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
