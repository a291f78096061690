package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"companyapp/pkg/requestcontext"
)

// RoleAdmin is the role allowed to review the audit trail.
const RoleAdmin = "Admin"

// RequireAdmin admits requests carrying the static admin token in
// X-Admin-Token, or made by a principal with the Admin role. An empty
// expectedToken disables the token path.
func RequireAdmin(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if p, ok := requestcontext.Identity(ctx); ok && p.HasRole(RoleAdmin) {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get("X-Admin-Token")
			// Use constant-time comparison to prevent timing attacks
			if expectedToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			logger.WarnContext(ctx, "admin access denied",
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin access required"}`))
		})
	}
}
