package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithandler "companyapp/internal/audit/handler"
	"companyapp/internal/platform/metrics"
	platformmw "companyapp/internal/platform/middleware"
	recordshandler "companyapp/internal/records/handler"
	"companyapp/pkg/platform/httputil"
	adminmw "companyapp/pkg/platform/middleware/admin"
	authmw "companyapp/pkg/platform/middleware/auth"
	requestmw "companyapp/pkg/platform/middleware/request"
	"companyapp/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a backing dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps holds everything the router mounts.
type Deps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Validator  authmw.JWTValidator
	AdminToken string
	Records    *recordshandler.Handler
	Audit      *audithandler.Handler
	Health     map[string]HealthCheck
}

// NewRouter wires the public endpoints. Record routes require a bearer
// token; the audit trail requires the Admin role or the admin token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestmw.RequestID)
	r.Use(requestmw.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(requestmw.Logger(d.Logger))
	r.Use(platformmw.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", healthHandler(d.Health))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Logger))
		d.Records.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(d.Validator, d.Logger))
		r.Use(adminmw.RequireAdmin(d.AdminToken, d.Logger))
		d.Audit.Register(r)
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body[name] = "unavailable"
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
