package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"companyapp/internal/platform/metrics"
)

// LatencyMiddleware records request latency labelled by the matched chi
// route pattern, so path parameters do not explode label cardinality.
func LatencyMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if m == nil {
				return
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveRequest(route, r.Method, time.Since(start).Seconds())
		})
	}
}
