package testutil

import (
	"net/http"

	"companyapp/pkg/requestcontext"
)

// WithPrincipal binds an authenticated principal to the request context, as
// the auth middleware would.
func WithPrincipal(req *http.Request, p requestcontext.Principal) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), p))
}

