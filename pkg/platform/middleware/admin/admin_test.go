package admin

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"companyapp/pkg/requestcontext"
	"companyapp/pkg/testutil"
)

func TestRequireAdmin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		name      string
		token     string
		header    string
		principal *requestcontext.Principal
		want      int
	}{
		{name: "no credentials", token: "s3cret", want: http.StatusUnauthorized},
		{name: "matching token", token: "s3cret", header: "s3cret", want: http.StatusOK},
		{name: "wrong token", token: "s3cret", header: "guess", want: http.StatusUnauthorized},
		{name: "token path disabled", token: "", header: "", want: http.StatusUnauthorized},
		{name: "admin role", token: "", principal: &requestcontext.Principal{ID: "u-1", Role: "admin"}, want: http.StatusOK},
		{name: "other role", token: "s3cret", principal: &requestcontext.Principal{ID: "u-2", Role: "Manager"}, want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/admin/audit-logs")
			if tc.header != "" {
				req.Header.Set("X-Admin-Token", tc.header)
			}
			if tc.principal != nil {
				req = testutil.WithPrincipal(req, *tc.principal)
			}

			rr := testutil.DoRequest(RequireAdmin(tc.token, logger)(ok), req)
			testutil.AssertStatus(t, rr, tc.want)
			if tc.want == http.StatusUnauthorized {
				testutil.AssertErrorCode(t, rr, "unauthorized")
			}
		})
	}
}
