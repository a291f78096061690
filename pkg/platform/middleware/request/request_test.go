package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companyapp/pkg/requestcontext"
	"companyapp/pkg/testutil"
)

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	assert.Len(t, seen, 36)
}

func TestRequestIDReusesCallerHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	req := testutil.NewRequest(t, http.MethodGet, "/")
	req.Header.Set(HeaderRequestID, "trace-42")
	rr := testutil.DoRequest(h, req)
	assert.Equal(t, "trace-42", seen)
	assert.Equal(t, "trace-42", rr.Header().Get(HeaderRequestID))

	req = testutil.NewRequest(t, http.MethodGet, "/")
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 129))
	testutil.DoRequest(h, req)
	assert.Len(t, seen, 36, "oversized IDs are replaced")
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	testutil.DoRequest(h, testutil.NewRequest(t, http.MethodPost, "/companies"))

	line := buf.String()
	assert.Contains(t, line, `"msg":"http request"`)
	assert.Contains(t, line, `"method":"POST"`)
	assert.Contains(t, line, `"path":"/companies"`)
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"request_id":"`)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	assert.Contains(t, buf.String(), "panic recovered")
}
