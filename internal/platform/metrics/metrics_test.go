package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/companies/{id}", http.MethodGet, 0.02)
	m.ObserveRequest("/companies/{id}", http.MethodGet, 0.04)
	m.ObserveRequest("/companies", http.MethodPost, 0.01)

	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveRequest("/healthz", http.MethodGet, 0.001)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `companyapp_http_request_duration_seconds_count{method="GET",route="/healthz"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
