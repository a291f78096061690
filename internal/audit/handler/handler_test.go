package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"companyapp/internal/audit/handler/mocks"
	audit "companyapp/pkg/platform/audit"
)

//go:generate mockgen -source=handler.go -destination=mocks/audit-mocks.go -package=mocks Reader
type AuditHandlerSuite struct {
	suite.Suite
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func newTestRouter(t *testing.T, maxLimit int) (chi.Router, *mocks.MockReader) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	reader := mocks.NewMockReader(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(reader, logger, maxLimit).Register(r)
	return r, reader
}

func (s *AuditHandlerSuite) TestListReturnsRecords() {
	router, reader := newTestRouter(s.T(), 0)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	reader.EXPECT().QueryAuditTrail(gomock.Any(), audit.Filter{}, 0).Return([]audit.Record{{
		ID:         7,
		ActorID:    "u1",
		ActorName:  "Ada",
		EntityKind: "Company",
		Action:     audit.ActionAdded,
		Timestamp:  ts,
		KeyValues:  `{"ID":1}`,
		Changes:    `{"Name":"Acme"}`,
	}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp struct {
		Logs []struct {
			ID         int64          `json:"id"`
			UserID     string         `json:"userId"`
			EntityName string         `json:"entityName"`
			Action     string         `json:"action"`
			KeyValues  map[string]any `json:"keyValues"`
			Changes    map[string]any `json:"changes"`
		} `json:"logs"`
		Count int `json:"count"`
	}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Logs, 1)
	assert.Equal(s.T(), 1, resp.Count)
	assert.Equal(s.T(), int64(7), resp.Logs[0].ID)
	assert.Equal(s.T(), "u1", resp.Logs[0].UserID)
	assert.Equal(s.T(), "Company", resp.Logs[0].EntityName)
	assert.Equal(s.T(), "Added", resp.Logs[0].Action)
	assert.Equal(s.T(), float64(1), resp.Logs[0].KeyValues["ID"])
	assert.Equal(s.T(), "Acme", resp.Logs[0].Changes["Name"])
}

func (s *AuditHandlerSuite) TestListPassesFilter() {
	router, reader := newTestRouter(s.T(), 100)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	reader.EXPECT().QueryAuditTrail(gomock.Any(), audit.Filter{
		ActorID:    "u1",
		EntityKind: "Mission",
		Since:      since,
		Until:      until,
	}, 25).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/admin/audit-logs?actor=u1&entity=Mission&since=2026-01-01T00:00:00Z&until=2026-02-01T00:00:00Z&limit=25", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), float64(0), resp["count"])
	assert.Empty(s.T(), resp["logs"])
}

func (s *AuditHandlerSuite) TestLimitIsCapped() {
	router, reader := newTestRouter(s.T(), 10)
	reader.EXPECT().QueryAuditTrail(gomock.Any(), gomock.Any(), 10).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs?limit=5000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *AuditHandlerSuite) TestInvalidQuery() {
	cases := []struct {
		name  string
		query string
	}{
		{"bad since", "since=yesterday"},
		{"bad until", "until=2026-13-01"},
		{"inverted window", "since=2026-02-01T00:00:00Z&until=2026-01-01T00:00:00Z"},
		{"bad limit", "limit=abc"},
		{"negative limit", "limit=-1"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			router, _ := newTestRouter(s.T(), 0)
			req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs?"+tc.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(s.T(), http.StatusBadRequest, w.Code)
			var resp map[string]string
			require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(s.T(), "bad_request", resp["error"])
		})
	}
}

func (s *AuditHandlerSuite) TestReaderFailureIsInternal() {
	router, reader := newTestRouter(s.T(), 0)
	reader.EXPECT().QueryAuditTrail(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("disk on fire"))

	req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs", nil).WithContext(context.Background())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	assert.NotContains(s.T(), w.Body.String(), "disk on fire")
}

func TestRawJSONFallsBackToString(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(rawJSON(`{"a":1}`)))
	assert.Equal(t, `"not json"`, string(rawJSON("not json")))
}
