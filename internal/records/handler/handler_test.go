package handler

import (
	"bytes"
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

	"companyapp/internal/records"
	"companyapp/internal/records/handler/mocks"
	dErrors "companyapp/pkg/domain-errors"
	audit "companyapp/pkg/platform/audit"
)

//go:generate mockgen -source=handler.go -destination=mocks/records-mocks.go -package=mocks Service
type RecordsHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *mocks.MockService
}

func TestRecordsHandlerSuite(t *testing.T) {
	suite.Run(t, new(RecordsHandlerSuite))
}

func (s *RecordsHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *RecordsHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RecordsHandlerSuite) TestCreateCompany() {
	s.service.EXPECT().CreateCompany(gomock.Any(), records.Company{Name: "Acme", Industry: "Tools"}).
		Return(records.Company{ID: 1, Name: "Acme", Industry: "Tools"}, nil)

	w := s.do(http.MethodPost, "/companies", map[string]any{"name": "Acme", "industry": "Tools"})

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	assert.Empty(s.T(), w.Header().Get(HeaderAuditWarning))
	var got records.Company
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(s.T(), int64(1), got.ID)
	assert.Equal(s.T(), "Acme", got.Name)
}

func (s *RecordsHandlerSuite) TestCreateCompanyRejectsUnknownFields() {
	w := s.do(http.MethodPost, "/companies", map[string]any{"name": "Acme", "id": 9})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *RecordsHandlerSuite) TestFinalizationFailureStillSucceeds() {
	finErr := &audit.FinalizationError{Err: errors.New("audit store down")}
	s.service.EXPECT().CreateCompany(gomock.Any(), gomock.Any()).
		Return(records.Company{ID: 4, Name: "Acme"}, finErr)

	w := s.do(http.MethodPost, "/companies", map[string]any{"name": "Acme"})

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	assert.NotEmpty(s.T(), w.Header().Get(HeaderAuditWarning))
	var got records.Company
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(s.T(), int64(4), got.ID)
}

func (s *RecordsHandlerSuite) TestGetCompanyNotFound() {
	s.service.EXPECT().GetCompany(gomock.Any(), int64(42)).
		Return(records.Company{}, dErrors.New(dErrors.CodeNotFound, "load company: not found"))

	w := s.do(http.MethodGet, "/companies/42", nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *RecordsHandlerSuite) TestInvalidPathID() {
	w := s.do(http.MethodGet, "/companies/abc", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/missions/0", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *RecordsHandlerSuite) TestDeleteCompany() {
	s.service.EXPECT().DeleteCompany(gomock.Any(), int64(3)).Return(nil)

	w := s.do(http.MethodDelete, "/companies/3", nil)
	assert.Equal(s.T(), http.StatusNoContent, w.Code)
	assert.Empty(s.T(), w.Body.String())
}

func (s *RecordsHandlerSuite) TestListCompanyEmployees() {
	s.service.EXPECT().ListEmployees(gomock.Any(), int64(2)).
		Return([]records.Employee{{ID: 1, Name: "Grace", CompanyID: 2}}, nil)

	w := s.do(http.MethodGet, "/companies/2/employees", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	var got []records.Employee
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), "Grace", got[0].Name)
}

func (s *RecordsHandlerSuite) TestUpdateEmployeeValidationError() {
	s.service.EXPECT().UpdateEmployee(gomock.Any(), int64(5), gomock.Any()).
		Return(records.Employee{}, dErrors.New(dErrors.CodeValidation, "employee name is required"))

	w := s.do(http.MethodPut, "/employees/5", map[string]any{"name": "", "companyId": 1})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "validation_error", resp["error"])
	assert.Equal(s.T(), "employee name is required", resp["error_description"])
}

func (s *RecordsHandlerSuite) TestListMissionsFilter() {
	s.service.EXPECT().ListMissions(gomock.Any(), records.MissionFilter{CompanyID: 1, EmployeeID: 2}).
		Return(nil, nil)

	w := s.do(http.MethodGet, "/missions?companyId=1&employeeId=2", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/missions?companyId=x", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *RecordsHandlerSuite) TestCreateMissionStartsPending() {
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.service.EXPECT().CreateMission(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, m records.Mission) (records.Mission, error) {
			assert.Equal(s.T(), records.MissionPending, m.Status)
			assert.True(s.T(), deadline.Equal(m.Deadline))
			m.ID = 10
			return m, nil
		})

	w := s.do(http.MethodPost, "/missions", map[string]any{
		"title":      "Audit",
		"deadline":   deadline.Format(time.RFC3339),
		"companyId":  1,
		"employeeId": 2,
	})
	assert.Equal(s.T(), http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "Pending", resp["status"])
}

func (s *RecordsHandlerSuite) TestUpdateMissionKeepsStatusWhenOmitted() {
	s.service.EXPECT().GetMission(gomock.Any(), int64(8)).
		Return(records.Mission{ID: 8, Status: records.MissionProcessing}, nil)
	s.service.EXPECT().UpdateMission(gomock.Any(), int64(8), gomock.Any()).
		DoAndReturn(func(_ any, id int64, m records.Mission) (records.Mission, error) {
			assert.Equal(s.T(), records.MissionProcessing, m.Status)
			m.ID = id
			return m, nil
		})

	w := s.do(http.MethodPut, "/missions/8", map[string]any{
		"title":      "Audit v2",
		"deadline":   "2026-06-01T00:00:00Z",
		"companyId":  1,
		"employeeId": 2,
	})
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *RecordsHandlerSuite) TestTransitionMission() {
	s.service.EXPECT().TransitionMission(gomock.Any(), int64(8), records.MissionCompleted).
		Return(records.Mission{ID: 8, Status: records.MissionCompleted}, nil)

	w := s.do(http.MethodPost, "/missions/8/status", map[string]any{"status": "completed"})
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *RecordsHandlerSuite) TestTransitionMissionRejected() {
	s.service.EXPECT().TransitionMission(gomock.Any(), int64(8), records.MissionPending).
		Return(records.Mission{}, dErrors.New(dErrors.CodeInvariantViolation, "mission cannot move from Completed to Pending"))

	w := s.do(http.MethodPost, "/missions/8/status", map[string]any{"status": "Pending"})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *RecordsHandlerSuite) TestTransitionMissionUnknownStatus() {
	w := s.do(http.MethodPost, "/missions/8/status", map[string]any{"status": "Archived"})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *RecordsHandlerSuite) TestDeleteMissionFinalizationFailure() {
	s.service.EXPECT().DeleteMission(gomock.Any(), int64(8)).
		Return(&audit.FinalizationError{Err: errors.New("boom")})

	w := s.do(http.MethodDelete, "/missions/8", nil)
	assert.Equal(s.T(), http.StatusNoContent, w.Code)
	assert.NotEmpty(s.T(), w.Header().Get(HeaderAuditWarning))
}
