package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"companyapp/internal/records"
	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/httputil"
	"companyapp/pkg/requestcontext"
)

// HeaderAuditWarning is set when a change was saved but its audit records
// could not be written.
const HeaderAuditWarning = "X-Audit-Warning"

// Service is the records use-case surface the handler depends on.
type Service interface {
	GetCompany(ctx context.Context, id int64) (records.Company, error)
	ListCompanies(ctx context.Context) ([]records.Company, error)
	CreateCompany(ctx context.Context, c records.Company) (records.Company, error)
	UpdateCompany(ctx context.Context, id int64, c records.Company) (records.Company, error)
	DeleteCompany(ctx context.Context, id int64) error

	GetEmployee(ctx context.Context, id int64) (records.Employee, error)
	ListEmployees(ctx context.Context, companyID int64) ([]records.Employee, error)
	CreateEmployee(ctx context.Context, e records.Employee) (records.Employee, error)
	UpdateEmployee(ctx context.Context, id int64, e records.Employee) (records.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error

	GetMission(ctx context.Context, id int64) (records.Mission, error)
	ListMissions(ctx context.Context, filter records.MissionFilter) ([]records.Mission, error)
	CreateMission(ctx context.Context, m records.Mission) (records.Mission, error)
	UpdateMission(ctx context.Context, id int64, m records.Mission) (records.Mission, error)
	TransitionMission(ctx context.Context, id int64, next records.MissionStatus) (records.Mission, error)
	DeleteMission(ctx context.Context, id int64) error
}

// Handler exposes companies, employees and missions over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the record routes. Callers gate them with authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", h.handleListCompanies)
		r.Post("/", h.handleCreateCompany)
		r.Get("/{id}", h.handleGetCompany)
		r.Put("/{id}", h.handleUpdateCompany)
		r.Delete("/{id}", h.handleDeleteCompany)
		r.Get("/{id}/employees", h.handleListCompanyEmployees)
	})
	r.Route("/employees", func(r chi.Router) {
		r.Post("/", h.handleCreateEmployee)
		r.Get("/{id}", h.handleGetEmployee)
		r.Put("/{id}", h.handleUpdateEmployee)
		r.Delete("/{id}", h.handleDeleteEmployee)
	})
	r.Route("/missions", func(r chi.Router) {
		r.Get("/", h.handleListMissions)
		r.Post("/", h.handleCreateMission)
		r.Get("/{id}", h.handleGetMission)
		r.Put("/{id}", h.handleUpdateMission)
		r.Delete("/{id}", h.handleDeleteMission)
		r.Post("/{id}/status", h.handleTransitionMission)
	})
}

type companyRequest struct {
	Name        string    `json:"name"`
	TaxID       string    `json:"taxId"`
	Industry    string    `json:"industry"`
	Address     string    `json:"address"`
	FoundedDate time.Time `json:"foundedDate"`
	LogoPath    string    `json:"logoPath"`
}

func (req companyRequest) toModel() records.Company {
	return records.Company{
		Name:        req.Name,
		TaxID:       req.TaxID,
		Industry:    req.Industry,
		Address:     req.Address,
		FoundedDate: req.FoundedDate,
		LogoPath:    req.LogoPath,
	}
}

type employeeRequest struct {
	Name      string `json:"name"`
	Position  string `json:"position"`
	Email     string `json:"email"`
	CompanyID int64  `json:"companyId"`
}

func (req employeeRequest) toModel() records.Employee {
	return records.Employee{
		Name:      req.Name,
		Position:  req.Position,
		Email:     req.Email,
		CompanyID: req.CompanyID,
	}
}

type missionRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Deadline    time.Time              `json:"deadline"`
	Status      *records.MissionStatus `json:"status,omitempty"`
	CompanyID   int64                  `json:"companyId"`
	EmployeeID  int64                  `json:"employeeId"`
}

// toModel keeps current's status when the request leaves it out.
func (req missionRequest) toModel(current records.MissionStatus) records.Mission {
	status := current
	if req.Status != nil {
		status = *req.Status
	}
	return records.Mission{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Status:      status,
		CompanyID:   req.CompanyID,
		EmployeeID:  req.EmployeeID,
	}
}

type transitionRequest struct {
	Status records.MissionStatus `json:"status"`
}

// -----------------------------------------------------------------------------
// Companies
// -----------------------------------------------------------------------------

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListCompanies(r.Context())
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetCompany(r.Context(), id)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.CreateCompany(r.Context(), req.toModel())
	h.respond(w, r, http.StatusCreated, c, err)
}

func (h *Handler) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req companyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.UpdateCompany(r.Context(), id, req.toModel())
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusNoContent, nil, h.service.DeleteCompany(r.Context(), id))
}

func (h *Handler) handleListCompanyEmployees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.service.ListEmployees(r.Context(), id)
	h.respond(w, r, http.StatusOK, out, err)
}

// -----------------------------------------------------------------------------
// Employees
// -----------------------------------------------------------------------------

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.service.GetEmployee(r.Context(), id)
	h.respond(w, r, http.StatusOK, e, err)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.CreateEmployee(r.Context(), req.toModel())
	h.respond(w, r, http.StatusCreated, e, err)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req employeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.UpdateEmployee(r.Context(), id, req.toModel())
	h.respond(w, r, http.StatusOK, e, err)
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusNoContent, nil, h.service.DeleteEmployee(r.Context(), id))
}

// -----------------------------------------------------------------------------
// Missions
// -----------------------------------------------------------------------------

func (h *Handler) handleListMissions(w http.ResponseWriter, r *http.Request) {
	var filter records.MissionFilter
	q := r.URL.Query()
	if raw := q.Get("companyId"); raw != "" {
		id, err := httputil.ParseID(raw, "companyId")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.CompanyID = id
	}
	if raw := q.Get("employeeId"); raw != "" {
		id, err := httputil.ParseID(raw, "employeeId")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.EmployeeID = id
	}
	out, err := h.service.ListMissions(r.Context(), filter)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleGetMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMission(r.Context(), id)
	h.respond(w, r, http.StatusOK, m, err)
}

func (h *Handler) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	var req missionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.service.CreateMission(r.Context(), req.toModel(records.MissionPending))
	h.respond(w, r, http.StatusCreated, m, err)
}

func (h *Handler) handleUpdateMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req missionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	current, err := h.service.GetMission(r.Context(), id)
	if err != nil {
		h.respond(w, r, http.StatusOK, nil, err)
		return
	}
	m, err := h.service.UpdateMission(r.Context(), id, req.toModel(current.Status))
	h.respond(w, r, http.StatusOK, m, err)
}

func (h *Handler) handleTransitionMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.service.TransitionMission(r.Context(), id, req.Status)
	h.respond(w, r, http.StatusOK, m, err)
}

func (h *Handler) handleDeleteMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusNoContent, nil, h.service.DeleteMission(r.Context(), id))
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// respond writes v with status. A finalization failure still reports success
// because the change is durable; the missing audit trail is flagged in a
// header.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil && !errors.Is(err, audit.ErrFinalizationFailed) {
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "responding without audit trail",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
		)
		w.Header().Set(HeaderAuditWarning, "audit records were not saved")
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	httputil.WriteJSON(w, status, v)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httputil.ParseID(chi.URLParam(r, "id"), "id")
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return id, true
}
