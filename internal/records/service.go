package records

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	dErrors "companyapp/pkg/domain-errors"
	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/sentinel"
	"companyapp/pkg/platform/uow"
)

// Committer commits a unit of work together with its audit trail.
type Committer interface {
	CommitWithAudit(ctx context.Context, batch *uow.Batch, actor audit.Actor) (audit.Result, error)
}

// Service manages companies, employees and missions. Every mutation is a
// single audited commit attributed to the principal bound to ctx.
//
// A returned error matching audit.ErrFinalizationFailed means the change was
// saved but its audit records were not; the returned entity is valid.
type Service struct {
	store     *Store
	committer Committer
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(store *Store, committer Committer, opts ...Option) *Service {
	s := &Service{store: store, committer: committer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -----------------------------------------------------------------------------
// Companies
// -----------------------------------------------------------------------------

func (s *Service) GetCompany(ctx context.Context, id int64) (Company, error) {
	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return Company{}, translate(err, "load company")
	}
	return c, nil
}

func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	out, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, translate(err, "list companies")
	}
	return out, nil
}

func (s *Service) CreateCompany(ctx context.Context, c Company) (Company, error) {
	c.ID = 0
	if err := validateCompany(&c); err != nil {
		return Company{}, err
	}
	batch := uow.NewBatch()
	if _, err := batch.Add(&c); err != nil {
		return Company{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track company")
	}
	if err := s.commit(ctx, batch, "create company"); err != nil {
		return committedOrZero(c, err)
	}
	return c, nil
}

func (s *Service) UpdateCompany(ctx context.Context, id int64, c Company) (Company, error) {
	original, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return Company{}, translate(err, "load company")
	}
	c.ID = id
	if err := validateCompany(&c); err != nil {
		return Company{}, err
	}
	batch := uow.NewBatch()
	if _, err := batch.Update(&c, original); err != nil {
		return Company{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track company")
	}
	if err := s.commit(ctx, batch, "update company"); err != nil {
		return committedOrZero(c, err)
	}
	return c, nil
}

// DeleteCompany removes the company with its employees and every mission
// that references either, in one commit.
func (s *Service) DeleteCompany(ctx context.Context, id int64) error {
	company, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return translate(err, "load company")
	}
	employees, err := s.store.ListEmployees(ctx, id)
	if err != nil {
		return translate(err, "list employees")
	}

	missions, err := s.store.ListMissions(ctx, MissionFilter{CompanyID: id})
	if err != nil {
		return translate(err, "list missions")
	}
	seen := make(map[int64]bool, len(missions))
	for _, m := range missions {
		seen[m.ID] = true
	}
	for _, e := range employees {
		assigned, err := s.store.ListMissions(ctx, MissionFilter{EmployeeID: e.ID})
		if err != nil {
			return translate(err, "list missions")
		}
		for _, m := range assigned {
			if !seen[m.ID] {
				seen[m.ID] = true
				missions = append(missions, m)
			}
		}
	}

	batch := uow.NewBatch()
	for i := range missions {
		if _, err := batch.Delete(&missions[i]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to track mission")
		}
	}
	for i := range employees {
		if _, err := batch.Delete(&employees[i]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to track employee")
		}
	}
	if _, err := batch.Delete(&company); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to track company")
	}
	return s.commit(ctx, batch, "delete company")
}

// -----------------------------------------------------------------------------
// Employees
// -----------------------------------------------------------------------------

func (s *Service) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, translate(err, "load employee")
	}
	return e, nil
}

func (s *Service) ListEmployees(ctx context.Context, companyID int64) ([]Employee, error) {
	out, err := s.store.ListEmployees(ctx, companyID)
	if err != nil {
		return nil, translate(err, "list employees")
	}
	return out, nil
}

func (s *Service) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	e.ID = 0
	if err := s.validateEmployee(ctx, &e); err != nil {
		return Employee{}, err
	}
	batch := uow.NewBatch()
	if _, err := batch.Add(&e); err != nil {
		return Employee{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track employee")
	}
	if err := s.commit(ctx, batch, "create employee"); err != nil {
		return committedOrZero(e, err)
	}
	return e, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id int64, e Employee) (Employee, error) {
	original, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, translate(err, "load employee")
	}
	e.ID = id
	if err := s.validateEmployee(ctx, &e); err != nil {
		return Employee{}, err
	}
	batch := uow.NewBatch()
	if _, err := batch.Update(&e, original); err != nil {
		return Employee{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track employee")
	}
	if err := s.commit(ctx, batch, "update employee"); err != nil {
		return committedOrZero(e, err)
	}
	return e, nil
}

// DeleteEmployee removes the employee and the missions assigned to them.
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	employee, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return translate(err, "load employee")
	}
	missions, err := s.store.ListMissions(ctx, MissionFilter{EmployeeID: id})
	if err != nil {
		return translate(err, "list missions")
	}
	batch := uow.NewBatch()
	for i := range missions {
		if _, err := batch.Delete(&missions[i]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to track mission")
		}
	}
	if _, err := batch.Delete(&employee); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to track employee")
	}
	return s.commit(ctx, batch, "delete employee")
}

// -----------------------------------------------------------------------------
// Missions
// -----------------------------------------------------------------------------

func (s *Service) GetMission(ctx context.Context, id int64) (Mission, error) {
	m, err := s.store.GetMission(ctx, id)
	if err != nil {
		return Mission{}, translate(err, "load mission")
	}
	return m, nil
}

func (s *Service) ListMissions(ctx context.Context, filter MissionFilter) ([]Mission, error) {
	out, err := s.store.ListMissions(ctx, filter)
	if err != nil {
		return nil, translate(err, "list missions")
	}
	return out, nil
}

// CreateMission starts the mission as Pending. The database stamps
// CreateDate unless the caller set one.
func (s *Service) CreateMission(ctx context.Context, m Mission) (Mission, error) {
	m.ID = 0
	m.Status = MissionPending
	if err := s.validateMission(ctx, &m); err != nil {
		return Mission{}, err
	}
	batch := uow.NewBatch()
	if _, err := batch.Add(&m); err != nil {
		return Mission{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track mission")
	}
	if err := s.commit(ctx, batch, "create mission"); err != nil {
		return committedOrZero(m, err)
	}
	return m, nil
}

// UpdateMission replaces the editable fields. CreateDate is kept and a status
// change must be a forward transition.
func (s *Service) UpdateMission(ctx context.Context, id int64, m Mission) (Mission, error) {
	original, err := s.store.GetMission(ctx, id)
	if err != nil {
		return Mission{}, translate(err, "load mission")
	}
	m.ID = id
	m.CreateDate = original.CreateDate
	if m.Status != original.Status && !original.Status.CanTransitionTo(m.Status) {
		return Mission{}, dErrors.New(dErrors.CodeInvariantViolation,
			"mission cannot move from "+original.Status.String()+" to "+m.Status.String())
	}
	if err := s.validateMission(ctx, &m); err != nil {
		return Mission{}, err
	}
	return s.saveMission(ctx, m, original, "update mission")
}

// TransitionMission moves a mission to the next status. The status change may
// be the only difference in the commit, so it is always audited.
func (s *Service) TransitionMission(ctx context.Context, id int64, next MissionStatus) (Mission, error) {
	original, err := s.store.GetMission(ctx, id)
	if err != nil {
		return Mission{}, translate(err, "load mission")
	}
	if !original.Status.CanTransitionTo(next) {
		return Mission{}, dErrors.New(dErrors.CodeInvariantViolation,
			"mission cannot move from "+original.Status.String()+" to "+next.String())
	}
	m := original
	m.Status = next
	return s.saveMission(ctx, m, original, "transition mission")
}

func (s *Service) saveMission(ctx context.Context, m, original Mission, op string) (Mission, error) {
	batch := uow.NewBatch()
	if _, err := batch.Update(&m, original); err != nil {
		return Mission{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track mission")
	}
	if err := s.commit(ctx, batch, op); err != nil {
		return committedOrZero(m, err)
	}
	return m, nil
}

func (s *Service) DeleteMission(ctx context.Context, id int64) error {
	mission, err := s.store.GetMission(ctx, id)
	if err != nil {
		return translate(err, "load mission")
	}
	batch := uow.NewBatch()
	if _, err := batch.Delete(&mission); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to track mission")
	}
	return s.commit(ctx, batch, "delete mission")
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Service) commit(ctx context.Context, batch *uow.Batch, op string) error {
	actor := audit.ResolveActor(ctx)
	_, err := s.committer.CommitWithAudit(ctx, batch, actor)
	if err == nil {
		return nil
	}
	if errors.Is(err, audit.ErrFinalizationFailed) {
		s.logger.WarnContext(ctx, "change saved without audit trail", "operation", op, "actor_id", actor.ID, "error", err)
		return err
	}
	return translate(err, op)
}

// committedOrZero returns v alongside a finalization error, whose change is
// durable, and the zero value for any other error.
func committedOrZero[T any](v T, err error) (T, error) {
	if errors.Is(err, audit.ErrFinalizationFailed) {
		return v, err
	}
	var zero T
	return zero, err
}

func translate(err error, op string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, op+": not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, op+": conflict")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+": request cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op)
	}
}

func validateCompany(c *Company) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "company name is required")
	}
	c.FoundedDate = utcDate(c.FoundedDate)
	return nil
}

func (s *Service) validateEmployee(ctx context.Context, e *Employee) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.TrimSpace(e.Email)
	if e.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "employee name is required")
	}
	if e.Email != "" && !strings.Contains(e.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "employee email is invalid")
	}
	return s.requireCompany(ctx, e.CompanyID)
}

func (s *Service) validateMission(ctx context.Context, m *Mission) error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "mission title is required")
	}
	if m.Deadline.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "mission deadline is required")
	}
	if !m.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "mission status is invalid")
	}
	m.Deadline = utcDate(m.Deadline)
	if err := s.requireCompany(ctx, m.CompanyID); err != nil {
		return err
	}
	if _, err := s.store.GetEmployee(ctx, m.EmployeeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "assigned employee does not exist")
		}
		return translate(err, "load employee")
	}
	return nil
}

func (s *Service) requireCompany(ctx context.Context, id int64) error {
	if _, err := s.store.GetCompany(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "company does not exist")
		}
		return translate(err, "load company")
	}
	return nil
}
