package records

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"companyapp/pkg/platform/database"
	"companyapp/pkg/platform/sentinel"
	txcontext "companyapp/pkg/platform/tx"
	"companyapp/pkg/platform/uow"
)

var (
	//go:embed schema_sqlite.sql
	sqliteSchema string
	//go:embed schema_postgres.sql
	postgresSchema string
)

// Migrate creates the record tables for the database's dialect.
func Migrate(ctx context.Context, db *database.DB) error {
	schema := sqliteSchema
	if db.Dialect == uow.Postgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create record schema: %w", err)
	}
	return nil
}

// Store reads records. Writes go through the audited unit of work.
type Store struct {
	db      *sql.DB
	dialect uow.Dialect
}

func NewStore(db *sql.DB, dialect uow.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

const (
	companyColumns  = `id, name, tax_id, industry, address, founded_date, logo_path`
	employeeColumns = `id, name, position, email, company_id`
	missionColumns  = `id, title, description, create_date, deadline, status, company_id, employee_id`
)

func (s *Store) ph(n int) string { return s.dialect.Placeholder(n) }

func (s *Store) GetCompany(ctx context.Context, id int64) (Company, error) {
	q := `SELECT ` + companyColumns + ` FROM companies WHERE id = ` + s.ph(1)
	row := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, q, id)
	c, err := scanCompany(row)
	if err != nil {
		return Company{}, notFound(err, "company", id)
	}
	return c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	q := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ` + s.ph(1)
	row := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, q, id)
	e, err := scanEmployee(row)
	if err != nil {
		return Employee{}, notFound(err, "employee", id)
	}
	return e, nil
}

// ListEmployees returns all employees, or those of one company when
// companyID is positive.
func (s *Store) ListEmployees(ctx context.Context, companyID int64) ([]Employee, error) {
	q := `SELECT ` + employeeColumns + ` FROM employees`
	var args []any
	if companyID > 0 {
		q += ` WHERE company_id = ` + s.ph(1)
		args = append(args, companyID)
	}
	q += ` ORDER BY name, id`

	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetMission(ctx context.Context, id int64) (Mission, error) {
	q := `SELECT ` + missionColumns + ` FROM missions WHERE id = ` + s.ph(1)
	row := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, q, id)
	m, err := scanMission(row)
	if err != nil {
		return Mission{}, notFound(err, "mission", id)
	}
	return m, nil
}

// MissionFilter narrows ListMissions. Zero fields match everything.
type MissionFilter struct {
	CompanyID  int64
	EmployeeID int64
}

func (s *Store) ListMissions(ctx context.Context, filter MissionFilter) ([]Mission, error) {
	q := `SELECT ` + missionColumns + ` FROM missions WHERE 1 = 1`
	var args []any
	if filter.CompanyID > 0 {
		args = append(args, filter.CompanyID)
		q += ` AND company_id = ` + s.ph(len(args))
	}
	if filter.EmployeeID > 0 {
		args = append(args, filter.EmployeeID)
		q += ` AND employee_id = ` + s.ph(len(args))
	}
	q += ` ORDER BY deadline, id`

	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	defer rows.Close()

	var out []Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(row scanner) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.TaxID, &c.Industry, &c.Address, &c.FoundedDate, &c.LogoPath)
	c.FoundedDate = c.FoundedDate.UTC()
	return c, err
}

func scanEmployee(row scanner) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Position, &e.Email, &e.CompanyID)
	return e, err
}

func scanMission(row scanner) (Mission, error) {
	var m Mission
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.CreateDate, &m.Deadline, &m.Status, &m.CompanyID, &m.EmployeeID)
	m.CreateDate = m.CreateDate.UTC()
	m.Deadline = m.Deadline.UTC()
	return m, err
}

func notFound(err error, kind string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", kind, id, err)
}

// utcDate drops the clock part so dates compare equal after a round trip.
func utcDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
