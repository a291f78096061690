package records

import (
	"fmt"
	"strings"
	"time"
)

// Company is a customer or vendor.
type Company struct {
	ID          int64     `db:"id,key,generated" json:"id"`
	Name        string    `db:"name" json:"name"`
	TaxID       string    `db:"tax_id" json:"taxId"`
	Industry    string    `db:"industry" json:"industry"`
	Address     string    `db:"address" json:"address"`
	FoundedDate time.Time `db:"founded_date" json:"foundedDate"`
	LogoPath    string    `db:"logo_path" json:"logoPath"`
}

// Employee belongs to one company.
type Employee struct {
	ID        int64  `db:"id,key,generated" json:"id"`
	Name      string `db:"name" json:"name"`
	Position  string `db:"position" json:"position"`
	Email     string `db:"email" json:"email"`
	CompanyID int64  `db:"company_id" json:"companyId"`
}

// Mission is a task for a company assigned to one employee. CreateDate is
// set by the database when left zero.
type Mission struct {
	ID          int64         `db:"id,key,generated" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	CreateDate  time.Time     `db:"create_date,generated" json:"createDate"`
	Deadline    time.Time     `db:"deadline" json:"deadline"`
	Status      MissionStatus `db:"status" json:"status"`
	CompanyID   int64         `db:"company_id" json:"companyId"`
	EmployeeID  int64         `db:"employee_id" json:"employeeId"`
}

// MissionStatus is stored as an integer and rendered by name.
type MissionStatus int

const (
	MissionPending MissionStatus = iota
	MissionProcessing
	MissionCompleted
)

var missionStatusNames = map[MissionStatus]string{
	MissionPending:    "Pending",
	MissionProcessing: "Processing",
	MissionCompleted:  "Completed",
}

func (s MissionStatus) String() string {
	if name, ok := missionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("MissionStatus(%d)", int(s))
}

func (s MissionStatus) IsValid() bool {
	_, ok := missionStatusNames[s]
	return ok
}

// CanTransitionTo reports whether a mission may move from s to next. Status
// only moves forward.
func (s MissionStatus) CanTransitionTo(next MissionStatus) bool {
	return s.IsValid() && next.IsValid() && next > s
}

func (s MissionStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid mission status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *MissionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseMissionStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseMissionStatus accepts a status name, case-insensitively.
func ParseMissionStatus(name string) (MissionStatus, error) {
	for s, n := range missionStatusNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown mission status %q", name)
}
