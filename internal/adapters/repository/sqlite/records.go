package sqlite

import (
	"time"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
	"github.com/ogurasousui/resource-allocation/internal/core/skill"
)

type employeeRecord struct {
	ID               string     `json:"employee_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Type             string     `json:"employee_type"`
	Department       string     `json:"department"`
	WorkingLocation  string     `json:"working_location"`
	Status           string     `json:"status"`
	IsBillable       bool       `json:"is_billable_resource"`
	JoiningDate      time.Time  `json:"joining_date"`
	ExitDate         *time.Time `json:"exit_date,omitempty"`
	BaseCostPerMonth float64    `json:"base_cost_per_month"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func newEmployeeRecord(e *employee.Employee) *employeeRecord {
	return &employeeRecord{
		ID:               e.ID,
		Name:             e.Name,
		Email:            e.Email,
		Type:             string(e.Type),
		Department:       e.Department,
		WorkingLocation:  e.WorkingLocation,
		Status:           string(e.Status),
		IsBillable:       e.IsBillable,
		JoiningDate:      e.JoiningDate,
		ExitDate:         copyTime(e.ExitDate),
		BaseCostPerMonth: e.BaseCostPerMonth,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func (r *employeeRecord) entity() *employee.Employee {
	return &employee.Employee{
		ID:               r.ID,
		Name:             r.Name,
		Email:            r.Email,
		Type:             employee.Type(r.Type),
		Department:       r.Department,
		WorkingLocation:  r.WorkingLocation,
		Status:           employee.Status(r.Status),
		IsBillable:       r.IsBillable,
		JoiningDate:      r.JoiningDate,
		ExitDate:         copyTime(r.ExitDate),
		BaseCostPerMonth: r.BaseCostPerMonth,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type projectRecord struct {
	ID                  string     `json:"project_id"`
	Code                string     `json:"project_code"`
	Name                string     `json:"project_name"`
	ClientName          *string    `json:"client_name,omitempty"`
	Description         string     `json:"description"`
	Status              string     `json:"status"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	BudgetCap           *float64   `json:"budget_cap,omitempty"`
	StrategicImportance int        `json:"strategic_importance"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func newProjectRecord(p *project.Project) *projectRecord {
	return &projectRecord{
		ID:                  p.ID,
		Code:                string(p.Code),
		Name:                p.Name,
		ClientName:          copyString(p.ClientName),
		Description:         p.Description,
		Status:              string(p.Status),
		StartDate:           p.StartDate,
		EndDate:             copyTime(p.EndDate),
		BudgetCap:           copyFloat(p.BudgetCap),
		StrategicImportance: p.StrategicImportance,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func (r *projectRecord) entity() *project.Project {
	return &project.Project{
		ID:                  r.ID,
		Code:                project.Code(r.Code),
		Name:                r.Name,
		ClientName:          copyString(r.ClientName),
		Description:         r.Description,
		Status:              project.Status(r.Status),
		StartDate:           r.StartDate,
		EndDate:             copyTime(r.EndDate),
		BudgetCap:           copyFloat(r.BudgetCap),
		StrategicImportance: r.StrategicImportance,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type assignmentRecord struct {
	ID                   string     `json:"assignment_id"`
	EmployeeID           string     `json:"employee_id"`
	ProjectID            string     `json:"project_id"`
	Role                 string     `json:"role"`
	AllocationPercentage int        `json:"allocation_percentage"`
	Status               string     `json:"status"`
	TransferType         string     `json:"transfer_type"`
	ReplacedAssignmentID *string    `json:"replaced_assignment_id,omitempty"`
	DateAllocated        time.Time  `json:"date_allocated"`
	DateExited           *time.Time `json:"date_exited,omitempty"`
	IsCriticalResource   bool       `json:"is_critical_resource"`
	CriticalityNotes     string     `json:"criticality_notes,omitempty"`
	CriticalitySetDate   *time.Time `json:"criticality_set_date,omitempty"`
	CriticalitySetBy     string     `json:"criticality_set_by,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func newAssignmentRecord(a *allocation.Assignment) *assignmentRecord {
	return &assignmentRecord{
		ID:                   a.ID,
		EmployeeID:           a.EmployeeID,
		ProjectID:            a.ProjectID,
		Role:                 a.Role,
		AllocationPercentage: a.AllocationPercentage,
		Status:               string(a.Status),
		TransferType:         string(a.TransferType),
		ReplacedAssignmentID: copyString(a.ReplacedAssignmentID),
		DateAllocated:        a.DateAllocated,
		DateExited:           copyTime(a.DateExited),
		IsCriticalResource:   a.IsCriticalResource,
		CriticalityNotes:     a.CriticalityNotes,
		CriticalitySetDate:   copyTime(a.CriticalitySetDate),
		CriticalitySetBy:     a.CriticalitySetBy,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func (r *assignmentRecord) entity() *allocation.Assignment {
	return &allocation.Assignment{
		ID:                   r.ID,
		EmployeeID:           r.EmployeeID,
		ProjectID:            r.ProjectID,
		Role:                 r.Role,
		AllocationPercentage: r.AllocationPercentage,
		Status:               allocation.Status(r.Status),
		TransferType:         allocation.TransferType(r.TransferType),
		ReplacedAssignmentID: copyString(r.ReplacedAssignmentID),
		DateAllocated:        r.DateAllocated,
		DateExited:           copyTime(r.DateExited),
		IsCriticalResource:   r.IsCriticalResource,
		CriticalityNotes:     r.CriticalityNotes,
		CriticalitySetDate:   copyTime(r.CriticalitySetDate),
		CriticalitySetBy:     r.CriticalitySetBy,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type skillRecord struct {
	ID          string    `json:"skill_id"`
	Name        string    `json:"skill_name"`
	Category    string    `json:"skill_category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newSkillRecord(s *skill.Skill) *skillRecord {
	return &skillRecord{
		ID:          s.ID,
		Name:        s.Name,
		Category:    string(s.Category),
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r *skillRecord) entity() *skill.Skill {
	return &skill.Skill{
		ID:          r.ID,
		Name:        r.Name,
		Category:    skill.Category(r.Category),
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type employeeSkillRecord struct {
	ID                string     `json:"employee_skill_id"`
	EmployeeID        string     `json:"employee_id"`
	SkillID           string     `json:"skill_id"`
	Proficiency       string     `json:"proficiency_level"`
	YearsOfExperience float64    `json:"years_of_experience"`
	LastUsedDate      *time.Time `json:"last_used_date,omitempty"`
	AcquiredDate      *time.Time `json:"acquired_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func newEmployeeSkillRecord(es *skill.EmployeeSkill) *employeeSkillRecord {
	return &employeeSkillRecord{
		ID:                es.ID,
		EmployeeID:        es.EmployeeID,
		SkillID:           es.SkillID,
		Proficiency:       string(es.Proficiency),
		YearsOfExperience: es.YearsOfExperience,
		LastUsedDate:      copyTime(es.LastUsedDate),
		AcquiredDate:      copyTime(es.AcquiredDate),
		CreatedAt:         es.CreatedAt,
		UpdatedAt:         es.UpdatedAt,
	}
}

func (r *employeeSkillRecord) entity() *skill.EmployeeSkill {
	return &skill.EmployeeSkill{
		ID:                r.ID,
		EmployeeID:        r.EmployeeID,
		SkillID:           r.SkillID,
		Proficiency:       skill.Proficiency(r.Proficiency),
		YearsOfExperience: r.YearsOfExperience,
		LastUsedDate:      copyTime(r.LastUsedDate),
		AcquiredDate:      copyTime(r.AcquiredDate),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
