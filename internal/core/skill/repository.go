package skill

import (
	"context"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
)

// Repository はスキルカタログ永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, skill *Skill) (*Skill, error)
	FindByID(ctx context.Context, id string) (*Skill, error)
	List(ctx context.Context, filter ListSkillsFilter) ([]*Skill, string, error)
}

// EmployeeSkillRepository は社員スキル永続化の抽象です。
type EmployeeSkillRepository interface {
	Create(ctx context.Context, es *EmployeeSkill) (*EmployeeSkill, error)
	Update(ctx context.Context, es *EmployeeSkill) (*EmployeeSkill, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*EmployeeSkill, error)
	List(ctx context.Context, filter EmployeeSkillFilter) ([]*EmployeeSkill, error)
}

// EmployeeFinder は社員参照の抽象です。
type EmployeeFinder interface {
	FindByID(ctx context.Context, id string) (*employee.Employee, error)
}

// AllocationReader は社員の Active なアサインメントを参照します。
type AllocationReader interface {
	ListActiveByEmployee(ctx context.Context, employeeID string) ([]*allocation.Assignment, error)
}

// ListSkillsFilter はカタログ一覧用フィルタです。
type ListSkillsFilter struct {
	Category *Category
	Limit    int
	Offset   int
}

// Matches はフィルタ条件にスキルが合致するかを返します。
func (f ListSkillsFilter) Matches(s *Skill) bool {
	if s == nil {
		return false
	}
	return f.Category == nil || s.Category == *f.Category
}

// EmployeeSkillFilter は社員スキル一覧用フィルタです。空の条件は無視します。
type EmployeeSkillFilter struct {
	EmployeeID string
	SkillID    string
}

// Matches はフィルタ条件に社員スキルが合致するかを返します。
func (f EmployeeSkillFilter) Matches(es *EmployeeSkill) bool {
	if es == nil {
		return false
	}
	if f.EmployeeID != "" && es.EmployeeID != f.EmployeeID {
		return false
	}
	if f.SkillID != "" && es.SkillID != f.SkillID {
		return false
	}
	return true
}
