package allocation

import (
	"context"

	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
)

// Repository はアサインメント永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, assignment *Assignment) (*Assignment, error)
	Update(ctx context.Context, assignment *Assignment) (*Assignment, error)
	FindByID(ctx context.Context, id string) (*Assignment, error)
	List(ctx context.Context, filter ListAssignmentsFilter) ([]*Assignment, string, error)
	ListActiveByEmployee(ctx context.Context, employeeID string) ([]*Assignment, error)
	ListActiveByProject(ctx context.Context, projectID string) ([]*Assignment, error)
}

// EmployeeFinder は社員参照の抽象です。
type EmployeeFinder interface {
	FindByID(ctx context.Context, id string) (*employee.Employee, error)
}

// ProjectFinder はプロジェクト参照の抽象です。
type ProjectFinder interface {
	FindByID(ctx context.Context, id string) (*project.Project, error)
}

// StoreLocker はストア側で社員単位の排他を取ります。
// トランザクション内で呼ばれ、トランザクション終了時に解放される前提です。
type StoreLocker interface {
	LockEmployee(ctx context.Context, employeeID string) error
}

// ListAssignmentsFilter は一覧取得用フィルタです。
type ListAssignmentsFilter struct {
	EmployeeID string
	ProjectID  string
	Status     *Status
	Limit      int
	Offset     int
}

// Matches はフィルタ条件にアサインメントが合致するかを返します。Limit と Offset は考慮しません。
func (f ListAssignmentsFilter) Matches(a *Assignment) bool {
	if a == nil {
		return false
	}
	if f.EmployeeID != "" && a.EmployeeID != f.EmployeeID {
		return false
	}
	if f.ProjectID != "" && a.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return true
}
