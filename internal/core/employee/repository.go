package employee

import "context"

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	FindByID(ctx context.Context, id string) (*Employee, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, string, error)
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	Status     *Status
	Billable   *bool
	Department string
	Limit      int
	Offset     int
}

// Matches はフィルタ条件に社員が合致するかを返します。Limit と Offset は考慮しません。
func (f ListEmployeesFilter) Matches(e *Employee) bool {
	if e == nil {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.Billable != nil && e.IsBillable != *f.Billable {
		return false
	}
	if f.Department != "" && e.Department != f.Department {
		return false
	}
	return true
}
