package employee

import "time"

// Status は社員の在籍状態を表します。
type Status string

const (
	StatusActive Status = "Active"
	StatusExited Status = "Exited"
)

// Type は雇用形態を表します。
type Type string

const (
	TypeFullTime Type = "Full-Time"
	TypeIntern   Type = "Intern"
	TypeContract Type = "Contract"
)

// Employee は社員エンティティです。
// 物理削除は行わず、退職時は Status を Exited に変更します。
type Employee struct {
	ID               string
	Name             string
	Email            string
	Type             Type
	Department       string
	WorkingLocation  string
	Status           Status
	IsBillable       bool
	JoiningDate      time.Time
	ExitDate         *time.Time
	BaseCostPerMonth float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SubjectToAllocationCeiling は稼働率 100% 上限の対象かどうかを返します。
func (e *Employee) SubjectToAllocationCeiling() bool {
	return e != nil && e.IsBillable && e.Status == StatusActive
}
