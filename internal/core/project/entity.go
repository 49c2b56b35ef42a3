package project

import "time"

// Status はプロジェクトの状態を表します。
type Status string

const (
	StatusPlanning  Status = "Planning"
	StatusActive    Status = "Active"
	StatusOnHold    Status = "On-Hold"
	StatusCompleted Status = "Completed"
	StatusArchived  Status = "Archived"
)

// Code はプロジェクト区分コードです。
type Code string

const (
	CodeClient     Code = "C"
	CodeMarketing  Code = "M"
	CodeOperations Code = "O"
	CodeProduct    Code = "P"
	CodeResearch   Code = "R"
	CodeSupport    Code = "S"
	CodeUpgrade    Code = "U"
	CodeEnterprise Code = "E"
)

// RequiresClient はクライアント名が必須の区分かどうかを返します。
func (c Code) RequiresClient() bool {
	switch c {
	case CodeClient, CodeUpgrade, CodeEnterprise, CodeSupport:
		return true
	default:
		return false
	}
}

// Project はプロジェクトエンティティです。
// BudgetCap は参考値であり、稼働率やコスト計算では強制しません。
type Project struct {
	ID                  string
	Code                Code
	Name                string
	ClientName          *string
	Description         string
	Status              Status
	StartDate           time.Time
	EndDate             *time.Time
	BudgetCap           *float64
	StrategicImportance int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
