package allocation

import "time"

// Status はアサインメントの状態を表します。
// Active から Completed / Transferred へ遷移した後は Active に戻りません。
type Status string

const (
	StatusActive      Status = "Active"
	StatusCompleted   Status = "Completed"
	StatusTransferred Status = "Transferred"
)

// TransferType はアサインメントの発生区分です。
type TransferType string

const (
	TransferTypeNew      TransferType = "New"
	TransferTypeInternal TransferType = "Transfer-Internal"
	TransferTypeClient   TransferType = "Transfer-Client"
	TransferTypeBackfill TransferType = "Backfill"
)

// Assignment は社員とプロジェクトの割り当てを表します。
type Assignment struct {
	ID                   string
	EmployeeID           string
	ProjectID            string
	Role                 string
	AllocationPercentage int
	Status               Status
	TransferType         TransferType
	ReplacedAssignmentID *string
	DateAllocated        time.Time
	DateExited           *time.Time
	IsCriticalResource   bool
	CriticalityNotes     string
	CriticalitySetDate   *time.Time
	CriticalitySetBy     string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsActive は稼働率の合算対象かどうかを返します。
func (a *Assignment) IsActive() bool {
	return a != nil && a.Status == StatusActive
}

// Clone は参照フィールドを含めて複製します。
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	clone := *a
	clone.ReplacedAssignmentID = cloneString(a.ReplacedAssignmentID)
	clone.DateExited = cloneTime(a.DateExited)
	clone.CriticalitySetDate = cloneTime(a.CriticalitySetDate)
	return &clone
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
