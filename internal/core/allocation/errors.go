package allocation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID               = errors.New("allocation: invalid assignment id")
	ErrInvalidEmployeeID       = errors.New("allocation: invalid employee id")
	ErrInvalidProjectID        = errors.New("allocation: invalid project id")
	ErrInvalidRole             = errors.New("allocation: invalid role")
	ErrInvalidAllocation       = errors.New("allocation: allocation percentage must be between 1 and 100")
	ErrInvalidNotes            = errors.New("allocation: criticality notes too long")
	ErrInvalidTransferType     = errors.New("allocation: invalid transfer type")
	ErrInvalidStatus           = errors.New("allocation: invalid status")
	ErrInvalidDate             = errors.New("allocation: invalid date")
	ErrInvalidPageSize         = errors.New("allocation: invalid page size")
	ErrInvalidPageToken        = errors.New("allocation: invalid page token")
	ErrAssignmentNotFound      = errors.New("allocation: assignment not found")
	ErrAssignmentAlreadyExists = errors.New("allocation: assignment id already exists")
	ErrAssignmentNotActive     = errors.New("allocation: assignment is not active")
	ErrAllocationExceeded      = errors.New("allocation: allocation exceeds 100%")
	// ErrRollbackFailed は移管失敗後の復元にも失敗したことを表します。手動での整合が必要です。
	ErrRollbackFailed = errors.New("allocation: transfer rollback failed")
	// ErrPersistence はストアの I/O 失敗を表します。
	ErrPersistence = errors.New("allocation: persistence failure")
)

// AllocationExceededError は上限超過時の診断値を保持します。
type AllocationExceededError struct {
	Current   int
	Requested int
	WouldBe   int
}

func (e *AllocationExceededError) Error() string {
	return fmt.Sprintf("allocation exceeds 100%%. Current: %d%%, Requested: %d%%, Would be: %d%%", e.Current, e.Requested, e.WouldBe)
}

// Is は ErrAllocationExceeded との比較を可能にします。
func (e *AllocationExceededError) Is(target error) bool {
	return target == ErrAllocationExceeded
}

// RollbackFailedError は移管の補償処理が失敗した状態を表します。
// 移管元アサインメントは Transferred のまま残っている可能性があります。
type RollbackFailedError struct {
	AssignmentID string
	Cause        error
	RollbackErr  error
}

func (e *RollbackFailedError) Error() string {
	return fmt.Sprintf("allocation: rollback of assignment %s failed: %v (transfer error: %v)", e.AssignmentID, e.RollbackErr, e.Cause)
}

func (e *RollbackFailedError) Is(target error) bool {
	return target == ErrRollbackFailed
}

func (e *RollbackFailedError) Unwrap() []error {
	return []error{e.Cause, e.RollbackErr}
}
