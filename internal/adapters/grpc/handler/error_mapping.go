package handler

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/dashboard"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
	"github.com/ogurasousui/resource-allocation/internal/core/skill"
)

const errorDomain = "resource-allocation"

var invalidArgumentErrors = []error{
	employee.ErrInvalidID,
	employee.ErrInvalidName,
	employee.ErrInvalidEmail,
	employee.ErrInvalidType,
	employee.ErrInvalidDepartment,
	employee.ErrInvalidLocation,
	employee.ErrInvalidStatus,
	employee.ErrInvalidBaseCost,
	employee.ErrInvalidJoiningDate,
	employee.ErrInvalidPageSize,
	employee.ErrInvalidPageToken,
	employee.ErrInvalidDateRange,
	project.ErrInvalidID,
	project.ErrInvalidName,
	project.ErrInvalidCode,
	project.ErrClientNameRequired,
	project.ErrInvalidDescription,
	project.ErrInvalidStatus,
	project.ErrInvalidStartDate,
	project.ErrInvalidDateRange,
	project.ErrInvalidBudgetCap,
	project.ErrInvalidImportance,
	project.ErrInvalidPageSize,
	project.ErrInvalidPageToken,
	allocation.ErrInvalidID,
	allocation.ErrInvalidEmployeeID,
	allocation.ErrInvalidProjectID,
	allocation.ErrInvalidRole,
	allocation.ErrInvalidAllocation,
	allocation.ErrInvalidNotes,
	allocation.ErrInvalidTransferType,
	allocation.ErrInvalidStatus,
	allocation.ErrInvalidDate,
	allocation.ErrInvalidPageSize,
	allocation.ErrInvalidPageToken,
	dashboard.ErrInvalidEmployeeID,
	skill.ErrInvalidID,
	skill.ErrInvalidName,
	skill.ErrInvalidCategory,
	skill.ErrInvalidDescription,
	skill.ErrInvalidEmployeeID,
	skill.ErrInvalidSkillID,
	skill.ErrInvalidProficiency,
	skill.ErrInvalidExperience,
	skill.ErrInvalidDate,
	skill.ErrInvalidAvailability,
	skill.ErrInvalidPageSize,
	skill.ErrInvalidPageToken,
}

var notFoundErrors = []error{
	employee.ErrEmployeeNotFound,
	project.ErrProjectNotFound,
	allocation.ErrAssignmentNotFound,
	skill.ErrSkillNotFound,
	skill.ErrEmployeeSkillNotFound,
}

var alreadyExistsErrors = []error{
	employee.ErrEmployeeAlreadyExists,
	project.ErrProjectAlreadyExists,
	allocation.ErrAssignmentAlreadyExists,
	skill.ErrSkillAlreadyExists,
	skill.ErrEmployeeSkillAlreadyExists,
}

func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	// RollbackFailedError は元の原因も Unwrap するため先に判定する
	if errors.Is(err, allocation.ErrRollbackFailed) {
		return status.Error(codes.DataLoss, err.Error())
	}

	var exceeded *allocation.AllocationExceededError
	if errors.As(err, &exceeded) {
		return withErrorInfo(codes.FailedPrecondition, err, "ALLOCATION_EXCEEDED", map[string]string{
			"current":   strconv.Itoa(exceeded.Current),
			"requested": strconv.Itoa(exceeded.Requested),
			"would_be":  strconv.Itoa(exceeded.WouldBe),
		})
	}
	if errors.Is(err, allocation.ErrAssignmentNotActive) {
		return withErrorInfo(codes.FailedPrecondition, err, "ASSIGNMENT_NOT_ACTIVE", nil)
	}

	switch {
	case isAny(err, invalidArgumentErrors):
		return status.Error(codes.InvalidArgument, err.Error())
	case isAny(err, notFoundErrors):
		return status.Error(codes.NotFound, err.Error())
	case isAny(err, alreadyExistsErrors):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func withErrorInfo(code codes.Code, err error, reason string, metadata map[string]string) error {
	st := status.New(code, err.Error())
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: metadata,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}
