package sqlite

import (
	"context"
	"errors"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
)

// AssignmentRepository は SQLite レコードストア上のアサインメントリポジトリです。
// 参照整合性はサービス層で検証済みである前提です。
type AssignmentRepository struct {
	store *Store
}

// Create はアサインメントを保存します。
func (r *AssignmentRepository) Create(ctx context.Context, a *allocation.Assignment) (*allocation.Assignment, error) {
	record := newAssignmentRecord(a)
	if err := r.store.insert(ctx, kindAssignment, a.ID, record); err != nil {
		return nil, translateAssignmentError(err)
	}
	return record.entity(), nil
}

// Update はアサインメントを上書きします。
func (r *AssignmentRepository) Update(ctx context.Context, a *allocation.Assignment) (*allocation.Assignment, error) {
	record := newAssignmentRecord(a)
	if err := r.store.replace(ctx, kindAssignment, a.ID, record); err != nil {
		return nil, translateAssignmentError(err)
	}
	return record.entity(), nil
}

// FindByID は ID でアサインメントを取得します。
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*allocation.Assignment, error) {
	var record assignmentRecord
	if err := r.store.get(ctx, kindAssignment, id, &record); err != nil {
		return nil, translateAssignmentError(err)
	}
	return record.entity(), nil
}

// List は登録順にアサインメントを返します。
func (r *AssignmentRepository) List(ctx context.Context, filter allocation.ListAssignmentsFilter) ([]*allocation.Assignment, string, error) {
	if filter.Limit <= 0 {
		return nil, "", allocation.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", allocation.ErrInvalidPageToken
	}

	var matches []match
	if filter.EmployeeID != "" {
		matches = append(matches, match{field: "employee_id", value: filter.EmployeeID})
	}
	if filter.ProjectID != "" {
		matches = append(matches, match{field: "project_id", value: filter.ProjectID})
	}
	if filter.Status != nil {
		matches = append(matches, match{field: "status", value: string(*filter.Status)})
	}

	assignments, err := r.list(ctx, matches, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, "", err
	}

	page, next := paginate(assignments, filter.Limit, filter.Offset)
	return page, next, nil
}

// ListActiveByEmployee は社員の Active なアサインメントをすべて返します。
func (r *AssignmentRepository) ListActiveByEmployee(ctx context.Context, employeeID string) ([]*allocation.Assignment, error) {
	return r.list(ctx, []match{
		{field: "employee_id", value: employeeID},
		{field: "status", value: string(allocation.StatusActive)},
	}, 0, 0)
}

// ListActiveByProject はプロジェクトの Active なアサインメントをすべて返します。
func (r *AssignmentRepository) ListActiveByProject(ctx context.Context, projectID string) ([]*allocation.Assignment, error) {
	return r.list(ctx, []match{
		{field: "project_id", value: projectID},
		{field: "status", value: string(allocation.StatusActive)},
	}, 0, 0)
}

func (r *AssignmentRepository) list(ctx context.Context, matches []match, limit, offset int) ([]*allocation.Assignment, error) {
	payloads, err := r.store.selectPayloads(ctx, kindAssignment, matches, orderBySeq, limit, offset)
	if err != nil {
		return nil, err
	}
	return decodeAll(payloads, (*assignmentRecord).entity)
}

func translateAssignmentError(err error) error {
	switch {
	case errors.Is(err, errRecordNotFound):
		return allocation.ErrAssignmentNotFound
	case errors.Is(err, errRecordExists):
		return allocation.ErrAssignmentAlreadyExists
	default:
		return err
	}
}
