package sqlite

import (
	"context"
	"errors"

	"github.com/ogurasousui/resource-allocation/internal/core/employee"
)

// EmployeeRepository は SQLite レコードストア上の社員リポジトリです。
type EmployeeRepository struct {
	store *Store
}

// Create は社員を保存します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	record := newEmployeeRecord(e)
	if err := r.store.insert(ctx, kindEmployee, e.ID, record); err != nil {
		return nil, translateEmployeeError(err)
	}
	return record.entity(), nil
}

// Update は社員を上書きします。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	record := newEmployeeRecord(e)
	if err := r.store.replace(ctx, kindEmployee, e.ID, record); err != nil {
		return nil, translateEmployeeError(err)
	}
	return record.entity(), nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	var record employeeRecord
	if err := r.store.get(ctx, kindEmployee, id, &record); err != nil {
		return nil, translateEmployeeError(err)
	}
	return record.entity(), nil
}

// List は社員 ID 順に一覧を返します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	if filter.Limit <= 0 {
		return nil, "", employee.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", employee.ErrInvalidPageToken
	}

	var matches []match
	if filter.Status != nil {
		matches = append(matches, match{field: "status", value: string(*filter.Status)})
	}
	if filter.Billable != nil {
		matches = append(matches, match{field: "is_billable_resource", value: jsonBool(*filter.Billable)})
	}
	if filter.Department != "" {
		matches = append(matches, match{field: "department", value: filter.Department})
	}

	payloads, err := r.store.selectPayloads(ctx, kindEmployee, matches, orderByID, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, "", err
	}
	employees, err := decodeAll(payloads, (*employeeRecord).entity)
	if err != nil {
		return nil, "", err
	}

	page, next := paginate(employees, filter.Limit, filter.Offset)
	return page, next, nil
}

func translateEmployeeError(err error) error {
	switch {
	case errors.Is(err, errRecordNotFound):
		return employee.ErrEmployeeNotFound
	case errors.Is(err, errRecordExists):
		return employee.ErrEmployeeAlreadyExists
	default:
		return err
	}
}
