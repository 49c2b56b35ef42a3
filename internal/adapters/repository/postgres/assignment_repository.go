package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
	pgdb "github.com/ogurasousui/resource-allocation/internal/platform/db/postgres"
)

const assignmentColumns = `assignment_id, employee_id, project_id, role, allocation_percentage, status, transfer_type,
               replaced_assignment_id, date_allocated, date_exited, is_critical_resource, criticality_notes,
               criticality_set_date, criticality_set_by, created_at, updated_at`

// AssignmentRepository は PostgreSQL を利用したアサインメント永続化の実装です。
type AssignmentRepository struct {
	pool pgdb.Queryer
}

// NewAssignmentRepository は AssignmentRepository を生成します。
func NewAssignmentRepository(pool pgdb.Queryer) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Create はアサインメントを作成します。
func (r *AssignmentRepository) Create(ctx context.Context, a *allocation.Assignment) (*allocation.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO project_assignments (assignment_id, employee_id, project_id, role, allocation_percentage, status, transfer_type,
                                         replaced_assignment_id, date_allocated, date_exited, is_critical_resource, criticality_notes,
                                         criticality_set_date, criticality_set_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING `+assignmentColumns,
		a.ID,
		a.EmployeeID,
		a.ProjectID,
		a.Role,
		a.AllocationPercentage,
		string(a.Status),
		string(a.TransferType),
		nullableString(a.ReplacedAssignmentID),
		dateOnly(a.DateAllocated),
		nullableDate(a.DateExited),
		a.IsCriticalResource,
		a.CriticalityNotes,
		nullableDate(a.CriticalitySetDate),
		a.CriticalitySetBy,
		a.CreatedAt,
		a.UpdatedAt,
	)

	created, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return created, nil
}

// Update はアサインメントの可変項目を更新します。
func (r *AssignmentRepository) Update(ctx context.Context, a *allocation.Assignment) (*allocation.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE project_assignments
           SET role = $1,
               allocation_percentage = $2,
               status = $3,
               date_exited = $4,
               is_critical_resource = $5,
               criticality_notes = $6,
               criticality_set_date = $7,
               criticality_set_by = $8,
               updated_at = $9
         WHERE assignment_id = $10
        RETURNING `+assignmentColumns,
		a.Role,
		a.AllocationPercentage,
		string(a.Status),
		nullableDate(a.DateExited),
		a.IsCriticalResource,
		a.CriticalityNotes,
		nullableDate(a.CriticalitySetDate),
		a.CriticalitySetBy,
		a.UpdatedAt,
		a.ID,
	)

	updated, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return updated, nil
}

// FindByID は ID でアサインメントを取得します。
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*allocation.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+assignmentColumns+`
          FROM project_assignments
         WHERE assignment_id = $1
         LIMIT 1
    `, id)

	found, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return found, nil
}

// List はアサインメントの一覧を取得します。
func (r *AssignmentRepository) List(ctx context.Context, filter allocation.ListAssignmentsFilter) ([]*allocation.Assignment, string, error) {
	if filter.Limit <= 0 {
		return nil, "", allocation.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", allocation.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 5)
	conditions := make([]string, 0, 3)

	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conditions = append(conditions, "project_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + assignmentColumns + `
          FROM project_assignments` + whereClause + `
         ORDER BY created_at, assignment_id
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	assignments, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}

	var nextToken string
	if len(assignments) == limitWithBuffer {
		assignments = assignments[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return assignments, nextToken, nil
}

// ListActiveByEmployee は社員の Active なアサインメントをすべて取得します。
func (r *AssignmentRepository) ListActiveByEmployee(ctx context.Context, employeeID string) ([]*allocation.Assignment, error) {
	return r.query(ctx, `
        SELECT `+assignmentColumns+`
          FROM project_assignments
         WHERE employee_id = $1 AND status = $2
         ORDER BY created_at, assignment_id
    `, employeeID, string(allocation.StatusActive))
}

// ListActiveByProject はプロジェクトの Active なアサインメントをすべて取得します。
func (r *AssignmentRepository) ListActiveByProject(ctx context.Context, projectID string) ([]*allocation.Assignment, error) {
	return r.query(ctx, `
        SELECT `+assignmentColumns+`
          FROM project_assignments
         WHERE project_id = $1 AND status = $2
         ORDER BY created_at, assignment_id
    `, projectID, string(allocation.StatusActive))
}

// LockEmployee は社員単位のアドバイザリロックを現在のトランザクションで取得します。
func (r *AssignmentRepository) LockEmployee(ctx context.Context, employeeID string) error {
	return pgdb.LockKey(ctx, "employee:"+employeeID)
}

func (r *AssignmentRepository) query(ctx context.Context, query string, args ...any) ([]*allocation.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	defer rows.Close()

	assignments := make([]*allocation.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, translateAssignmentPgError(err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, translateAssignmentPgError(err)
	}

	return assignments, nil
}

func scanAssignment(row pgx.Row) (*allocation.Assignment, error) {
	var (
		a             allocation.Assignment
		status        string
		transferType  string
		replacedID    sql.NullString
		dateAllocated time.Time
		dateExited    sql.NullTime
		criticalSetAt sql.NullTime
	)

	if err := row.Scan(
		&a.ID,
		&a.EmployeeID,
		&a.ProjectID,
		&a.Role,
		&a.AllocationPercentage,
		&status,
		&transferType,
		&replacedID,
		&dateAllocated,
		&dateExited,
		&a.IsCriticalResource,
		&a.CriticalityNotes,
		&criticalSetAt,
		&a.CriticalitySetBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, allocation.ErrAssignmentNotFound
		}
		return nil, err
	}

	a.Status = allocation.Status(status)
	a.TransferType = allocation.TransferType(transferType)
	a.ReplacedAssignmentID = scanString(replacedID)
	a.DateAllocated = dateOnly(dateAllocated)
	a.DateExited = scanDate(dateExited)
	a.CriticalitySetDate = scanDate(criticalSetAt)

	return &a, nil
}

func translateAssignmentPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return allocation.ErrAssignmentNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return allocation.ErrAssignmentAlreadyExists
		case foreignKeyViolationCode:
			switch pgErr.ConstraintName {
			case "project_assignments_employee_id_fkey":
				return employee.ErrEmployeeNotFound
			case "project_assignments_project_id_fkey":
				return project.ErrProjectNotFound
			case "project_assignments_replaced_assignment_id_fkey":
				return allocation.ErrAssignmentNotFound
			default:
				return err
			}
		case checkViolationCode:
			if pgErr.ConstraintName == "project_assignments_allocation_percentage_check" {
				return allocation.ErrInvalidAllocation
			}
		}
	}

	return err
}
