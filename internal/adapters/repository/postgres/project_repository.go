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
	"github.com/ogurasousui/resource-allocation/internal/core/project"
	pgdb "github.com/ogurasousui/resource-allocation/internal/platform/db/postgres"
)

const projectColumns = `project_id, project_code, project_name, client_name, description, status,
               start_date, end_date, budget_cap, strategic_importance, created_at, updated_at`

// ProjectRepository は PostgreSQL を利用したプロジェクト永続化の実装です。
type ProjectRepository struct {
	pool pgdb.Queryer
}

// NewProjectRepository は ProjectRepository を生成します。
func NewProjectRepository(pool pgdb.Queryer) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// Create はプロジェクトを作成します。
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) (*project.Project, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO projects (project_id, project_code, project_name, client_name, description, status,
                              start_date, end_date, budget_cap, strategic_importance, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+projectColumns,
		p.ID,
		string(p.Code),
		p.Name,
		nullableString(p.ClientName),
		p.Description,
		string(p.Status),
		dateOnly(p.StartDate),
		nullableDate(p.EndDate),
		nullableFloat(p.BudgetCap),
		p.StrategicImportance,
		p.CreatedAt,
		p.UpdatedAt,
	)

	created, err := scanProject(row)
	if err != nil {
		return nil, translateProjectPgError(err)
	}
	return created, nil
}

// Update はプロジェクトを更新します。
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project) (*project.Project, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE projects
           SET project_name = $1,
               client_name = $2,
               description = $3,
               status = $4,
               end_date = $5,
               budget_cap = $6,
               strategic_importance = $7,
               updated_at = $8
         WHERE project_id = $9
        RETURNING `+projectColumns,
		p.Name,
		nullableString(p.ClientName),
		p.Description,
		string(p.Status),
		nullableDate(p.EndDate),
		nullableFloat(p.BudgetCap),
		p.StrategicImportance,
		p.UpdatedAt,
		p.ID,
	)

	updated, err := scanProject(row)
	if err != nil {
		return nil, translateProjectPgError(err)
	}
	return updated, nil
}

// FindByID は ID でプロジェクトを取得します。
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*project.Project, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+projectColumns+`
          FROM projects
         WHERE project_id = $1
         LIMIT 1
    `, id)

	found, err := scanProject(row)
	if err != nil {
		return nil, translateProjectPgError(err)
	}
	return found, nil
}

// List はプロジェクトの一覧を取得します。
func (r *ProjectRepository) List(ctx context.Context, filter project.ListProjectsFilter) ([]*project.Project, string, error) {
	if filter.Limit <= 0 {
		return nil, "", project.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", project.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 2)

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Code != nil {
		args = append(args, string(*filter.Code))
		conditions = append(conditions, "project_code = $"+strconv.Itoa(len(args)))
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
        SELECT ` + projectColumns + `
          FROM projects` + whereClause + `
         ORDER BY created_at, project_id
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateProjectPgError(err)
	}
	defer rows.Close()

	projects := make([]*project.Project, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, "", translateProjectPgError(err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateProjectPgError(err)
	}

	var nextToken string
	if len(projects) == limitWithBuffer {
		projects = projects[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return projects, nextToken, nil
}

func scanProject(row pgx.Row) (*project.Project, error) {
	var (
		p          project.Project
		code       string
		clientName sql.NullString
		status     string
		startDate  time.Time
		endDate    sql.NullTime
		budgetCap  sql.NullFloat64
	)

	if err := row.Scan(
		&p.ID,
		&code,
		&p.Name,
		&clientName,
		&p.Description,
		&status,
		&startDate,
		&endDate,
		&budgetCap,
		&p.StrategicImportance,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, err
	}

	p.Code = project.Code(code)
	p.ClientName = scanString(clientName)
	p.Status = project.Status(status)
	p.StartDate = dateOnly(startDate)
	p.EndDate = scanDate(endDate)
	if budgetCap.Valid {
		v := budgetCap.Float64
		p.BudgetCap = &v
	}

	return &p, nil
}

func translateProjectPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return project.ErrProjectNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return project.ErrProjectAlreadyExists
		case checkViolationCode:
			if pgErr.ConstraintName == "projects_period_check" {
				return project.ErrInvalidDateRange
			}
		}
	}

	return err
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
