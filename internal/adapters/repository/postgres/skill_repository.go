package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/skill"
	pgdb "github.com/ogurasousui/resource-allocation/internal/platform/db/postgres"
)

const skillColumns = `skill_id, skill_name, skill_category, description, created_at, updated_at`

const employeeSkillColumns = `employee_skill_id, employee_id, skill_id, proficiency_level, years_of_experience,
               last_used_date, acquired_date, created_at, updated_at`

// SkillRepository は PostgreSQL を利用したスキルカタログの実装です。
type SkillRepository struct {
	pool pgdb.Queryer
}

// NewSkillRepository は SkillRepository を生成します。
func NewSkillRepository(pool pgdb.Queryer) *SkillRepository {
	return &SkillRepository{pool: pool}
}

// Create はスキルを登録します。
func (r *SkillRepository) Create(ctx context.Context, s *skill.Skill) (*skill.Skill, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO skills (skill_id, skill_name, skill_category, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+skillColumns,
		s.ID,
		s.Name,
		string(s.Category),
		s.Description,
		s.CreatedAt,
		s.UpdatedAt,
	)

	created, err := scanSkill(row)
	if err != nil {
		return nil, translateSkillPgError(err)
	}
	return created, nil
}

// FindByID は ID でスキルを取得します。
func (r *SkillRepository) FindByID(ctx context.Context, id string) (*skill.Skill, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+skillColumns+`
          FROM skills
         WHERE skill_id = $1
         LIMIT 1
    `, id)

	found, err := scanSkill(row)
	if err != nil {
		return nil, translateSkillPgError(err)
	}
	return found, nil
}

// List はスキルを登録順に返します。
func (r *SkillRepository) List(ctx context.Context, filter skill.ListSkillsFilter) ([]*skill.Skill, string, error) {
	if filter.Limit <= 0 {
		return nil, "", skill.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", skill.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 3)
	whereClause := ""
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		whereClause = " WHERE skill_category = $1"
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + skillColumns + `
          FROM skills` + whereClause + `
         ORDER BY created_at, skill_id
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateSkillPgError(err)
	}
	defer rows.Close()

	skills := make([]*skill.Skill, 0, filter.Limit)
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, "", translateSkillPgError(err)
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateSkillPgError(err)
	}

	var nextToken string
	if len(skills) == limitWithBuffer {
		skills = skills[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return skills, nextToken, nil
}

// EmployeeSkillRepository は PostgreSQL を利用した社員スキルの実装です。
type EmployeeSkillRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeSkillRepository は EmployeeSkillRepository を生成します。
func NewEmployeeSkillRepository(pool pgdb.Queryer) *EmployeeSkillRepository {
	return &EmployeeSkillRepository{pool: pool}
}

// Create は社員スキルを登録します。
func (r *EmployeeSkillRepository) Create(ctx context.Context, es *skill.EmployeeSkill) (*skill.EmployeeSkill, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employee_skills (employee_skill_id, employee_id, skill_id, proficiency_level, years_of_experience,
                                     last_used_date, acquired_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+employeeSkillColumns,
		es.ID,
		es.EmployeeID,
		es.SkillID,
		string(es.Proficiency),
		es.YearsOfExperience,
		nullableDate(es.LastUsedDate),
		nullableDate(es.AcquiredDate),
		es.CreatedAt,
		es.UpdatedAt,
	)

	created, err := scanEmployeeSkill(row)
	if err != nil {
		return nil, translateEmployeeSkillPgError(err)
	}
	return created, nil
}

// Update は習熟度、経験年数、最終利用日を更新します。
func (r *EmployeeSkillRepository) Update(ctx context.Context, es *skill.EmployeeSkill) (*skill.EmployeeSkill, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employee_skills
           SET proficiency_level = $1,
               years_of_experience = $2,
               last_used_date = $3,
               updated_at = $4
         WHERE employee_skill_id = $5
        RETURNING `+employeeSkillColumns,
		string(es.Proficiency),
		es.YearsOfExperience,
		nullableDate(es.LastUsedDate),
		es.UpdatedAt,
		es.ID,
	)

	updated, err := scanEmployeeSkill(row)
	if err != nil {
		return nil, translateEmployeeSkillPgError(err)
	}
	return updated, nil
}

// Delete は社員スキルを削除します。
func (r *EmployeeSkillRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employee_skills WHERE employee_skill_id = $1`, id)
	if err != nil {
		return translateEmployeeSkillPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return skill.ErrEmployeeSkillNotFound
	}
	return nil
}

// FindByID は ID で社員スキルを取得します。
func (r *EmployeeSkillRepository) FindByID(ctx context.Context, id string) (*skill.EmployeeSkill, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeSkillColumns+`
          FROM employee_skills
         WHERE employee_skill_id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployeeSkill(row)
	if err != nil {
		return nil, translateEmployeeSkillPgError(err)
	}
	return found, nil
}

// List は条件に合う社員スキルを登録順にすべて返します。
func (r *EmployeeSkillRepository) List(ctx context.Context, filter skill.EmployeeSkillFilter) ([]*skill.EmployeeSkill, error) {
	args := make([]any, 0, 2)
	conditions := make([]string, 0, 2)
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if filter.SkillID != "" {
		args = append(args, filter.SkillID)
		conditions = append(conditions, "skill_id = $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeSkillColumns+`
          FROM employee_skills`+whereClause+`
         ORDER BY created_at, employee_skill_id
    `, args...)
	if err != nil {
		return nil, translateEmployeeSkillPgError(err)
	}
	defer rows.Close()

	var out []*skill.EmployeeSkill
	for rows.Next() {
		es, err := scanEmployeeSkill(rows)
		if err != nil {
			return nil, translateEmployeeSkillPgError(err)
		}
		out = append(out, es)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeeSkillPgError(err)
	}
	return out, nil
}

func scanSkill(row pgx.Row) (*skill.Skill, error) {
	var (
		s        skill.Skill
		category string
	)
	if err := row.Scan(&s.ID, &s.Name, &category, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, skill.ErrSkillNotFound
		}
		return nil, err
	}
	s.Category = skill.Category(category)
	return &s, nil
}

func scanEmployeeSkill(row pgx.Row) (*skill.EmployeeSkill, error) {
	var (
		es          skill.EmployeeSkill
		proficiency string
		lastUsed    sql.NullTime
		acquired    sql.NullTime
	)
	if err := row.Scan(
		&es.ID,
		&es.EmployeeID,
		&es.SkillID,
		&proficiency,
		&es.YearsOfExperience,
		&lastUsed,
		&acquired,
		&es.CreatedAt,
		&es.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, skill.ErrEmployeeSkillNotFound
		}
		return nil, err
	}
	es.Proficiency = skill.Proficiency(proficiency)
	es.LastUsedDate = scanDate(lastUsed)
	es.AcquiredDate = scanDate(acquired)
	return &es, nil
}

func translateSkillPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return skill.ErrSkillNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return skill.ErrSkillAlreadyExists
		case checkViolationCode:
			return skill.ErrInvalidCategory
		}
	}
	return err
}

func translateEmployeeSkillPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return skill.ErrEmployeeSkillNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return skill.ErrEmployeeSkillAlreadyExists
		case foreignKeyViolationCode:
			switch pgErr.ConstraintName {
			case "employee_skills_employee_id_fkey":
				return employee.ErrEmployeeNotFound
			case "employee_skills_skill_id_fkey":
				return skill.ErrSkillNotFound
			}
		case checkViolationCode:
			switch pgErr.ConstraintName {
			case "employee_skills_dates_check":
				return skill.ErrInvalidDate
			case "employee_skills_years_of_experience_check":
				return skill.ErrInvalidExperience
			case "employee_skills_proficiency_level_check":
				return skill.ErrInvalidProficiency
			}
		}
	}
	return err
}
