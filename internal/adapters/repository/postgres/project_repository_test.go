package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

var projectMockColumns = []string{
	"project_id", "project_code", "project_name", "client_name", "description", "status",
	"start_date", "end_date", "budget_cap", "strategic_importance", "created_at", "updated_at",
}

func TestScanProject_Success(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		if len(dest) != 12 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "PRJ001"
		*(dest[1].(*string)) = string(project.CodeClient)
		*(dest[2].(*string)) = "Billing Revamp"

		clientDest := dest[3].(*sql.NullString)
		clientDest.String = "ACME"
		clientDest.Valid = true

		*(dest[4].(*string)) = ""
		*(dest[5].(*string)) = string(project.StatusActive)
		*(dest[6].(*time.Time)) = start

		endDest := dest[7].(*sql.NullTime)
		endDest.Time = end
		endDest.Valid = true

		budgetDest := dest[8].(*sql.NullFloat64)
		budgetDest.Float64 = 5000000
		budgetDest.Valid = true

		*(dest[9].(*int)) = 8
		*(dest[10].(*time.Time)) = now
		*(dest[11].(*time.Time)) = now
		return nil
	}}

	p, err := scanProject(row)
	if err != nil {
		t.Fatalf("scanProject returned error: %v", err)
	}

	if p.Code != project.CodeClient || p.Status != project.StatusActive {
		t.Fatalf("unexpected code/status: %s/%s", p.Code, p.Status)
	}
	if p.ClientName == nil || *p.ClientName != "ACME" {
		t.Fatalf("expected client name, got %+v", p.ClientName)
	}
	if p.EndDate == nil || !p.EndDate.Equal(end) {
		t.Fatalf("expected end date, got %+v", p.EndDate)
	}
	if p.BudgetCap == nil || *p.BudgetCap != 5000000 {
		t.Fatalf("expected budget cap, got %+v", p.BudgetCap)
	}
	if p.StrategicImportance != 8 {
		t.Fatalf("expected importance 8, got %d", p.StrategicImportance)
	}
}

func TestScanProject_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		return pgx.ErrNoRows
	}}

	if _, err := scanProject(row); !errors.Is(err, project.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestTranslateProjectPgError(t *testing.T) {
	t.Parallel()

	uniqueErr := &pgconn.PgError{Code: uniqueViolationCode}
	if !errors.Is(translateProjectPgError(uniqueErr), project.ErrProjectAlreadyExists) {
		t.Fatalf("expected unique violation to map to ErrProjectAlreadyExists")
	}

	checkErr := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "projects_period_check"}
	if !errors.Is(translateProjectPgError(checkErr), project.ErrInvalidDateRange) {
		t.Fatalf("expected period check violation to map to ErrInvalidDateRange")
	}

	other := errors.New("other")
	if translateProjectPgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestProjectRepository_List_ByCode(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewProjectRepository(mock)
	code := project.CodeResearch

	now := time.Now().UTC()
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(projectMockColumns).
		AddRow("PRJ010", "R", "Vector Search", nil, "PoC", "Planning", start, nil, nil, 5, now, now)

	mock.ExpectQuery(sqlPattern(
		"FROM projects WHERE project_code = $1",
		"ORDER BY created_at, project_id",
		"LIMIT $2",
		"OFFSET $3",
	)).
		WithArgs("R", 11, 10).
		WillReturnRows(rows)

	projects, nextToken, err := repo.List(context.Background(), project.ListProjectsFilter{
		Code:   &code,
		Limit:  10,
		Offset: 10,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	if projects[0].ClientName != nil || projects[0].BudgetCap != nil || projects[0].EndDate != nil {
		t.Fatalf("expected optional fields to be nil: %+v", projects[0])
	}
	if nextToken != "" {
		t.Fatalf("expected empty next token, got %s", nextToken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProjectRepository_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewProjectRepository(mock)

	mock.ExpectQuery(sqlPattern("FROM projects", "WHERE project_id = $1")).
		WithArgs("PRJ404").
		WillReturnRows(pgxmock.NewRows(projectMockColumns))

	if _, err := repo.FindByID(context.Background(), "PRJ404"); !errors.Is(err, project.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}
