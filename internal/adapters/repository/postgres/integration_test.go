//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
	"github.com/ogurasousui/resource-allocation/internal/platform/config"
	pgdb "github.com/ogurasousui/resource-allocation/internal/platform/db/postgres"
)

const repoRoot = "../../../.."

func TestAllocationLifecycleIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	migrationsDir, err := filepath.Abs(filepath.Join(repoRoot, "assets", "migrations"))
	if err != nil {
		t.Fatalf("failed to resolve migrations dir: %v", err)
	}
	if err := resetMigrations(cfg.Database.DSN(), filepath.ToSlash(migrationsDir)); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgdb.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	clock := stubClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	tx := pgdb.NewTransactionManager(pool)
	employees := NewEmployeeRepository(pool)
	projects := NewProjectRepository(pool)
	assignments := NewAssignmentRepository(pool)

	projectSvc := project.NewService(projects, clock, tx, nil)
	svc := allocation.NewService(assignments, employees, projects,
		allocation.WithClock(clock),
		allocation.WithTransactionManager(tx),
		allocation.WithStoreLocker(assignments),
	)
	employeeSvc := employee.NewService(employees, clock, tx, employee.WithCeilingGuard(svc))

	if _, err := employeeSvc.CreateEmployee(ctx, employee.CreateEmployeeInput{
		ID:               "EMP001",
		Name:             "Integration",
		Email:            "integration@example.com",
		Type:             employee.TypeFullTime,
		Department:       "Engineering",
		WorkingLocation:  "Tokyo",
		IsBillable:       true,
		JoiningDate:      time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		BaseCostPerMonth: 100000,
	}); err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}

	client := "Acme"
	active := project.StatusActive
	for _, id := range []string{"PRJ001", "PRJ002"} {
		if _, err := projectSvc.CreateProject(ctx, project.CreateProjectInput{
			ID:                  id,
			Code:                project.CodeClient,
			Name:                "Project " + id,
			ClientName:          &client,
			Status:              &active,
			StartDate:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			StrategicImportance: 5,
		}); err != nil {
			t.Fatalf("CreateProject %s error: %v", id, err)
		}
	}

	first, err := svc.CreateAssignment(ctx, allocation.CreateAssignmentInput{
		EmployeeID: "EMP001", ProjectID: "PRJ001", Role: "Lead", AllocationPercentage: 60,
	})
	if err != nil {
		t.Fatalf("CreateAssignment error: %v", err)
	}

	_, err = svc.CreateAssignment(ctx, allocation.CreateAssignmentInput{
		EmployeeID: "EMP001", ProjectID: "PRJ002", Role: "Reviewer", AllocationPercentage: 50,
	})
	var exceeded *allocation.AllocationExceededError
	if !errors.As(err, &exceeded) || exceeded.WouldBe != 110 {
		t.Fatalf("expected allocation exceeded at 110, got %v", err)
	}

	moved, err := svc.TransferAssignment(ctx, allocation.TransferAssignmentInput{
		FromAssignmentID: first.ID, ToProjectID: "PRJ002", AllocationPercentage: 100,
	})
	if err != nil {
		t.Fatalf("TransferAssignment error: %v", err)
	}
	if moved.ReplacedAssignmentID == nil || *moved.ReplacedAssignmentID != first.ID {
		t.Fatalf("unexpected replaced id: %v", moved.ReplacedAssignmentID)
	}

	source, err := assignments.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if source.Status != allocation.StatusTransferred {
		t.Fatalf("expected source to be Transferred, got %s", source.Status)
	}

	current, err := svc.CurrentAllocation(ctx, "EMP001")
	if err != nil {
		t.Fatalf("CurrentAllocation error: %v", err)
	}
	if current != 100 {
		t.Fatalf("expected 100, got %d", current)
	}

	cost, err := svc.ProjectMonthlyCost(ctx, "PRJ002")
	if err != nil {
		t.Fatalf("ProjectMonthlyCost error: %v", err)
	}
	if cost != 130000 {
		t.Fatalf("expected 130000, got %d", cost)
	}
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return filepath.Join(repoRoot, "assets", "local.yaml")
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
