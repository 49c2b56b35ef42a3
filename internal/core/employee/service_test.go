package employee

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeEmployeeRepo struct {
	employees map[string]*Employee
	order     []string
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[string]*Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	if _, ok := r.employees[e.ID]; ok {
		return nil, ErrEmployeeAlreadyExists
	}
	r.employees[e.ID] = cloneEmployee(e)
	r.order = append(r.order, e.ID)
	return cloneEmployee(e), nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, e *Employee) (*Employee, error) {
	if _, ok := r.employees[e.ID]; !ok {
		return nil, ErrEmployeeNotFound
	}
	r.employees[e.ID] = cloneEmployee(e)
	return cloneEmployee(e), nil
}

func (r *fakeEmployeeRepo) FindByID(_ context.Context, id string) (*Employee, error) {
	emp, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return cloneEmployee(emp), nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter ListEmployeesFilter) ([]*Employee, string, error) {
	var filtered []*Employee
	for _, id := range r.order {
		emp := r.employees[id]
		if !filter.Matches(emp) {
			continue
		}
		filtered = append(filtered, cloneEmployee(emp))
	}

	if filter.Offset > len(filtered) {
		return []*Employee{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	nextToken := ""
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}

	return filtered[filter.Offset:end], nextToken, nil
}

func cloneEmployee(emp *Employee) *Employee {
	if emp == nil {
		return nil
	}
	copy := *emp
	copy.ExitDate = cloneTime(emp.ExitDate)
	return &copy
}

func validCreateInput(id string) CreateEmployeeInput {
	return CreateEmployeeInput{
		ID:               id,
		Name:             "Asha Rao",
		Email:            id + "@example.com",
		Type:             TypeFullTime,
		Department:       "Engineering",
		WorkingLocation:  "Pune",
		IsBillable:       true,
		JoiningDate:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		BaseCostPerMonth: 80000,
	}
}

func TestService_CreateEmployee_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	now := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	svc := NewService(repo, &stubClock{now: now}, nil)

	in := validCreateInput(" EMP001 ")
	in.Email = "Asha.Rao@Example.com"
	in.Name = "  Asha Rao "

	created, err := svc.CreateEmployee(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if created.ID != "EMP001" {
		t.Fatalf("expected trimmed id, got %q", created.ID)
	}
	if created.Email != "asha.rao@example.com" {
		t.Fatalf("expected normalized email, got %s", created.Email)
	}
	if created.Name != "Asha Rao" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.Status != StatusActive {
		t.Fatalf("expected default status Active, got %s", created.Status)
	}
	if !created.SubjectToAllocationCeiling() {
		t.Fatalf("expected billable active employee to be subject to ceiling")
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps to use clock now")
	}
}

func TestService_CreateEmployee_DuplicateID(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, nil)

	if _, err := svc.CreateEmployee(context.Background(), validCreateInput("EMP001")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.CreateEmployee(context.Background(), validCreateInput("EMP001"))
	if !errors.Is(err, ErrEmployeeAlreadyExists) {
		t.Fatalf("expected ErrEmployeeAlreadyExists, got %v", err)
	}
}

func TestService_CreateEmployee_ValidationErrors(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 1)
	beforeJoining := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(*CreateEmployeeInput)
		want   error
	}{
		{"empty id", func(in *CreateEmployeeInput) { in.ID = " " }, ErrInvalidID},
		{"id too long", func(in *CreateEmployeeInput) { in.ID = "EMP0000000000000000001" }, ErrInvalidID},
		{"id with spaces", func(in *CreateEmployeeInput) { in.ID = "EMP 1" }, ErrInvalidID},
		{"empty name", func(in *CreateEmployeeInput) { in.Name = "" }, ErrInvalidName},
		{"bad email", func(in *CreateEmployeeInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"bad type", func(in *CreateEmployeeInput) { in.Type = "Part-Time" }, ErrInvalidType},
		{"no department", func(in *CreateEmployeeInput) { in.Department = " " }, ErrInvalidDepartment},
		{"no location", func(in *CreateEmployeeInput) { in.WorkingLocation = "" }, ErrInvalidLocation},
		{"negative cost", func(in *CreateEmployeeInput) { in.BaseCostPerMonth = -1 }, ErrInvalidBaseCost},
		{"future joining", func(in *CreateEmployeeInput) { in.JoiningDate = future }, ErrInvalidJoiningDate},
		{"missing joining", func(in *CreateEmployeeInput) { in.JoiningDate = time.Time{} }, ErrInvalidJoiningDate},
		{"exit before joining", func(in *CreateEmployeeInput) { in.ExitDate = &beforeJoining }, ErrInvalidDateRange},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := NewService(newFakeEmployeeRepo(), &stubClock{now: now}, nil)
			in := validCreateInput("EMP001")
			tc.mutate(&in)

			if _, err := svc.CreateEmployee(context.Background(), in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestService_UpdateEmployee_ExitAndBillable(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	clk := &stubClock{now: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clk, nil)

	created, err := svc.CreateEmployee(context.Background(), validCreateInput("EMP002"))
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	clk.now = clk.now.Add(time.Hour)

	exited := StatusExited
	billable := false
	cost := 95000.5
	exitDate := time.Date(2025, 1, 31, 15, 0, 0, 0, time.UTC)

	updated, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{
		ID:               created.ID,
		Status:           &exited,
		IsBillable:       &billable,
		BaseCostPerMonth: &cost,
		ExitDate:         &exitDate,
		ExitDateSet:      true,
	})
	if err != nil {
		t.Fatalf("UpdateEmployee returned error: %v", err)
	}

	if updated.Status != StatusExited || updated.IsBillable {
		t.Fatalf("unexpected status/billable: %s %t", updated.Status, updated.IsBillable)
	}
	if updated.BaseCostPerMonth != 95000.5 {
		t.Fatalf("expected base cost to round-trip, got %v", updated.BaseCostPerMonth)
	}
	if updated.ExitDate == nil || !updated.ExitDate.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected exit date normalized to day, got %+v", updated.ExitDate)
	}
	if updated.SubjectToAllocationCeiling() {
		t.Fatalf("exited employee must not be subject to the ceiling")
	}
	if !updated.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected updated timestamp to use clock")
	}
}

func TestService_UpdateEmployee_InvalidStatus(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, nil)

	created, err := svc.CreateEmployee(context.Background(), validCreateInput("EMP003"))
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	invalidStatus := Status("unknown")
	_, err = svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Status: &invalidStatus})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestService_UpdateEmployee_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	_, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: "EMP404"})
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_ListEmployees_FilterAndPagination(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, nil)

	// seed
	statuses := []Status{StatusActive, StatusExited, StatusActive}
	for i := 0; i < 3; i++ {
		status := statuses[i]
		in := validCreateInput(fmt.Sprintf("EMP10%d", i))
		in.Status = &status
		if _, err := svc.CreateEmployee(context.Background(), in); err != nil {
			t.Fatalf("unexpected seed error: %v", err)
		}
	}

	exited := StatusExited
	result, err := svc.ListEmployees(context.Background(), ListEmployeesInput{PageSize: 2, Status: &exited})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(result.Employees) != 1 {
		t.Fatalf("expected 1 exited employee, got %d", len(result.Employees))
	}

	active := StatusActive
	page1, err := svc.ListEmployees(context.Background(), ListEmployeesInput{PageSize: 1, Status: &active})
	if err != nil {
		t.Fatalf("ListEmployees active returned error: %v", err)
	}
	if len(page1.Employees) != 1 || page1.NextPageToken == "" {
		t.Fatalf("expected first page with next token, got %d %q", len(page1.Employees), page1.NextPageToken)
	}

	page2, err := svc.ListEmployees(context.Background(), ListEmployeesInput{
		PageSize:  1,
		PageToken: page1.NextPageToken,
		Status:    &active,
	})
	if err != nil {
		t.Fatalf("ListEmployees page2 returned error: %v", err)
	}
	if len(page2.Employees) != 1 || page2.NextPageToken != "" {
		t.Fatalf("expected last page with one employee, got %d %q", len(page2.Employees), page2.NextPageToken)
	}
}

func TestService_ListEmployees_InvalidPaging(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	if _, err := svc.ListEmployees(context.Background(), ListEmployeesInput{PageSize: 500}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := svc.ListEmployees(context.Background(), ListEmployeesInput{PageToken: "abc"}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

var errOverCeiling = errors.New("over ceiling")

type stubCeilingGuard struct {
	allocations map[string]int
	locked      []string
	checked     []string
}

func (g *stubCeilingGuard) WithEmployeeLock(ctx context.Context, employeeID string, fn func(context.Context) error) error {
	g.locked = append(g.locked, employeeID)
	return fn(ctx)
}

func (g *stubCeilingGuard) EnsureWithinCeiling(_ context.Context, employeeID string) error {
	g.checked = append(g.checked, employeeID)
	if g.allocations[employeeID] > 100 {
		return fmt.Errorf("%s: %w", employeeID, errOverCeiling)
	}
	return nil
}

func TestService_UpdateEmployee_CeilingTransitions(t *testing.T) {
	t.Parallel()

	active := StatusActive
	exited := StatusExited
	billable := true
	nonBillable := false

	tests := []struct {
		name       string
		seed       func(*CreateEmployeeInput)
		allocation int
		update     UpdateEmployeeInput
		wantErr    error
		wantCheck  bool
	}{
		{
			name:       "non-billable to billable over ceiling",
			seed:       func(in *CreateEmployeeInput) { in.IsBillable = false },
			allocation: 180,
			update:     UpdateEmployeeInput{IsBillable: &billable},
			wantErr:    errOverCeiling,
			wantCheck:  true,
		},
		{
			name:       "exited to active over ceiling",
			seed:       func(in *CreateEmployeeInput) { in.Status = &exited },
			allocation: 120,
			update:     UpdateEmployeeInput{Status: &active},
			wantErr:    errOverCeiling,
			wantCheck:  true,
		},
		{
			name:       "non-billable to billable within ceiling",
			seed:       func(in *CreateEmployeeInput) { in.IsBillable = false },
			allocation: 100,
			update:     UpdateEmployeeInput{IsBillable: &billable},
			wantCheck:  true,
		},
		{
			name:       "billable to non-billable is never checked",
			allocation: 180,
			update:     UpdateEmployeeInput{IsBillable: &nonBillable},
		},
		{
			name:       "already subject employee is not rechecked",
			allocation: 180,
			update:     UpdateEmployeeInput{IsBillable: &billable, Status: &active},
		},
		{
			name:       "billable exited employee stays exempt",
			seed:       func(in *CreateEmployeeInput) { in.IsBillable = false; in.Status = &exited },
			allocation: 180,
			update:     UpdateEmployeeInput{IsBillable: &billable},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeEmployeeRepo()
			guard := &stubCeilingGuard{allocations: map[string]int{"EMP010": tt.allocation}}
			svc := NewService(repo, &stubClock{now: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}, nil, WithCeilingGuard(guard))

			in := validCreateInput("EMP010")
			if tt.seed != nil {
				tt.seed(&in)
			}
			created, err := svc.CreateEmployee(context.Background(), in)
			if err != nil {
				t.Fatalf("CreateEmployee returned error: %v", err)
			}

			update := tt.update
			update.ID = created.ID
			_, err = svc.UpdateEmployee(context.Background(), update)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				stored, _ := repo.FindByID(context.Background(), created.ID)
				if stored.IsBillable != created.IsBillable || stored.Status != created.Status {
					t.Fatalf("rejected update must not be stored: %+v", stored)
				}
			} else if err != nil {
				t.Fatalf("UpdateEmployee returned error: %v", err)
			}

			if len(guard.locked) != 1 || guard.locked[0] != "EMP010" {
				t.Fatalf("expected the employee lock to be taken once, got %v", guard.locked)
			}
			if got := len(guard.checked) == 1; got != tt.wantCheck {
				t.Fatalf("expected ceiling check %t, got %v", tt.wantCheck, guard.checked)
			}
		})
	}
}

func TestService_UpdateEmployee_CeilingGuardSkippedForOtherFields(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	guard := &stubCeilingGuard{}
	svc := NewService(repo, &stubClock{now: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}, nil, WithCeilingGuard(guard))

	created, err := svc.CreateEmployee(context.Background(), validCreateInput("EMP011"))
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	name := "Asha R."
	if _, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Name: &name}); err != nil {
		t.Fatalf("UpdateEmployee returned error: %v", err)
	}
	if len(guard.locked) != 0 || len(guard.checked) != 0 {
		t.Fatalf("expected no guard calls, got locked=%v checked=%v", guard.locked, guard.checked)
	}
}
