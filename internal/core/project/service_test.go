package project

import (
	"context"
	"errors"
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

type sequenceIDs struct {
	next int
}

func (g *sequenceIDs) NewID() string {
	g.next++
	return "PRJ" + strconv.Itoa(g.next)
}

type fakeProjectRepo struct {
	projects map[string]*Project
	order    []string
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*Project)}
}

func (r *fakeProjectRepo) Create(_ context.Context, p *Project) (*Project, error) {
	if _, ok := r.projects[p.ID]; ok {
		return nil, ErrProjectAlreadyExists
	}
	clone := *p
	r.projects[p.ID] = &clone
	r.order = append(r.order, p.ID)
	out := clone
	return &out, nil
}

func (r *fakeProjectRepo) Update(_ context.Context, p *Project) (*Project, error) {
	if _, ok := r.projects[p.ID]; !ok {
		return nil, ErrProjectNotFound
	}
	clone := *p
	r.projects[p.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeProjectRepo) FindByID(_ context.Context, id string) (*Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProjectRepo) List(_ context.Context, filter ListProjectsFilter) ([]*Project, string, error) {
	var filtered []*Project
	for _, id := range r.order {
		if p := r.projects[id]; filter.Matches(p) {
			clone := *p
			filtered = append(filtered, &clone)
		}
	}
	if filter.Offset > len(filtered) {
		return []*Project{}, "", nil
	}
	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	next := ""
	if end < len(filtered) {
		next = strconv.Itoa(end)
	}
	return filtered[filter.Offset:end], next, nil
}

func strPtr(s string) *string { return &s }

func TestService_CreateProject_Success(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(newFakeProjectRepo(), &stubClock{now: now}, nil, &sequenceIDs{})
	budget := 500000.0

	created, err := svc.CreateProject(context.Background(), CreateProjectInput{
		Code:                CodeClient,
		Name:                "  Billing Revamp ",
		ClientName:          strPtr(" Acme "),
		StartDate:           time.Date(2025, 3, 2, 13, 0, 0, 0, time.UTC),
		BudgetCap:           &budget,
		StrategicImportance: 8,
	})
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	if created.ID != "PRJ1" {
		t.Fatalf("expected generated id PRJ1, got %s", created.ID)
	}
	if created.Name != "Billing Revamp" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.ClientName == nil || *created.ClientName != "Acme" {
		t.Fatalf("expected trimmed client name, got %+v", created.ClientName)
	}
	if created.Status != StatusPlanning {
		t.Fatalf("expected default status Planning, got %s", created.Status)
	}
	if !created.StartDate.Equal(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected start date normalized, got %v", created.StartDate)
	}
	if created.BudgetCap == nil || *created.BudgetCap != budget {
		t.Fatalf("expected budget cap, got %+v", created.BudgetCap)
	}
}

func TestService_CreateProject_ClientNameRequired(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeProjectRepo(), nil, nil, &sequenceIDs{})

	for _, code := range []Code{CodeClient, CodeUpgrade, CodeEnterprise, CodeSupport} {
		_, err := svc.CreateProject(context.Background(), CreateProjectInput{
			Code:                code,
			Name:                "Client work",
			StartDate:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			StrategicImportance: 5,
		})
		if !errors.Is(err, ErrClientNameRequired) {
			t.Fatalf("code %s: expected ErrClientNameRequired, got %v", code, err)
		}
	}

	if _, err := svc.CreateProject(context.Background(), CreateProjectInput{
		Code:                CodeResearch,
		Name:                "Internal research",
		StartDate:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		StrategicImportance: 5,
	}); err != nil {
		t.Fatalf("internal project should not require client: %v", err)
	}
}

func TestService_CreateProject_Validation(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)
	negative := -1.0
	bogus := Status("Paused")

	cases := []struct {
		name string
		in   CreateProjectInput
		want error
	}{
		{"bad code", CreateProjectInput{Code: "X", Name: "n", StartDate: start, StrategicImportance: 1}, ErrInvalidCode},
		{"empty name", CreateProjectInput{Code: CodeProduct, Name: " ", StartDate: start, StrategicImportance: 1}, ErrInvalidName},
		{"no start", CreateProjectInput{Code: CodeProduct, Name: "n", StrategicImportance: 1}, ErrInvalidStartDate},
		{"end before start", CreateProjectInput{Code: CodeProduct, Name: "n", StartDate: start, EndDate: &before, StrategicImportance: 1}, ErrInvalidDateRange},
		{"negative budget", CreateProjectInput{Code: CodeProduct, Name: "n", StartDate: start, BudgetCap: &negative, StrategicImportance: 1}, ErrInvalidBudgetCap},
		{"importance zero", CreateProjectInput{Code: CodeProduct, Name: "n", StartDate: start}, ErrInvalidImportance},
		{"importance eleven", CreateProjectInput{Code: CodeProduct, Name: "n", StartDate: start, StrategicImportance: 11}, ErrInvalidImportance},
		{"bad status", CreateProjectInput{Code: CodeProduct, Name: "n", StartDate: start, StrategicImportance: 1, Status: &bogus}, ErrInvalidStatus},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(newFakeProjectRepo(), nil, nil, &sequenceIDs{})
			if _, err := svc.CreateProject(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestService_CreateProject_DuplicateID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeProjectRepo(), nil, nil, nil)
	in := CreateProjectInput{ID: "PRJ-A", Code: CodeProduct, Name: "A", StartDate: time.Now(), StrategicImportance: 3}

	if _, err := svc.CreateProject(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateProject(context.Background(), in); !errors.Is(err, ErrProjectAlreadyExists) {
		t.Fatalf("expected ErrProjectAlreadyExists, got %v", err)
	}
}

func TestService_UpdateProject_StatusAndBudget(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(newFakeProjectRepo(), clk, nil, &sequenceIDs{})

	created, err := svc.CreateProject(context.Background(), CreateProjectInput{
		Code:                CodeProduct,
		Name:                "Platform",
		StartDate:           clk.now,
		StrategicImportance: 4,
	})
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	clk.now = clk.now.Add(time.Hour)
	archived := StatusArchived
	importance := 9

	updated, err := svc.UpdateProject(context.Background(), UpdateProjectInput{
		ID:                  created.ID,
		Status:              &archived,
		BudgetCapSet:        true,
		StrategicImportance: &importance,
	})
	if err != nil {
		t.Fatalf("UpdateProject returned error: %v", err)
	}
	if updated.Status != StatusArchived {
		t.Fatalf("expected archived status, got %s", updated.Status)
	}
	if updated.BudgetCap != nil {
		t.Fatalf("expected cleared budget cap, got %v", *updated.BudgetCap)
	}
	if updated.StrategicImportance != 9 {
		t.Fatalf("expected importance 9, got %d", updated.StrategicImportance)
	}
	if !updated.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected updated timestamp to use clock")
	}
}

func TestService_UpdateProject_ClearingClientOnClientProject(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeProjectRepo(), nil, nil, &sequenceIDs{})
	created, err := svc.CreateProject(context.Background(), CreateProjectInput{
		Code:                CodeClient,
		Name:                "Client",
		ClientName:          strPtr("Acme"),
		StartDate:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		StrategicImportance: 5,
	})
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	_, err = svc.UpdateProject(context.Background(), UpdateProjectInput{ID: created.ID, ClientNameSet: true})
	if !errors.Is(err, ErrClientNameRequired) {
		t.Fatalf("expected ErrClientNameRequired, got %v", err)
	}
}

func TestService_ListProjects_Filter(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeProjectRepo(), nil, nil, &sequenceIDs{})
	active := StatusActive
	for _, st := range []Status{StatusActive, StatusPlanning, StatusActive} {
		st := st
		if _, err := svc.CreateProject(context.Background(), CreateProjectInput{
			Code:                CodeProduct,
			Name:                "p",
			Status:              &st,
			StartDate:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			StrategicImportance: 2,
		}); err != nil {
			t.Fatalf("seed error: %v", err)
		}
	}

	result, err := svc.ListProjects(context.Background(), ListProjectsInput{Status: &active})
	if err != nil {
		t.Fatalf("ListProjects returned error: %v", err)
	}
	if len(result.Projects) != 2 {
		t.Fatalf("expected 2 active projects, got %d", len(result.Projects))
	}

	bogus := Code("Z")
	if _, err := svc.ListProjects(context.Background(), ListProjectsInput{Code: &bogus}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}
