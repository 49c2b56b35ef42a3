package dashboard

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
)

const (
	scanPageSize   = 200
	topProjectsMax = 5
)

// ErrInvalidEmployeeID は社員 ID が空の場合に返します。
var ErrInvalidEmployeeID = errors.New("dashboard: invalid employee id")

// Employees はダッシュボードが参照する社員ユースケースです。
type Employees interface {
	GetEmployee(ctx context.Context, in employee.GetEmployeeInput) (*employee.Employee, error)
	ListEmployees(ctx context.Context, in employee.ListEmployeesInput) (*employee.ListEmployeesResult, error)
}

// Projects はダッシュボードが参照するプロジェクトユースケースです。
type Projects interface {
	GetProject(ctx context.Context, in project.GetProjectInput) (*project.Project, error)
	ListProjects(ctx context.Context, in project.ListProjectsInput) (*project.ListProjectsResult, error)
}

// Assignments はダッシュボードが参照するアサインメントユースケースです。
type Assignments interface {
	ListAssignments(ctx context.Context, in allocation.ListAssignmentsInput) (*allocation.ListAssignmentsResult, error)
}

// Service はロール別ダッシュボードの集計を行います。集計値はキャッシュせず毎回再計算します。
type Service struct {
	employees   Employees
	projects    Projects
	assignments Assignments
}

// UseCase はダッシュボードユースケースの公開インターフェースです。
type UseCase interface {
	Organization(ctx context.Context) (*OrganizationSummary, error)
	Executive(ctx context.Context) (*ExecutiveSummary, error)
	Portfolio(ctx context.Context) (*PortfolioSummary, error)
	Employee(ctx context.Context, employeeID string) (*EmployeeSummary, error)
}

// NewService は Service を生成します。
func NewService(employees Employees, projects Projects, assignments Assignments) *Service {
	return &Service{employees: employees, projects: projects, assignments: assignments}
}

// OrganizationSummary は人事向けの全社集計です。
type OrganizationSummary struct {
	ActiveEmployees   int
	BillableEmployees int
	ActiveProjects    int
	TotalMonthlyCost  int64
	Distribution      allocation.Distribution
	// BenchRiskPercent は請求対象社員に占める Bench の割合 (0-100) です。
	BenchRiskPercent float64
}

// ProjectCost はプロジェクト単位の集計です。
type ProjectCost struct {
	Project           *project.Project
	MonthlyCost       int64
	TeamSize          int
	CriticalResources int
}

// ExecutiveSummary は経営層向けの集計です。
type ExecutiveSummary struct {
	Organization OrganizationSummary
	StatusCounts map[project.Status]int
	TopProjects  []ProjectCost
	// BurnRate は TopProjects の月額コスト合計です。
	BurnRate int64
}

// PortfolioSummary は PM 向けの Active プロジェクト一覧です。
type PortfolioSummary struct {
	Projects               []ProjectCost
	TotalMonthlyCost       int64
	TotalTeamMembers       int
	TotalCriticalResources int
}

// EmployeeAssignment は社員ダッシュボードの 1 行です。Project は参照切れの場合 nil です。
type EmployeeAssignment struct {
	Assignment *allocation.Assignment
	Project    *project.Project
}

// EmployeeSummary は社員本人向けの集計です。
type EmployeeSummary struct {
	Employee          *employee.Employee
	CurrentAllocation int
	Band              allocation.Band
	Assignments       []EmployeeAssignment
}

// snapshot は集計の入力となる現在状態です。assignments は Active のみです。
type snapshot struct {
	employees   []*employee.Employee
	projects    []*project.Project
	assignments []*allocation.Assignment
}

// Organization は人事ダッシュボードの集計を返します。
func (s *Service) Organization(ctx context.Context) (*OrganizationSummary, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	org := snap.organization(snap.projectCosts())
	return &org, nil
}

// Executive は経営層ダッシュボードの集計を返します。
func (s *Service) Executive(ctx context.Context) (*ExecutiveSummary, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	costs := snap.projectCosts()

	statusCounts := make(map[project.Status]int)
	for _, p := range snap.projects {
		statusCounts[p.Status]++
	}

	ranked := make([]ProjectCost, len(costs))
	copy(ranked, costs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MonthlyCost > ranked[j].MonthlyCost
	})
	if len(ranked) > topProjectsMax {
		ranked = ranked[:topProjectsMax]
	}

	var burn int64
	for _, pc := range ranked {
		burn += pc.MonthlyCost
	}

	return &ExecutiveSummary{
		Organization: snap.organization(costs),
		StatusCounts: statusCounts,
		TopProjects:  ranked,
		BurnRate:     burn,
	}, nil
}

// Portfolio は Active プロジェクトごとのチーム人数、月額コスト、クリティカルリソース数を返します。
func (s *Service) Portfolio(ctx context.Context) (*PortfolioSummary, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	costs := snap.projectCosts()
	summary := &PortfolioSummary{Projects: costs}
	for _, pc := range costs {
		summary.TotalMonthlyCost += pc.MonthlyCost
		summary.TotalTeamMembers += pc.TeamSize
		summary.TotalCriticalResources += pc.CriticalResources
	}
	return summary, nil
}

// Employee は社員本人の稼働状況を返します。
func (s *Service) Employee(ctx context.Context, employeeID string) (*EmployeeSummary, error) {
	id := strings.TrimSpace(employeeID)
	if id == "" {
		return nil, ErrInvalidEmployeeID
	}

	emp, err := s.employees.GetEmployee(ctx, employee.GetEmployeeInput{ID: id})
	if err != nil {
		return nil, err
	}

	active := allocation.StatusActive
	assignments, err := s.scanAssignments(ctx, allocation.ListAssignmentsInput{EmployeeID: id, Status: &active})
	if err != nil {
		return nil, err
	}

	rows := make([]EmployeeAssignment, 0, len(assignments))
	for _, a := range assignments {
		p, err := s.projects.GetProject(ctx, project.GetProjectInput{ID: a.ProjectID})
		if err != nil && !errors.Is(err, project.ErrProjectNotFound) {
			return nil, err
		}
		rows = append(rows, EmployeeAssignment{Assignment: a, Project: p})
	}

	current := allocation.CurrentAllocation(assignments, id)
	return &EmployeeSummary{
		Employee:          emp,
		CurrentAllocation: current,
		Band:              allocation.Classify(current),
		Assignments:       rows,
	}, nil
}

// load は社員、プロジェクト、Active なアサインメントを並行して読み込みます。
func (s *Service) load(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, err := s.scanEmployees(gctx)
		snap.employees = result
		return err
	})
	g.Go(func() error {
		result, err := s.scanProjects(gctx)
		snap.projects = result
		return err
	})
	g.Go(func() error {
		active := allocation.StatusActive
		result, err := s.scanAssignments(gctx, allocation.ListAssignmentsInput{Status: &active})
		snap.assignments = result
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) scanEmployees(ctx context.Context) ([]*employee.Employee, error) {
	var (
		all   []*employee.Employee
		token string
	)
	for {
		page, err := s.employees.ListEmployees(ctx, employee.ListEmployeesInput{PageSize: scanPageSize, PageToken: token})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Employees...)
		if page.NextPageToken == "" {
			return all, nil
		}
		token = page.NextPageToken
	}
}

func (s *Service) scanProjects(ctx context.Context) ([]*project.Project, error) {
	var (
		all   []*project.Project
		token string
	)
	for {
		page, err := s.projects.ListProjects(ctx, project.ListProjectsInput{PageSize: scanPageSize, PageToken: token})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Projects...)
		if page.NextPageToken == "" {
			return all, nil
		}
		token = page.NextPageToken
	}
}

func (s *Service) scanAssignments(ctx context.Context, in allocation.ListAssignmentsInput) ([]*allocation.Assignment, error) {
	var all []*allocation.Assignment
	in.PageSize = scanPageSize
	for {
		page, err := s.assignments.ListAssignments(ctx, in)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Assignments...)
		if page.NextPageToken == "" {
			return all, nil
		}
		in.PageToken = page.NextPageToken
	}
}

func (snap *snapshot) employeeIndex() map[string]*employee.Employee {
	index := make(map[string]*employee.Employee, len(snap.employees))
	for _, e := range snap.employees {
		index[e.ID] = e
	}
	return index
}

// projectCosts は Active なプロジェクトごとの集計を返します。
func (snap *snapshot) projectCosts() []ProjectCost {
	employees := snap.employeeIndex()

	byProject := make(map[string][]*allocation.Assignment)
	for _, a := range snap.assignments {
		byProject[a.ProjectID] = append(byProject[a.ProjectID], a)
	}

	costs := make([]ProjectCost, 0, len(snap.projects))
	for _, p := range snap.projects {
		if p.Status != project.StatusActive {
			continue
		}

		team := byProject[p.ID]
		critical := 0
		for _, a := range team {
			if a.IsCriticalResource {
				critical++
			}
		}

		costs = append(costs, ProjectCost{
			Project:           p,
			MonthlyCost:       allocation.ProjectMonthlyCost(p.ID, team, employees),
			TeamSize:          len(team),
			CriticalResources: critical,
		})
	}
	return costs
}

func (snap *snapshot) organization(costs []ProjectCost) OrganizationSummary {
	var (
		activeEmployees int
		percentages     []int
	)
	allocated := allocation.AllocationByEmployee(snap.assignments)
	for _, e := range snap.employees {
		if e.Status != employee.StatusActive {
			continue
		}
		activeEmployees++
		if e.IsBillable {
			percentages = append(percentages, allocated[e.ID])
		}
	}

	var total int64
	for _, pc := range costs {
		total += pc.MonthlyCost
	}

	distribution := allocation.NewDistribution(percentages)

	benchRisk := 0.0
	if len(percentages) > 0 {
		benchRisk = float64(distribution[allocation.TierBench]) / float64(len(percentages)) * 100
	}

	return OrganizationSummary{
		ActiveEmployees:   activeEmployees,
		BillableEmployees: len(percentages),
		ActiveProjects:    len(costs),
		TotalMonthlyCost:  total,
		Distribution:      distribution,
		BenchRiskPercent:  benchRisk,
	}
}
