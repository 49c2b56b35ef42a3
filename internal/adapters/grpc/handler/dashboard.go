package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/dashboard"
)

// DashboardServiceName はダッシュボードサービスの gRPC サービス名です。
const DashboardServiceName = "allocation.v1.DashboardService"

// DashboardServiceServer は DashboardService のサーバー側インターフェースです。
type DashboardServiceServer interface {
	GetOrganizationDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetExecutiveDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetPortfolioDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetEmployeeDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(DashboardServiceName, "GetOrganizationDashboard", func(srv any) structCall { return srv.(DashboardServiceServer).GetOrganizationDashboard }),
		unaryMethod(DashboardServiceName, "GetExecutiveDashboard", func(srv any) structCall { return srv.(DashboardServiceServer).GetExecutiveDashboard }),
		unaryMethod(DashboardServiceName, "GetPortfolioDashboard", func(srv any) structCall { return srv.(DashboardServiceServer).GetPortfolioDashboard }),
		unaryMethod(DashboardServiceName, "GetEmployeeDashboard", func(srv any) structCall { return srv.(DashboardServiceServer).GetEmployeeDashboard }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "allocation/v1/dashboard.proto",
}

// RegisterDashboardServiceServer は DashboardService をサーバーに登録します。
func RegisterDashboardServiceServer(s grpc.ServiceRegistrar, srv DashboardServiceServer) {
	s.RegisterService(&dashboardServiceDesc, srv)
}

// DashboardGrpcHandler は DashboardService の gRPC 実装です。
type DashboardGrpcHandler struct {
	svc dashboard.UseCase
}

// NewDashboardGrpcHandler は DashboardGrpcHandler を生成します。
func NewDashboardGrpcHandler(svc dashboard.UseCase) *DashboardGrpcHandler {
	return &DashboardGrpcHandler{svc: svc}
}

// GetOrganizationDashboard は人事向け集計を返します。
func (h *DashboardGrpcHandler) GetOrganizationDashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	org, err := h.svc.Organization(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(organizationToMap(*org))
}

// GetExecutiveDashboard は経営層向け集計を返します。
func (h *DashboardGrpcHandler) GetExecutiveDashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	exec, err := h.svc.Executive(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}

	statusCounts := make(map[string]any, len(exec.StatusCounts))
	for s, n := range exec.StatusCounts {
		statusCounts[string(s)] = n
	}

	return toStruct(map[string]any{
		"organization":  organizationToMap(exec.Organization),
		"status_counts": statusCounts,
		"top_projects":  projectCostsToList(exec.TopProjects),
		"burn_rate":     exec.BurnRate,
	})
}

// GetPortfolioDashboard は PM 向けの Active プロジェクト集計を返します。
func (h *DashboardGrpcHandler) GetPortfolioDashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	portfolio, err := h.svc.Portfolio(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"projects":                 projectCostsToList(portfolio.Projects),
		"total_monthly_cost":       portfolio.TotalMonthlyCost,
		"total_team_members":       portfolio.TotalTeamMembers,
		"total_critical_resources": portfolio.TotalCriticalResources,
	})
}

// GetEmployeeDashboard は社員本人向け集計を返します。
func (h *DashboardGrpcHandler) GetEmployeeDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	employeeID, err := r.str("employee_id")
	if err != nil {
		return nil, err
	}

	summary, err := h.svc.Employee(ctx, employeeID)
	if err != nil {
		return nil, toStatusError(err)
	}

	rows := make([]any, 0, len(summary.Assignments))
	for _, row := range summary.Assignments {
		item := assignmentToMap(row.Assignment)
		if row.Project != nil {
			item["project_name"] = row.Project.Name
		}
		rows = append(rows, item)
	}

	return toStruct(map[string]any{
		"employee":           employeeToMap(summary.Employee),
		"current_allocation": summary.CurrentAllocation,
		"band":               bandToMap(summary.Band),
		"assignments":        rows,
	})
}

func organizationToMap(org dashboard.OrganizationSummary) map[string]any {
	distribution := make(map[string]any, len(org.Distribution))
	for _, tier := range allocation.Tiers() {
		distribution[string(tier)] = org.Distribution[tier]
	}

	return map[string]any{
		"active_employees":   org.ActiveEmployees,
		"billable_employees": org.BillableEmployees,
		"active_projects":    org.ActiveProjects,
		"total_monthly_cost": org.TotalMonthlyCost,
		"distribution":       distribution,
		"bench_risk_percent": org.BenchRiskPercent,
	}
}

func projectCostsToList(costs []dashboard.ProjectCost) []any {
	items := make([]any, 0, len(costs))
	for _, pc := range costs {
		items = append(items, map[string]any{
			"project":            projectToMap(pc.Project),
			"monthly_cost":       pc.MonthlyCost,
			"team_size":          pc.TeamSize,
			"critical_resources": pc.CriticalResources,
		})
	}
	return items
}
