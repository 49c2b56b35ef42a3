package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
)

// AssignmentServiceName はアサインメントサービスの gRPC サービス名です。
const AssignmentServiceName = "allocation.v1.AssignmentService"

// AssignmentServiceServer は AssignmentService のサーバー側インターフェースです。
type AssignmentServiceServer interface {
	CreateAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	TransferAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompleteAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkCritical(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAssignments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCurrentAllocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProjectMonthlyCost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ClassifyUtilization(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var assignmentServiceDesc = grpc.ServiceDesc{
	ServiceName: AssignmentServiceName,
	HandlerType: (*AssignmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(AssignmentServiceName, "CreateAssignment", func(srv any) structCall { return srv.(AssignmentServiceServer).CreateAssignment }),
		unaryMethod(AssignmentServiceName, "TransferAssignment", func(srv any) structCall { return srv.(AssignmentServiceServer).TransferAssignment }),
		unaryMethod(AssignmentServiceName, "CompleteAssignment", func(srv any) structCall { return srv.(AssignmentServiceServer).CompleteAssignment }),
		unaryMethod(AssignmentServiceName, "MarkCritical", func(srv any) structCall { return srv.(AssignmentServiceServer).MarkCritical }),
		unaryMethod(AssignmentServiceName, "GetAssignment", func(srv any) structCall { return srv.(AssignmentServiceServer).GetAssignment }),
		unaryMethod(AssignmentServiceName, "ListAssignments", func(srv any) structCall { return srv.(AssignmentServiceServer).ListAssignments }),
		unaryMethod(AssignmentServiceName, "GetCurrentAllocation", func(srv any) structCall { return srv.(AssignmentServiceServer).GetCurrentAllocation }),
		unaryMethod(AssignmentServiceName, "GetProjectMonthlyCost", func(srv any) structCall { return srv.(AssignmentServiceServer).GetProjectMonthlyCost }),
		unaryMethod(AssignmentServiceName, "ClassifyUtilization", func(srv any) structCall { return srv.(AssignmentServiceServer).ClassifyUtilization }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "allocation/v1/assignment.proto",
}

// RegisterAssignmentServiceServer は AssignmentService をサーバーに登録します。
func RegisterAssignmentServiceServer(s grpc.ServiceRegistrar, srv AssignmentServiceServer) {
	s.RegisterService(&assignmentServiceDesc, srv)
}

// AssignmentGrpcHandler は AssignmentService の gRPC 実装です。
type AssignmentGrpcHandler struct {
	svc allocation.UseCase
}

// NewAssignmentGrpcHandler は AssignmentGrpcHandler を生成します。
func NewAssignmentGrpcHandler(svc allocation.UseCase) *AssignmentGrpcHandler {
	return &AssignmentGrpcHandler{svc: svc}
}

// CreateAssignment は稼働率上限を検証してアサインメントを作成します。
func (h *AssignmentGrpcHandler) CreateAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in allocation.CreateAssignmentInput
	if in.ID, err = r.str("assignment_id"); err != nil {
		return nil, err
	}
	if in.EmployeeID, err = r.str("employee_id"); err != nil {
		return nil, err
	}
	if in.ProjectID, err = r.str("project_id"); err != nil {
		return nil, err
	}
	if in.Role, err = r.str("role"); err != nil {
		return nil, err
	}
	if in.AllocationPercentage, err = r.integer("allocation_percentage"); err != nil {
		return nil, err
	}
	transferType, err := r.str("transfer_type")
	if err != nil {
		return nil, err
	}
	in.TransferType = allocation.TransferType(transferType)
	if in.ReplacedAssignmentID, err = r.optStr("replaced_assignment_id"); err != nil {
		return nil, err
	}
	if in.DateAllocated, err = r.dateOrZero("date_allocated"); err != nil {
		return nil, err
	}
	if in.IsCriticalResource, err = r.boolean("is_critical_resource"); err != nil {
		return nil, err
	}
	if in.CriticalityNotes, err = r.str("criticality_notes"); err != nil {
		return nil, err
	}
	if in.CriticalitySetBy, err = r.str("criticality_set_by"); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateAssignment(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"assignment": assignmentToMap(created)})
}

// TransferAssignment はアサインメントを別プロジェクトへ移管します。
func (h *AssignmentGrpcHandler) TransferAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in allocation.TransferAssignmentInput
	if in.FromAssignmentID, err = r.str("from_assignment_id"); err != nil {
		return nil, err
	}
	if in.ToProjectID, err = r.str("to_project_id"); err != nil {
		return nil, err
	}
	if in.AllocationPercentage, err = r.integer("allocation_percentage"); err != nil {
		return nil, err
	}
	transferType, err := r.str("transfer_type")
	if err != nil {
		return nil, err
	}
	in.TransferType = allocation.TransferType(transferType)
	if in.EffectiveDate, err = r.dateOrZero("effective_date"); err != nil {
		return nil, err
	}

	created, err := h.svc.TransferAssignment(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"assignment": assignmentToMap(created)})
}

// CompleteAssignment はアサインメントを終了します。
func (h *AssignmentGrpcHandler) CompleteAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in allocation.CompleteAssignmentInput
	if in.ID, err = r.str("assignment_id"); err != nil {
		return nil, err
	}
	if in.DateExited, err = r.dateOrZero("date_exited"); err != nil {
		return nil, err
	}

	completed, err := h.svc.CompleteAssignment(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"assignment": assignmentToMap(completed)})
}

// MarkCritical はクリティカルリソース指定を切り替えます。
func (h *AssignmentGrpcHandler) MarkCritical(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in allocation.MarkCriticalInput
	if in.ID, err = r.str("assignment_id"); err != nil {
		return nil, err
	}
	if in.Critical, err = r.boolean("critical"); err != nil {
		return nil, err
	}
	if in.Notes, err = r.str("notes"); err != nil {
		return nil, err
	}
	if in.SetBy, err = r.str("set_by"); err != nil {
		return nil, err
	}

	marked, err := h.svc.MarkCritical(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"assignment": assignmentToMap(marked)})
}

// GetAssignment はアサインメントを取得します。
func (h *AssignmentGrpcHandler) GetAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	id, err := r.str("assignment_id")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetAssignment(ctx, allocation.GetAssignmentInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"assignment": assignmentToMap(found)})
}

// ListAssignments はアサインメントの一覧を取得します。
func (h *AssignmentGrpcHandler) ListAssignments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in allocation.ListAssignmentsInput
	if in.PageSize, err = r.integer("page_size"); err != nil {
		return nil, err
	}
	if in.PageToken, err = r.str("page_token"); err != nil {
		return nil, err
	}
	if in.EmployeeID, err = r.str("employee_id"); err != nil {
		return nil, err
	}
	if in.ProjectID, err = r.str("project_id"); err != nil {
		return nil, err
	}
	statusValue, err := r.optStr("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil {
		s := allocation.Status(*statusValue)
		in.Status = &s
	}

	result, err := h.svc.ListAssignments(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		items = append(items, assignmentToMap(a))
	}

	return toStruct(map[string]any{
		"assignments":     items,
		"next_page_token": result.NextPageToken,
	})
}

// GetCurrentAllocation は社員の現在の稼働率と稼働帯を返します。
func (h *AssignmentGrpcHandler) GetCurrentAllocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	employeeID, err := r.str("employee_id")
	if err != nil {
		return nil, err
	}

	current, err := h.svc.CurrentAllocation(ctx, employeeID)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"employee_id":        employeeID,
		"current_allocation": current,
		"band":               bandToMap(h.svc.UtilizationBand(current)),
	})
}

// GetProjectMonthlyCost はプロジェクトの月額コストを返します。
func (h *AssignmentGrpcHandler) GetProjectMonthlyCost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	projectID, err := r.str("project_id")
	if err != nil {
		return nil, err
	}

	cost, err := h.svc.ProjectMonthlyCost(ctx, projectID)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"project_id":   projectID,
		"monthly_cost": cost,
	})
}

// ClassifyUtilization は任意の稼働率を稼働帯に分類します。
func (h *AssignmentGrpcHandler) ClassifyUtilization(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	if _, ok := r.value("percentage"); !ok {
		return nil, fieldError("percentage", "is required")
	}
	percentage, err := r.integer("percentage")
	if err != nil {
		return nil, err
	}
	if percentage < 0 {
		return nil, fieldError("percentage", "must not be negative")
	}

	return toStruct(map[string]any{
		"percentage": percentage,
		"band":       bandToMap(h.svc.UtilizationBand(percentage)),
	})
}

func assignmentToMap(a *allocation.Assignment) map[string]any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"assignment_id":          a.ID,
		"employee_id":            a.EmployeeID,
		"project_id":             a.ProjectID,
		"role":                   a.Role,
		"allocation_percentage":  a.AllocationPercentage,
		"status":                 string(a.Status),
		"transfer_type":          string(a.TransferType),
		"replaced_assignment_id": optionalString(a.ReplacedAssignmentID),
		"date_allocated":         formatDate(a.DateAllocated),
		"date_exited":            optionalDate(a.DateExited),
		"is_critical_resource":   a.IsCriticalResource,
		"criticality_notes":      a.CriticalityNotes,
		"criticality_set_date":   optionalDate(a.CriticalitySetDate),
		"criticality_set_by":     a.CriticalitySetBy,
		"created_at":             a.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":             a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func bandToMap(b allocation.Band) map[string]any {
	return map[string]any{
		"label": b.Label,
		"tier":  string(b.Tier),
	}
}
