package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/resource-allocation/internal/core/employee"
)

// EmployeeServiceName は社員サービスの gRPC サービス名です。
const EmployeeServiceName = "allocation.v1.EmployeeService"

// EmployeeServiceServer は EmployeeService のサーバー側インターフェースです。
type EmployeeServiceServer interface {
	CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var employeeServiceDesc = grpc.ServiceDesc{
	ServiceName: EmployeeServiceName,
	HandlerType: (*EmployeeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(EmployeeServiceName, "CreateEmployee", func(srv any) structCall { return srv.(EmployeeServiceServer).CreateEmployee }),
		unaryMethod(EmployeeServiceName, "UpdateEmployee", func(srv any) structCall { return srv.(EmployeeServiceServer).UpdateEmployee }),
		unaryMethod(EmployeeServiceName, "GetEmployee", func(srv any) structCall { return srv.(EmployeeServiceServer).GetEmployee }),
		unaryMethod(EmployeeServiceName, "ListEmployees", func(srv any) structCall { return srv.(EmployeeServiceServer).ListEmployees }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "allocation/v1/employee.proto",
}

// RegisterEmployeeServiceServer は EmployeeService をサーバーに登録します。
func RegisterEmployeeServiceServer(s grpc.ServiceRegistrar, srv EmployeeServiceServer) {
	s.RegisterService(&employeeServiceDesc, srv)
}

// EmployeeGrpcHandler は EmployeeService の gRPC 実装です。
type EmployeeGrpcHandler struct {
	svc employee.UseCase
}

// NewEmployeeGrpcHandler は EmployeeGrpcHandler を生成します。
func NewEmployeeGrpcHandler(svc employee.UseCase) *EmployeeGrpcHandler {
	return &EmployeeGrpcHandler{svc: svc}
}

// CreateEmployee は社員を作成します。
func (h *EmployeeGrpcHandler) CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in employee.CreateEmployeeInput
	if in.ID, err = r.str("employee_id"); err != nil {
		return nil, err
	}
	if in.Name, err = r.str("name"); err != nil {
		return nil, err
	}
	if in.Email, err = r.str("email"); err != nil {
		return nil, err
	}
	employeeType, err := r.str("employee_type")
	if err != nil {
		return nil, err
	}
	in.Type = employee.Type(employeeType)
	if in.Department, err = r.str("department"); err != nil {
		return nil, err
	}
	if in.WorkingLocation, err = r.str("working_location"); err != nil {
		return nil, err
	}
	statusValue, err := r.optStr("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil {
		s := employee.Status(*statusValue)
		in.Status = &s
	}
	if in.IsBillable, err = r.boolean("is_billable_resource"); err != nil {
		return nil, err
	}
	if in.JoiningDate, err = r.dateOrZero("joining_date"); err != nil {
		return nil, err
	}
	if in.ExitDate, err = r.date("exit_date"); err != nil {
		return nil, err
	}
	baseCost, _, err := r.number("base_cost_per_month")
	if err != nil {
		return nil, err
	}
	in.BaseCostPerMonth = baseCost

	created, err := h.svc.CreateEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"employee": employeeToMap(created)})
}

// UpdateEmployee は社員情報を更新します。指定されたキーのみ変更します。
func (h *EmployeeGrpcHandler) UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in employee.UpdateEmployeeInput
	if in.ID, err = r.str("employee_id"); err != nil {
		return nil, err
	}
	if in.Name, err = r.optStr("name"); err != nil {
		return nil, err
	}
	if in.Email, err = r.optStr("email"); err != nil {
		return nil, err
	}
	employeeType, err := r.optStr("employee_type")
	if err != nil {
		return nil, err
	}
	if employeeType != nil {
		t := employee.Type(*employeeType)
		in.Type = &t
	}
	if in.Department, err = r.optStr("department"); err != nil {
		return nil, err
	}
	if in.WorkingLocation, err = r.optStr("working_location"); err != nil {
		return nil, err
	}
	statusValue, err := r.optStr("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil {
		s := employee.Status(*statusValue)
		in.Status = &s
	}
	if in.IsBillable, err = r.optBool("is_billable_resource"); err != nil {
		return nil, err
	}
	if in.JoiningDate, err = r.date("joining_date"); err != nil {
		return nil, err
	}
	if r.has("exit_date") {
		in.ExitDateSet = true
		if in.ExitDate, err = r.date("exit_date"); err != nil {
			return nil, err
		}
	}
	if in.BaseCostPerMonth, err = r.optFloat("base_cost_per_month"); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"employee": employeeToMap(updated)})
}

// GetEmployee は社員を取得します。
func (h *EmployeeGrpcHandler) GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	id, err := r.str("employee_id")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetEmployee(ctx, employee.GetEmployeeInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"employee": employeeToMap(found)})
}

// ListEmployees は社員の一覧を取得します。
func (h *EmployeeGrpcHandler) ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in employee.ListEmployeesInput
	if in.PageSize, err = r.integer("page_size"); err != nil {
		return nil, err
	}
	if in.PageToken, err = r.str("page_token"); err != nil {
		return nil, err
	}
	statusValue, err := r.optStr("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil {
		s := employee.Status(*statusValue)
		in.Status = &s
	}
	if in.Billable, err = r.optBool("is_billable_resource"); err != nil {
		return nil, err
	}
	if in.Department, err = r.str("department"); err != nil {
		return nil, err
	}

	result, err := h.svc.ListEmployees(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(result.Employees))
	for _, e := range result.Employees {
		items = append(items, employeeToMap(e))
	}

	return toStruct(map[string]any{
		"employees":       items,
		"next_page_token": result.NextPageToken,
	})
}

func employeeToMap(e *employee.Employee) map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"employee_id":          e.ID,
		"name":                 e.Name,
		"email":                e.Email,
		"employee_type":        string(e.Type),
		"department":           e.Department,
		"working_location":     e.WorkingLocation,
		"status":               string(e.Status),
		"is_billable_resource": e.IsBillable,
		"joining_date":         formatDate(e.JoiningDate),
		"exit_date":            optionalDate(e.ExitDate),
		"base_cost_per_month":  e.BaseCostPerMonth,
		"created_at":           e.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":           e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
