package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/resource-allocation/internal/core/project"
)

// ProjectServiceName はプロジェクトサービスの gRPC サービス名です。
const ProjectServiceName = "allocation.v1.ProjectService"

// ProjectServiceServer は ProjectService のサーバー側インターフェースです。
type ProjectServiceServer interface {
	CreateProject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateProject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListProjects(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var projectServiceDesc = grpc.ServiceDesc{
	ServiceName: ProjectServiceName,
	HandlerType: (*ProjectServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(ProjectServiceName, "CreateProject", func(srv any) structCall { return srv.(ProjectServiceServer).CreateProject }),
		unaryMethod(ProjectServiceName, "UpdateProject", func(srv any) structCall { return srv.(ProjectServiceServer).UpdateProject }),
		unaryMethod(ProjectServiceName, "GetProject", func(srv any) structCall { return srv.(ProjectServiceServer).GetProject }),
		unaryMethod(ProjectServiceName, "ListProjects", func(srv any) structCall { return srv.(ProjectServiceServer).ListProjects }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "allocation/v1/project.proto",
}

// RegisterProjectServiceServer は ProjectService をサーバーに登録します。
func RegisterProjectServiceServer(s grpc.ServiceRegistrar, srv ProjectServiceServer) {
	s.RegisterService(&projectServiceDesc, srv)
}

// ProjectGrpcHandler は ProjectService の gRPC 実装です。
type ProjectGrpcHandler struct {
	svc project.UseCase
}

// NewProjectGrpcHandler は ProjectGrpcHandler を生成します。
func NewProjectGrpcHandler(svc project.UseCase) *ProjectGrpcHandler {
	return &ProjectGrpcHandler{svc: svc}
}

// CreateProject はプロジェクトを作成します。
func (h *ProjectGrpcHandler) CreateProject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in project.CreateProjectInput
	if in.ID, err = r.str("project_id"); err != nil {
		return nil, err
	}
	code, err := r.str("project_code")
	if err != nil {
		return nil, err
	}
	in.Code = project.Code(code)
	if in.Name, err = r.str("project_name"); err != nil {
		return nil, err
	}
	if in.ClientName, err = r.optStr("client_name"); err != nil {
		return nil, err
	}
	if in.Description, err = r.str("description"); err != nil {
		return nil, err
	}
	statusValue, err := r.optStr("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil {
		s := project.Status(*statusValue)
		in.Status = &s
	}
	if in.StartDate, err = r.dateOrZero("start_date"); err != nil {
		return nil, err
	}
	if in.EndDate, err = r.date("end_date"); err != nil {
		return nil, err
	}
	if in.BudgetCap, err = r.optFloat("budget_cap"); err != nil {
		return nil, err
	}
	if in.StrategicImportance, err = r.integer("strategic_importance"); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateProject(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"project": projectToMap(created)})
}

// UpdateProject はプロジェクトを更新します。client_name, end_date, budget_cap は null で消去できます。
func (h *ProjectGrpcHandler) UpdateProject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in project.UpdateProjectInput
	if in.ID, err = r.str("project_id"); err != nil {
		return nil, err
	}
	if in.Name, err = r.optStr("project_name"); err != nil {
		return nil, err
	}
	if r.has("client_name") {
		in.ClientNameSet = true
		if in.ClientName, err = r.optStr("client_name"); err != nil {
			return nil, err
		}
	}
	if in.Description, err = r.optStr("description"); err != nil {
		return nil, err
	}
	statusValue, err := r.optStr("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil {
		s := project.Status(*statusValue)
		in.Status = &s
	}
	if r.has("end_date") {
		in.EndDateSet = true
		if in.EndDate, err = r.date("end_date"); err != nil {
			return nil, err
		}
	}
	if r.has("budget_cap") {
		in.BudgetCapSet = true
		if in.BudgetCap, err = r.optFloat("budget_cap"); err != nil {
			return nil, err
		}
	}
	if in.StrategicImportance, err = r.optInt("strategic_importance"); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateProject(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"project": projectToMap(updated)})
}

// GetProject はプロジェクトを取得します。
func (h *ProjectGrpcHandler) GetProject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	id, err := r.str("project_id")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetProject(ctx, project.GetProjectInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"project": projectToMap(found)})
}

// ListProjects はプロジェクトの一覧を取得します。
func (h *ProjectGrpcHandler) ListProjects(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in project.ListProjectsInput
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
		s := project.Status(*statusValue)
		in.Status = &s
	}
	code, err := r.optStr("project_code")
	if err != nil {
		return nil, err
	}
	if code != nil {
		c := project.Code(*code)
		in.Code = &c
	}

	result, err := h.svc.ListProjects(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(result.Projects))
	for _, p := range result.Projects {
		items = append(items, projectToMap(p))
	}

	return toStruct(map[string]any{
		"projects":        items,
		"next_page_token": result.NextPageToken,
	})
}

func projectToMap(p *project.Project) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"project_id":           p.ID,
		"project_code":         string(p.Code),
		"project_name":         p.Name,
		"client_name":          optionalString(p.ClientName),
		"description":          p.Description,
		"status":               string(p.Status),
		"start_date":           formatDate(p.StartDate),
		"end_date":             optionalDate(p.EndDate),
		"budget_cap":           optionalFloat(p.BudgetCap),
		"strategic_importance": p.StrategicImportance,
		"created_at":           p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":           p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
