package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/skill"
)

// SkillServiceName はスキルサービスの gRPC サービス名です。
const SkillServiceName = "allocation.v1.SkillService"

// SkillServiceServer は SkillService のサーバー側インターフェースです。
type SkillServiceServer interface {
	CreateSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSkills(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddEmployeeSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateEmployeeSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveEmployeeSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListEmployeeSkills(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SearchAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var skillServiceDesc = grpc.ServiceDesc{
	ServiceName: SkillServiceName,
	HandlerType: (*SkillServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(SkillServiceName, "CreateSkill", func(srv any) structCall { return srv.(SkillServiceServer).CreateSkill }),
		unaryMethod(SkillServiceName, "GetSkill", func(srv any) structCall { return srv.(SkillServiceServer).GetSkill }),
		unaryMethod(SkillServiceName, "ListSkills", func(srv any) structCall { return srv.(SkillServiceServer).ListSkills }),
		unaryMethod(SkillServiceName, "AddEmployeeSkill", func(srv any) structCall { return srv.(SkillServiceServer).AddEmployeeSkill }),
		unaryMethod(SkillServiceName, "UpdateEmployeeSkill", func(srv any) structCall { return srv.(SkillServiceServer).UpdateEmployeeSkill }),
		unaryMethod(SkillServiceName, "RemoveEmployeeSkill", func(srv any) structCall { return srv.(SkillServiceServer).RemoveEmployeeSkill }),
		unaryMethod(SkillServiceName, "ListEmployeeSkills", func(srv any) structCall { return srv.(SkillServiceServer).ListEmployeeSkills }),
		unaryMethod(SkillServiceName, "SearchAvailability", func(srv any) structCall { return srv.(SkillServiceServer).SearchAvailability }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "allocation/v1/skill.proto",
}

// RegisterSkillServiceServer は SkillService をサーバーに登録します。
func RegisterSkillServiceServer(s grpc.ServiceRegistrar, srv SkillServiceServer) {
	s.RegisterService(&skillServiceDesc, srv)
}

// SkillGrpcHandler は SkillService の gRPC 実装です。
type SkillGrpcHandler struct {
	svc skill.UseCase
}

// NewSkillGrpcHandler は SkillGrpcHandler を生成します。
func NewSkillGrpcHandler(svc skill.UseCase) *SkillGrpcHandler {
	return &SkillGrpcHandler{svc: svc}
}

// CreateSkill はカタログにスキルを登録します。
func (h *SkillGrpcHandler) CreateSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in skill.CreateSkillInput
	if in.ID, err = r.str("skill_id"); err != nil {
		return nil, err
	}
	if in.Name, err = r.str("skill_name"); err != nil {
		return nil, err
	}
	category, err := r.str("skill_category")
	if err != nil {
		return nil, err
	}
	in.Category = skill.Category(category)
	if in.Description, err = r.str("description"); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateSkill(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(map[string]any{"skill": skillToMap(created)})
}

// GetSkill はスキルを取得します。
func (h *SkillGrpcHandler) GetSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	id, err := r.str("skill_id")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetSkill(ctx, skill.GetSkillInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(map[string]any{"skill": skillToMap(found)})
}

// ListSkills はカタログを一覧します。
func (h *SkillGrpcHandler) ListSkills(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in skill.ListSkillsInput
	if in.PageSize, err = r.integer("page_size"); err != nil {
		return nil, err
	}
	if in.PageToken, err = r.str("page_token"); err != nil {
		return nil, err
	}
	category, err := r.optStr("skill_category")
	if err != nil {
		return nil, err
	}
	if category != nil {
		c := skill.Category(*category)
		in.Category = &c
	}

	result, err := h.svc.ListSkills(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(result.Skills))
	for _, s := range result.Skills {
		items = append(items, skillToMap(s))
	}
	return toStruct(map[string]any{
		"skills":          items,
		"next_page_token": result.NextPageToken,
	})
}

// AddEmployeeSkill は社員にスキルを登録します。
func (h *SkillGrpcHandler) AddEmployeeSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in skill.AddEmployeeSkillInput
	if in.EmployeeID, err = r.str("employee_id"); err != nil {
		return nil, err
	}
	if in.SkillID, err = r.str("skill_id"); err != nil {
		return nil, err
	}
	proficiency, err := r.str("proficiency_level")
	if err != nil {
		return nil, err
	}
	in.Proficiency = skill.Proficiency(proficiency)
	if in.YearsOfExperience, _, err = r.number("years_of_experience"); err != nil {
		return nil, err
	}
	if in.LastUsedDate, err = r.date("last_used_date"); err != nil {
		return nil, err
	}
	if in.AcquiredDate, err = r.date("acquired_date"); err != nil {
		return nil, err
	}

	created, err := h.svc.AddEmployeeSkill(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(map[string]any{"employee_skill": employeeSkillToMap(created)})
}

// UpdateEmployeeSkill は社員スキルを更新します。指定されたキーのみ変更します。
func (h *SkillGrpcHandler) UpdateEmployeeSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in skill.UpdateEmployeeSkillInput
	if in.ID, err = r.str("employee_skill_id"); err != nil {
		return nil, err
	}
	proficiency, err := r.optStr("proficiency_level")
	if err != nil {
		return nil, err
	}
	if proficiency != nil {
		p := skill.Proficiency(*proficiency)
		in.Proficiency = &p
	}
	if in.YearsOfExperience, err = r.optFloat("years_of_experience"); err != nil {
		return nil, err
	}
	if r.has("last_used_date") {
		in.LastUsedDateSet = true
		if in.LastUsedDate, err = r.date("last_used_date"); err != nil {
			return nil, err
		}
	}

	updated, err := h.svc.UpdateEmployeeSkill(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(map[string]any{"employee_skill": employeeSkillToMap(updated)})
}

// RemoveEmployeeSkill は社員スキルを削除します。
func (h *SkillGrpcHandler) RemoveEmployeeSkill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}
	id, err := r.str("employee_skill_id")
	if err != nil {
		return nil, err
	}

	if err := h.svc.RemoveEmployeeSkill(ctx, skill.RemoveEmployeeSkillInput{ID: id}); err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(map[string]any{"employee_skill_id": id})
}

// ListEmployeeSkills は社員スキルをスキル名付きで一覧します。
func (h *SkillGrpcHandler) ListEmployeeSkills(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in skill.ListEmployeeSkillsInput
	if in.EmployeeID, err = r.str("employee_id"); err != nil {
		return nil, err
	}
	if in.SkillID, err = r.str("skill_id"); err != nil {
		return nil, err
	}

	details, err := h.svc.ListEmployeeSkills(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(details))
	for _, d := range details {
		items = append(items, employeeSkillToMap(d))
	}
	return toStruct(map[string]any{"employee_skills": items})
}

// SearchAvailability はスキルを持つ社員を空き率の高い順に返します。
func (h *SkillGrpcHandler) SearchAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := newRequest(req)
	if err != nil {
		return nil, err
	}

	var in skill.SearchAvailabilityInput
	if in.SkillID, err = r.str("skill_id"); err != nil {
		return nil, err
	}
	proficiency, err := r.optStr("proficiency_level")
	if err != nil {
		return nil, err
	}
	if proficiency != nil {
		p := skill.Proficiency(*proficiency)
		in.Proficiency = &p
	}
	if in.MinYears, _, err = r.number("min_years_of_experience"); err != nil {
		return nil, err
	}
	if in.Location, err = r.str("working_location"); err != nil {
		return nil, err
	}
	if in.Department, err = r.str("department"); err != nil {
		return nil, err
	}
	employeeType, err := r.optStr("employee_type")
	if err != nil {
		return nil, err
	}
	if employeeType != nil {
		t := employee.Type(*employeeType)
		in.EmployeeType = &t
	}
	if in.MinAvailability, err = r.integer("min_availability"); err != nil {
		return nil, err
	}

	candidates, err := h.svc.SearchAvailability(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, map[string]any{
			"employee":           employeeToMap(c.Employee),
			"employee_skill":     employeeSkillToMap(c.Skill),
			"current_allocation": c.CurrentAllocation,
			"availability":       c.Availability,
			"band":               bandToMap(c.Band),
		})
	}
	return toStruct(map[string]any{"candidates": items})
}

func skillToMap(s *skill.Skill) map[string]any {
	if s == nil {
		return nil
	}
	return map[string]any{
		"skill_id":       s.ID,
		"skill_name":     s.Name,
		"skill_category": string(s.Category),
		"description":    s.Description,
		"created_at":     s.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func employeeSkillToMap(d *skill.EmployeeSkillDetail) map[string]any {
	if d == nil {
		return nil
	}
	return map[string]any{
		"employee_skill_id":   d.ID,
		"employee_id":         d.EmployeeID,
		"skill_id":            d.SkillID,
		"skill_name":          d.SkillName,
		"skill_category":      d.SkillCategory,
		"proficiency_level":   string(d.Proficiency),
		"years_of_experience": d.YearsOfExperience,
		"last_used_date":      optionalDate(d.LastUsedDate),
		"acquired_date":       optionalDate(d.AcquiredDate),
		"created_at":          d.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":          d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
