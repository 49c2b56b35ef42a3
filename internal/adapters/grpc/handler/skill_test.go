package handler

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/skill"
)

type stubSkillUseCase struct {
	createInput skill.CreateSkillInput
	createOut   *skill.Skill
	createErr   error

	addInput skill.AddEmployeeSkillInput
	addOut   *skill.EmployeeSkillDetail
	addErr   error

	updateInput skill.UpdateEmployeeSkillInput
	updateOut   *skill.EmployeeSkillDetail

	removeInput skill.RemoveEmployeeSkillInput
	removeErr   error

	searchInput skill.SearchAvailabilityInput
	searchOut   []*skill.Candidate
	searchErr   error
}

func (s *stubSkillUseCase) CreateSkill(ctx context.Context, in skill.CreateSkillInput) (*skill.Skill, error) {
	s.createInput = in
	return s.createOut, s.createErr
}

func (s *stubSkillUseCase) GetSkill(ctx context.Context, in skill.GetSkillInput) (*skill.Skill, error) {
	return nil, skill.ErrSkillNotFound
}

func (s *stubSkillUseCase) ListSkills(ctx context.Context, in skill.ListSkillsInput) (*skill.ListSkillsResult, error) {
	return &skill.ListSkillsResult{}, nil
}

func (s *stubSkillUseCase) AddEmployeeSkill(ctx context.Context, in skill.AddEmployeeSkillInput) (*skill.EmployeeSkillDetail, error) {
	s.addInput = in
	return s.addOut, s.addErr
}

func (s *stubSkillUseCase) UpdateEmployeeSkill(ctx context.Context, in skill.UpdateEmployeeSkillInput) (*skill.EmployeeSkillDetail, error) {
	s.updateInput = in
	return s.updateOut, nil
}

func (s *stubSkillUseCase) RemoveEmployeeSkill(ctx context.Context, in skill.RemoveEmployeeSkillInput) error {
	s.removeInput = in
	return s.removeErr
}

func (s *stubSkillUseCase) ListEmployeeSkills(ctx context.Context, in skill.ListEmployeeSkillsInput) ([]*skill.EmployeeSkillDetail, error) {
	return nil, nil
}

func (s *stubSkillUseCase) SearchAvailability(ctx context.Context, in skill.SearchAvailabilityInput) ([]*skill.Candidate, error) {
	s.searchInput = in
	return s.searchOut, s.searchErr
}

func sampleEmployeeSkill() *skill.EmployeeSkillDetail {
	now := time.Now().UTC()
	acquired := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)
	return &skill.EmployeeSkillDetail{
		EmployeeSkill: skill.EmployeeSkill{
			ID:                "ES1",
			EmployeeID:        "EMP001",
			SkillID:           "GO",
			Proficiency:       skill.ProficiencyAdvanced,
			YearsOfExperience: 3.5,
			AcquiredDate:      &acquired,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		SkillName:     "Go",
		SkillCategory: string(skill.CategoryBackend),
	}
}

func TestSkillGrpcHandler_CreateSkill(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	stub := &stubSkillUseCase{createOut: &skill.Skill{ID: "GO", Name: "Go", Category: skill.CategoryBackend, CreatedAt: now, UpdatedAt: now}}
	h := NewSkillGrpcHandler(stub)

	resp, err := h.CreateSkill(context.Background(), mustStruct(t, map[string]any{
		"skill_id":       "GO",
		"skill_name":     "Go",
		"skill_category": "Backend",
	}))
	if err != nil {
		t.Fatalf("CreateSkill returned error: %v", err)
	}
	if stub.createInput.Category != skill.CategoryBackend || stub.createInput.Name != "Go" {
		t.Fatalf("unexpected input: %+v", stub.createInput)
	}
	got := resp.GetFields()["skill"].GetStructValue().GetFields()
	if got["skill_category"].GetStringValue() != "Backend" {
		t.Fatalf("unexpected category: %v", got["skill_category"])
	}
}

func TestSkillGrpcHandler_AddEmployeeSkill(t *testing.T) {
	t.Parallel()

	stub := &stubSkillUseCase{addOut: sampleEmployeeSkill()}
	h := NewSkillGrpcHandler(stub)

	resp, err := h.AddEmployeeSkill(context.Background(), mustStruct(t, map[string]any{
		"employee_id":         "EMP001",
		"skill_id":            "GO",
		"proficiency_level":   "Advanced",
		"years_of_experience": 3.5,
		"acquired_date":       "2021-04-01",
	}))
	if err != nil {
		t.Fatalf("AddEmployeeSkill returned error: %v", err)
	}
	if stub.addInput.Proficiency != skill.ProficiencyAdvanced || stub.addInput.YearsOfExperience != 3.5 {
		t.Fatalf("unexpected input: %+v", stub.addInput)
	}
	if stub.addInput.AcquiredDate == nil || stub.addInput.LastUsedDate != nil {
		t.Fatalf("unexpected dates: %+v", stub.addInput)
	}

	got := resp.GetFields()["employee_skill"].GetStructValue().GetFields()
	if got["skill_name"].GetStringValue() != "Go" || got["acquired_date"].GetStringValue() != "2021-04-01" {
		t.Fatalf("unexpected response: %v", got)
	}
	if _, isNull := got["last_used_date"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Fatalf("expected null last used date, got %v", got["last_used_date"])
	}
}

func TestSkillGrpcHandler_AddEmployeeSkill_Duplicate(t *testing.T) {
	t.Parallel()

	stub := &stubSkillUseCase{addErr: skill.ErrEmployeeSkillAlreadyExists}
	h := NewSkillGrpcHandler(stub)

	_, err := h.AddEmployeeSkill(context.Background(), mustStruct(t, map[string]any{
		"employee_id":       "EMP001",
		"skill_id":          "GO",
		"proficiency_level": "Expert",
	}))
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestSkillGrpcHandler_UpdateEmployeeSkill_ClearsLastUsedDate(t *testing.T) {
	t.Parallel()

	stub := &stubSkillUseCase{updateOut: sampleEmployeeSkill()}
	h := NewSkillGrpcHandler(stub)

	_, err := h.UpdateEmployeeSkill(context.Background(), mustStruct(t, map[string]any{
		"employee_skill_id": "ES1",
		"last_used_date":    nil,
	}))
	if err != nil {
		t.Fatalf("UpdateEmployeeSkill returned error: %v", err)
	}
	if !stub.updateInput.LastUsedDateSet || stub.updateInput.LastUsedDate != nil {
		t.Fatalf("expected last used date to be cleared: %+v", stub.updateInput)
	}
	if stub.updateInput.Proficiency != nil || stub.updateInput.YearsOfExperience != nil {
		t.Fatalf("unspecified fields should stay nil: %+v", stub.updateInput)
	}
}

func TestSkillGrpcHandler_RemoveEmployeeSkill_NotFound(t *testing.T) {
	t.Parallel()

	stub := &stubSkillUseCase{removeErr: skill.ErrEmployeeSkillNotFound}
	h := NewSkillGrpcHandler(stub)

	_, err := h.RemoveEmployeeSkill(context.Background(), mustStruct(t, map[string]any{"employee_skill_id": "ES404"}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if stub.removeInput.ID != "ES404" {
		t.Fatalf("unexpected input: %+v", stub.removeInput)
	}
}

func TestSkillGrpcHandler_SearchAvailability(t *testing.T) {
	t.Parallel()

	stub := &stubSkillUseCase{searchOut: []*skill.Candidate{{
		Employee:          sampleEmployee(),
		Skill:             sampleEmployeeSkill(),
		CurrentAllocation: 40,
		Availability:      60,
		Band:              allocation.Classify(40),
	}}}
	h := NewSkillGrpcHandler(stub)

	resp, err := h.SearchAvailability(context.Background(), mustStruct(t, map[string]any{
		"skill_id":                "GO",
		"proficiency_level":       "Advanced",
		"min_years_of_experience": 2,
		"employee_type":           "Full-Time",
		"min_availability":        50,
	}))
	if err != nil {
		t.Fatalf("SearchAvailability returned error: %v", err)
	}

	in := stub.searchInput
	if in.SkillID != "GO" || in.MinYears != 2 || in.MinAvailability != 50 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if in.Proficiency == nil || *in.Proficiency != skill.ProficiencyAdvanced {
		t.Fatalf("unexpected proficiency: %v", in.Proficiency)
	}
	if in.EmployeeType == nil || *in.EmployeeType != employee.TypeFullTime {
		t.Fatalf("unexpected employee type: %v", in.EmployeeType)
	}

	candidates := resp.GetFields()["candidates"].GetListValue().GetValues()
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0].GetStructValue().GetFields()
	if c["availability"].GetNumberValue() != 60 || c["current_allocation"].GetNumberValue() != 40 {
		t.Fatalf("unexpected candidate: %v", c)
	}
	if c["employee"].GetStructValue().GetFields()["employee_id"].GetStringValue() != "EMP001" {
		t.Fatalf("unexpected employee: %v", c["employee"])
	}
}

func TestSkillGrpcHandler_SearchAvailability_InvalidArgument(t *testing.T) {
	t.Parallel()

	stub := &stubSkillUseCase{searchErr: skill.ErrInvalidAvailability}
	h := NewSkillGrpcHandler(stub)

	_, err := h.SearchAvailability(context.Background(), mustStruct(t, map[string]any{
		"skill_id":         "GO",
		"min_availability": 150,
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	_, err = h.SearchAvailability(context.Background(), mustStruct(t, map[string]any{
		"skill_id":         "GO",
		"min_availability": 12.5,
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for fractional availability, got %v", err)
	}
}
