package handler

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
)

type stubAssignmentUseCase struct {
	createInput allocation.CreateAssignmentInput
	createOut   *allocation.Assignment
	createErr   error

	transferInput allocation.TransferAssignmentInput
	transferOut   *allocation.Assignment
	transferErr   error

	completeInput allocation.CompleteAssignmentInput
	markInput     allocation.MarkCriticalInput
	listInput     allocation.ListAssignmentsInput

	current int
	cost    int64
}

func (s *stubAssignmentUseCase) CreateAssignment(ctx context.Context, in allocation.CreateAssignmentInput) (*allocation.Assignment, error) {
	s.createInput = in
	return s.createOut, s.createErr
}

func (s *stubAssignmentUseCase) TransferAssignment(ctx context.Context, in allocation.TransferAssignmentInput) (*allocation.Assignment, error) {
	s.transferInput = in
	return s.transferOut, s.transferErr
}

func (s *stubAssignmentUseCase) CompleteAssignment(ctx context.Context, in allocation.CompleteAssignmentInput) (*allocation.Assignment, error) {
	s.completeInput = in
	return sampleAssignment(), nil
}

func (s *stubAssignmentUseCase) MarkCritical(ctx context.Context, in allocation.MarkCriticalInput) (*allocation.Assignment, error) {
	s.markInput = in
	return sampleAssignment(), nil
}

func (s *stubAssignmentUseCase) GetAssignment(ctx context.Context, in allocation.GetAssignmentInput) (*allocation.Assignment, error) {
	return sampleAssignment(), nil
}

func (s *stubAssignmentUseCase) ListAssignments(ctx context.Context, in allocation.ListAssignmentsInput) (*allocation.ListAssignmentsResult, error) {
	s.listInput = in
	return &allocation.ListAssignmentsResult{Assignments: []*allocation.Assignment{sampleAssignment()}}, nil
}

func (s *stubAssignmentUseCase) CurrentAllocation(ctx context.Context, employeeID string) (int, error) {
	return s.current, nil
}

func (s *stubAssignmentUseCase) ProjectMonthlyCost(ctx context.Context, projectID string) (int64, error) {
	return s.cost, nil
}

func (s *stubAssignmentUseCase) UtilizationBand(percentage int) allocation.Band {
	return allocation.Classify(percentage)
}

func sampleAssignment() *allocation.Assignment {
	now := time.Now().UTC()
	return &allocation.Assignment{
		ID:                   "A1",
		EmployeeID:           "EMP001",
		ProjectID:            "PRJ001",
		Role:                 "Lead",
		AllocationPercentage: 60,
		Status:               allocation.StatusActive,
		TransferType:         allocation.TransferTypeNew,
		DateAllocated:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestAssignmentGrpcHandler_CreateAssignment(t *testing.T) {
	t.Parallel()

	stub := &stubAssignmentUseCase{createOut: sampleAssignment()}
	h := NewAssignmentGrpcHandler(stub)

	resp, err := h.CreateAssignment(context.Background(), mustStruct(t, map[string]any{
		"employee_id":           "EMP001",
		"project_id":            "PRJ001",
		"role":                  "Lead",
		"allocation_percentage": 60,
		"date_allocated":        "2024-06-01",
		"is_critical_resource":  true,
		"criticality_notes":     "only billing engineer",
	}))
	if err != nil {
		t.Fatalf("CreateAssignment returned error: %v", err)
	}

	in := stub.createInput
	if in.AllocationPercentage != 60 || !in.IsCriticalResource || in.TransferType != "" {
		t.Fatalf("unexpected input: %+v", in)
	}
	if !in.DateAllocated.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", in.DateAllocated)
	}

	a := resp.GetFields()["assignment"].GetStructValue().GetFields()
	if a["allocation_percentage"].GetNumberValue() != 60 || a["status"].GetStringValue() != "Active" {
		t.Fatalf("unexpected assignment: %v", a)
	}
	if _, ok := a["date_exited"].GetKind().(*structpb.Value_NullValue); !ok {
		t.Fatalf("date_exited should be null: %v", a["date_exited"])
	}
}

func TestAssignmentGrpcHandler_CreateAssignment_Exceeded(t *testing.T) {
	t.Parallel()

	stub := &stubAssignmentUseCase{createErr: &allocation.AllocationExceededError{Current: 60, Requested: 50, WouldBe: 110}}
	h := NewAssignmentGrpcHandler(stub)

	_, err := h.CreateAssignment(context.Background(), mustStruct(t, map[string]any{
		"employee_id":           "EMP001",
		"project_id":            "PRJ002",
		"role":                  "Reviewer",
		"allocation_percentage": 50,
	}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestAssignmentGrpcHandler_TransferAssignment(t *testing.T) {
	t.Parallel()

	stub := &stubAssignmentUseCase{transferOut: sampleAssignment()}
	h := NewAssignmentGrpcHandler(stub)

	_, err := h.TransferAssignment(context.Background(), mustStruct(t, map[string]any{
		"from_assignment_id":    "A1",
		"to_project_id":         "PRJ002",
		"allocation_percentage": 80,
		"transfer_type":         "Transfer-Client",
		"effective_date":        "2024-07-01",
	}))
	if err != nil {
		t.Fatalf("TransferAssignment returned error: %v", err)
	}

	in := stub.transferInput
	if in.FromAssignmentID != "A1" || in.ToProjectID != "PRJ002" || in.AllocationPercentage != 80 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if in.TransferType != allocation.TransferTypeClient {
		t.Fatalf("unexpected transfer type: %s", in.TransferType)
	}
	if !in.EffectiveDate.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected effective date: %v", in.EffectiveDate)
	}
}

func TestAssignmentGrpcHandler_CurrentAllocationAndCost(t *testing.T) {
	t.Parallel()

	h := NewAssignmentGrpcHandler(&stubAssignmentUseCase{current: 85, cost: 91000})

	resp, err := h.GetCurrentAllocation(context.Background(), mustStruct(t, map[string]any{"employee_id": "EMP001"}))
	if err != nil {
		t.Fatalf("GetCurrentAllocation returned error: %v", err)
	}
	if resp.GetFields()["current_allocation"].GetNumberValue() != 85 {
		t.Fatalf("unexpected current allocation: %v", resp.GetFields()["current_allocation"])
	}
	band := resp.GetFields()["band"].GetStructValue().GetFields()
	if band["label"].GetStringValue() != "High" || band["tier"].GetStringValue() != string(allocation.TierHigh) {
		t.Fatalf("unexpected band: %v", band)
	}

	resp, err = h.GetProjectMonthlyCost(context.Background(), mustStruct(t, map[string]any{"project_id": "PRJ001"}))
	if err != nil {
		t.Fatalf("GetProjectMonthlyCost returned error: %v", err)
	}
	if resp.GetFields()["monthly_cost"].GetNumberValue() != 91000 {
		t.Fatalf("unexpected monthly cost: %v", resp.GetFields()["monthly_cost"])
	}
}

func TestAssignmentGrpcHandler_ListAssignments_StatusFilter(t *testing.T) {
	t.Parallel()

	stub := &stubAssignmentUseCase{}
	h := NewAssignmentGrpcHandler(stub)

	_, err := h.ListAssignments(context.Background(), mustStruct(t, map[string]any{
		"employee_id": "EMP001",
		"status":      "Transferred",
		"page_token":  "50",
	}))
	if err != nil {
		t.Fatalf("ListAssignments returned error: %v", err)
	}
	if stub.listInput.Status == nil || *stub.listInput.Status != allocation.StatusTransferred {
		t.Fatalf("unexpected status filter: %v", stub.listInput.Status)
	}
	if stub.listInput.PageToken != "50" || stub.listInput.EmployeeID != "EMP001" {
		t.Fatalf("unexpected list input: %+v", stub.listInput)
	}
}

func TestAssignmentGrpcHandler_ClassifyUtilization(t *testing.T) {
	t.Parallel()

	h := NewAssignmentGrpcHandler(&stubAssignmentUseCase{})

	tests := []struct {
		percentage int
		label      string
		tier       allocation.Tier
	}{
		{percentage: 100, label: "Fully Allocated", tier: allocation.TierFull},
		{percentage: 75, label: "High", tier: allocation.TierHigh},
		{percentage: 50, label: "Medium", tier: allocation.TierMedium},
		{percentage: 25, label: "Low", tier: allocation.TierLow},
		{percentage: 0, label: "Bench", tier: allocation.TierBench},
	}
	for _, tt := range tests {
		resp, err := h.ClassifyUtilization(context.Background(), mustStruct(t, map[string]any{"percentage": tt.percentage}))
		if err != nil {
			t.Fatalf("ClassifyUtilization(%d) returned error: %v", tt.percentage, err)
		}
		band := resp.GetFields()["band"].GetStructValue().GetFields()
		if band["label"].GetStringValue() != tt.label || band["tier"].GetStringValue() != string(tt.tier) {
			t.Fatalf("ClassifyUtilization(%d): unexpected band %v", tt.percentage, band)
		}
	}

	for _, fields := range []map[string]any{
		{"percentage": -1},
		{"percentage": 12.5},
		{},
	} {
		if _, err := h.ClassifyUtilization(context.Background(), mustStruct(t, fields)); status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument for %v, got %v", fields, err)
		}
	}
}
