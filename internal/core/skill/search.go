package skill

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
)

// SearchAvailabilityInput はスキルによる空き人員検索の条件です。
// SkillID は必須で、それ以外の空の条件は無視します。
type SearchAvailabilityInput struct {
	SkillID         string
	Proficiency     *Proficiency
	MinYears        float64
	Location        string
	Department      string
	EmployeeType    *employee.Type
	MinAvailability int
}

// Candidate は検索に合致した社員と、その時点の稼働状況です。
type Candidate struct {
	Employee          *employee.Employee
	Skill             *EmployeeSkillDetail
	CurrentAllocation int
	Availability      int
	Band              allocation.Band
}

// Availability は稼働率から空き率を求めます。上限を超えた稼働率は 100% として扱います。
func Availability(current int) int {
	if current >= allocation.MaxAllocation {
		return 0
	}
	if current < 0 {
		return allocation.MaxAllocation
	}
	return allocation.MaxAllocation - current
}

// SearchAvailability は指定スキルを持つ在籍中の社員を探し、現在の稼働率と空き率を付けて返します。
// 空き率の高い順、同率なら習熟度、経験年数、社員 ID の順に並べます。
func (s *Service) SearchAvailability(ctx context.Context, in SearchAvailabilityInput) ([]*Candidate, error) {
	skillID := strings.TrimSpace(in.SkillID)
	if skillID == "" {
		return nil, ErrInvalidSkillID
	}
	if in.Proficiency != nil && !isValidProficiency(*in.Proficiency) {
		return nil, ErrInvalidProficiency
	}
	if err := validateExperience(in.MinYears); err != nil {
		return nil, err
	}
	if in.MinAvailability < 0 || in.MinAvailability > allocation.MaxAllocation {
		return nil, ErrInvalidAvailability
	}

	location := strings.TrimSpace(in.Location)
	department := strings.TrimSpace(in.Department)

	var candidates []*Candidate
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		sk, err := s.skills.FindByID(txCtx, skillID)
		if err != nil {
			return err
		}

		holders, err := s.employeeSkills.List(txCtx, EmployeeSkillFilter{SkillID: skillID})
		if err != nil {
			return err
		}

		for _, es := range holders {
			if in.Proficiency != nil && es.Proficiency != *in.Proficiency {
				continue
			}
			if es.YearsOfExperience < in.MinYears {
				continue
			}

			emp, err := s.employees.FindByID(txCtx, es.EmployeeID)
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if emp.Status != employee.StatusActive {
				continue
			}
			if location != "" && !strings.EqualFold(emp.WorkingLocation, location) {
				continue
			}
			if department != "" && !strings.EqualFold(emp.Department, department) {
				continue
			}
			if in.EmployeeType != nil && emp.Type != *in.EmployeeType {
				continue
			}

			active, err := s.assignments.ListActiveByEmployee(txCtx, emp.ID)
			if err != nil {
				return err
			}
			current := allocation.CurrentAllocation(active, emp.ID)
			available := Availability(current)
			if available < in.MinAvailability {
				continue
			}

			candidates = append(candidates, &Candidate{
				Employee:          emp,
				Skill:             detailOf(es, sk),
				CurrentAllocation: current,
				Availability:      available,
				Band:              allocation.Classify(current),
			})
		}
		return nil
	}); err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return candidates, nil
}

func sortCandidates(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Availability != b.Availability {
			return a.Availability > b.Availability
		}
		if ra, rb := a.Skill.Proficiency.Rank(), b.Skill.Proficiency.Rank(); ra != rb {
			return ra > rb
		}
		if a.Skill.YearsOfExperience != b.Skill.YearsOfExperience {
			return a.Skill.YearsOfExperience > b.Skill.YearsOfExperience
		}
		return a.Employee.ID < b.Employee.ID
	})
}
