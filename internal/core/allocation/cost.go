package allocation

import (
	"math"

	"github.com/ogurasousui/resource-allocation/internal/core/employee"
)

const (
	// overheadMultiplier は基本給に対する間接費込みの係数です。
	overheadMultiplier = 1.3
	// standardMonthlyHours は月間の標準稼働時間です。
	standardMonthlyHours = 160
)

// HourlyRate は間接費込みの時間単価を返します。
func HourlyRate(baseCostPerMonth float64) float64 {
	return baseCostPerMonth * overheadMultiplier / standardMonthlyHours
}

// AssignmentMonthlyCost はアサインメント一件の月額コストを返します。
// 非請求対象の社員や Active でないアサインメントは 0 です。丸めは行いません。
func AssignmentMonthlyCost(emp *employee.Employee, a *Assignment) float64 {
	if emp == nil || !emp.IsBillable || !a.IsActive() {
		return 0
	}
	return emp.BaseCostPerMonth * overheadMultiplier * (float64(a.AllocationPercentage) / 100)
}

// ProjectMonthlyCost はプロジェクトの月額コストを合算し、最後に一度だけ丸めます。
// employees に存在しない社員を参照するアサインメントは 0 として扱います。
func ProjectMonthlyCost(projectID string, assignments []*Assignment, employees map[string]*employee.Employee) int64 {
	total := 0.0
	for _, a := range assignments {
		if a == nil || a.ProjectID != projectID {
			continue
		}
		total += AssignmentMonthlyCost(employees[a.EmployeeID], a)
	}
	return int64(math.Round(total))
}
