package allocation

// MaxAllocation は社員一人あたりの稼働率上限です。
const MaxAllocation = 100

// CurrentAllocation は社員の Active なアサインメントの稼働率合計を返します。
// 上限は呼び出し側で担保するため、ここでは制限しません。
func CurrentAllocation(assignments []*Assignment, employeeID string) int {
	total := 0
	for _, a := range assignments {
		if a.IsActive() && a.EmployeeID == employeeID {
			total += a.AllocationPercentage
		}
	}
	return total
}

// AllocationByEmployee は Active なアサインメントの稼働率を社員ごとに合計します。
// 複数社員を一度に集計する場合は CurrentAllocation を繰り返すよりこちらを使います。
func AllocationByEmployee(assignments []*Assignment) map[string]int {
	totals := make(map[string]int)
	for _, a := range assignments {
		if a.IsActive() {
			totals[a.EmployeeID] += a.AllocationPercentage
		}
	}
	return totals
}

// ValidatePercentage は稼働率の書式を検証します。
func ValidatePercentage(requested int) error {
	if requested < 1 || requested > MaxAllocation {
		return ErrInvalidAllocation
	}
	return nil
}

// ValidateNewAllocation は追加の稼働率が上限を超えないかを判定します。
// 社員属性による免除判定は含みません。
func ValidateNewAllocation(assignments []*Assignment, employeeID string, requested int) error {
	if err := ValidatePercentage(requested); err != nil {
		return err
	}

	current := CurrentAllocation(assignments, employeeID)
	if current+requested > MaxAllocation {
		return &AllocationExceededError{
			Current:   current,
			Requested: requested,
			WouldBe:   current + requested,
		}
	}
	return nil
}
