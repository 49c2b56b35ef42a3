package skill

import "errors"

var (
	// ErrSkillNotFound はスキルが存在しない場合に返却されます。
	ErrSkillNotFound = errors.New("skill: not found")
	// ErrSkillAlreadyExists はスキル ID 重複時に返却されます。
	ErrSkillAlreadyExists = errors.New("skill: id already exists")
	// ErrEmployeeSkillNotFound は社員スキルが存在しない場合に返却されます。
	ErrEmployeeSkillNotFound = errors.New("skill: employee skill not found")
	// ErrEmployeeSkillAlreadyExists は同じ社員とスキルの組が登録済みの場合に返却されます。
	ErrEmployeeSkillAlreadyExists = errors.New("skill: employee already has this skill")
	ErrInvalidID                  = errors.New("skill: invalid id")
	ErrInvalidName                = errors.New("skill: invalid name")
	ErrInvalidCategory            = errors.New("skill: invalid category")
	ErrInvalidDescription         = errors.New("skill: invalid description")
	ErrInvalidEmployeeID          = errors.New("skill: invalid employee id")
	ErrInvalidSkillID             = errors.New("skill: invalid skill id")
	ErrInvalidProficiency         = errors.New("skill: invalid proficiency level")
	ErrInvalidExperience          = errors.New("skill: years of experience must be between 0 and 60")
	ErrInvalidDate                = errors.New("skill: invalid date")
	ErrInvalidAvailability        = errors.New("skill: minimum availability must be between 0 and 100")
	ErrInvalidPageSize            = errors.New("skill: invalid page size")
	ErrInvalidPageToken           = errors.New("skill: invalid page token")
)
