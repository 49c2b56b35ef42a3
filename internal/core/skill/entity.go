package skill

import "time"

// Category はスキルの分類です。
type Category string

const (
	CategoryFrontend   Category = "Frontend"
	CategoryBackend    Category = "Backend"
	CategoryDesign     Category = "Design"
	CategoryQA         Category = "QA"
	CategoryDevOps     Category = "DevOps"
	CategorySoftSkills Category = "Soft-Skills"
	CategoryDomain     Category = "Domain"
)

// Proficiency は社員のスキル習熟度です。
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "Beginner"
	ProficiencyIntermediate Proficiency = "Intermediate"
	ProficiencyAdvanced     Proficiency = "Advanced"
	ProficiencyExpert       Proficiency = "Expert"
)

// Rank は習熟度の序列です。未知の値は 0 です。
func (p Proficiency) Rank() int {
	switch p {
	case ProficiencyBeginner:
		return 1
	case ProficiencyIntermediate:
		return 2
	case ProficiencyAdvanced:
		return 3
	case ProficiencyExpert:
		return 4
	default:
		return 0
	}
}

// Unknown は参照先のスキルが見つからない場合の表示名です。
const Unknown = "Unknown"

// Skill はスキルカタログの項目です。
type Skill struct {
	ID          string
	Name        string
	Category    Category
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EmployeeSkill は社員が保有するスキルです。社員とスキルの組は一意です。
type EmployeeSkill struct {
	ID                string
	EmployeeID        string
	SkillID           string
	Proficiency       Proficiency
	YearsOfExperience float64
	LastUsedDate      *time.Time
	AcquiredDate      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone は EmployeeSkill のディープコピーを返します。
func (es *EmployeeSkill) Clone() *EmployeeSkill {
	if es == nil {
		return nil
	}
	c := *es
	c.LastUsedDate = cloneTime(es.LastUsedDate)
	c.AcquiredDate = cloneTime(es.AcquiredDate)
	return &c
}

// EmployeeSkillDetail はスキル名とカテゴリを付与した社員スキルです。
// スキルがカタログに無い場合、名前とカテゴリは Unknown になります。
type EmployeeSkillDetail struct {
	EmployeeSkill
	SkillName     string
	SkillCategory string
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
