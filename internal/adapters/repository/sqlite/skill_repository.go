package sqlite

import (
	"context"
	"errors"

	"github.com/ogurasousui/resource-allocation/internal/core/skill"
)

// SkillRepository は SQLite レコードストア上のスキルカタログです。
type SkillRepository struct {
	store *Store
}

// Create はスキルを保存します。
func (r *SkillRepository) Create(ctx context.Context, s *skill.Skill) (*skill.Skill, error) {
	record := newSkillRecord(s)
	if err := r.store.insert(ctx, kindSkill, s.ID, record); err != nil {
		return nil, translateSkillError(err)
	}
	return record.entity(), nil
}

// FindByID は ID でスキルを取得します。
func (r *SkillRepository) FindByID(ctx context.Context, id string) (*skill.Skill, error) {
	var record skillRecord
	if err := r.store.get(ctx, kindSkill, id, &record); err != nil {
		return nil, translateSkillError(err)
	}
	return record.entity(), nil
}

// List は登録順にスキルを返します。
func (r *SkillRepository) List(ctx context.Context, filter skill.ListSkillsFilter) ([]*skill.Skill, string, error) {
	if filter.Limit <= 0 {
		return nil, "", skill.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", skill.ErrInvalidPageToken
	}

	var matches []match
	if filter.Category != nil {
		matches = append(matches, match{field: "skill_category", value: string(*filter.Category)})
	}

	payloads, err := r.store.selectPayloads(ctx, kindSkill, matches, orderBySeq, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, "", err
	}
	skills, err := decodeAll(payloads, (*skillRecord).entity)
	if err != nil {
		return nil, "", err
	}

	page, next := paginate(skills, filter.Limit, filter.Offset)
	return page, next, nil
}

// EmployeeSkillRepository は SQLite レコードストア上の社員スキルです。
type EmployeeSkillRepository struct {
	store *Store
}

// Create は社員スキルを保存します。同じ社員とスキルの組み合わせは 1 件までです。
func (r *EmployeeSkillRepository) Create(ctx context.Context, es *skill.EmployeeSkill) (*skill.EmployeeSkill, error) {
	existing, err := r.List(ctx, skill.EmployeeSkillFilter{EmployeeID: es.EmployeeID, SkillID: es.SkillID})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, skill.ErrEmployeeSkillAlreadyExists
	}

	record := newEmployeeSkillRecord(es)
	if err := r.store.insert(ctx, kindEmployeeSkill, es.ID, record); err != nil {
		return nil, translateEmployeeSkillError(err)
	}
	return record.entity(), nil
}

// Update は社員スキルを上書きします。
func (r *EmployeeSkillRepository) Update(ctx context.Context, es *skill.EmployeeSkill) (*skill.EmployeeSkill, error) {
	record := newEmployeeSkillRecord(es)
	if err := r.store.replace(ctx, kindEmployeeSkill, es.ID, record); err != nil {
		return nil, translateEmployeeSkillError(err)
	}
	return record.entity(), nil
}

// Delete は社員スキルを削除します。
func (r *EmployeeSkillRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.remove(ctx, kindEmployeeSkill, id); err != nil {
		return translateEmployeeSkillError(err)
	}
	return nil
}

// FindByID は ID で社員スキルを取得します。
func (r *EmployeeSkillRepository) FindByID(ctx context.Context, id string) (*skill.EmployeeSkill, error) {
	var record employeeSkillRecord
	if err := r.store.get(ctx, kindEmployeeSkill, id, &record); err != nil {
		return nil, translateEmployeeSkillError(err)
	}
	return record.entity(), nil
}

// List は条件に合う社員スキルを登録順にすべて返します。
func (r *EmployeeSkillRepository) List(ctx context.Context, filter skill.EmployeeSkillFilter) ([]*skill.EmployeeSkill, error) {
	var matches []match
	if filter.EmployeeID != "" {
		matches = append(matches, match{field: "employee_id", value: filter.EmployeeID})
	}
	if filter.SkillID != "" {
		matches = append(matches, match{field: "skill_id", value: filter.SkillID})
	}

	payloads, err := r.store.selectPayloads(ctx, kindEmployeeSkill, matches, orderBySeq, 0, 0)
	if err != nil {
		return nil, err
	}
	return decodeAll(payloads, (*employeeSkillRecord).entity)
}

func translateSkillError(err error) error {
	switch {
	case errors.Is(err, errRecordNotFound):
		return skill.ErrSkillNotFound
	case errors.Is(err, errRecordExists):
		return skill.ErrSkillAlreadyExists
	default:
		return err
	}
}

func translateEmployeeSkillError(err error) error {
	switch {
	case errors.Is(err, errRecordNotFound):
		return skill.ErrEmployeeSkillNotFound
	case errors.Is(err, errRecordExists):
		return skill.ErrEmployeeSkillAlreadyExists
	default:
		return err
	}
}
