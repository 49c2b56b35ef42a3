package sqlite

import (
	"context"
	"errors"

	"github.com/ogurasousui/resource-allocation/internal/core/project"
)

// ProjectRepository は SQLite レコードストア上のプロジェクトリポジトリです。
type ProjectRepository struct {
	store *Store
}

// Create はプロジェクトを保存します。
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) (*project.Project, error) {
	record := newProjectRecord(p)
	if err := r.store.insert(ctx, kindProject, p.ID, record); err != nil {
		return nil, translateProjectError(err)
	}
	return record.entity(), nil
}

// Update はプロジェクトを上書きします。
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project) (*project.Project, error) {
	record := newProjectRecord(p)
	if err := r.store.replace(ctx, kindProject, p.ID, record); err != nil {
		return nil, translateProjectError(err)
	}
	return record.entity(), nil
}

// FindByID は ID でプロジェクトを取得します。
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*project.Project, error) {
	var record projectRecord
	if err := r.store.get(ctx, kindProject, id, &record); err != nil {
		return nil, translateProjectError(err)
	}
	return record.entity(), nil
}

// List は登録順にプロジェクトを返します。
func (r *ProjectRepository) List(ctx context.Context, filter project.ListProjectsFilter) ([]*project.Project, string, error) {
	if filter.Limit <= 0 {
		return nil, "", project.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", project.ErrInvalidPageToken
	}

	var matches []match
	if filter.Status != nil {
		matches = append(matches, match{field: "status", value: string(*filter.Status)})
	}
	if filter.Code != nil {
		matches = append(matches, match{field: "project_code", value: string(*filter.Code)})
	}

	payloads, err := r.store.selectPayloads(ctx, kindProject, matches, orderBySeq, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, "", err
	}
	projects, err := decodeAll(payloads, (*projectRecord).entity)
	if err != nil {
		return nil, "", err
	}

	page, next := paginate(projects, filter.Limit, filter.Offset)
	return page, next, nil
}

func translateProjectError(err error) error {
	switch {
	case errors.Is(err, errRecordNotFound):
		return project.ErrProjectNotFound
	case errors.Is(err, errRecordExists):
		return project.ErrProjectAlreadyExists
	default:
		return err
	}
}
