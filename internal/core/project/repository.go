package project

import "context"

// Repository はプロジェクト永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, project *Project) (*Project, error)
	Update(ctx context.Context, project *Project) (*Project, error)
	FindByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, filter ListProjectsFilter) ([]*Project, string, error)
}

// ListProjectsFilter は一覧取得用フィルタです。
type ListProjectsFilter struct {
	Status *Status
	Code   *Code
	Limit  int
	Offset int
}

// Matches はフィルタ条件にプロジェクトが合致するかを返します。
func (f ListProjectsFilter) Matches(p *Project) bool {
	if p == nil {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.Code != nil && p.Code != *f.Code {
		return false
	}
	return true
}
