package project

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator はプロジェクト ID を採番します。
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200

	maxNameLength        = 200
	maxDescriptionLength = 500
	minImportance        = 1
	maxImportance        = 10
)

// Service はプロジェクトに関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
	ids   IDGenerator
}

// UseCase はプロジェクトユースケースの公開インターフェースです。
type UseCase interface {
	CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error)
	GetProject(ctx context.Context, in GetProjectInput) (*Project, error)
	ListProjects(ctx context.Context, in ListProjectsInput) (*ListProjectsResult, error)
	UpdateProject(ctx context.Context, in UpdateProjectInput) (*Project, error)
}

// NewService は Service を生成します。ids が nil の場合は UUID を採番します。
func NewService(repo Repository, clock Clock, tx TransactionManager, ids IDGenerator) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if ids == nil {
		ids = uuidGenerator{}
	}
	return &Service{repo: repo, clock: clock, tx: tx, ids: ids}
}

// CreateProjectInput はプロジェクト作成時の入力です。ID が空の場合は採番します。
type CreateProjectInput struct {
	ID                  string
	Code                Code
	Name                string
	ClientName          *string
	Description         string
	Status              *Status
	StartDate           time.Time
	EndDate             *time.Time
	BudgetCap           *float64
	StrategicImportance int
}

// UpdateProjectInput はプロジェクト更新時の入力です。
type UpdateProjectInput struct {
	ID                  string
	Name                *string
	ClientName          *string
	ClientNameSet       bool
	Description         *string
	Status              *Status
	EndDate             *time.Time
	EndDateSet          bool
	BudgetCap           *float64
	BudgetCapSet        bool
	StrategicImportance *int
}

// GetProjectInput はプロジェクト取得時の入力です。
type GetProjectInput struct {
	ID string
}

// ListProjectsInput は一覧取得時の入力です。
type ListProjectsInput struct {
	PageSize  int
	PageToken string
	Status    *Status
	Code      *Code
}

// ListProjectsResult は一覧取得結果を表します。
type ListProjectsResult struct {
	Projects      []*Project
	NextPageToken string
}

// CreateProject は新しいプロジェクトを作成します。
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error) {
	if !isValidCode(in.Code) {
		return nil, ErrInvalidCode
	}

	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	client := normalizeOptional(in.ClientName)
	if in.Code.RequiresClient() && client == nil {
		return nil, ErrClientNameRequired
	}

	description, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}

	status := StatusPlanning
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	if in.StartDate.IsZero() {
		return nil, ErrInvalidStartDate
	}
	start := *normalizeDate(&in.StartDate)
	end := normalizeDate(in.EndDate)
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}

	if err := validateBudgetCap(in.BudgetCap); err != nil {
		return nil, err
	}

	if err := validateImportance(in.StrategicImportance); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = s.ids.NewID()
	}

	var created *Project
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureIDNotExists(txCtx, id); err != nil {
			return err
		}

		now := s.clock.Now()
		p := &Project{
			ID:                  id,
			Code:                in.Code,
			Name:                name,
			ClientName:          client,
			Description:         description,
			Status:              status,
			StartDate:           start,
			EndDate:             end,
			BudgetCap:           cloneFloat(in.BudgetCap),
			StrategicImportance: in.StrategicImportance,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		result, err := s.repo.Create(txCtx, p)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateProject はプロジェクト情報を更新します。
func (s *Service) UpdateProject(ctx context.Context, in UpdateProjectInput) (*Project, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Project
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, strings.TrimSpace(in.ID))
		if err != nil {
			return err
		}

		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			existing.Name = name
		}

		if in.ClientNameSet {
			existing.ClientName = normalizeOptional(in.ClientName)
		}
		if existing.Code.RequiresClient() && existing.ClientName == nil {
			return ErrClientNameRequired
		}

		if in.Description != nil {
			description, err := normalizeDescription(*in.Description)
			if err != nil {
				return err
			}
			existing.Description = description
		}

		if in.Status != nil {
			if !isValidStatus(*in.Status) {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}

		if in.EndDateSet {
			existing.EndDate = normalizeDate(in.EndDate)
		}
		if err := validatePeriod(existing.StartDate, existing.EndDate); err != nil {
			return err
		}

		if in.BudgetCapSet {
			if err := validateBudgetCap(in.BudgetCap); err != nil {
				return err
			}
			existing.BudgetCap = cloneFloat(in.BudgetCap)
		}

		if in.StrategicImportance != nil {
			if err := validateImportance(*in.StrategicImportance); err != nil {
				return err
			}
			existing.StrategicImportance = *in.StrategicImportance
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// GetProject は ID でプロジェクトを取得します。
func (s *Service) GetProject(ctx context.Context, in GetProjectInput) (*Project, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var found *Project
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}

	return found, nil
}

// ListProjects はプロジェクトの一覧を取得します。
func (s *Service) ListProjects(ctx context.Context, in ListProjectsInput) (*ListProjectsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}
	if in.Code != nil && !isValidCode(*in.Code) {
		return nil, ErrInvalidCode
	}

	var (
		projects  []*Project
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, ListProjectsFilter{
			Status: in.Status,
			Code:   in.Code,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		projects = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListProjectsResult{
		Projects:      projects,
		NextPageToken: nextToken,
	}, nil
}

func (s *Service) ensureIDNotExists(ctx context.Context, id string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, ErrProjectNotFound) {
		return err
	}
	if p != nil {
		return ErrProjectAlreadyExists
	}
	return nil
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len([]rune(trimmed)) > maxNameLength {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func normalizeDescription(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len([]rune(trimmed)) > maxDescriptionLength {
		return "", ErrInvalidDescription
	}
	return trimmed, nil
}

func normalizeOptional(raw *string) *string {
	if raw == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	normalized := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &normalized
}

func validatePeriod(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

func validateBudgetCap(budget *float64) error {
	if budget == nil {
		return nil
	}
	if *budget < 0 || math.IsNaN(*budget) || math.IsInf(*budget, 0) {
		return ErrInvalidBudgetCap
	}
	return nil
}

func validateImportance(v int) error {
	if v < minImportance || v > maxImportance {
		return ErrInvalidImportance
	}
	return nil
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusPlanning, StatusActive, StatusOnHold, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

func isValidCode(code Code) bool {
	switch code {
	case CodeClient, CodeMarketing, CodeOperations, CodeProduct, CodeResearch, CodeSupport, CodeUpgrade, CodeEnterprise:
		return true
	default:
		return false
	}
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
