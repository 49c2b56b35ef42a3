package employee

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
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

	maxIDLength   = 20
	maxNameLength = 100
)

var employeeIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// CeilingGuard は社員が稼働率上限の対象になる更新を、アサインメント台帳と同じ排他の下で検証します。
type CeilingGuard interface {
	// WithEmployeeLock は社員単位の排他を取得して fn を実行します。
	WithEmployeeLock(ctx context.Context, employeeID string, fn func(context.Context) error) error
	// EnsureWithinCeiling は現在の稼働率が上限以内であることを検証します。
	// トランザクション内で呼ばれ、ストア側のロックもそこで取得します。
	EnsureWithinCeiling(ctx context.Context, employeeID string) error
}

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
	guard CeilingGuard
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithCeilingGuard は請求対象化や復職時の稼働率検証を設定します。
func WithCeilingGuard(guard CeilingGuard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{repo: repo, clock: clock, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	ID               string
	Name             string
	Email            string
	Type             Type
	Department       string
	WorkingLocation  string
	Status           *Status
	IsBillable       bool
	JoiningDate      time.Time
	ExitDate         *time.Time
	BaseCostPerMonth float64
}

// UpdateEmployeeInput は社員更新時の入力です。nil のフィールドは変更しません。
type UpdateEmployeeInput struct {
	ID               string
	Name             *string
	Email            *string
	Type             *Type
	Department       *string
	WorkingLocation  *string
	Status           *Status
	IsBillable       *bool
	JoiningDate      *time.Time
	ExitDate         *time.Time
	ExitDateSet      bool
	BaseCostPerMonth *float64
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	PageSize   int
	PageToken  string
	Status     *Status
	Billable   *bool
	Department string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// CreateEmployee は新しい社員を登録します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	id, err := NormalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	if !isValidType(in.Type) {
		return nil, ErrInvalidType
	}

	department, err := normalizeRequired(in.Department, ErrInvalidDepartment)
	if err != nil {
		return nil, err
	}

	location, err := normalizeRequired(in.WorkingLocation, ErrInvalidLocation)
	if err != nil {
		return nil, err
	}

	if err := validateBaseCost(in.BaseCostPerMonth); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	joining, err := s.normalizeJoiningDate(in.JoiningDate, now)
	if err != nil {
		return nil, err
	}
	exit := normalizeDate(in.ExitDate)
	if err := validateEmploymentPeriod(joining, exit); err != nil {
		return nil, err
	}

	status := StatusActive
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureIDNotExists(txCtx, id); err != nil {
			return err
		}

		emp := &Employee{
			ID:               id,
			Name:             name,
			Email:            email,
			Type:             in.Type,
			Department:       department,
			WorkingLocation:  location,
			Status:           status,
			IsBillable:       in.IsBillable,
			JoiningDate:      joining,
			ExitDate:         cloneTime(exit),
			BaseCostPerMonth: in.BaseCostPerMonth,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		result, err := s.repo.Create(txCtx, emp)
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

// UpdateEmployee は社員情報を部分更新します。
// 更新によって稼働率上限の対象になる場合は、現在の稼働率が上限以内であることを先に検証します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	id, err := NormalizeID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	if s.guard == nil || !in.mayEnterCeiling() {
		return s.update(ctx, id, in)
	}

	var updated *Employee
	if err := s.guard.WithEmployeeLock(ctx, id, func(lockedCtx context.Context) error {
		result, err := s.update(lockedCtx, id, in)
		updated = result
		return err
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// mayEnterCeiling は請求対象や在籍状態を変更する入力かを返します。
func (in UpdateEmployeeInput) mayEnterCeiling() bool {
	return in.IsBillable != nil || in.Status != nil
}

func (s *Service) update(ctx context.Context, id string, in UpdateEmployeeInput) (*Employee, error) {
	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		wasSubject := existing.SubjectToAllocationCeiling()

		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			existing.Name = name
		}

		if in.Email != nil {
			email, err := normalizeEmail(*in.Email)
			if err != nil {
				return err
			}
			existing.Email = email
		}

		if in.Type != nil {
			if !isValidType(*in.Type) {
				return ErrInvalidType
			}
			existing.Type = *in.Type
		}

		if in.Department != nil {
			department, err := normalizeRequired(*in.Department, ErrInvalidDepartment)
			if err != nil {
				return err
			}
			existing.Department = department
		}

		if in.WorkingLocation != nil {
			location, err := normalizeRequired(*in.WorkingLocation, ErrInvalidLocation)
			if err != nil {
				return err
			}
			existing.WorkingLocation = location
		}

		if in.Status != nil {
			if !isValidStatus(*in.Status) {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}

		if in.IsBillable != nil {
			existing.IsBillable = *in.IsBillable
		}

		if in.BaseCostPerMonth != nil {
			if err := validateBaseCost(*in.BaseCostPerMonth); err != nil {
				return err
			}
			existing.BaseCostPerMonth = *in.BaseCostPerMonth
		}

		now := s.clock.Now()
		if in.JoiningDate != nil {
			joining, err := s.normalizeJoiningDate(*in.JoiningDate, now)
			if err != nil {
				return err
			}
			existing.JoiningDate = joining
		}

		if in.ExitDateSet {
			existing.ExitDate = cloneTime(normalizeDate(in.ExitDate))
		}

		if err := validateEmploymentPeriod(existing.JoiningDate, existing.ExitDate); err != nil {
			return err
		}

		if s.guard != nil && !wasSubject && existing.SubjectToAllocationCeiling() {
			if err := s.guard.EnsureWithinCeiling(txCtx, id); err != nil {
				return err
			}
		}

		existing.UpdatedAt = now

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

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	id, err := NormalizeID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var statusPtr *Status
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status := *in.Status
		statusPtr = &status
	}

	var (
		employees []*Employee
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultEmployees, token, err := s.repo.List(txCtx, ListEmployeesFilter{
			Status:     statusPtr,
			Billable:   in.Billable,
			Department: strings.TrimSpace(in.Department),
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return err
		}
		employees = resultEmployees
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, NextPageToken: nextToken}, nil
}

func (s *Service) ensureIDNotExists(ctx context.Context, id string) error {
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil {
		return ErrEmployeeAlreadyExists
	}
	return nil
}

func (s *Service) normalizeJoiningDate(t time.Time, now time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrInvalidJoiningDate
	}
	joining := *normalizeDate(&t)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if joining.After(today) {
		return time.Time{}, ErrInvalidJoiningDate
	}
	return joining, nil
}

// NormalizeID は社員 ID を検証し、前後の空白を除去して返します。
func NormalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxIDLength {
		return "", ErrInvalidID
	}
	if !employeeIDPattern.MatchString(trimmed) {
		return "", ErrInvalidID
	}
	return trimmed, nil
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len([]rune(trimmed)) > maxNameLength {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}

func normalizeRequired(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid
	}
	return trimmed, nil
}

func validateBaseCost(cost float64) error {
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return ErrInvalidBaseCost
	}
	return nil
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	normalized := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &normalized
}

func validateEmploymentPeriod(joining time.Time, exit *time.Time) error {
	if exit == nil {
		return nil
	}
	if exit.Before(joining) {
		return ErrInvalidDateRange
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusExited:
		return true
	default:
		return false
	}
}

func isValidType(t Type) bool {
	switch t {
	case TypeFullTime, TypeIntern, TypeContract:
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
