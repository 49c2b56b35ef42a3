package skill

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ogurasousui/resource-allocation/internal/core/employee"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator はスキルと社員スキルの ID を採番します。
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
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200

	maxNameLength        = 100
	maxDescriptionLength = 500
	maxExperienceYears   = 60
)

// Service はスキルカタログ、社員スキル、スキルによる空き人員検索をまとめます。
type Service struct {
	skills         Repository
	employeeSkills EmployeeSkillRepository
	employees      EmployeeFinder
	assignments    AllocationReader
	clock          Clock
	tx             TransactionManager
	ids            IDGenerator
}

// UseCase はスキルユースケースの公開インターフェースです。
type UseCase interface {
	CreateSkill(ctx context.Context, in CreateSkillInput) (*Skill, error)
	GetSkill(ctx context.Context, in GetSkillInput) (*Skill, error)
	ListSkills(ctx context.Context, in ListSkillsInput) (*ListSkillsResult, error)
	AddEmployeeSkill(ctx context.Context, in AddEmployeeSkillInput) (*EmployeeSkillDetail, error)
	UpdateEmployeeSkill(ctx context.Context, in UpdateEmployeeSkillInput) (*EmployeeSkillDetail, error)
	RemoveEmployeeSkill(ctx context.Context, in RemoveEmployeeSkillInput) error
	ListEmployeeSkills(ctx context.Context, in ListEmployeeSkillsInput) ([]*EmployeeSkillDetail, error)
	SearchAvailability(ctx context.Context, in SearchAvailabilityInput) ([]*Candidate, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithTransactionManager(tx TransactionManager) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Service) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// NewService は Service を生成します。
func NewService(skills Repository, employeeSkills EmployeeSkillRepository, employees EmployeeFinder, assignments AllocationReader, opts ...Option) *Service {
	s := &Service{
		skills:         skills,
		employeeSkills: employeeSkills,
		employees:      employees,
		assignments:    assignments,
		clock:          realClock{},
		tx:             noopTransactionManager{},
		ids:            uuidGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSkillInput はスキル登録時の入力です。ID が空の場合は採番します。
type CreateSkillInput struct {
	ID          string
	Name        string
	Category    Category
	Description string
}

// GetSkillInput はスキル取得時の入力です。
type GetSkillInput struct {
	ID string
}

// ListSkillsInput はカタログ一覧の入力です。
type ListSkillsInput struct {
	PageSize  int
	PageToken string
	Category  *Category
}

// ListSkillsResult はカタログ一覧の結果です。
type ListSkillsResult struct {
	Skills        []*Skill
	NextPageToken string
}

// AddEmployeeSkillInput は社員スキル登録時の入力です。
type AddEmployeeSkillInput struct {
	EmployeeID        string
	SkillID           string
	Proficiency       Proficiency
	YearsOfExperience float64
	LastUsedDate      *time.Time
	AcquiredDate      *time.Time
}

// UpdateEmployeeSkillInput は社員スキル更新時の入力です。nil のフィールドは変更しません。
type UpdateEmployeeSkillInput struct {
	ID                string
	Proficiency       *Proficiency
	YearsOfExperience *float64
	LastUsedDate      *time.Time
	LastUsedDateSet   bool
}

// RemoveEmployeeSkillInput は社員スキル削除時の入力です。
type RemoveEmployeeSkillInput struct {
	ID string
}

// ListEmployeeSkillsInput は社員スキル一覧の入力です。空の条件は無視します。
type ListEmployeeSkillsInput struct {
	EmployeeID string
	SkillID    string
}

// CreateSkill はカタログにスキルを登録します。
func (s *Service) CreateSkill(ctx context.Context, in CreateSkillInput) (*Skill, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > maxNameLength {
		return nil, ErrInvalidName
	}
	if !isValidCategory(in.Category) {
		return nil, ErrInvalidCategory
	}
	description := strings.TrimSpace(in.Description)
	if len([]rune(description)) > maxDescriptionLength {
		return nil, ErrInvalidDescription
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = s.ids.NewID()
	}

	var created *Skill
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.skills.FindByID(txCtx, id)
		if err != nil && !errors.Is(err, ErrSkillNotFound) {
			return err
		}
		if existing != nil {
			return ErrSkillAlreadyExists
		}

		now := s.clock.Now()
		result, err := s.skills.Create(txCtx, &Skill{
			ID:          id,
			Name:        name,
			Category:    in.Category,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
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

// GetSkill はスキルを取得します。
func (s *Service) GetSkill(ctx context.Context, in GetSkillInput) (*Skill, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, ErrInvalidSkillID
	}

	var found *Skill
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.skills.FindByID(txCtx, id)
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

// ListSkills はカタログを登録順に返します。Category を指定すると絞り込みます。
func (s *Service) ListSkills(ctx context.Context, in ListSkillsInput) (*ListSkillsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}
	if in.Category != nil && !isValidCategory(*in.Category) {
		return nil, ErrInvalidCategory
	}

	var result ListSkillsResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		skills, token, err := s.skills.List(txCtx, ListSkillsFilter{
			Category: in.Category,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return err
		}
		result.Skills = skills
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &result, nil
}

// AddEmployeeSkill は社員にスキルを登録します。社員とスキルはどちらも存在している必要があります。
func (s *Service) AddEmployeeSkill(ctx context.Context, in AddEmployeeSkillInput) (*EmployeeSkillDetail, error) {
	employeeID, err := employee.NormalizeID(in.EmployeeID)
	if err != nil {
		return nil, ErrInvalidEmployeeID
	}
	skillID := strings.TrimSpace(in.SkillID)
	if skillID == "" {
		return nil, ErrInvalidSkillID
	}
	if !isValidProficiency(in.Proficiency) {
		return nil, ErrInvalidProficiency
	}
	if err := validateExperience(in.YearsOfExperience); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	lastUsed := normalizeDate(in.LastUsedDate)
	acquired := normalizeDate(in.AcquiredDate)
	if err := validateDates(acquired, lastUsed, now); err != nil {
		return nil, err
	}

	var added *EmployeeSkillDetail
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.employees.FindByID(txCtx, employeeID); err != nil {
			return err
		}
		sk, err := s.skills.FindByID(txCtx, skillID)
		if err != nil {
			return err
		}

		existing, err := s.employeeSkills.List(txCtx, EmployeeSkillFilter{EmployeeID: employeeID, SkillID: skillID})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrEmployeeSkillAlreadyExists
		}

		created, err := s.employeeSkills.Create(txCtx, &EmployeeSkill{
			ID:                s.ids.NewID(),
			EmployeeID:        employeeID,
			SkillID:           skillID,
			Proficiency:       in.Proficiency,
			YearsOfExperience: in.YearsOfExperience,
			LastUsedDate:      lastUsed,
			AcquiredDate:      acquired,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return err
		}

		added = detailOf(created, sk)
		return nil
	}); err != nil {
		return nil, err
	}

	return added, nil
}

// UpdateEmployeeSkill は習熟度、経験年数、最終利用日を更新します。
func (s *Service) UpdateEmployeeSkill(ctx context.Context, in UpdateEmployeeSkillInput) (*EmployeeSkillDetail, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	if in.Proficiency != nil && !isValidProficiency(*in.Proficiency) {
		return nil, ErrInvalidProficiency
	}
	if in.YearsOfExperience != nil {
		if err := validateExperience(*in.YearsOfExperience); err != nil {
			return nil, err
		}
	}

	var updated *EmployeeSkillDetail
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		current, err := s.employeeSkills.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		next := current.Clone()
		if in.Proficiency != nil {
			next.Proficiency = *in.Proficiency
		}
		if in.YearsOfExperience != nil {
			next.YearsOfExperience = *in.YearsOfExperience
		}
		if in.LastUsedDateSet {
			next.LastUsedDate = normalizeDate(in.LastUsedDate)
		}

		now := s.clock.Now()
		if err := validateDates(next.AcquiredDate, next.LastUsedDate, now); err != nil {
			return err
		}
		next.UpdatedAt = now

		result, err := s.employeeSkills.Update(txCtx, next)
		if err != nil {
			return err
		}

		details, err := s.enrich(txCtx, []*EmployeeSkill{result})
		if err != nil {
			return err
		}
		updated = details[0]
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// RemoveEmployeeSkill は社員スキルを削除します。
func (s *Service) RemoveEmployeeSkill(ctx context.Context, in RemoveEmployeeSkillInput) error {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.employeeSkills.Delete(txCtx, id)
	})
}

// ListEmployeeSkills は社員スキルをスキル名とカテゴリ付きで返します。
func (s *Service) ListEmployeeSkills(ctx context.Context, in ListEmployeeSkillsInput) ([]*EmployeeSkillDetail, error) {
	var details []*EmployeeSkillDetail
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.employeeSkills.List(txCtx, EmployeeSkillFilter{
			EmployeeID: strings.TrimSpace(in.EmployeeID),
			SkillID:    strings.TrimSpace(in.SkillID),
		})
		if err != nil {
			return err
		}

		details, err = s.enrich(txCtx, found)
		return err
	}); err != nil {
		return nil, err
	}

	return details, nil
}

// enrich はカタログを参照してスキル名とカテゴリを付与します。同じスキルは一度だけ参照します。
func (s *Service) enrich(ctx context.Context, items []*EmployeeSkill) ([]*EmployeeSkillDetail, error) {
	catalog := make(map[string]*Skill)
	out := make([]*EmployeeSkillDetail, 0, len(items))
	for _, es := range items {
		sk, seen := catalog[es.SkillID]
		if !seen {
			found, err := s.skills.FindByID(ctx, es.SkillID)
			if err != nil && !errors.Is(err, ErrSkillNotFound) {
				return nil, err
			}
			catalog[es.SkillID] = found
			sk = found
		}
		out = append(out, detailOf(es, sk))
	}
	return out, nil
}

func detailOf(es *EmployeeSkill, sk *Skill) *EmployeeSkillDetail {
	detail := &EmployeeSkillDetail{
		EmployeeSkill: *es.Clone(),
		SkillName:     Unknown,
		SkillCategory: Unknown,
	}
	if sk != nil {
		detail.SkillName = sk.Name
		detail.SkillCategory = string(sk.Category)
	}
	return detail
}

func isValidCategory(c Category) bool {
	switch c {
	case CategoryFrontend, CategoryBackend, CategoryDesign, CategoryQA, CategoryDevOps, CategorySoftSkills, CategoryDomain:
		return true
	default:
		return false
	}
}

func isValidProficiency(p Proficiency) bool {
	return p.Rank() > 0
}

func validateExperience(years float64) error {
	if math.IsNaN(years) || years < 0 || years > maxExperienceYears {
		return ErrInvalidExperience
	}
	return nil
}

// validateDates は取得日と最終利用日が未来日でなく、取得日が最終利用日以前であることを検証します。
func validateDates(acquired, lastUsed *time.Time, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, d := range []*time.Time{acquired, lastUsed} {
		if d != nil && d.After(today) {
			return ErrInvalidDate
		}
	}
	if acquired != nil && lastUsed != nil && lastUsed.Before(*acquired) {
		return ErrInvalidDate
	}
	return nil
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
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
