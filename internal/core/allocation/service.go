package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
)

const tracerName = "github.com/ogurasousui/resource-allocation/internal/core/allocation"

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator はアサインメント ID を採番します。
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

// Savepointer はトランザクション内で部分的に巻き戻せる区間を提供します。
// TransactionManager が実装していれば、移管先の作成失敗が外側のトランザクションを壊さないよう利用します。
type Savepointer interface {
	WithinSavepoint(ctx context.Context, fn func(context.Context) error) error
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

// 操作名。メトリクスとスパン名に使います。
const (
	OperationCreate       = "create"
	OperationTransfer     = "transfer"
	OperationComplete     = "complete"
	OperationMarkCritical = "mark_critical"
)

// 操作結果。
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// 移管の補償処理結果。
const (
	RollbackRestored = "restored"
	RollbackFailed   = "failed"
)

// Recorder は操作メトリクスの記録先です。
type Recorder interface {
	ObserveOperation(operation, result string, elapsed time.Duration)
	IncRejection()
	IncRollback(result string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, string, time.Duration) {}
func (noopRecorder) IncRejection()                                  {}
func (noopRecorder) IncRollback(string)                             {}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200

	maxRoleLength  = 100
	maxNotesLength = 500
)

// Service はアサインメントのライフサイクルと稼働率・コストの算出を担います。
type Service struct {
	repo      Repository
	employees EmployeeFinder
	projects  ProjectFinder
	clock     Clock
	tx        TransactionManager
	ids       IDGenerator
	storeLock StoreLocker
	recorder  Recorder
	logger    *slog.Logger
	tracer    trace.Tracer
	locks     *keyedMutex
}

// UseCase はアサインメントユースケースの公開インターフェースです。
type UseCase interface {
	CreateAssignment(ctx context.Context, in CreateAssignmentInput) (*Assignment, error)
	TransferAssignment(ctx context.Context, in TransferAssignmentInput) (*Assignment, error)
	CompleteAssignment(ctx context.Context, in CompleteAssignmentInput) (*Assignment, error)
	MarkCritical(ctx context.Context, in MarkCriticalInput) (*Assignment, error)
	GetAssignment(ctx context.Context, in GetAssignmentInput) (*Assignment, error)
	ListAssignments(ctx context.Context, in ListAssignmentsInput) (*ListAssignmentsResult, error)
	CurrentAllocation(ctx context.Context, employeeID string) (int, error)
	ProjectMonthlyCost(ctx context.Context, projectID string) (int64, error)
	UtilizationBand(percentage int) Band
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

// WithStoreLocker はトランザクション内で取得するストア側ロックを設定します。
func WithStoreLocker(locker StoreLocker) Option {
	return func(s *Service) {
		s.storeLock = locker
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, employees EmployeeFinder, projects ProjectFinder, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		employees: employees,
		projects:  projects,
		clock:     realClock{},
		tx:        noopTransactionManager{},
		ids:       uuidGenerator{},
		recorder:  noopRecorder{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAssignmentInput はアサインメント作成時の入力です。ID が空の場合は採番します。
type CreateAssignmentInput struct {
	ID                   string
	EmployeeID           string
	ProjectID            string
	Role                 string
	AllocationPercentage int
	TransferType         TransferType
	ReplacedAssignmentID *string
	DateAllocated        time.Time
	IsCriticalResource   bool
	CriticalityNotes     string
	CriticalitySetBy     string
}

// TransferAssignmentInput は移管時の入力です。
type TransferAssignmentInput struct {
	FromAssignmentID     string
	ToProjectID          string
	AllocationPercentage int
	TransferType         TransferType
	EffectiveDate        time.Time
}

// CompleteAssignmentInput は終了時の入力です。DateExited が空の場合は当日です。
type CompleteAssignmentInput struct {
	ID         string
	DateExited time.Time
}

// MarkCriticalInput はクリティカルリソース指定の入力です。
type MarkCriticalInput struct {
	ID       string
	Critical bool
	Notes    string
	SetBy    string
}

// GetAssignmentInput はアサインメント取得時の入力です。
type GetAssignmentInput struct {
	ID string
}

// ListAssignmentsInput は一覧取得時の入力です。
type ListAssignmentsInput struct {
	PageSize   int
	PageToken  string
	EmployeeID string
	ProjectID  string
	Status     *Status
}

// ListAssignmentsResult は一覧取得結果を表します。
type ListAssignmentsResult struct {
	Assignments   []*Assignment
	NextPageToken string
}

// CreateAssignment は稼働率上限を検証したうえでアサインメントを作成します。
// 請求対象外または Active でない社員は上限検証を免除します。
func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (_ *Assignment, err error) {
	ctx, finish := s.begin(ctx, OperationCreate)
	defer func() { finish(err) }()

	params, err := s.normalizeCreate(in)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("allocation.employee_id", params.EmployeeID),
		attribute.String("allocation.project_id", params.ProjectID),
		attribute.Int("allocation.percentage", params.AllocationPercentage),
	)

	unlock := s.locks.Lock(params.EmployeeID)
	defer unlock()

	var created *Assignment
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.lockStore(txCtx, params.EmployeeID); err != nil {
			return err
		}

		result, err := s.create(txCtx, params)
		if err != nil {
			return err
		}

		created = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// TransferAssignment は移管元を Transferred にし、同じ社員の新しいアサインメントを作成します。
// 作成に失敗した場合は移管元を元の状態に戻し、元のエラーを返します。
// 復元にも失敗した場合は *RollbackFailedError を返します。
func (s *Service) TransferAssignment(ctx context.Context, in TransferAssignmentInput) (_ *Assignment, err error) {
	ctx, finish := s.begin(ctx, OperationTransfer)
	defer func() { finish(err) }()

	fromID := strings.TrimSpace(in.FromAssignmentID)
	if fromID == "" {
		return nil, fmt.Errorf("from_assignment_id: %w", ErrInvalidID)
	}
	toProjectID := strings.TrimSpace(in.ToProjectID)
	if toProjectID == "" {
		return nil, ErrInvalidProjectID
	}
	if err := ValidatePercentage(in.AllocationPercentage); err != nil {
		return nil, err
	}

	transferType := in.TransferType
	if transferType == "" {
		transferType = TransferTypeInternal
	}
	if !isValidTransferType(transferType) {
		return nil, ErrInvalidTransferType
	}

	effective := s.dateOrToday(in.EffectiveDate)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("allocation.from_assignment_id", fromID),
		attribute.String("allocation.project_id", toProjectID),
		attribute.Int("allocation.percentage", in.AllocationPercentage),
	)

	var created *Assignment
	err = s.withAssignmentLock(ctx, fromID, func(txCtx context.Context, source *Assignment) error {
		if !source.IsActive() {
			return ErrAssignmentNotActive
		}
		if effective.Before(source.DateAllocated) {
			return fmt.Errorf("effective_date: %w", ErrInvalidDate)
		}

		result, err := s.transfer(txCtx, source, createParams{
			EmployeeID:           source.EmployeeID,
			ProjectID:            toProjectID,
			Role:                 source.Role,
			AllocationPercentage: in.AllocationPercentage,
			TransferType:         transferType,
			ReplacedAssignmentID: &source.ID,
			DateAllocated:        effective,
		})
		if err != nil {
			return err
		}

		created = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// CompleteAssignment は Active なアサインメントを Completed にします。
func (s *Service) CompleteAssignment(ctx context.Context, in CompleteAssignmentInput) (_ *Assignment, err error) {
	ctx, finish := s.begin(ctx, OperationComplete)
	defer func() { finish(err) }()

	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	exited := s.dateOrToday(in.DateExited)

	var completed *Assignment
	err = s.withAssignmentLock(ctx, id, func(txCtx context.Context, current *Assignment) error {
		if !current.IsActive() {
			return ErrAssignmentNotActive
		}
		if exited.Before(current.DateAllocated) {
			return fmt.Errorf("date_exited: %w", ErrInvalidDate)
		}

		next := current.Clone()
		next.Status = StatusCompleted
		next.DateExited = &exited
		next.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, next)
		if err != nil {
			return wrapStoreError(err)
		}

		completed = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return completed, nil
}

// MarkCritical はクリティカルリソースの指定を設定または解除します。稼働率には影響しません。
func (s *Service) MarkCritical(ctx context.Context, in MarkCriticalInput) (_ *Assignment, err error) {
	ctx, finish := s.begin(ctx, OperationMarkCritical)
	defer func() { finish(err) }()

	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	notes := strings.TrimSpace(in.Notes)
	if len([]rune(notes)) > maxNotesLength {
		return nil, ErrInvalidNotes
	}

	var marked *Assignment
	err = s.withAssignmentLock(ctx, id, func(txCtx context.Context, current *Assignment) error {
		if !current.IsActive() {
			return ErrAssignmentNotActive
		}

		next := current.Clone()
		next.IsCriticalResource = in.Critical
		if in.Critical {
			today := s.today()
			next.CriticalityNotes = notes
			next.CriticalitySetDate = &today
			next.CriticalitySetBy = strings.TrimSpace(in.SetBy)
		} else {
			next.CriticalityNotes = ""
			next.CriticalitySetDate = nil
			next.CriticalitySetBy = ""
		}
		next.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, next)
		if err != nil {
			return wrapStoreError(err)
		}

		marked = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return marked, nil
}

// GetAssignment は ID でアサインメントを取得します。
func (s *Service) GetAssignment(ctx context.Context, in GetAssignmentInput) (*Assignment, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var found *Assignment
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return wrapStoreError(err)
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}

	return found, nil
}

// ListAssignments はアサインメントの一覧を取得します。
func (s *Service) ListAssignments(ctx context.Context, in ListAssignmentsInput) (*ListAssignmentsResult, error) {
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

	var (
		assignments []*Assignment
		nextToken   string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, ListAssignmentsFilter{
			EmployeeID: strings.TrimSpace(in.EmployeeID),
			ProjectID:  strings.TrimSpace(in.ProjectID),
			Status:     in.Status,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return wrapStoreError(err)
		}
		assignments = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListAssignmentsResult{
		Assignments:   assignments,
		NextPageToken: nextToken,
	}, nil
}

// CurrentAllocation は社員の現在の稼働率合計を返します。アサインメントが無ければ 0 です。
func (s *Service) CurrentAllocation(ctx context.Context, employeeID string) (int, error) {
	id := strings.TrimSpace(employeeID)
	if id == "" {
		return 0, ErrInvalidEmployeeID
	}

	var total int
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		active, err := s.repo.ListActiveByEmployee(txCtx, id)
		if err != nil {
			return wrapStoreError(err)
		}
		total = CurrentAllocation(active, id)
		return nil
	}); err != nil {
		return 0, err
	}

	return total, nil
}

// ProjectMonthlyCost はプロジェクトの月額コストを返します。
// 存在しない社員を参照するアサインメントはエラーにせず 0 として扱います。
func (s *Service) ProjectMonthlyCost(ctx context.Context, projectID string) (int64, error) {
	id := strings.TrimSpace(projectID)
	if id == "" {
		return 0, ErrInvalidProjectID
	}

	ctx, span := s.tracer.Start(ctx, "allocation.project_monthly_cost")
	defer span.End()
	span.SetAttributes(attribute.String("allocation.project_id", id))

	var total int64
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		active, err := s.repo.ListActiveByProject(txCtx, id)
		if err != nil {
			return wrapStoreError(err)
		}

		employees := make(map[string]*employee.Employee, len(active))
		for _, a := range active {
			if _, seen := employees[a.EmployeeID]; seen {
				continue
			}
			emp, err := s.employees.FindByID(txCtx, a.EmployeeID)
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				employees[a.EmployeeID] = nil
				continue
			}
			if err != nil {
				return wrapStoreError(err)
			}
			employees[a.EmployeeID] = emp
		}

		total = ProjectMonthlyCost(id, active, employees)
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	return total, nil
}

// UtilizationBand は稼働率を稼働率帯に分類します。
func (s *Service) UtilizationBand(percentage int) Band {
	return Classify(percentage)
}

// WithEmployeeLock はアサインメント操作と同じ社員単位の排他を取得して fn を実行します。
func (s *Service) WithEmployeeLock(ctx context.Context, employeeID string, fn func(context.Context) error) error {
	unlock := s.locks.Lock(strings.TrimSpace(employeeID))
	defer unlock()

	return fn(ctx)
}

// EnsureWithinCeiling は社員の現在の稼働率が上限以内であることを検証します。
// 社員が上限の対象になる更新の直前に、更新と同じトランザクション内で呼び出します。
func (s *Service) EnsureWithinCeiling(ctx context.Context, employeeID string) error {
	id := strings.TrimSpace(employeeID)
	if id == "" {
		return ErrInvalidEmployeeID
	}

	if err := s.lockStore(ctx, id); err != nil {
		return err
	}

	active, err := s.repo.ListActiveByEmployee(ctx, id)
	if err != nil {
		return wrapStoreError(err)
	}

	total := CurrentAllocation(active, id)
	if total <= MaxAllocation {
		return nil
	}

	s.recorder.IncRejection()
	s.logger.DebugContext(ctx, "ceiling transition rejected",
		slog.String("employee_id", id),
		slog.Int("current_allocation", total),
	)
	return &AllocationExceededError{Current: total, WouldBe: total}
}

type createParams struct {
	ID                   string
	EmployeeID           string
	ProjectID            string
	Role                 string
	AllocationPercentage int
	TransferType         TransferType
	ReplacedAssignmentID *string
	DateAllocated        time.Time
	IsCriticalResource   bool
	CriticalityNotes     string
	CriticalitySetBy     string
}

func (s *Service) normalizeCreate(in CreateAssignmentInput) (createParams, error) {
	employeeID, err := employee.NormalizeID(in.EmployeeID)
	if err != nil {
		return createParams{}, ErrInvalidEmployeeID
	}

	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return createParams{}, ErrInvalidProjectID
	}

	role := strings.TrimSpace(in.Role)
	if role == "" || len([]rune(role)) > maxRoleLength {
		return createParams{}, ErrInvalidRole
	}

	if err := ValidatePercentage(in.AllocationPercentage); err != nil {
		return createParams{}, err
	}

	transferType := in.TransferType
	if transferType == "" {
		transferType = TransferTypeNew
	}
	if !isValidTransferType(transferType) {
		return createParams{}, ErrInvalidTransferType
	}

	notes := strings.TrimSpace(in.CriticalityNotes)
	if len([]rune(notes)) > maxNotesLength {
		return createParams{}, ErrInvalidNotes
	}

	return createParams{
		ID:                   strings.TrimSpace(in.ID),
		EmployeeID:           employeeID,
		ProjectID:            projectID,
		Role:                 role,
		AllocationPercentage: in.AllocationPercentage,
		TransferType:         transferType,
		ReplacedAssignmentID: normalizeOptional(in.ReplacedAssignmentID),
		DateAllocated:        s.dateOrToday(in.DateAllocated),
		IsCriticalResource:   in.IsCriticalResource,
		CriticalityNotes:     notes,
		CriticalitySetBy:     strings.TrimSpace(in.CriticalitySetBy),
	}, nil
}

// create はロック取得済みのトランザクション内で呼び出します。
func (s *Service) create(ctx context.Context, p createParams) (*Assignment, error) {
	emp, err := s.employees.FindByID(ctx, p.EmployeeID)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	if _, err := s.projects.FindByID(ctx, p.ProjectID); err != nil {
		return nil, wrapStoreError(err)
	}

	if emp.SubjectToAllocationCeiling() {
		active, err := s.repo.ListActiveByEmployee(ctx, emp.ID)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if err := ValidateNewAllocation(active, emp.ID, p.AllocationPercentage); err != nil {
			if errors.Is(err, ErrAllocationExceeded) {
				s.recorder.IncRejection()
				s.logger.DebugContext(ctx, "allocation rejected",
					slog.String("employee_id", emp.ID),
					slog.String("project_id", p.ProjectID),
					slog.String("reason", err.Error()),
				)
			}
			return nil, err
		}
	}

	id := p.ID
	if id == "" {
		id = s.ids.NewID()
	} else if err := s.ensureIDNotExists(ctx, id); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	a := &Assignment{
		ID:                   id,
		EmployeeID:           emp.ID,
		ProjectID:            p.ProjectID,
		Role:                 p.Role,
		AllocationPercentage: p.AllocationPercentage,
		Status:               StatusActive,
		TransferType:         p.TransferType,
		ReplacedAssignmentID: cloneString(p.ReplacedAssignmentID),
		DateAllocated:        p.DateAllocated,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if p.IsCriticalResource {
		today := s.today()
		a.IsCriticalResource = true
		a.CriticalityNotes = p.CriticalityNotes
		a.CriticalitySetDate = &today
		a.CriticalitySetBy = p.CriticalitySetBy
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	return created, nil
}

// transfer は移管元を Transferred にしてから移管先を作成し、失敗時は移管元を復元します。
func (s *Service) transfer(ctx context.Context, source *Assignment, p createParams) (*Assignment, error) {
	original := source.Clone()

	moved := source.Clone()
	moved.Status = StatusTransferred
	moved.DateExited = cloneTime(&p.DateAllocated)
	moved.UpdatedAt = s.clock.Now()

	if _, err := s.repo.Update(ctx, moved); err != nil {
		return nil, wrapStoreError(err)
	}

	created, err := s.createInSavepoint(ctx, p)
	if err == nil {
		s.logger.InfoContext(ctx, "assignment transferred",
			slog.String("from_assignment_id", original.ID),
			slog.String("to_assignment_id", created.ID),
			slog.String("employee_id", original.EmployeeID),
			slog.String("project_id", created.ProjectID),
		)
		return created, nil
	}

	// 呼び出し元のキャンセルに関わらず復元を試みる。
	if _, rbErr := s.repo.Update(context.WithoutCancel(ctx), original); rbErr != nil {
		s.recorder.IncRollback(RollbackFailed)
		s.logger.ErrorContext(ctx, "transfer rollback failed; manual reconciliation required",
			slog.String("assignment_id", original.ID),
			slog.String("employee_id", original.EmployeeID),
			slog.Any("cause", err),
			slog.Any("error", rbErr),
		)
		return nil, &RollbackFailedError{
			AssignmentID: original.ID,
			Cause:        err,
			RollbackErr:  wrapStoreError(rbErr),
		}
	}

	s.recorder.IncRollback(RollbackRestored)
	s.logger.WarnContext(ctx, "transfer rolled back",
		slog.String("assignment_id", original.ID),
		slog.String("employee_id", original.EmployeeID),
		slog.Any("cause", err),
	)
	return nil, err
}

func (s *Service) createInSavepoint(ctx context.Context, p createParams) (*Assignment, error) {
	sp, ok := s.tx.(Savepointer)
	if !ok {
		return s.create(ctx, p)
	}

	var created *Assignment
	err := sp.WithinSavepoint(ctx, func(spCtx context.Context) error {
		result, err := s.create(spCtx, p)
		created = result
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// withAssignmentLock はアサインメントの社員単位で排他を取り、最新の状態を fn に渡します。
func (s *Service) withAssignmentLock(ctx context.Context, id string, fn func(context.Context, *Assignment) error) error {
	var employeeID string
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return wrapStoreError(err)
		}
		employeeID = found.EmployeeID
		return nil
	}); err != nil {
		return err
	}

	unlock := s.locks.Lock(employeeID)
	defer unlock()

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.lockStore(txCtx, employeeID); err != nil {
			return err
		}

		current, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return wrapStoreError(err)
		}

		return fn(txCtx, current)
	})
}

func (s *Service) lockStore(ctx context.Context, employeeID string) error {
	if s.storeLock == nil {
		return nil
	}
	if err := s.storeLock.LockEmployee(ctx, employeeID); err != nil {
		return wrapStoreError(err)
	}
	return nil
}

func (s *Service) ensureIDNotExists(ctx context.Context, id string) error {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, ErrAssignmentNotFound) {
		return wrapStoreError(err)
	}
	if a != nil {
		return ErrAssignmentAlreadyExists
	}
	return nil
}

// begin はスパンを開始し、終了時にメトリクスを記録する関数を返します。
func (s *Service) begin(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "allocation."+operation)
	started := time.Now()

	return ctx, func(err error) {
		result := resultOf(err)
		s.recorder.ObserveOperation(operation, result, time.Since(started))

		span.SetAttributes(attribute.String("allocation.result", result))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (s *Service) today() time.Time {
	return truncateDate(s.clock.Now())
}

func (s *Service) dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		return s.today()
	}
	return truncateDate(t)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, ErrRollbackFailed), errors.Is(err, ErrPersistence):
		return ResultError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultError
	default:
		return ResultRejected
	}
}

// wrapStoreError はドメインエラー以外のストアエラーを ErrPersistence で包みます。
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}

	for _, known := range []error{
		ErrPersistence,
		ErrAssignmentNotFound,
		ErrAssignmentAlreadyExists,
		employee.ErrEmployeeNotFound,
		project.ErrProjectNotFound,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
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

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusCompleted, StatusTransferred:
		return true
	default:
		return false
	}
}

func isValidTransferType(t TransferType) bool {
	switch t {
	case TransferTypeNew, TransferTypeInternal, TransferTypeClient, TransferTypeBackfill:
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
