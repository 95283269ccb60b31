package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/conversion"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/earnings"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/snapshot"
)

// passthroughUoW runs the unit-of-work body directly, without a transaction
type passthroughUoW struct{}

func (passthroughUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockTaskRepository is a mock implementation of TaskRepository for testing
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, taskStatus domain.TaskStatus) error {
	args := m.Called(ctx, id, taskStatus)
	return args.Error(0)
}

func (m *MockTaskRepository) UpdateSnapshot(ctx context.Context, id uuid.UUID, snapshot *domain.TaskSnapshot) error {
	args := m.Called(ctx, id, snapshot)
	return args.Error(0)
}

func (m *MockTaskRepository) UpdateBranch(ctx context.Context, id uuid.UUID, branchID uuid.UUID) error {
	args := m.Called(ctx, id, branchID)
	return args.Error(0)
}

func (m *MockTaskRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockStageRepository is a mock implementation of StageRepository for testing
type MockStageRepository struct {
	mock.Mock
}

func (m *MockStageRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Stage, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Stage), args.Error(1)
}

func (m *MockStageRepository) GetByTaskAndName(ctx context.Context, taskID uuid.UUID, name domain.StageName) (*domain.Stage, error) {
	args := m.Called(ctx, taskID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stage), args.Error(1)
}

func (m *MockStageRepository) CreateAll(ctx context.Context, stages []*domain.Stage) error {
	args := m.Called(ctx, stages)
	return args.Error(0)
}

func (m *MockStageRepository) Update(ctx context.Context, stage *domain.Stage) error {
	args := m.Called(ctx, stage)
	return args.Error(0)
}

func (m *MockStageRepository) ListDoneByAssignee(ctx context.Context, workerID uuid.UUID) ([]*domain.Stage, error) {
	args := m.Called(ctx, workerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Stage), args.Error(1)
}

// MockEarningsRepository is a mock implementation of EarningsRepository for testing
type MockEarningsRepository struct {
	mock.Mock
}

func (m *MockEarningsRepository) Append(ctx context.Context, entry *domain.EarningsLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEarningsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EarningsLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarningsLogEntry), args.Error(1)
}

func (m *MockEarningsRepository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*domain.EarningsLogEntry, error) {
	args := m.Called(ctx, workerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EarningsLogEntry), args.Error(1)
}

func (m *MockEarningsRepository) LastCompletion(ctx context.Context, workerID, taskID uuid.UUID, name domain.StageName) (*domain.EarningsLogEntry, error) {
	args := m.Called(ctx, workerID, taskID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarningsLogEntry), args.Error(1)
}

func (m *MockEarningsRepository) SumBaseByWorker(ctx context.Context, workerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, workerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockEarningsRepository) HasReversalOf(ctx context.Context, entryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, entryID)
	return args.Bool(0), args.Error(1)
}

// MockExchangeRateRepository is a mock implementation of ExchangeRateRepository for testing
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) GetOnOrBefore(ctx context.Context, currency domain.Currency, day time.Time) (*domain.ExchangeRateRecord, error) {
	args := m.Called(ctx, currency, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRateRecord), args.Error(1)
}

func (m *MockExchangeRateRepository) GetLatest(ctx context.Context, currency domain.Currency) (*domain.ExchangeRateRecord, error) {
	args := m.Called(ctx, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRateRecord), args.Error(1)
}

func (m *MockExchangeRateRepository) Upsert(ctx context.Context, record *domain.ExchangeRateRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockClientDirectory is a mock implementation of ClientDirectory for testing
type MockClientDirectory struct {
	mock.Mock
}

func (m *MockClientDirectory) GetClient(ctx context.Context, id uuid.UUID) (*domain.ClientRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClientRecord), args.Error(1)
}

// MockBranchDirectory is a mock implementation of BranchDirectory for testing
type MockBranchDirectory struct {
	mock.Mock
}

func (m *MockBranchDirectory) GetFeeSchedule(ctx context.Context, branchID uuid.UUID) (*domain.FeeSchedule, error) {
	args := m.Called(ctx, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeSchedule), args.Error(1)
}

type serviceFixture struct {
	service      *Service
	taskRepo     *MockTaskRepository
	stageRepo    *MockStageRepository
	earningsRepo *MockEarningsRepository
	clients      *MockClientDirectory
	branches     *MockBranchDirectory
}

func newServiceFixture() *serviceFixture {
	mockRateRepo := new(MockExchangeRateRepository)
	mockRateRepo.On("GetOnOrBefore", mock.Anything, domain.CurrencyUSD, mock.Anything).
		Return(&domain.ExchangeRateRecord{
			Currency: domain.CurrencyUSD,
			Rate:     decimal.NewFromInt(12500),
			Source:   domain.RateSourceOfficial,
		}, nil)
	engine := conversion.NewEngine(mockRateRepo)

	pipeline := &domain.PipelineDefinition{
		StagePrices: map[domain.StageName]decimal.Decimal{
			domain.StageDeclaration: decimal.NewFromFloat(3.0),
		},
	}

	fixture := &serviceFixture{
		taskRepo:     new(MockTaskRepository),
		stageRepo:    new(MockStageRepository),
		earningsRepo: new(MockEarningsRepository),
		clients:      new(MockClientDirectory),
		branches:     new(MockBranchDirectory),
	}

	earningsService := earnings.NewService(fixture.earningsRepo, engine, pipeline, 0)
	snapshotService := snapshot.NewService(fixture.clients, fixture.branches, engine, fixture.taskRepo)
	fixture.service = NewService(passthroughUoW{}, fixture.taskRepo, fixture.stageRepo, earningsService, snapshotService)

	return fixture
}

func stagesWith(taskID uuid.UUID, done ...domain.StageName) []*domain.Stage {
	doneSet := make(map[domain.StageName]bool, len(done))
	for _, name := range done {
		doneSet[name] = true
	}

	stages := domain.NewPipeline(taskID)
	for _, stage := range stages {
		if doneSet[stage.Name] {
			stage.Status = domain.StageDone
		}
	}
	return stages
}

func TestCreateTask_FreezesSnapshotAndCreatesPipeline(t *testing.T) {
	fixture := newServiceFixture()

	clientID := uuid.New()
	branchID := uuid.New()
	fixture.clients.On("GetClient", mock.Anything, clientID).Return(&domain.ClientRecord{
		ID:         clientID,
		DealAmount: decimal.NewFromInt(100),
		Currency:   domain.CurrencyUSD,
	}, nil)
	fixture.branches.On("GetFeeSchedule", mock.Anything, branchID).Return(&domain.FeeSchedule{
		BranchID:           branchID,
		CertificatePayment: decimal.NewFromInt(10),
		WorkerPayment:      decimal.NewFromInt(5),
		CustomsPayment:     decimal.NewFromInt(20),
		Currency:           domain.CurrencyUSD,
	}, nil)
	fixture.taskRepo.On("Create", mock.Anything, mock.MatchedBy(func(task *domain.Task) bool {
		return task.Status == domain.TaskNotStarted &&
			task.Snapshot.DealAmount.BaseAmount.Equal(decimal.NewFromInt(1250000))
	})).Return(nil)
	fixture.stageRepo.On("CreateAll", mock.Anything, mock.MatchedBy(func(stages []*domain.Stage) bool {
		return len(stages) == len(domain.PipelineTemplate()) &&
			stages[0].Name == domain.StageDocumentCollection &&
			stages[len(stages)-1].Name == domain.StageDispatch
	})).Return(nil)

	task, err := fixture.service.CreateTask(context.Background(), clientID, branchID)

	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, clientID, task.ClientID)
	assert.Equal(t, branchID, task.BranchID)
	fixture.taskRepo.AssertExpectations(t)
	fixture.stageRepo.AssertExpectations(t)
}

func TestCompleteStage_UpdatesStatusAndAppendsLedgerRow(t *testing.T) {
	fixture := newServiceFixture()

	taskID := uuid.New()
	workerID := uuid.New()
	stage := &domain.Stage{
		ID:         uuid.New(),
		TaskID:     taskID,
		Name:       domain.StageDeclaration,
		OrderIndex: 4,
		Status:     domain.StageNotStarted,
	}

	fixture.stageRepo.On("GetByTaskAndName", mock.Anything, taskID, domain.StageDeclaration).Return(stage, nil)
	fixture.stageRepo.On("Update", mock.Anything, mock.MatchedBy(func(updated *domain.Stage) bool {
		return updated.IsDone() &&
			updated.CompletedAt != nil &&
			updated.StartedAt != nil &&
			updated.AssigneeID != nil && *updated.AssigneeID == workerID
	})).Return(nil)
	fixture.stageRepo.On("ListByTask", mock.Anything, taskID).
		Return(stagesWith(taskID, domain.StageDeclaration), nil)
	fixture.taskRepo.On("UpdateStatus", mock.Anything, taskID, domain.TaskReady).Return(nil)
	fixture.earningsRepo.On("Append", mock.Anything, mock.MatchedBy(func(entry *domain.EarningsLogEntry) bool {
		return entry.Kind == domain.EarningsStageCompletion &&
			entry.WorkerID == workerID &&
			entry.Amount.BaseAmount.Equal(decimal.NewFromInt(37500))
	})).Return(nil)

	err := fixture.service.CompleteStage(context.Background(), taskID, domain.StageDeclaration, workerID)

	require.NoError(t, err)
	fixture.stageRepo.AssertExpectations(t)
	fixture.taskRepo.AssertExpectations(t)
	fixture.earningsRepo.AssertExpectations(t)
}

func TestCompleteStage_AlreadyDone(t *testing.T) {
	fixture := newServiceFixture()

	taskID := uuid.New()
	workerID := uuid.New()
	fixture.stageRepo.On("GetByTaskAndName", mock.Anything, taskID, domain.StageDeclaration).
		Return(&domain.Stage{
			TaskID:     taskID,
			Name:       domain.StageDeclaration,
			Status:     domain.StageDone,
			AssigneeID: &workerID,
		}, nil)

	err := fixture.service.CompleteStage(context.Background(), taskID, domain.StageDeclaration, workerID)

	assert.ErrorIs(t, err, domain.ErrValidation)
	fixture.stageRepo.AssertNotCalled(t, "Update")
	fixture.earningsRepo.AssertNotCalled(t, "Append")
}

func TestRevertStage_OnlyAssigneeMayRevert(t *testing.T) {
	fixture := newServiceFixture()

	taskID := uuid.New()
	owner := uuid.New()
	intruder := uuid.New()
	fixture.stageRepo.On("GetByTaskAndName", mock.Anything, taskID, domain.StageDeclaration).
		Return(&domain.Stage{
			TaskID:     taskID,
			Name:       domain.StageDeclaration,
			Status:     domain.StageDone,
			AssigneeID: &owner,
		}, nil)

	err := fixture.service.RevertStage(context.Background(), taskID, domain.StageDeclaration, intruder)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	fixture.stageRepo.AssertNotCalled(t, "Update")
	fixture.earningsRepo.AssertNotCalled(t, "Append")
}

func TestRevertStage_NotDone(t *testing.T) {
	fixture := newServiceFixture()

	taskID := uuid.New()
	workerID := uuid.New()
	fixture.stageRepo.On("GetByTaskAndName", mock.Anything, taskID, domain.StageDeclaration).
		Return(&domain.Stage{
			TaskID: taskID,
			Name:   domain.StageDeclaration,
			Status: domain.StageNotStarted,
		}, nil)

	err := fixture.service.RevertStage(context.Background(), taskID, domain.StageDeclaration, workerID)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRevertStage_AppendsCompensatingRowAndClearsStage(t *testing.T) {
	fixture := newServiceFixture()

	taskID := uuid.New()
	workerID := uuid.New()
	completedAt := time.Now().Add(-time.Hour)
	stage := &domain.Stage{
		ID:          uuid.New(),
		TaskID:      taskID,
		Name:        domain.StageDeclaration,
		OrderIndex:  4,
		Status:      domain.StageDone,
		CompletedAt: &completedAt,
		AssigneeID:  &workerID,
	}

	originalAmount, err := domain.NewMonetaryAmount(decimal.NewFromFloat(3.0), domain.CurrencyUSD, decimal.NewFromInt(12600), domain.RateSourceOfficial)
	require.NoError(t, err)

	fixture.stageRepo.On("GetByTaskAndName", mock.Anything, taskID, domain.StageDeclaration).Return(stage, nil)
	fixture.earningsRepo.On("LastCompletion", mock.Anything, workerID, taskID, domain.StageDeclaration).
		Return(&domain.EarningsLogEntry{
			ID:        uuid.New(),
			WorkerID:  workerID,
			TaskID:    taskID,
			StageName: domain.StageDeclaration,
			Kind:      domain.EarningsStageCompletion,
			Amount:    originalAmount,
		}, nil)
	fixture.earningsRepo.On("Append", mock.Anything, mock.MatchedBy(func(entry *domain.EarningsLogEntry) bool {
		return entry.Kind == domain.EarningsStageReversal &&
			entry.Amount.BaseAmount.Equal(decimal.NewFromInt(-37800))
	})).Return(nil)
	fixture.stageRepo.On("Update", mock.Anything, mock.MatchedBy(func(updated *domain.Stage) bool {
		return updated.Status == domain.StageNotStarted &&
			updated.CompletedAt == nil &&
			updated.AssigneeID == nil
	})).Return(nil)
	fixture.stageRepo.On("ListByTask", mock.Anything, taskID).Return(stagesWith(taskID), nil)
	fixture.taskRepo.On("UpdateStatus", mock.Anything, taskID, domain.TaskNotStarted).Return(nil)

	err = fixture.service.RevertStage(context.Background(), taskID, domain.StageDeclaration, workerID)

	require.NoError(t, err)
	fixture.earningsRepo.AssertExpectations(t)
	fixture.stageRepo.AssertExpectations(t)
	fixture.taskRepo.AssertExpectations(t)
}

func TestRevertStage_UnpricedStageHasNoLedgerRowToNegate(t *testing.T) {
	fixture := newServiceFixture()

	taskID := uuid.New()
	workerID := uuid.New()
	completedAt := time.Now().Add(-time.Hour)
	stage := &domain.Stage{
		ID:          uuid.New(),
		TaskID:      taskID,
		Name:        domain.StageApplication,
		OrderIndex:  1,
		Status:      domain.StageDone,
		CompletedAt: &completedAt,
		AssigneeID:  &workerID,
	}

	fixture.stageRepo.On("GetByTaskAndName", mock.Anything, taskID, domain.StageApplication).Return(stage, nil)
	fixture.earningsRepo.On("LastCompletion", mock.Anything, workerID, taskID, domain.StageApplication).
		Return(nil, domain.ErrNotFound)
	fixture.stageRepo.On("Update", mock.Anything, mock.MatchedBy(func(updated *domain.Stage) bool {
		return updated.Status == domain.StageNotStarted && updated.AssigneeID == nil
	})).Return(nil)
	fixture.stageRepo.On("ListByTask", mock.Anything, taskID).Return(stagesWith(taskID), nil)
	fixture.taskRepo.On("UpdateStatus", mock.Anything, taskID, domain.TaskNotStarted).Return(nil)

	err := fixture.service.RevertStage(context.Background(), taskID, domain.StageApplication, workerID)

	require.NoError(t, err, "a completed stage without a price must still be revertible")
	fixture.stageRepo.AssertExpectations(t)
	fixture.earningsRepo.AssertNotCalled(t, "Append")
}

func TestOverrideStatus(t *testing.T) {
	fixture := newServiceFixture()

	taskID := uuid.New()
	fixture.taskRepo.On("UpdateStatus", mock.Anything, taskID, domain.TaskDocumentsPending).Return(nil)

	err := fixture.service.OverrideStatus(context.Background(), taskID, domain.TaskDocumentsPending)
	require.NoError(t, err)
	fixture.taskRepo.AssertExpectations(t)

	err = fixture.service.OverrideStatus(context.Background(), taskID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetCustomsMultiplier_PersistsThroughSnapshotService(t *testing.T) {
	fixture := newServiceFixture()

	deal, err := domain.NewMonetaryAmount(decimal.NewFromInt(100), domain.CurrencyUSD, decimal.NewFromInt(12500), domain.RateSourceOfficial)
	require.NoError(t, err)
	customs, err := domain.NewMonetaryAmount(decimal.NewFromInt(20), domain.CurrencyUSD, decimal.NewFromInt(12500), domain.RateSourceOfficial)
	require.NoError(t, err)

	taskID := uuid.New()
	task := &domain.Task{
		ID: taskID,
		Snapshot: domain.TaskSnapshot{
			DealAmount:         deal,
			CertificatePayment: deal,
			WorkerPayment:      deal,
			CustomsPayment:     customs,
			CustomsReference:   decimal.NewFromInt(20),
			CustomsMultiplier:  decimal.NewFromInt(1),
			CustomsSurcharge:   decimal.Zero,
		},
	}

	fixture.taskRepo.On("GetByID", mock.Anything, taskID).Return(task, nil)
	fixture.taskRepo.On("UpdateSnapshot", mock.Anything, taskID, mock.MatchedBy(func(snap *domain.TaskSnapshot) bool {
		return snap.CustomsMultiplier.Equal(decimal.NewFromInt(2)) &&
			snap.CustomsPayment.OriginalAmount.Equal(decimal.NewFromInt(40))
	})).Return(nil)

	err = fixture.service.SetCustomsMultiplier(context.Background(), taskID, decimal.NewFromInt(2))

	require.NoError(t, err)
	fixture.taskRepo.AssertExpectations(t)
}
