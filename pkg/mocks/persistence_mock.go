package mocks

import (
	"context"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, workflowID, role string) (*models.WorkflowDefinition, error) {
	args := m.Called(ctx, workflowID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowDefinition), args.Error(1)
}

func (m *MockWorkflowRepository) ListForRole(ctx context.Context, role string) ([]*models.WorkflowDefinition, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowDefinition), args.Error(1)
}

func (m *MockWorkflowRepository) GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowDefinition), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.WorkflowDefinition) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

// MockSessionRepository is a mock implementation of persistence.SessionRepository interface.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetByContextID(ctx context.Context, contextID string) (*models.SessionSnapshot, error) {
	args := m.Called(ctx, contextID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SessionSnapshot), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, snapshot *models.SessionSnapshot) error {
	args := m.Called(ctx, snapshot)

	return args.Error(0)
}

// MockTemplateRepository is a mock implementation of persistence.TemplateRepository interface.
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Get(ctx context.Context, templateType, name string) (*models.PromptTemplate, error) {
	args := m.Called(ctx, templateType, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.PromptTemplate), args.Error(1)
}

func (m *MockTemplateRepository) Save(ctx context.Context, template *models.PromptTemplate) error {
	args := m.Called(ctx, template)

	return args.Error(0)
}

// MockTraceRepository is a mock implementation of persistence.TraceRepository interface.
type MockTraceRepository struct {
	mock.Mock
}

func (m *MockTraceRepository) Save(ctx context.Context, trace *models.InteractionTrace) error {
	args := m.Called(ctx, trace)

	return args.Error(0)
}

func (m *MockTraceRepository) ListByContextID(ctx context.Context, contextID string) ([]*models.InteractionTrace, error) {
	args := m.Called(ctx, contextID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.InteractionTrace), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) SessionRepository() persistence.SessionRepository {
	args := m.Called()

	return args.Get(0).(persistence.SessionRepository)
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	args := m.Called()

	return args.Get(0).(persistence.WorkflowRepository)
}

func (m *MockPersistence) TemplateRepository() persistence.TemplateRepository {
	args := m.Called()

	return args.Get(0).(persistence.TemplateRepository)
}

func (m *MockPersistence) TraceRepository() persistence.TraceRepository {
	args := m.Called()

	return args.Get(0).(persistence.TraceRepository)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
