package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/converse/pkg/eventbus"
	"github.com/dukex/converse/pkg/events"
	"github.com/dukex/converse/pkg/identity"
	"github.com/dukex/converse/pkg/mocks"
	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/orchestrator"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/router"
	"github.com/dukex/converse/pkg/status"
	"github.com/dukex/converse/pkg/testutil"
	actiontrace "github.com/dukex/converse/pkg/trace"
	"github.com/dukex/converse/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, input string, roles []string) (models.RouteDecision, error) {
	args := m.Called(ctx, input, roles)

	return args.Get(0).(models.RouteDecision), args.Error(1)
}

type staticCatalog map[string]*models.WorkflowDefinition

func (c staticCatalog) WorkflowForRoles(_ context.Context, workflowID string, _ []string) (*models.WorkflowDefinition, error) {
	definition, ok := c[workflowID]
	if !ok {
		return nil, persistence.ErrWorkflowNotFound
	}

	return definition, nil
}

// memorySessions stores snapshots as JSON, the way real stores do.
type memorySessions struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	saves     int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{snapshots: map[string][]byte{}}
}

func (s *memorySessions) GetByContextID(_ context.Context, contextID string) (*models.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.snapshots[contextID]
	if !ok {
		return nil, persistence.NewSessionError("GetByContextID", contextID, persistence.ErrSessionNotFound)
	}

	var snapshot models.SessionSnapshot

	err := json.Unmarshal(raw, &snapshot)
	if err != nil {
		return nil, err
	}

	return &snapshot, nil
}

func (s *memorySessions) Save(_ context.Context, snapshot *models.SessionSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.ContextID] = raw
	s.saves++

	return nil
}

func (s *memorySessions) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) count(eventType events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0

	for _, event := range p.events {
		if event.GetType() == eventType {
			n++
		}
	}

	return n
}

type fixture struct {
	orchestrator *orchestrator.Orchestrator
	identity     *mocks.MockResolver
	router       *mockClassifier
	invoker      *mocks.MockInvoker
	sessions     *memorySessions
	traces       *mocks.MockTraceRepository
	publisher    *recordingPublisher
}

func newFixture(t *testing.T, definitions ...*models.WorkflowDefinition) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")

	f := &fixture{
		identity:  &mocks.MockResolver{},
		router:    &mockClassifier{},
		invoker:   &mocks.MockInvoker{},
		sessions:  newMemorySessions(),
		traces:    &mocks.MockTraceRepository{},
		publisher: &recordingPublisher{},
	}

	f.traces.On("Save", mock.Anything, mock.Anything).Return(nil).Maybe()

	catalog := staticCatalog{}
	for _, definition := range definitions {
		catalog[definition.ID] = definition
	}

	f.orchestrator = orchestrator.New(orchestrator.Dependencies{
		Identity:  f.identity,
		Sessions:  f.sessions,
		Router:    f.router,
		Catalog:   catalog,
		Walker:    workflow.NewWalker(f.invoker, tracer, workflow.Messages{}, logger),
		Status:    status.NewCoordinator(f.publisher, logger),
		Recorder:  actiontrace.NewRecorder(f.traces, f.publisher, logger),
		Publisher: f.publisher,
		Tracer:    tracer,
		Agent: models.AgentCard{
			Name:        "Converse",
			Description: "I track orders.",
			Skills: []models.Skill{
				{ID: "orders", Name: "Order tracking", Description: "Find where an order is"},
			},
		},
	}, logger)

	return f
}

func (f *fixture) customer() {
	f.identity.On("Resolve", mock.Anything, "token-1").Return("user-1", []string{"Customer"}, nil)
}

// orderWorkflow looks the order up, asks for confirmation and answers.
func orderWorkflow() *models.WorkflowDefinition {
	confirm := testutil.CreateUserInputStep("confirm", "confirmation", "Your order is {{ .order_status }}. Confirm?", testutil.Ptr("done"))
	confirm.UserInteraction.ValidationRegex = `^(?i)(yes|no)$`
	confirm.FailureMessage = "Please answer yes or no."

	lookup := testutil.CreateSystemActionStep("get_order", "get_order", map[string]any{"order_id": "$.order_id"}, testutil.Ptr("confirm"))
	lookup.TaskDescription = "Looking up your order"

	return testutil.CreateTestWorkflow(
		testutil.WithID("track_order"),
		testutil.WithName("Track order"),
		testutil.WithSteps(
			lookup,
			confirm,
			testutil.CreateFinalResponseStep("done", "Order confirmed: {{ .confirmation }}"),
		),
	)
}

func routeToOrders(f *fixture) {
	f.router.On("Classify", mock.Anything, "track order 123", []string{"Customer"}).
		Return(models.RouteDecision{Route: models.RouteWorkflow, WorkflowID: "track_order"}, nil).Once()
}

func TestHandleTurn_OrderScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, orderWorkflow())
	f.customer()
	routeToOrders(f)
	f.invoker.On("Invoke", mock.Anything, "get_order", map[string]any{"order_id": "123"}).
		Return(true, map[string]any{"order_status": "shipped"}, nil).Once()

	first, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{
		ContextID: "ctx-1",
		TaskID:    "task-1",
		Input:     "track order 123",
		InputData: map[string]any{"order_id": "123"},
		Token:     "token-1",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStateInputRequired, first.Status)
	assert.False(t, first.Final)
	assert.Equal(t, "ctx-1", first.ContextID)
	assert.Equal(t, "task-1", first.TaskID)
	require.NotNil(t, first.Message)
	assert.Equal(t, "Your order is shipped. Confirm?", first.Message.Summary)
	assert.Equal(t, &models.WorkflowRef{Name: "Track order", ID: "track_order", CancelationText: "cancel"}, first.Message.Workflow)

	second, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{
		ContextID: "ctx-1",
		TaskID:    "task-2",
		Input:     "yes",
		Token:     "token-1",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStateCompleted, second.Status)
	assert.True(t, second.Final)
	assert.Equal(t, "Order confirmed: yes", second.Message.Summary)

	f.router.AssertNumberOfCalls(t, "Classify", 1)
	f.invoker.AssertExpectations(t)

	snapshot, err := f.sessions.GetByContextID(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Len(t, snapshot.Conversation, 4)
	assert.Equal(t, models.SessionStatusCompleted, snapshot.Status)
	assert.Equal(t, "Converse", snapshot.AgentName)
	assert.Equal(t, 1, f.publisher.count(events.WorkflowRunStartedEvent))
	assert.Equal(t, 1, f.publisher.count(events.WorkflowRunFinishedEvent))
	assert.Equal(t, 1, f.publisher.count(events.ActionInvokedEvent))
	assert.Equal(t, 1, f.publisher.count(events.ConversationRoutedEvent))
}

func TestHandleTurn_InvalidAnswerIsRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, orderWorkflow())
	f.customer()
	routeToOrders(f)
	f.invoker.On("Invoke", mock.Anything, "get_order", mock.Anything).
		Return(true, map[string]any{"order_status": "shipped"}, nil).Once()

	request := orchestrator.TurnRequest{ContextID: "ctx-1", Input: "track order 123", InputData: map[string]any{"order_id": "123"}, Token: "token-1"}
	_, err := f.orchestrator.HandleTurn(ctx, request, false)
	require.NoError(t, err)

	update, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{ContextID: "ctx-1", Input: "maybe", Token: "token-1"}, false)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStateInputRequired, update.Status)
	assert.Equal(t, "Please answer yes or no.", update.Message.Summary)
	f.invoker.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestHandleTurn_ExitKeyword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, orderWorkflow())
	f.customer()
	routeToOrders(f)
	f.invoker.On("Invoke", mock.Anything, "get_order", mock.Anything).
		Return(true, map[string]any{"order_status": "shipped"}, nil).Once()

	_, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{ContextID: "ctx-1", Input: "track order 123", InputData: map[string]any{"order_id": "123"}, Token: "token-1"}, false)
	require.NoError(t, err)

	update, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{ContextID: "ctx-1", Input: "cancel", Token: "token-1"}, false)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStateCompleted, update.Status)
	assert.True(t, update.Final)
	assert.Equal(t, workflow.DefaultExitMessage, update.Message.Summary)
}

func TestHandleTurn_StreamingEmitsOneUpdatePerAction(t *testing.T) {
	ctx := context.Background()

	definition := testutil.CreateTestWorkflow(
		testutil.WithID("refund"),
		testutil.WithSteps(
			testutil.CreateSystemActionStep("check", "check_order", map[string]any{}, testutil.Ptr("refund")),
			testutil.CreateSystemActionStep("refund", "issue_refund", map[string]any{}, testutil.Ptr("done")),
			testutil.CreateFinalResponseStep("done", "Refunded {{ .amount }}"),
		),
	)

	f := newFixture(t, definition)
	f.customer()
	f.router.On("Classify", mock.Anything, "refund my order", []string{"Customer"}).
		Return(models.RouteDecision{Route: models.RouteWorkflow, WorkflowID: "refund"}, nil).Once()
	f.invoker.On("Invoke", mock.Anything, "check_order", mock.Anything).Return(true, map[string]any{"eligible": true}, nil)
	f.invoker.On("Invoke", mock.Anything, "issue_refund", mock.Anything).Return(true, map[string]any{"amount": "10.00"}, nil)

	updates, err := f.orchestrator.HandleTurnStream(ctx, orchestrator.TurnRequest{ContextID: "ctx-1", Input: "refund my order", Token: "token-1"})
	require.NoError(t, err)

	var received []models.StatusUpdate

	timeout := time.After(5 * time.Second)

	for done := false; !done; {
		select {
		case update, ok := <-updates:
			if !ok {
				done = true

				break
			}

			received = append(received, update)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}

	require.Len(t, received, 3)

	for _, update := range received[:2] {
		assert.Equal(t, models.TaskStateWorking, update.Status)
		assert.False(t, update.Final)
	}

	assert.Equal(t, "Completed step check", received[0].Message.Summary)
	assert.Equal(t, "Completed step refund", received[1].Message.Summary)
	assert.Equal(t, models.TaskStateCompleted, received[2].Status)
	assert.True(t, received[2].Final)
	assert.Equal(t, "Refunded 10.00", received[2].Message.Summary)
}

func TestHandleTurn_SynchronousEmitsOneUpdate(t *testing.T) {
	definition := testutil.CreateTestWorkflow(
		testutil.WithID("refund"),
		testutil.WithSteps(
			testutil.CreateSystemActionStep("check", "check_order", map[string]any{}, testutil.Ptr("refund")),
			testutil.CreateSystemActionStep("refund", "issue_refund", map[string]any{}, testutil.Ptr("done")),
			testutil.CreateFinalResponseStep("done", "Refunded"),
		),
	)

	f := newFixture(t, definition)
	f.customer()
	f.router.On("Classify", mock.Anything, "refund my order", []string{"Customer"}).
		Return(models.RouteDecision{Route: models.RouteWorkflow, WorkflowID: "refund"}, nil).Once()
	f.invoker.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return(true, map[string]any{}, nil)

	update, err := f.orchestrator.HandleTurn(context.Background(), orchestrator.TurnRequest{ContextID: "ctx-1", Input: "refund my order", Token: "token-1"}, false)
	require.NoError(t, err)

	assert.True(t, update.Final)
	assert.Equal(t, 1, f.publisher.count(events.TaskStatusUpdatedEvent))
}

func TestHandleTurn_ValidationHappensBeforeCollaborators(t *testing.T) {
	tests := []struct {
		name    string
		request orchestrator.TurnRequest
	}{
		{
			name:    "empty token",
			request: orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hello"},
		},
		{
			name:    "no input",
			request: orchestrator.TurnRequest{ContextID: "ctx-1", Token: "token-1"},
		},
		{
			name:    "blank input override",
			request: orchestrator.TurnRequest{ContextID: "ctx-1", Input: "   ", Token: " "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.orchestrator.HandleTurn(context.Background(), tt.request, false)
			require.Error(t, err)
			assert.True(t, orchestrator.IsValidationError(err))

			f.identity.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
			f.router.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
			assert.Zero(t, f.sessions.saveCount())
		})
	}
}

func TestHandleTurn_ZeroRoles(t *testing.T) {
	f := newFixture(t)
	f.identity.On("Resolve", mock.Anything, "token-1").Return("user-1", []string{}, nil)

	_, err := f.orchestrator.HandleTurn(context.Background(), orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hello", Token: "token-1"}, false)
	require.Error(t, err)
	assert.True(t, orchestrator.IsValidationError(err))
	assert.ErrorIs(t, err, orchestrator.ErrNoRoles)

	f.router.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.sessions.saveCount())
	assert.Zero(t, f.publisher.count(events.TaskStatusUpdatedEvent))
}

func TestHandleTurn_ResolverReportsNoRoles(t *testing.T) {
	f := newFixture(t)
	f.identity.On("Resolve", mock.Anything, "token-1").Return("", nil, errors.Join(identity.ErrUnauthorized, identity.ErrNoRoles))

	_, err := f.orchestrator.HandleTurn(context.Background(), orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hello", Token: "token-1"}, false)
	require.Error(t, err)
	assert.True(t, orchestrator.IsValidationError(err))
	assert.ErrorIs(t, err, orchestrator.ErrNoRoles)

	f.router.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.sessions.saveCount())
}

func TestHandleTurn_UnauthorizedToken(t *testing.T) {
	f := newFixture(t)
	f.identity.On("Resolve", mock.Anything, "bad").Return("", nil, identity.ErrUnauthorized)

	_, err := f.orchestrator.HandleTurn(context.Background(), orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hello", Token: "bad"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrUnauthorized)
	assert.Zero(t, f.sessions.saveCount())
}

func TestHandleTurn_InputDataOverridesInput(t *testing.T) {
	f := newFixture(t)
	f.customer()
	f.router.On("Classify", mock.Anything, "what can you do", []string{"Customer"}).
		Return(models.RouteDecision{Route: models.RouteCapability}, nil).Once()

	update, err := f.orchestrator.HandleTurn(context.Background(), orchestrator.TurnRequest{
		ContextID: "ctx-1",
		Input:     "ignored",
		InputData: map[string]any{"input": "what can you do"},
		Token:     "token-1",
	}, false)
	require.NoError(t, err)

	f.router.AssertExpectations(t)
	assert.Equal(t, models.TaskStateCompleted, update.Status)
	require.Len(t, update.Message.Content, 1)
	assert.Equal(t, models.BlockTypeCapabilities, update.Message.Content[0].Type)
	assert.Equal(t, []models.CapabilityCategory{{Title: "Order tracking", Description: "Find where an order is"}}, update.Message.Content[0].Capabilities)
	assert.Equal(t, "I track orders.", update.Message.Summary)
}

func TestHandleTurn_OtherRouteUsesFallback(t *testing.T) {
	f := newFixture(t)
	f.customer()
	f.router.On("Classify", mock.Anything, "tell me a joke", []string{"Customer"}).
		Return(models.RouteDecision{Route: models.RouteOther}, nil).Once()

	update, err := f.orchestrator.HandleTurn(context.Background(), orchestrator.TurnRequest{ContextID: "ctx-1", Input: "tell me a joke", Token: "token-1"}, false)
	require.NoError(t, err)

	assert.Equal(t, orchestrator.DefaultFallbackMessage, update.Message.Summary)
	assert.True(t, update.Final)
}

func TestHandleTurn_ClassificationErrorProducesNoUpdate(t *testing.T) {
	f := newFixture(t)
	f.customer()
	f.router.On("Classify", mock.Anything, "???", []string{"Customer"}).
		Return(models.RouteDecision{}, &router.ClassificationError{Err: router.ErrUnrecognizedRoute}).Once()

	updates, err := f.orchestrator.HandleTurnStream(context.Background(), orchestrator.TurnRequest{ContextID: "ctx-1", Input: "???", Token: "token-1"})
	require.Error(t, err)
	assert.Nil(t, updates)
	assert.True(t, router.IsClassificationError(err))
	assert.Zero(t, f.sessions.saveCount())
	assert.Zero(t, f.publisher.count(events.TaskStatusUpdatedEvent))
}

func TestHandleTurn_InvokerErrorFailsRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, orderWorkflow())
	f.customer()
	routeToOrders(f)
	f.invoker.On("Invoke", mock.Anything, "get_order", mock.Anything).Return(false, nil, errors.New("connection refused")).Once()

	_, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{ContextID: "ctx-1", Input: "track order 123", InputData: map[string]any{"order_id": "123"}, Token: "token-1"}, false)
	require.Error(t, err)
	assert.True(t, workflow.IsActionError(err))

	snapshot, err := f.sessions.GetByContextID(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFailed, snapshot.Status)

	run, ok := snapshot.CurrentState["run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(models.RunStateFailed), run["state"])
	assert.Zero(t, f.publisher.count(events.TaskStatusUpdatedEvent))
}

func TestHandleTurn_ForeignSessionRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.sessions.Save(ctx, testutil.CreateTestSnapshot("ctx-1", func(s *models.SessionSnapshot) {
		s.UserID = "someone-else"
	})))

	f.customer()

	_, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hello", Token: "token-1"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, orchestrator.ErrForeignSession)
}

func TestHandleTurn_CompletedRunRestartsWorkflow(t *testing.T) {
	ctx := context.Background()

	definition := testutil.CreateTestWorkflow(
		testutil.WithID("hello"),
		testutil.WithSteps(testutil.CreateFinalResponseStep("done", "Hello!")),
	)

	f := newFixture(t, definition)
	f.customer()
	f.router.On("Classify", mock.Anything, "hi", []string{"Customer"}).
		Return(models.RouteDecision{Route: models.RouteWorkflow, WorkflowID: "hello"}, nil).Once()

	for range 2 {
		update, err := f.orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hi", Token: "token-1"}, false)
		require.NoError(t, err)
		assert.Equal(t, "Hello!", update.Message.Summary)
	}

	f.router.AssertNumberOfCalls(t, "Classify", 1)
	assert.Equal(t, 2, f.publisher.count(events.WorkflowRunStartedEvent))
}

func TestHandleTurn_SessionStoreFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newOrchestrator := func(sessions *mocks.MockSessionRepository, classifier *mockClassifier, publisher *recordingPublisher) *orchestrator.Orchestrator {
		resolver := &mocks.MockResolver{}
		resolver.On("Resolve", mock.Anything, "token-1").Return("user-1", []string{"Customer"}, nil)

		return orchestrator.New(orchestrator.Dependencies{
			Identity: resolver,
			Sessions: sessions,
			Router:   classifier,
			Catalog:  staticCatalog{},
			Walker:   workflow.NewWalker(&mocks.MockInvoker{}, noop.NewTracerProvider().Tracer("test"), workflow.Messages{}, logger),
			Status:   status.NewCoordinator(publisher, logger),
		}, logger)
	}

	t.Run("load failure aborts before routing", func(t *testing.T) {
		sessions := &mocks.MockSessionRepository{}
		sessions.On("GetByContextID", mock.Anything, "ctx-1").Return(nil, errors.New("connection refused")).Once()

		classifier := &mockClassifier{}
		publisher := &recordingPublisher{}

		_, err := newOrchestrator(sessions, classifier, publisher).HandleTurn(context.Background(),
			orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hello", Token: "token-1"}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")

		classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
		sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Zero(t, publisher.count(events.TaskStatusUpdatedEvent))
	})

	t.Run("save failure produces no update", func(t *testing.T) {
		sessions := &mocks.MockSessionRepository{}
		sessions.On("GetByContextID", mock.Anything, "ctx-1").
			Return(nil, persistence.NewSessionError("GetByContextID", "ctx-1", persistence.ErrSessionNotFound)).Once()
		sessions.On("Save", mock.Anything, mock.AnythingOfType("*models.SessionSnapshot")).Return(errors.New("disk full")).Once()

		classifier := &mockClassifier{}
		classifier.On("Classify", mock.Anything, "hello", []string{"Customer"}).
			Return(models.RouteDecision{Route: models.RouteOther}, nil).Once()

		publisher := &recordingPublisher{}

		_, err := newOrchestrator(sessions, classifier, publisher).HandleTurn(context.Background(),
			orchestrator.TurnRequest{ContextID: "ctx-1", Input: "hello", Token: "token-1"}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")

		sessions.AssertExpectations(t)
		assert.Zero(t, publisher.count(events.TaskStatusUpdatedEvent))
	})
}
