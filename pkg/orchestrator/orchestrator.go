// Package orchestrator handles one conversational turn end to end: identity,
// session state, routing, workflow execution and status delivery.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/dukex/converse/pkg/eventbus"
	"github.com/dukex/converse/pkg/events"
	"github.com/dukex/converse/pkg/identity"
	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/otelhelper"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/session"
	"github.com/dukex/converse/pkg/status"
	actiontrace "github.com/dukex/converse/pkg/trace"
	"github.com/dukex/converse/pkg/workflow"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultFallbackMessage   = "Sorry, I can't help with that. Ask me what I can do to see my capabilities."
	DefaultCapabilitySummary = "Here is what I can help you with."
)

// Classifier picks the route of a session's first turn.
type Classifier interface {
	Classify(ctx context.Context, input string, roles []string) (models.RouteDecision, error)
}

// WorkflowCatalog resolves a workflow id against the roles of the user.
type WorkflowCatalog interface {
	WorkflowForRoles(ctx context.Context, workflowID string, roles []string) (*models.WorkflowDefinition, error)
}

// TurnRequest is one user turn as received by the transport. When InputData
// carries an "input" string it replaces Input.
type TurnRequest struct {
	ContextID string
	TaskID    string
	Input     string
	InputData map[string]any
	Token     string
}

// Dependencies are the collaborators of an Orchestrator. Recorder, Publisher
// and Tracer are optional.
type Dependencies struct {
	Identity  identity.Resolver
	Sessions  persistence.SessionRepository
	Router    Classifier
	Catalog   WorkflowCatalog
	Walker    *workflow.Walker
	Status    *status.Coordinator
	Recorder  *actiontrace.Recorder
	Publisher eventbus.EventPublisher
	Tracer    trace.Tracer

	Agent           models.AgentCard
	FallbackMessage string
	StreamBuffer    int
	StreamTimeout   time.Duration
}

type Orchestrator struct {
	deps   Dependencies
	tracer trace.Tracer
	logger *slog.Logger
}

func New(deps Dependencies, logger *slog.Logger) *Orchestrator {
	if deps.FallbackMessage == "" {
		deps.FallbackMessage = DefaultFallbackMessage
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("converse/orchestrator")
	}

	return &Orchestrator{
		deps:   deps,
		tracer: tracer,
		logger: logger.With("module", "orchestrator"),
	}
}

// turn is the state of one request between preparation and execution.
type turn struct {
	request    TurnRequest
	text       string
	userID     string
	roles      []string
	session    *session.Manager
	decision   models.RouteDecision
	definition *models.WorkflowDefinition
	run        *models.WorkflowRun
	logger     *slog.Logger
}

// HandleTurn processes one turn and returns its final status update. In
// streaming mode the intermediate updates are still produced and reach the
// event bus; use HandleTurnStream to read them.
func (o *Orchestrator) HandleTurn(ctx context.Context, request TurnRequest, streaming bool) (models.StatusUpdate, error) {
	t, err := o.prepare(ctx, request)
	if err != nil {
		return models.StatusUpdate{}, err
	}

	var notifier *status.Notifier

	if streaming {
		notifier = status.NewNotifier(o.deps.StreamBuffer, o.deps.StreamTimeout, o.logger)

		go func() {
			for range notifier.Updates() {
			}
		}()
	}

	return o.execute(ctx, t, o.deps.Status.Start(t.request.ContextID, t.request.TaskID, notifier))
}

// HandleTurnStream validates, authenticates and routes the turn, then walks
// it in the background. The returned channel yields one non-final update per
// completed system action and is closed after the final update. Errors after
// the channel was returned are logged and close it without a final update.
func (o *Orchestrator) HandleTurnStream(ctx context.Context, request TurnRequest) (<-chan models.StatusUpdate, error) {
	t, err := o.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	notifier := status.NewNotifier(o.deps.StreamBuffer, o.deps.StreamTimeout, o.logger)
	task := o.deps.Status.Start(t.request.ContextID, t.request.TaskID, notifier)

	go func() {
		_, err := o.execute(context.WithoutCancel(ctx), t, task)
		if err != nil {
			t.logger.ErrorContext(ctx, "Streaming turn failed", "error", err)
		}
	}()

	return notifier.Updates(), nil
}

func validate(request TurnRequest) (string, error) {
	text := request.Input
	if override, ok := request.InputData["input"].(string); ok {
		text = override
	}

	if strings.TrimSpace(text) == "" && len(request.InputData) == 0 {
		return "", &ValidationError{Field: "input", Err: ErrMissingInput}
	}

	if strings.TrimSpace(request.Token) == "" {
		return "", &ValidationError{Field: "token", Err: ErrMissingToken}
	}

	return text, nil
}

// prepare runs everything that can reject a turn: validation, identity,
// session loading and routing. Nothing is persisted here.
func (o *Orchestrator) prepare(ctx context.Context, request TurnRequest) (*turn, error) {
	text, err := validate(request)
	if err != nil {
		return nil, err
	}

	if request.ContextID == "" {
		request.ContextID = uuid.New().String()
	}

	if request.TaskID == "" {
		request.TaskID = uuid.New().String()
	}

	logger := o.logger.With("context_id", request.ContextID, "task_id", request.TaskID)

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.prepare_turn",
		attribute.String(otelhelper.ContextIDKey, request.ContextID),
		attribute.String(otelhelper.TaskIDKey, request.TaskID),
	)
	defer span.End()

	userID, roles, err := o.deps.Identity.Resolve(ctx, request.Token)
	if errors.Is(err, identity.ErrNoRoles) {
		return nil, &ValidationError{Field: "roles", Err: ErrNoRoles}
	}

	if err != nil {
		logger.WarnContext(ctx, "Failed to resolve identity", "error", err)
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	if len(roles) == 0 {
		return nil, &ValidationError{Field: "roles", Err: ErrNoRoles}
	}

	manager, err := session.New(request.ContextID, userID, roles, o.deps.Agent.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	snapshot, err := o.deps.Sessions.GetByContextID(ctx, request.ContextID)
	if err != nil && !persistence.IsSessionNotFound(err) {
		logger.ErrorContext(ctx, "Failed to load session", "error", err)
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load session %s: %w", request.ContextID, err)
	}

	if snapshot != nil && snapshot.UserID != "" && snapshot.UserID != userID {
		return nil, &ValidationError{Field: "context_id", Err: ErrForeignSession}
	}

	err = manager.Rehydrate(snapshot)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to rehydrate session", "error", err)

		return nil, fmt.Errorf("failed to rehydrate session %s: %w", request.ContextID, err)
	}

	manager.AppendUserTurn(userContent(text, request.InputData))

	t := &turn{
		request: request,
		text:    text,
		userID:  userID,
		roles:   roles,
		session: manager,
		logger:  logger,
	}

	state := manager.State()
	if manager.IsNew() || state.SelectedSkill == "" {
		decision, err := o.deps.Router.Classify(ctx, text, roles)
		if err != nil {
			logger.WarnContext(ctx, "Failed to classify input", "error", err)
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("failed to route turn: %w", err)
		}

		manager.SetRoute(decision)
		t.decision = decision

		o.publish(ctx, logger, request.ContextID, events.ConversationRouted{
			BaseEvent: events.NewBaseEvent(events.ConversationRoutedEvent, request.ContextID, request.TaskID),
			Decision:  decision,
		})
	} else {
		t.decision = models.RouteDecision{Route: state.SelectedSkill, WorkflowID: state.WorkflowID}
	}

	span.SetAttributes(attribute.String(otelhelper.RouteKey, string(t.decision.Route)))

	if t.decision.Route == models.RouteWorkflow {
		err = o.loadRun(ctx, t)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}
	}

	return t, nil
}

// loadRun resumes the session's run of the routed workflow or starts a new
// one when there is none left to resume.
func (o *Orchestrator) loadRun(ctx context.Context, t *turn) error {
	definition, err := o.deps.Catalog.WorkflowForRoles(ctx, t.decision.WorkflowID, t.roles)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to load workflow", "workflow_id", t.decision.WorkflowID, "error", err)

		return fmt.Errorf("failed to load workflow %s: %w", t.decision.WorkflowID, err)
	}

	t.definition = definition
	t.logger = t.logger.With("workflow_id", definition.ID)

	run := t.session.Run()
	if run != nil && run.WorkflowID == definition.ID && !run.State.Terminal() {
		t.run = run

		return nil
	}

	t.run = models.NewWorkflowRun(uuid.New().String(), definition)
	t.session.SetRun(t.run)
	t.session.SetStatus(models.SessionStatusInProgress)

	t.logger.InfoContext(ctx, "Starting workflow run", "run_id", t.run.ID)

	o.publish(ctx, t.logger, t.request.ContextID, events.WorkflowRunStarted{
		BaseEvent:  events.NewBaseEvent(events.WorkflowRunStartedEvent, t.request.ContextID, t.request.TaskID),
		WorkflowID: definition.ID,
		RunID:      t.run.ID,
	})

	return nil
}

// execute produces the reply of a prepared turn, saves the session and emits
// the final update.
func (o *Orchestrator) execute(ctx context.Context, t *turn, task *status.Task) (models.StatusUpdate, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.execute_turn",
		attribute.String(otelhelper.ContextIDKey, t.request.ContextID),
		attribute.String(otelhelper.TaskIDKey, t.request.TaskID),
		attribute.String(otelhelper.RouteKey, string(t.decision.Route)),
		attribute.Bool(otelhelper.StreamingKey, task.Streaming()),
	)
	defer span.End()

	var (
		message *models.AgentMessage
		state   = models.RunStateCompleted
	)

	switch t.decision.Route {
	case models.RouteWorkflow:
		outcome, err := o.walk(ctx, t, task)
		if err != nil {
			t.logger.ErrorContext(ctx, "Failed to execute workflow", "step_id", t.run.CurrentStepID, "run_state", t.run.State, "error", err)
			otelhelper.SetError(span, err, attribute.String(otelhelper.StepIDKey, t.run.CurrentStepID))

			t.session.SetStatus(models.SessionStatusFailed)
			_ = o.save(ctx, t)
			task.Abort()

			return models.StatusUpdate{}, fmt.Errorf("failed to execute workflow %s: %w", t.definition.ID, err)
		}

		message = workflowMessage(outcome.Reply, t.definition)
		state = outcome.State

		span.SetAttributes(
			attribute.String(otelhelper.RunStateKey, string(state)),
			attribute.String(otelhelper.StepIDKey, outcome.StepID),
		)
	case models.RouteCapability:
		message = o.capabilityMessage()
	default:
		message = models.NewTextMessage(o.deps.FallbackMessage)
	}

	t.session.AppendAgentTurn(message)

	if t.run != nil {
		switch t.run.State {
		case models.RunStateCompleted:
			t.session.SetStatus(models.SessionStatusCompleted)
		case models.RunStateFailed:
			t.session.SetStatus(models.SessionStatusFailed)
		}
	}

	err := o.save(ctx, t)
	if err != nil {
		otelhelper.SetError(span, err)
		task.Abort()

		return models.StatusUpdate{}, err
	}

	update := task.Finish(ctx, state, message)

	if t.run != nil && t.run.State.Terminal() {
		o.publish(ctx, t.logger, t.request.ContextID, events.WorkflowRunFinished{
			BaseEvent:  events.NewBaseEvent(events.WorkflowRunFinishedEvent, t.request.ContextID, t.request.TaskID),
			WorkflowID: t.run.WorkflowID,
			RunID:      t.run.ID,
			State:      t.run.State,
			StepID:     t.run.CurrentStepID,
		})
	}

	t.logger.InfoContext(ctx, "Turn handled", "route", t.decision.Route, "status", update.Status, "final", update.Final)

	return update, nil
}

func (o *Orchestrator) walk(ctx context.Context, t *turn, task *status.Task) (*workflow.Outcome, error) {
	hooks := workflow.Hooks{
		StepCompleted: func(ctx context.Context, step *models.Step, _ *models.WorkflowRun) {
			task.Progress(ctx, progressMessage(step, t.definition))
		},
	}

	if o.deps.Recorder != nil {
		scope := actiontrace.Scope{
			ContextID:  t.request.ContextID,
			TaskID:     t.request.TaskID,
			WorkflowID: t.definition.ID,
		}

		hooks.ActionCalled = func(ctx context.Context, call workflow.ActionCall) {
			o.deps.Recorder.Record(ctx, scope, call)
		}
	}

	return o.deps.Walker.Walk(ctx, t.definition, t.run, workflow.Turn{
		Input:   t.text,
		Session: t.bindings(),
		Hooks:   hooks,
	})
}

// bindings is the session-level data step inputs may reference, next to the
// run outputs.
func (t *turn) bindings() map[string]any {
	data := make(map[string]any, len(t.request.InputData)+5)
	maps.Copy(data, t.request.InputData)

	data["input"] = t.text
	data["context_id"] = t.request.ContextID
	data["user_id"] = t.userID
	data["token"] = t.request.Token

	roles := make([]any, 0, len(t.roles))
	for _, role := range t.roles {
		roles = append(roles, role)
	}

	data["roles"] = roles

	return data
}

func (o *Orchestrator) save(ctx context.Context, t *turn) error {
	err := o.deps.Sessions.Save(ctx, t.session.Snapshot())
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to save session", "error", err)

		return fmt.Errorf("failed to save session %s: %w", t.request.ContextID, err)
	}

	return nil
}

func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if o.deps.Publisher == nil {
		return
	}

	err := o.deps.Publisher.Publish(ctx, key, event)
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) capabilityMessage() *models.AgentMessage {
	summary := o.deps.Agent.Description
	if summary == "" {
		summary = DefaultCapabilitySummary
	}

	categories := make([]models.CapabilityCategory, 0, len(o.deps.Agent.Skills))
	for _, skill := range o.deps.Agent.Skills {
		categories = append(categories, models.CapabilityCategory{Title: skill.Name, Description: skill.Description})
	}

	return &models.AgentMessage{
		Summary: summary,
		Content: []models.ContentBlock{{Type: models.BlockTypeCapabilities, Capabilities: categories}},
	}
}

func userContent(text string, data map[string]any) any {
	if len(data) == 0 {
		return text
	}

	content := maps.Clone(data)
	content["input"] = text

	return content
}

// workflowMessage turns a step reply into an agent message tagged with the
// workflow it belongs to.
func workflowMessage(reply any, definition *models.WorkflowDefinition) *models.AgentMessage {
	var message *models.AgentMessage

	switch value := reply.(type) {
	case string:
		message = models.NewTextMessage(value)
	case map[string]any:
		message = models.TransformResults(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			encoded = []byte(fmt.Sprint(value))
		}

		message = models.NewTextMessage(string(encoded))
	}

	ref := workflowRef(definition)
	if message.Workflow != nil && message.Workflow.Name != "" && message.Workflow.Name != "Workflow" {
		ref.Name = message.Workflow.Name
	}

	message.Workflow = ref

	return message
}

func progressMessage(step *models.Step, definition *models.WorkflowDefinition) *models.AgentMessage {
	text := step.TaskDescription
	if text == "" {
		text = fmt.Sprintf("Completed step %s", step.ID)
	}

	message := models.NewTextMessage(text)
	message.DisableUserInput = true
	message.Workflow = workflowRef(definition)

	return message
}

func workflowRef(definition *models.WorkflowDefinition) *models.WorkflowRef {
	ref := &models.WorkflowRef{Name: definition.Name, ID: definition.ID}
	if len(definition.ExitKeywords) > 0 {
		ref.CancelationText = definition.ExitKeywords[0]
	}

	return ref
}
