// Package workflow walks a workflow run through its linked steps, pausing for
// user input and folding system action results into the run outputs.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/converse/pkg/actions"
	"github.com/dukex/converse/pkg/jsonpath"
	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/otelhelper"
	"github.com/dukex/converse/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultExitMessage     = "Okay, I stopped this workflow."
	DefaultFailureMessage  = "Sorry, something went wrong while processing your request."
	DefaultCompleteMessage = "All done."
)

// Messages are the replies the walker uses when a step does not provide one.
type Messages struct {
	Exit     string
	Failure  string
	Complete string
}

// ActionCall describes one system action invocation.
type ActionCall struct {
	Step     *models.Step
	Inputs   map[string]any
	OK       bool
	Result   map[string]any
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Hooks are optional callbacks invoked while a turn is walked.
type Hooks struct {
	// StepCompleted runs after a system action step finished without ending the run.
	StepCompleted func(ctx context.Context, step *models.Step, run *models.WorkflowRun)
	// ActionCalled runs after every action invocation, successful or not.
	ActionCalled func(ctx context.Context, call ActionCall)
}

// Turn is the input of one walk: the latest user text and session-level data
// bound alongside the run outputs.
type Turn struct {
	Input   string
	Session map[string]any
	Hooks   Hooks
}

// Outcome is where a walk stopped and what to tell the user.
type Outcome struct {
	State  models.RunState
	StepID string
	// Reply is the resolved step message: a string, or a structured value
	// when the message is a single path expression.
	Reply any
	// Retried is set when the input was rejected and the same step is prompted again.
	Retried bool
	Exited  bool
	// Failure is set when an action failure ended the run.
	Failure *ActionError
}

type Walker struct {
	invoker  actions.Invoker
	tracer   trace.Tracer
	logger   *slog.Logger
	messages Messages
}

func NewWalker(invoker actions.Invoker, tracer trace.Tracer, messages Messages, logger *slog.Logger) *Walker {
	if messages.Exit == "" {
		messages.Exit = DefaultExitMessage
	}

	if messages.Failure == "" {
		messages.Failure = DefaultFailureMessage
	}

	if messages.Complete == "" {
		messages.Complete = DefaultCompleteMessage
	}

	return &Walker{
		invoker:  invoker,
		tracer:   tracer,
		logger:   logger.With("module", "workflow_walker"),
		messages: messages,
	}
}

// Walk advances run until it needs user input or reaches a terminal state.
// A run parked at AWAITING_USER_INPUT treats turn.Input as the answer to its
// current step. The run is mutated in place.
func (w *Walker) Walk(ctx context.Context, definition *models.WorkflowDefinition, run *models.WorkflowRun, turn Turn) (*Outcome, error) {
	if run.WorkflowID != definition.ID {
		return nil, fmt.Errorf("%w: run %s, workflow %s", ErrWorkflowMismatch, run.WorkflowID, definition.ID)
	}

	if run.State.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminated, run.State)
	}

	if run.Outputs == nil {
		run.Outputs = map[string]any{}
	}

	logger := w.logger.With("workflow_id", definition.ID, "run_id", run.ID)

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.walk",
		attribute.String(otelhelper.WorkflowIDKey, definition.ID),
		attribute.String(otelhelper.WorkflowNameKey, definition.Name),
		attribute.String(otelhelper.RunIDKey, run.ID),
	)
	defer span.End()

	answer := run.State == models.RunStateAwaitingUserInput
	run.State = models.RunStateRunning

	for range len(definition.Steps) + 1 {
		if definition.IsExitKeyword(turn.Input) {
			logger.InfoContext(ctx, "Exit keyword received, ending run", "step_id", run.CurrentStepID)

			return w.finish(run, models.RunStateCompleted, &Outcome{Reply: w.messages.Exit, Exited: true}), nil
		}

		step, ok := definition.Step(run.CurrentStepID)
		if !ok {
			run.State = models.RunStateFailed
			err := fmt.Errorf("%w: '%s' in workflow %s", ErrStepNotFound, run.CurrentStepID, definition.ID)
			otelhelper.SetError(span, err)

			return nil, err
		}

		span.SetAttributes(attribute.String(otelhelper.StepIDKey, step.ID))

		switch step.Type {
		case models.StepTypeUserInput:
			if !answer {
				logger.InfoContext(ctx, "Waiting for user input", "step_id", step.ID)

				return w.pause(run, step, w.prompt(ctx, step, run, turn)), nil
			}

			answer = false

			err := validateInput(step, turn.Input)
			if err != nil {
				logger.InfoContext(ctx, "User input rejected", "step_id", step.ID, "error", err)

				outcome := w.pause(run, step, w.reprompt(ctx, step, run, turn))
				outcome.Retried = true

				return outcome, nil
			}

			run.Outputs[step.OutputKey()] = turn.Input

		case models.StepTypeFinalResponse:
			logger.InfoContext(ctx, "Final response reached", "step_id", step.ID)

			return w.finish(run, models.RunStateCompleted, &Outcome{StepID: step.ID, Reply: w.prompt(ctx, step, run, turn)}), nil

		case models.StepTypeSystemAction:
			failure, err := w.runAction(ctx, step, run, turn, logger)
			if err != nil {
				run.State = models.RunStateFailed
				otelhelper.SetError(span, err, attribute.String(otelhelper.StepIDKey, step.ID))

				return nil, err
			}

			if failure != nil && !step.SystemAction.ContinuesOnError() {
				reply := step.FailureMessage
				if reply == "" {
					reply = w.messages.Failure
				}

				return w.finish(run, models.RunStateFailed, &Outcome{StepID: step.ID, Reply: reply, Failure: failure}), nil
			}

		default:
			run.State = models.RunStateFailed

			return nil, fmt.Errorf("%w: step '%s' has unknown type '%s'", ErrInvalidDefinition, step.ID, step.Type)
		}

		if step.Type == models.StepTypeSystemAction && turn.Hooks.StepCompleted != nil {
			turn.Hooks.StepCompleted(ctx, step, run)
		}

		next := step.Next()
		if next == "" {
			return w.finish(run, models.RunStateCompleted, &Outcome{StepID: step.ID, Reply: w.messages.Complete}), nil
		}

		run.CurrentStepID = next
		run.UpdatedAt = time.Now().UTC()
	}

	run.State = models.RunStateFailed

	return nil, fmt.Errorf("%w: workflow %s", ErrTransitionLimit, definition.ID)
}

// runAction invokes the step's action and folds the result into the run
// outputs. A non-nil ActionError means the action reported failure; err means
// it could not be invoked.
func (w *Walker) runAction(ctx context.Context, step *models.Step, run *models.WorkflowRun, turn Turn, logger *slog.Logger) (*ActionError, error) {
	action := step.SystemAction

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.action",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepTypeKey, string(step.Type)),
		attribute.String(otelhelper.ActionNameKey, action.Name),
	)
	defer span.End()

	inputs, _ := jsonpath.ResolveAll(action.Inputs, bindingData(turn, run)).(map[string]any)
	if inputs == nil {
		inputs = map[string]any{}
	}

	logger.InfoContext(ctx, "Invoking action", "step_id", step.ID, "action", action.Name)

	started := time.Now()
	ok, result, err := w.invoker.Invoke(ctx, action.Name, inputs)

	if turn.Hooks.ActionCalled != nil {
		turn.Hooks.ActionCalled(ctx, ActionCall{
			Step:     step,
			Inputs:   inputs,
			OK:       ok && err == nil,
			Result:   result,
			Err:      err,
			Started:  started,
			Duration: time.Since(started),
		})
	}

	if err != nil {
		logger.ErrorContext(ctx, "Failed to invoke action", "step_id", step.ID, "action", action.Name, "error", err)
		otelhelper.SetError(span, err)

		return nil, &ActionError{StepID: step.ID, Action: action.Name, Err: err}
	}

	if !ok {
		logger.WarnContext(ctx, "Action reported failure", "step_id", step.ID, "action", action.Name, "on_error", action.OnError)
		fold(action.ErrorMapping, result, run.Outputs)

		return &ActionError{StepID: step.ID, Action: action.Name, Result: result}, nil
	}

	if len(action.SuccessMapping) == 0 && len(action.OutputMapping) == 0 {
		maps.Copy(run.Outputs, result)
	} else {
		fold(action.SuccessMapping, result, run.Outputs)
		fold(action.OutputMapping, result, run.Outputs)
	}

	return nil, nil
}

// fold copies result values into outputs per mapping. Mapping keys are result
// keys or path expressions evaluated against the result.
func fold(mapping map[string]string, result map[string]any, outputs map[string]any) {
	for source, target := range mapping {
		var (
			value any
			ok    bool
		)

		if jsonpath.IsExpression(source) {
			value, ok = jsonpath.Resolve(result, source)
		} else {
			value, ok = result[source]
		}

		if ok {
			outputs[target] = value
		}
	}
}

// bindingData is what step inputs and messages resolve against: session data
// overlaid with the run outputs.
func bindingData(turn Turn, run *models.WorkflowRun) map[string]any {
	data := make(map[string]any, len(turn.Session)+len(run.Outputs))
	maps.Copy(data, turn.Session)
	maps.Copy(data, run.Outputs)

	return data
}

func (w *Walker) prompt(ctx context.Context, step *models.Step, run *models.WorkflowRun, turn Turn) any {
	if step.UserInteraction == nil {
		return ""
	}

	data := bindingData(turn, run)

	resolved := jsonpath.ResolveAll(step.UserInteraction.UserMessage, data)

	text, ok := resolved.(string)
	if !ok || !template.NeedsTemplating(text) {
		return resolved
	}

	rendered, err := template.RenderText(text, data)
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to render step message", "step_id", step.ID, "error", err)

		return text
	}

	return rendered
}

func (w *Walker) reprompt(ctx context.Context, step *models.Step, run *models.WorkflowRun, turn Turn) any {
	if step.FailureMessage != "" {
		return step.FailureMessage
	}

	return w.prompt(ctx, step, run, turn)
}

func (w *Walker) pause(run *models.WorkflowRun, step *models.Step, reply any) *Outcome {
	run.State = models.RunStateAwaitingUserInput
	run.CurrentStepID = step.ID
	run.UpdatedAt = time.Now().UTC()

	return &Outcome{State: run.State, StepID: step.ID, Reply: reply}
}

func (w *Walker) finish(run *models.WorkflowRun, state models.RunState, outcome *Outcome) *Outcome {
	run.State = state
	run.UpdatedAt = time.Now().UTC()

	outcome.State = state
	if outcome.StepID == "" {
		outcome.StepID = run.CurrentStepID
	}

	return outcome
}
