// Package trace records the system action calls made during a turn.
package trace

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/converse/pkg/eventbus"
	"github.com/dukex/converse/pkg/events"
	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/workflow"
	"github.com/google/uuid"
)

const Mask = "****"

// sensitiveKeys are masked wherever they appear in recorded inputs.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"access_token":  true,
	"authorization": true,
	"password":      true,
	"api_key":       true,
}

// Recorder saves one InteractionTrace per action call and mirrors it as an
// ActionInvoked event. Both sinks are optional and failures are only logged.
type Recorder struct {
	repository persistence.TraceRepository
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
}

func NewRecorder(repository persistence.TraceRepository, publisher eventbus.EventPublisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		repository: repository,
		publisher:  publisher,
		logger:     logger.With("module", "trace_recorder"),
	}
}

// Scope identifies the turn an action call belongs to.
type Scope struct {
	ContextID  string
	TaskID     string
	WorkflowID string
}

// Record builds the trace for call. It is shaped to be used as the walker's
// ActionCalled hook.
func (r *Recorder) Record(ctx context.Context, scope Scope, call workflow.ActionCall) *models.InteractionTrace {
	trace := &models.InteractionTrace{
		ID:         uuid.New().String(),
		ContextID:  scope.ContextID,
		TaskID:     scope.TaskID,
		WorkflowID: scope.WorkflowID,
		StepID:     call.Step.ID,
		ActionName: call.Step.SystemAction.Name,
		Input:      MaskSensitive(call.Inputs),
		Output:     call.Result,
		Status:     models.TraceStatusSuccess,
		StartedAt:  call.Started.UTC(),
		DurationMS: call.Duration.Milliseconds(),
	}

	if !call.OK {
		trace.Status = models.TraceStatusFailure
	}

	if call.Err != nil {
		trace.Error = call.Err.Error()
	}

	logger := r.logger.With("context_id", scope.ContextID, "task_id", scope.TaskID, "step_id", trace.StepID)
	logger.DebugContext(ctx, "Action traced", "action", trace.ActionName, "status", trace.Status, "duration_ms", trace.DurationMS)

	if r.repository != nil {
		err := r.repository.Save(ctx, trace)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to save interaction trace", "error", err)
		}
	}

	if r.publisher != nil {
		err := r.publisher.Publish(ctx, scope.ContextID, events.ActionInvoked{
			BaseEvent:  events.NewBaseEvent(events.ActionInvokedEvent, scope.ContextID, scope.TaskID),
			WorkflowID: scope.WorkflowID,
			StepID:     trace.StepID,
			ActionName: trace.ActionName,
			Status:     trace.Status,
			DurationMS: trace.DurationMS,
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish action event", "error", err)
		}
	}

	return trace
}

// MaskSensitive returns a copy of input with credential values replaced by
// Mask at any depth.
func MaskSensitive(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}

	masked, _ := maskValue(input).(map[string]any)

	return masked
}

func maskValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))

		for key, item := range v {
			if sensitiveKeys[strings.ToLower(key)] {
				result[key] = Mask
			} else {
				result[key] = maskValue(item)
			}
		}

		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskValue(item)
		}

		return result
	default:
		return value
	}
}
