// Package status maps workflow run states onto task status updates and
// delivers them synchronously or as a stream.
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/converse/pkg/eventbus"
	"github.com/dukex/converse/pkg/events"
	"github.com/dukex/converse/pkg/models"
)

// Coordinator creates per-turn tasks. Publisher is optional; every delivered
// update is mirrored onto it as a TaskStatusUpdated event.
type Coordinator struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewCoordinator(publisher eventbus.EventPublisher, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		publisher: publisher,
		logger:    logger.With("module", "status_coordinator"),
	}
}

// Task tracks the status updates of one turn. A nil notifier means
// synchronous delivery: only the final update is produced.
type Task struct {
	coordinator *Coordinator
	contextID   string
	taskID      string
	notifier    *Notifier

	mu    sync.Mutex
	final *models.StatusUpdate
}

func (c *Coordinator) Start(contextID, taskID string, notifier *Notifier) *Task {
	return &Task{
		coordinator: c,
		contextID:   contextID,
		taskID:      taskID,
		notifier:    notifier,
	}
}

func (t *Task) Streaming() bool {
	return t.notifier != nil
}

// Progress emits a non-final working update in streaming mode. Delivery
// failures are logged and never returned.
func (t *Task) Progress(ctx context.Context, message *models.AgentMessage) {
	if t.notifier == nil {
		return
	}

	t.mu.Lock()
	finished := t.final != nil
	t.mu.Unlock()

	if finished {
		return
	}

	t.deliver(ctx, t.update(models.TaskStateWorking, message, false), false)
}

// Finish emits the single final update for state and returns it. Later calls
// return the first result without emitting again.
func (t *Task) Finish(ctx context.Context, state models.RunState, message *models.AgentMessage) models.StatusUpdate {
	t.mu.Lock()
	if t.final != nil {
		update := *t.final
		t.mu.Unlock()

		return update
	}

	status := models.TaskStateFor(state)
	update := t.update(status, message, status != models.TaskStateInputRequired)
	t.final = &update
	t.mu.Unlock()

	t.deliver(ctx, update, true)

	return update
}

// Abort closes the stream without a final update, for turns that failed
// before any status could be computed.
func (t *Task) Abort() {
	if t.notifier != nil {
		t.notifier.Close()
	}
}

func (t *Task) update(status models.TaskState, message *models.AgentMessage, final bool) models.StatusUpdate {
	return models.StatusUpdate{
		Status:    status,
		Message:   message,
		Final:     final,
		ContextID: t.contextID,
		TaskID:    t.taskID,
		Timestamp: time.Now().UTC(),
	}
}

// deliver hands update to the stream and the event bus. The last update of a
// task goes through the notifier's reserved slot and closes the stream.
func (t *Task) deliver(ctx context.Context, update models.StatusUpdate, last bool) {
	logger := t.coordinator.logger.With("context_id", t.contextID, "task_id", t.taskID)

	if t.notifier != nil {
		var err error
		if last {
			err = t.notifier.SendFinal(update)
		} else {
			err = t.notifier.Send(ctx, update)
		}

		if err != nil {
			logger.WarnContext(ctx, "Failed to deliver status update", "status", update.Status, "final", update.Final, "error", err)
		}
	}

	if t.coordinator.publisher == nil {
		return
	}

	err := t.coordinator.publisher.Publish(ctx, t.contextID, events.TaskStatusUpdated{
		BaseEvent: events.NewBaseEvent(events.TaskStatusUpdatedEvent, t.contextID, t.taskID),
		Update:    update,
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish status event", "status", update.Status, "error", err)
	}
}
