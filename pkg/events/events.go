// Package events defines the events published while turns are handled.
package events

import (
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every converse event.
const Topic = "converse.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TaskStatusUpdatedEvent   EventType = "task.status.updated"
	WorkflowRunStartedEvent  EventType = "workflow.run.started"
	WorkflowRunFinishedEvent EventType = "workflow.run.finished"
	ActionInvokedEvent       EventType = "action.invoked"
	ConversationRoutedEvent  EventType = "conversation.routed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ContextID string         `json:"context_id"`
	TaskID    string         `json:"task_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a new event of eventType for a task.
func NewBaseEvent(eventType EventType, contextID, taskID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ContextID: contextID,
		TaskID:    taskID,
	}
}

// TaskStatusUpdated mirrors a status update delivered to the caller.
type TaskStatusUpdated struct {
	BaseEvent

	Update models.StatusUpdate `json:"update"`
}

func (e TaskStatusUpdated) GetType() EventType {
	return TaskStatusUpdatedEvent
}

// ConversationRouted records the classifier's decision for a new session.
type ConversationRouted struct {
	BaseEvent

	Decision models.RouteDecision `json:"decision"`
}

func (e ConversationRouted) GetType() EventType {
	return ConversationRoutedEvent
}

type WorkflowRunStarted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

func (e WorkflowRunStarted) GetType() EventType {
	return WorkflowRunStartedEvent
}

type WorkflowRunFinished struct {
	BaseEvent

	WorkflowID string          `json:"workflow_id"`
	RunID      string          `json:"run_id"`
	State      models.RunState `json:"state"`
	StepID     string          `json:"step_id"`
}

func (e WorkflowRunFinished) GetType() EventType {
	return WorkflowRunFinishedEvent
}

// ActionInvoked records one system action call. Inputs are already masked.
type ActionInvoked struct {
	BaseEvent

	WorkflowID string             `json:"workflow_id"`
	StepID     string             `json:"step_id"`
	ActionName string             `json:"action_name"`
	Status     models.TraceStatus `json:"status"`
	DurationMS int64              `json:"duration_ms"`
}

func (e ActionInvoked) GetType() EventType {
	return ActionInvokedEvent
}
