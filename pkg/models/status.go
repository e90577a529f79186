package models

import "time"

// TaskState is the externally visible status of a turn.
type TaskState string

const (
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input_required"
	TaskStateCompleted     TaskState = "completed"
)

// TaskStateFor maps an internal run state onto the external task status.
func TaskStateFor(state RunState) TaskState {
	switch state {
	case RunStateAwaitingUserInput:
		return TaskStateInputRequired
	case RunStateCompleted, RunStateFailed:
		return TaskStateCompleted
	default:
		return TaskStateWorking
	}
}

// StatusUpdate is one status transition delivered to the caller.
type StatusUpdate struct {
	Status    TaskState     `json:"status"`
	Message   *AgentMessage `json:"message,omitempty"`
	Final     bool          `json:"final"`
	ContextID string        `json:"context_id"`
	TaskID    string        `json:"task_id"`
	Timestamp time.Time     `json:"timestamp"`
}
