package models

import "time"

// RunState is the position of a workflow run in the step state machine.
type RunState string

const (
	RunStateAwaitingRoute     RunState = "AWAITING_ROUTE"
	RunStateRunning           RunState = "RUNNING"
	RunStateAwaitingUserInput RunState = "AWAITING_USER_INPUT"
	RunStateCompleted         RunState = "COMPLETED"
	RunStateFailed            RunState = "FAILED"
)

func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// WorkflowRun is the resumable cursor of one session over a workflow's steps.
// WorkflowID, CurrentStepID and Outputs are all that is needed to resume it.
type WorkflowRun struct {
	ID            string         `json:"run_id"`
	WorkflowID    string         `json:"workflow_id"`
	CurrentStepID string         `json:"current_step_id"`
	Outputs       map[string]any `json:"outputs"`
	State         RunState       `json:"state"`
	StartedAt     time.Time      `json:"started_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewWorkflowRun creates a run positioned at the workflow's start step.
func NewWorkflowRun(id string, definition *WorkflowDefinition) *WorkflowRun {
	now := time.Now().UTC()

	return &WorkflowRun{
		ID:            id,
		WorkflowID:    definition.ID,
		CurrentStepID: definition.StartStep(),
		Outputs:       map[string]any{},
		State:         RunStateRunning,
		StartedAt:     now,
		UpdatedAt:     now,
	}
}
