package models

import "time"

// TraceStatus is the outcome recorded for a traced interaction.
type TraceStatus string

const (
	TraceStatusSuccess TraceStatus = "success"
	TraceStatusFailure TraceStatus = "failure"
)

// InteractionTrace records one system action invocation made during a turn.
type InteractionTrace struct {
	ID         string         `json:"id"`
	ContextID  string         `json:"context_id"`
	TaskID     string         `json:"task_id"`
	WorkflowID string         `json:"workflow_id"`
	StepID     string         `json:"step_id"`
	ActionName string         `json:"action_name"`
	Input      map[string]any `json:"input"`
	Output     map[string]any `json:"output"`
	Status     TraceStatus    `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
}

// PromptTemplate is a named text template, e.g. the classifier prompt.
type PromptTemplate struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
