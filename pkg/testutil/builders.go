// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/google/uuid"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// CreateTestWorkflow creates an enabled single-role workflow that asks for an
// email, looks the user up and answers. Overrides run in order.
func CreateTestWorkflow(overrides ...func(*models.WorkflowDefinition)) *models.WorkflowDefinition {
	workflow := &models.WorkflowDefinition{
		ID:           "wf-" + uuid.New().String(),
		Name:         "Lookup account",
		Description:  "Finds the account for an email address",
		AccessRoles:  []string{"Customer"},
		Enabled:      true,
		ExitKeywords: []string{"cancel", "exit"},
		Steps: []*models.Step{
			CreateUserInputStep("ask_email", "email", "What is your email?", Ptr("lookup")),
			CreateSystemActionStep("lookup", "find_account", map[string]any{"email": "$.email"}, Ptr("answer")),
			CreateFinalResponseStep("answer", "Account {{ .account_id }} found"),
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithID sets the workflow id.
func WithID(id string) func(*models.WorkflowDefinition) {
	return func(w *models.WorkflowDefinition) {
		w.ID = id
	}
}

// WithRoles sets the workflow access roles.
func WithRoles(roles ...string) func(*models.WorkflowDefinition) {
	return func(w *models.WorkflowDefinition) {
		w.AccessRoles = roles
	}
}

// WithEnabled sets the workflow enabled flag.
func WithEnabled(enabled bool) func(*models.WorkflowDefinition) {
	return func(w *models.WorkflowDefinition) {
		w.Enabled = enabled
	}
}

// WithName sets the workflow name.
func WithName(name string) func(*models.WorkflowDefinition) {
	return func(w *models.WorkflowDefinition) {
		w.Name = name
	}
}

// WithSteps replaces the workflow steps.
func WithSteps(steps ...*models.Step) func(*models.WorkflowDefinition) {
	return func(w *models.WorkflowDefinition) {
		w.Steps = steps
	}
}

// CreateUserInputStep builds a USER_INPUT step storing the answer under key.
func CreateUserInputStep(id, key, message string, next *string) *models.Step {
	return &models.Step{
		ID:         id,
		Type:       models.StepTypeUserInput,
		NextStepID: next,
		UserInteraction: &models.UserInteraction{
			UserMessage:     message,
			ExpectedDataKey: key,
		},
	}
}

// CreateSystemActionStep builds a SYSTEM_ACTION step whose result keys map one to one into outputs.
func CreateSystemActionStep(id, action string, inputs map[string]any, next *string) *models.Step {
	return &models.Step{
		ID:             id,
		Type:           models.StepTypeSystemAction,
		NextStepID:     next,
		FailureMessage: "Something went wrong while running " + action,
		SystemAction: &models.SystemAction{
			Name:   action,
			Inputs: inputs,
		},
	}
}

// CreateFinalResponseStep builds a terminal FINAL_RESPONSE step.
func CreateFinalResponseStep(id, message string) *models.Step {
	return &models.Step{
		ID:   id,
		Type: models.StepTypeFinalResponse,
		UserInteraction: &models.UserInteraction{
			UserMessage: message,
		},
	}
}

// CreateTestSnapshot creates a session snapshot with a single user turn.
func CreateTestSnapshot(contextID string, overrides ...func(*models.SessionSnapshot)) *models.SessionSnapshot {
	now := time.Now().UTC().Truncate(time.Millisecond)
	snapshot := &models.SessionSnapshot{
		ContextID:        contextID,
		ConversationName: models.ConversationName(now),
		UserID:           "user-1",
		AgentName:        "Converse",
		Conversation: []models.ConversationEntry{
			{Role: models.ConversationRoleUser, Content: "hello"},
		},
		CurrentState: map[string]any{
			"messages":       []any{map[string]any{"role": "user", "content": "hello"}},
			"selected_skill": "workflow",
			"workflow_id":    "wf-1",
		},
		Status:    models.SessionStatusInProgress,
		CreatedAt: now,
	}

	for _, override := range overrides {
		override(snapshot)
	}

	return snapshot
}
