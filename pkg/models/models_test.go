package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validWorkflow() *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:           "track-order",
		Name:         "Track order",
		AccessRoles:  []string{"Customer"},
		Enabled:      true,
		ExitKeywords: []string{"cancel", " Stop "},
		Steps: []*Step{
			{
				ID:         "lookup",
				Type:       StepTypeSystemAction,
				NextStepID: strPtr("confirm"),
				SystemAction: &SystemAction{
					Name: "get_order",
				},
			},
			{
				ID:   "confirm",
				Type: StepTypeUserInput,
				UserInteraction: &UserInteraction{
					UserMessage:     "Confirm?",
					ExpectedDataKey: "confirmation",
				},
			},
		},
	}
}

func TestWorkflowDefinition_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name    string
		mutate  func(w *WorkflowDefinition)
		wantErr bool
	}{
		{name: "valid", mutate: func(*WorkflowDefinition) {}},
		{name: "missing id", mutate: func(w *WorkflowDefinition) { w.ID = "" }, wantErr: true},
		{name: "no steps", mutate: func(w *WorkflowDefinition) { w.Steps = nil }, wantErr: true},
		{name: "unknown step type", mutate: func(w *WorkflowDefinition) { w.Steps[0].Type = "LOOP" }, wantErr: true},
		{name: "unknown error policy", mutate: func(w *WorkflowDefinition) { w.Steps[0].SystemAction.OnError = "retry" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := validWorkflow()
			tt.mutate(workflow)

			err := validate.Struct(workflow)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowDefinition_Helpers(t *testing.T) {
	workflow := validWorkflow()

	assert.Equal(t, "lookup", workflow.StartStep())

	workflow.StartStepID = "confirm"
	assert.Equal(t, "confirm", workflow.StartStep())

	step, ok := workflow.Step("confirm")
	require.True(t, ok)
	assert.Equal(t, "confirmation", step.OutputKey())
	assert.Empty(t, step.Next())

	_, ok = workflow.Step("missing")
	assert.False(t, ok)

	assert.True(t, workflow.AllowsRole("Customer"))
	assert.False(t, workflow.AllowsRole("Admin"))

	assert.True(t, workflow.IsExitKeyword("CANCEL"))
	assert.True(t, workflow.IsExitKeyword("stop"))
	assert.False(t, workflow.IsExitKeyword("cancel my order"))
	assert.False(t, workflow.IsExitKeyword(""))

	summary := workflow.Summary()
	assert.Equal(t, 2, summary.StepCount)
	assert.Equal(t, "track-order", summary.ID)
}

func TestStep_OutputKeyFallsBackToStepID(t *testing.T) {
	step := &Step{ID: "ask", Type: StepTypeUserInput, UserInteraction: &UserInteraction{}}
	assert.Equal(t, "ask", step.OutputKey())
}

func TestTaskStateFor(t *testing.T) {
	tests := []struct {
		state    RunState
		expected TaskState
	}{
		{RunStateAwaitingRoute, TaskStateWorking},
		{RunStateRunning, TaskStateWorking},
		{RunStateAwaitingUserInput, TaskStateInputRequired},
		{RunStateCompleted, TaskStateCompleted},
		{RunStateFailed, TaskStateCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.expected, TaskStateFor(tt.state))
		})
	}
}

func TestRoute_Valid(t *testing.T) {
	assert.True(t, RouteWorkflow.Valid())
	assert.True(t, RouteCapability.Valid())
	assert.True(t, RouteOther.Valid())
	assert.False(t, Route("smalltalk").Valid())
	assert.False(t, Route("").Valid())
}

func TestNewWorkflowRun(t *testing.T) {
	run := NewWorkflowRun("run-1", validWorkflow())

	assert.Equal(t, "track-order", run.WorkflowID)
	assert.Equal(t, "lookup", run.CurrentStepID)
	assert.Equal(t, RunStateRunning, run.State)
	assert.NotNil(t, run.Outputs)
	assert.False(t, run.State.Terminal())
}

func TestConversationName(t *testing.T) {
	at := time.Date(2026, 3, 4, 9, 7, 0, 0, time.UTC)
	assert.Equal(t, "Chat 2026-03-04 09:07", ConversationName(at))
}

func TestTransformResults(t *testing.T) {
	message := TransformResults(map[string]any{
		"summary": "Found 2 orders",
		"result": []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
		},
		"filter": map[string]any{"status": "open"},
		"recommendations": map[string]any{
			"actions": []any{
				map[string]any{"action": "true", "label": "Track", "value": "track 1"},
			},
		},
		"capabilities": []any{
			map[string]any{"title": "Orders", "description": "Look up orders"},
		},
		"workflow":         map[string]any{},
		"disableUserInput": true,
	})

	assert.Equal(t, "Found 2 orders", message.Summary)
	assert.True(t, message.DisableUserInput)
	require.Len(t, message.Content, 3)

	assert.Equal(t, BlockTypeTable, message.Content[0].Type)
	assert.Len(t, message.Content[0].Data, 2)
	assert.Equal(t, "open", message.Content[0].Filter["status"])

	assert.Equal(t, BlockTypeRecommendations, message.Content[1].Type)
	assert.Equal(t, "recommendations", message.Content[1].Name)
	require.Len(t, message.Content[1].Actions, 1)
	assert.True(t, message.Content[1].Actions[0].Action)

	assert.Equal(t, BlockTypeCapabilities, message.Content[2].Type)
	assert.Equal(t, "Orders", message.Content[2].Capabilities[0].Title)

	require.NotNil(t, message.Workflow)
	assert.Equal(t, "Workflow", message.Workflow.Name)
}

func TestAgentCard_SkillNames(t *testing.T) {
	card := AgentCard{Skills: []Skill{{Name: "orders"}, {Name: "inventory"}}}
	assert.Equal(t, []string{"orders", "inventory"}, card.SkillNames())
}
