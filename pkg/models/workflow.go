// Package models defines the core domain models for conversational workflow orchestration.
package models

import (
	"slices"
	"strings"
	"time"
)

// StepType identifies what a workflow step asks of the engine.
type StepType string

const (
	StepTypeUserInput     StepType = "USER_INPUT"
	StepTypeSystemAction  StepType = "SYSTEM_ACTION"
	StepTypeFinalResponse StepType = "FINAL_RESPONSE"
)

// ErrorPolicy decides what happens to a run when a system action reports failure.
type ErrorPolicy string

const (
	ErrorPolicyAbort    ErrorPolicy = "abort"
	ErrorPolicyContinue ErrorPolicy = "continue"
)

// WorkflowDefinition is a named chain of steps visible to a set of roles.
type WorkflowDefinition struct {
	ID           string    `json:"workflow_id"            yaml:"workflow_id"            validate:"required"`
	Name         string    `json:"name"                   yaml:"name"                   validate:"required"`
	Description  string    `json:"description"            yaml:"description"`
	AccessRoles  []string  `json:"access_roles"           yaml:"access_roles"`
	Enabled      bool      `json:"is_enabled"             yaml:"is_enabled"`
	ExitKeywords []string  `json:"workflow_exit_keywords" yaml:"workflow_exit_keywords"`
	StartStepID  string    `json:"start_step_id,omitempty" yaml:"start_step_id,omitempty"`
	Steps        []*Step   `json:"steps"                  yaml:"steps"                  validate:"required,min=1,dive"`
	CreatedAt    time.Time `json:"created_at"             yaml:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"             yaml:"updated_at,omitempty"`
}

// Step is one node of a workflow's linked chain. UserInteraction is set for
// USER_INPUT and FINAL_RESPONSE steps, SystemAction for SYSTEM_ACTION steps.
type Step struct {
	ID              string           `json:"step_id"                         yaml:"step_id"                         validate:"required"`
	Type            StepType         `json:"type"                            yaml:"type"                            validate:"required,oneof=USER_INPUT SYSTEM_ACTION FINAL_RESPONSE"`
	TaskDescription string           `json:"task_description"                yaml:"task_description"`
	FailureMessage  string           `json:"failure_message"                 yaml:"failure_message"`
	NextStepID      *string          `json:"next_step_id"                    yaml:"next_step_id"`
	UserInteraction *UserInteraction `json:"user_interaction,omitempty"      yaml:"user_interaction,omitempty"`
	SystemAction    *SystemAction    `json:"system_action_details,omitempty" yaml:"system_action_details,omitempty"`
}

// UserInteraction describes the prompt shown to the user and how the answer is checked.
type UserInteraction struct {
	UserMessage     string         `json:"user_message"               yaml:"user_message"`
	ExpectedDataKey string         `json:"expected_data_key"          yaml:"expected_data_key"`
	ValidationRegex string         `json:"validation_regex,omitempty" yaml:"validation_regex,omitempty"`
	ValidationRules map[string]any `json:"validation_rules,omitempty" yaml:"validation_rules,omitempty"`
}

// SystemAction names an external action and how its result folds back into run outputs.
// Every mapping is {result key: output key}.
type SystemAction struct {
	Name           string            `json:"name"                     yaml:"name"                     validate:"required"`
	Type           string            `json:"action_type,omitempty"    yaml:"action_type,omitempty"`
	Inputs         map[string]any    `json:"inputs,omitempty"         yaml:"inputs,omitempty"`
	OutputMapping  map[string]string `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
	SuccessMapping map[string]string `json:"success_mapping,omitempty" yaml:"success_mapping,omitempty"`
	ErrorMapping   map[string]string `json:"error_mapping,omitempty"  yaml:"error_mapping,omitempty"`
	OnError        ErrorPolicy       `json:"on_error,omitempty"       yaml:"on_error,omitempty"       validate:"omitempty,oneof=abort continue"`
}

// WorkflowSummary is the catalog view of a workflow used for classification.
type WorkflowSummary struct {
	ID           string   `json:"workflow_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	AccessRoles  []string `json:"access_roles"`
	Enabled      bool     `json:"is_enabled"`
	ExitKeywords []string `json:"workflow_exit_keywords,omitempty"`
	StepCount    int      `json:"step_count"`
}

// StartStep returns the id of the step a fresh run begins at.
func (w *WorkflowDefinition) StartStep() string {
	if w.StartStepID != "" {
		return w.StartStepID
	}

	if len(w.Steps) == 0 {
		return ""
	}

	return w.Steps[0].ID
}

// Step looks up a step by id.
func (w *WorkflowDefinition) Step(id string) (*Step, bool) {
	for _, step := range w.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return nil, false
}

// AllowsRole reports whether role is on the access list. An empty list allows nobody.
func (w *WorkflowDefinition) AllowsRole(role string) bool {
	return slices.Contains(w.AccessRoles, role)
}

// IsExitKeyword reports whether input matches an exit keyword, ignoring case
// and surrounding whitespace.
func (w *WorkflowDefinition) IsExitKeyword(input string) bool {
	candidate := strings.TrimSpace(input)
	if candidate == "" {
		return false
	}

	for _, keyword := range w.ExitKeywords {
		if strings.EqualFold(strings.TrimSpace(keyword), candidate) {
			return true
		}
	}

	return false
}

func (w *WorkflowDefinition) Summary() WorkflowSummary {
	return WorkflowSummary{
		ID:           w.ID,
		Name:         w.Name,
		Description:  w.Description,
		AccessRoles:  slices.Clone(w.AccessRoles),
		Enabled:      w.Enabled,
		ExitKeywords: slices.Clone(w.ExitKeywords),
		StepCount:    len(w.Steps),
	}
}

// OutputKey is where a user interaction stores the accepted value.
func (s *Step) OutputKey() string {
	if s.UserInteraction != nil && s.UserInteraction.ExpectedDataKey != "" {
		return s.UserInteraction.ExpectedDataKey
	}

	return s.ID
}

// Next returns the next step id, or "" when the step is terminal.
func (s *Step) Next() string {
	if s.NextStepID == nil {
		return ""
	}

	return *s.NextStepID
}

// ContinuesOnError reports whether a failed action should let the run advance.
func (a *SystemAction) ContinuesOnError() bool {
	return a.OnError == ErrorPolicyContinue
}
