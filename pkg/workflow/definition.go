package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/converse/pkg/models"
	"github.com/go-playground/validator/v10"
)

var definitionValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a workflow definition before it is run: struct tags, unique
// step ids, payloads matching step types, known next-step and start ids, and
// no cycles through the next-step links.
func Validate(definition *models.WorkflowDefinition) error {
	err := definitionValidator.Struct(definition)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	var problems []error

	ids := make(map[string]bool, len(definition.Steps))
	for _, step := range definition.Steps {
		if ids[step.ID] {
			problems = append(problems, fmt.Errorf("duplicate step id '%s'", step.ID))
		}

		ids[step.ID] = true

		switch step.Type {
		case models.StepTypeSystemAction:
			if step.SystemAction == nil {
				problems = append(problems, fmt.Errorf("step '%s' has no system action details", step.ID))
			}
		case models.StepTypeUserInput, models.StepTypeFinalResponse:
			if step.UserInteraction == nil {
				problems = append(problems, fmt.Errorf("step '%s' has no user interaction", step.ID))
			}
		}
	}

	if !ids[definition.StartStep()] {
		problems = append(problems, fmt.Errorf("start step '%s' does not exist", definition.StartStep()))
	}

	for _, step := range definition.Steps {
		if next := step.Next(); next != "" && !ids[next] {
			problems = append(problems, fmt.Errorf("step '%s' points to unknown step '%s'", step.ID, next))
		}
	}

	if cycle := findCycle(definition); cycle != "" {
		problems = append(problems, fmt.Errorf("steps form a cycle at '%s'", cycle))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(problems...))
	}

	return nil
}

// findCycle follows next-step links from every step and returns the first
// step id reached twice, or "".
func findCycle(definition *models.WorkflowDefinition) string {
	next := make(map[string]string, len(definition.Steps))
	for _, step := range definition.Steps {
		next[step.ID] = step.Next()
	}

	done := make(map[string]bool, len(next))

	for _, step := range definition.Steps {
		seen := map[string]bool{}

		for id := step.ID; id != "" && !done[id]; id = next[id] {
			if seen[id] {
				return id
			}

			seen[id] = true
		}

		for id := range seen {
			done[id] = true
		}
	}

	return ""
}
