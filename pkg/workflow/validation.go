package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/converse/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// validateInput checks a user answer against the interaction's regex and
// JSON schema rules. The regex must match at the start of the answer; end it
// with $ to require a full match. The schema sees the raw string when it
// expects one, otherwise the answer decoded as JSON when it parses.
func validateInput(step *models.Step, input string) error {
	interaction := step.UserInteraction
	if interaction == nil {
		return nil
	}

	if interaction.ValidationRegex != "" {
		re, err := regexp.Compile("^(?:" + interaction.ValidationRegex + ")")
		if err != nil {
			return &StepValidationError{StepID: step.ID, Reason: fmt.Sprintf("invalid validation regex: %v", err)}
		}

		if !re.MatchString(input) {
			return &StepValidationError{StepID: step.ID, Reason: "input does not match the expected format"}
		}
	}

	if len(interaction.ValidationRules) > 0 {
		err := validateRules(interaction.ValidationRules, decodeAnswer(interaction.ValidationRules, input))
		if err != nil {
			return &StepValidationError{StepID: step.ID, Reason: err.Error()}
		}
	}

	return nil
}

func decodeAnswer(rules map[string]any, input string) any {
	if expectsString(rules) {
		return input
	}

	var value any

	err := json.Unmarshal([]byte(input), &value)
	if err != nil {
		return input
	}

	return value
}

func expectsString(rules map[string]any) bool {
	switch kind := rules["type"].(type) {
	case string:
		return kind == "string"
	case []any:
		for _, k := range kind {
			if k == "string" {
				return true
			}
		}
	case []string:
		for _, k := range kind {
			if k == "string" {
				return true
			}
		}
	}

	return false
}

func validateRules(rules map[string]any, value any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(rules), gojsonschema.NewGoLoader(value))
	if err != nil {
		return fmt.Errorf("invalid validation rules: %w", err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
