// Package transform provides a system action that reshapes step inputs with a template expression.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/converse/pkg/protocol"
	"github.com/dukex/converse/pkg/template"
)

var ErrMissingExpression = errors.New("transform action requires an 'expression'")

type TransformActionFactory struct{}

func (*TransformActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewTransformAction(config)
}

func (*TransformActionFactory) ID() string {
	return "transform"
}

func (*TransformActionFactory) Name() string {
	return "Transform"
}

func (*TransformActionFactory) Description() string {
	return "Renders a template expression against the step inputs. JSON object output is returned as the result map."
}

func (*TransformActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Template rendered against the step inputs.",
				"examples":    []string{`{"full_name": "{{ .first }} {{ .last }}"}`},
			},
		},
		"required": []string{"expression"},
	}
}

func NewTransformActionFactory() *TransformActionFactory {
	return &TransformActionFactory{}
}

type TransformAction struct {
	Expression string
}

func NewTransformAction(config map[string]any) (*TransformAction, error) {
	expression, _ := config["expression"].(string)
	if expression == "" {
		return nil, ErrMissingExpression
	}

	return &TransformAction{Expression: expression}, nil
}

// Execute renders the expression. Object results are returned as-is; any
// other value is wrapped under "result".
func (a *TransformAction) Execute(ctx context.Context, inputs map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "transform_action")
	logger.DebugContext(ctx, "Executing transform action")

	result, err := template.Render(a.Expression, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to transform: %w", err)
	}

	if object, ok := result.(map[string]any); ok {
		return object, nil
	}

	return map[string]any{"result": result}, nil
}
