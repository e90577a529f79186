// Package log_action provides a system action that writes a message to the agent log.
package log_action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/converse/pkg/protocol"
	"github.com/dukex/converse/pkg/template"
)

type LogActionFactory struct{}

func (*LogActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewLogAction(config), nil
}

func (*LogActionFactory) ID() string {
	return "log"
}

func (*LogActionFactory) Name() string {
	return "Log"
}

func (*LogActionFactory) Description() string {
	return "Writes a message rendered from the step inputs to the agent log."
}

func (*LogActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message template rendered against the step inputs.",
				"examples":    []string{"Order {{ .order_id }} looked up"},
			},
			"level": map[string]any{
				"type":    "string",
				"default": "info",
				"enum":    []string{"debug", "info", "warn", "error"},
			},
		},
	}
}

func NewLogActionFactory() *LogActionFactory {
	return &LogActionFactory{}
}

type LogAction struct {
	Message string
	Level   string
}

func NewLogAction(config map[string]any) *LogAction {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &LogAction{
		Message: message,
		Level:   level,
	}
}

func (a *LogAction) Execute(ctx context.Context, inputs map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "log_action")

	message := a.Message
	if message == "" {
		message = fmt.Sprint(inputs)
	} else {
		rendered, err := template.RenderText(a.Message, inputs)
		if err != nil {
			return nil, fmt.Errorf("failed to render message: %w", err)
		}

		message = rendered
	}

	switch a.Level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return map[string]any{"logged": true, "message": message}, nil
}
