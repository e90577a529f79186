// Package protocol defines the contract native system actions implement.
package protocol

import (
	"context"
	"log/slog"
)

// Action is a configured system action. Execute receives the step's resolved
// inputs and returns the result map folded back into the run.
type Action interface {
	Execute(ctx context.Context, inputs map[string]any, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates actions of one type from static configuration.
type ActionFactory interface {
	ID() string
	Name() string
	Description() string
	// Schema is the JSON schema the configuration passed to Create must satisfy.
	Schema() map[string]any
	Create(config map[string]any) (Action, error)
}
