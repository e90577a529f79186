package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/converse/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAction struct {
	config map[string]any
}

func (m *mockAction) Execute(_ context.Context, inputs map[string]any, _ *slog.Logger) (map[string]any, error) {
	return map[string]any{"config": m.config, "inputs": inputs}, nil
}

type mockActionFactory struct{}

func (mockActionFactory) ID() string          { return "mock-action" }
func (mockActionFactory) Name() string        { return "Mock" }
func (mockActionFactory) Description() string { return "A test action" }

func (mockActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"message"},
	}
}

func (mockActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return &mockAction{config: config}, nil
}

func TestRegistry_RegisterAndCreateAction(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterAction(mockActionFactory{})

	assert.True(t, registry.HasAction("mock-action"))
	assert.Equal(t, []string{"mock-action"}, registry.ActionTypes())

	action, err := registry.CreateAction("mock-action", map[string]any{"message": "hi"})
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), map[string]any{"a": 1}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "hi", result["config"].(map[string]any)["message"])
}

func TestRegistry_CreateActionErrors(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterAction(mockActionFactory{})

	_, err := registry.CreateAction("unknown", nil)
	assert.ErrorIs(t, err, ErrActionNotRegistered)

	_, err = registry.CreateAction("mock-action", map[string]any{"message": 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = registry.CreateAction("mock-action", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestRegistry_LoadActionPluginsEmptyDir(t *testing.T) {
	registry := NewRegistry(slog.Default())

	plugins, err := registry.LoadActionPlugins(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, plugins)
}
