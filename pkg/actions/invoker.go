// Package actions invokes the system actions named by workflow steps, either
// natively through the action registry or as tools on an MCP server.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/converse/pkg/mcptool"
	"github.com/dukex/converse/pkg/protocol"
	"github.com/dukex/converse/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrActionNotFound is returned by an invoker that does not know the action name.
var ErrActionNotFound = errors.New("action not found")

// Invoker runs a named action. ok reports the action's own success; err is
// reserved for failures to reach or run the action at all.
type Invoker interface {
	Invoke(ctx context.Context, name string, inputs map[string]any) (ok bool, result map[string]any, err error)
}

// Binding maps an action name used in workflows to a native action type and
// its static configuration.
type Binding struct {
	Name   string         `json:"name"   mapstructure:"name"`
	Type   string         `json:"type"   mapstructure:"type"`
	Config map[string]any `json:"config" mapstructure:"config"`
}

// RegistryInvoker runs native actions created from the registry.
type RegistryInvoker struct {
	registry *registry.Registry
	bindings map[string]Binding
	logger   *slog.Logger

	mu      sync.Mutex
	actions map[string]protocol.Action
}

func NewRegistryInvoker(reg *registry.Registry, bindings []Binding, logger *slog.Logger) *RegistryInvoker {
	byName := make(map[string]Binding, len(bindings))
	for _, binding := range bindings {
		byName[binding.Name] = binding
	}

	return &RegistryInvoker{
		registry: reg,
		bindings: byName,
		logger:   logger.With("module", "registry_invoker"),
		actions:  make(map[string]protocol.Action),
	}
}

// Invoke runs the bound action. Names without a binding fall back to the
// registered factory of the same id, configured with the step inputs.
func (r *RegistryInvoker) Invoke(ctx context.Context, name string, inputs map[string]any) (bool, map[string]any, error) {
	action, err := r.action(name, inputs)
	if err != nil {
		return false, nil, err
	}

	result, err := action.Execute(ctx, inputs, r.logger.With("action", name))
	if err != nil {
		r.logger.WarnContext(ctx, "Action reported failure", "action", name, "error", err)

		return false, map[string]any{"error": err.Error()}, nil
	}

	if result == nil {
		result = map[string]any{}
	}

	return succeeded(result), result, nil
}

func (r *RegistryInvoker) action(name string, inputs map[string]any) (protocol.Action, error) {
	binding, bound := r.bindings[name]
	if !bound {
		if !r.registry.HasAction(name) {
			return nil, fmt.Errorf("%w: '%s'", ErrActionNotFound, name)
		}

		return r.registry.CreateAction(name, inputs)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if action, ok := r.actions[name]; ok {
		return action, nil
	}

	action, err := r.registry.CreateAction(binding.Type, binding.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create action '%s': %w", name, err)
	}

	r.actions[name] = action

	return action, nil
}

// ToolCaller is the part of the MCP client the tool invoker needs.
type ToolCaller interface {
	Call(ctx context.Context, tool string, args map[string]any) (*mcp.CallToolResult, error)
}

// MCPInvoker runs actions as tools on an MCP server. An empty tool list
// accepts every name.
type MCPInvoker struct {
	caller ToolCaller
	tools  map[string]bool
	logger *slog.Logger
}

func NewMCPInvoker(caller ToolCaller, tools []string, logger *slog.Logger) *MCPInvoker {
	allowed := make(map[string]bool, len(tools))
	for _, tool := range tools {
		allowed[tool] = true
	}

	return &MCPInvoker{
		caller: caller,
		tools:  allowed,
		logger: logger.With("module", "mcp_invoker"),
	}
}

func (m *MCPInvoker) Invoke(ctx context.Context, name string, inputs map[string]any) (bool, map[string]any, error) {
	if len(m.tools) > 0 && !m.tools[name] {
		return false, nil, fmt.Errorf("%w: '%s'", ErrActionNotFound, name)
	}

	result, err := m.caller.Call(ctx, name, inputs)
	if err != nil {
		return false, nil, err
	}

	output, err := mcptool.DecodeObject(result)
	if err != nil && !errors.Is(err, mcptool.ErrEmptyResult) {
		return false, nil, err
	}

	if output == nil {
		output = map[string]any{}
	}

	if result.IsError {
		m.logger.WarnContext(ctx, "Tool reported an error", "tool", name)

		return false, output, nil
	}

	return succeeded(output), output, nil
}

// Composite tries each invoker in order until one knows the action name.
type Composite []Invoker

func (c Composite) Invoke(ctx context.Context, name string, inputs map[string]any) (bool, map[string]any, error) {
	for _, invoker := range c {
		ok, result, err := invoker.Invoke(ctx, name, inputs)
		if errors.Is(err, ErrActionNotFound) {
			continue
		}

		return ok, result, err
	}

	return false, nil, fmt.Errorf("%w: '%s'", ErrActionNotFound, name)
}

// succeeded reads an explicit boolean "success" from result; anything else counts as success.
func succeeded(result map[string]any) bool {
	if success, ok := result["success"].(bool); ok {
		return success
	}

	return true
}
