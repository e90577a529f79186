package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/converse/pkg/mcptool"
	"github.com/mark3labs/mcp-go/mcp"
)

const UserInfoTool = "get_user_info"

// ToolCaller is the part of the MCP client the resolver needs.
type ToolCaller interface {
	Call(ctx context.Context, tool string, args map[string]any) (*mcp.CallToolResult, error)
}

// MCPResolver asks the get_user_info tool who owns a token. The tool answers
// {"output": {"data": {"userId": ..., "roles": [...]}}}.
type MCPResolver struct {
	caller ToolCaller
	logger *slog.Logger
}

func NewMCPResolver(caller ToolCaller, logger *slog.Logger) *MCPResolver {
	return &MCPResolver{
		caller: caller,
		logger: logger.With("module", "mcp_identity"),
	}
}

func (r *MCPResolver) Resolve(ctx context.Context, token string) (string, []string, error) {
	if token == "" {
		return "", nil, errors.Join(ErrUnauthorized, ErrEmptyToken)
	}

	result, err := r.caller.Call(ctx, UserInfoTool, map[string]any{"token": token})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if result.IsError {
		return "", nil, fmt.Errorf("%w: %s reported an error", ErrUnauthorized, UserInfoTool)
	}

	info, err := mcptool.DecodeObject(result)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	output, _ := info["output"].(map[string]any)
	data, _ := output["data"].(map[string]any)

	userID, _ := data["userId"].(string)
	roles := toStrings(data["roles"])

	err = checkIdentity(userID, roles)
	if err != nil {
		r.logger.WarnContext(ctx, "User info incomplete", "has_user_id", userID != "", "roles", len(roles))

		return "", nil, err
	}

	return userID, roles, nil
}
