// Package mcptool calls tools on a remote MCP server over streamable HTTP.
package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	protocolVersion = "2024-11-05"
	DefaultTimeout  = 60 * time.Second
)

var (
	// ErrEmptyResult is returned when a tool result carries no content to decode.
	ErrEmptyResult = errors.New("tool returned no content")
)

// Client opens a short-lived MCP session per call.
type Client struct {
	url     string
	name    string
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		url:     url,
		name:    "converse",
		timeout: timeout,
		logger:  logger.With("module", "mcp_client"),
	}
}

// Call invokes tool with args and returns the raw result.
func (c *Client) Call(ctx context.Context, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mcpClient, err := client.NewStreamableHttpClient(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	defer func() {
		_ = mcpClient.Close()
	}()

	err = mcpClient.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = protocolVersion
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    c.name,
		Version: "1.0.0",
	}

	_, err = mcpClient.Initialize(ctx, initReq)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	c.logger.DebugContext(ctx, "Calling MCP tool", "tool", tool)

	result, err := mcpClient.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call tool '%s': %w", tool, err)
	}

	return result, nil
}

// DecodeObject returns the structured content of result, or the first text
// content decoded as a JSON object. Non-JSON text is returned under "text".
func DecodeObject(result *mcp.CallToolResult) (map[string]any, error) {
	if result == nil {
		return nil, ErrEmptyResult
	}

	if structured, ok := result.StructuredContent.(map[string]any); ok {
		return structured, nil
	}

	for _, content := range result.Content {
		text, ok := mcp.AsTextContent(content)
		if !ok {
			continue
		}

		var object map[string]any

		err := json.Unmarshal([]byte(text.Text), &object)
		if err != nil {
			return map[string]any{"text": text.Text}, nil
		}

		return object, nil
	}

	return nil, ErrEmptyResult
}
