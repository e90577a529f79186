package mcptool

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) string {
	t.Helper()

	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(false))
	mcpServer.AddTool(
		mcp.NewTool("echo", mcp.WithString("value", mcp.Required())),
		func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]any)
			value, _ := args["value"].(string)

			return mcp.NewToolResultText(`{"echo":"` + value + `"}`), nil
		},
	)

	ts := server.NewTestStreamableHTTPServer(mcpServer)
	t.Cleanup(ts.Close)

	return ts.URL + "/mcp"
}

func TestClient_Call(t *testing.T) {
	url := newTestServer(t)
	c := NewClient(url, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := c.Call(context.Background(), "echo", map[string]any{"value": "hi"})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	object, err := DecodeObject(result)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echo": "hi"}, object)
}

func TestClient_CallUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/mcp", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.Call(context.Background(), "echo", nil)
	require.Error(t, err)
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name     string
		result   *mcp.CallToolResult
		expected map[string]any
		wantErr  error
	}{
		{name: "nil result", result: nil, wantErr: ErrEmptyResult},
		{name: "no content", result: &mcp.CallToolResult{}, wantErr: ErrEmptyResult},
		{
			name:     "structured content wins",
			result:   &mcp.CallToolResult{StructuredContent: map[string]any{"a": 1.0}},
			expected: map[string]any{"a": 1.0},
		},
		{
			name:     "json text",
			result:   mcp.NewToolResultText(`{"b":"x"}`),
			expected: map[string]any{"b": "x"},
		},
		{
			name:     "plain text",
			result:   mcp.NewToolResultText("done"),
			expected: map[string]any{"text": "done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			object, err := DecodeObject(tt.result)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, object)
		})
	}
}
