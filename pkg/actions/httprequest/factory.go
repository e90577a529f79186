package httprequest

import "github.com/dukex/converse/pkg/protocol"

// ActionFactory creates HTTP request actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (*ActionFactory) ID() string {
	return "http_request"
}

func (*ActionFactory) Name() string {
	return "HTTP Request"
}

func (*ActionFactory) Description() string {
	return "Performs an HTTP request. Path, headers and body are rendered against the step inputs."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"host": map[string]any{
				"type":        "string",
				"description": "Host (and optional port) to call.",
				"examples":    []string{"api.example.com", "localhost:8080"},
			},
			"protocol": map[string]any{
				"type":    "string",
				"default": "https",
				"enum":    []string{"http", "https"},
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Request path. Supports templating with step inputs.",
				"examples":    []string{"/orders/{{ .order_id }}"},
			},
			"method": map[string]any{
				"type":    "string",
				"default": "GET",
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "get", "post", "put", "delete", "patch", "head", "options"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body template.",
				"examples":    []string{`{"email": "{{ .email }}"}`},
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds.",
			},
			"retry": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"attempts": map[string]any{"type": "number", "minimum": 1, "maximum": 5},
					"delay":    map[string]any{"type": "number", "minimum": 0},
				},
			},
		},
		"required": []string{"host"},
	}
}
