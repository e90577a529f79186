// Package llm calls an OpenAI-compatible chat completion endpoint and decodes
// JSON replies.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"

	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"

	defaultOpenAIURL = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
)

var (
	// ErrEmptyResponse indicates the completion carried no choices or content.
	ErrEmptyResponse = errors.New("empty completion response")

	// ErrInvalidJSON indicates the completion content was not a JSON object.
	ErrInvalidJSON = errors.New("completion content is not a JSON object")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a chat to the completion service and returns its reply
// decoded as a JSON object.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (map[string]any, error)
}

// Config selects and authenticates the completion endpoint.
type Config struct {
	Provider   string        `mapstructure:"provider"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	APIVersion string        `mapstructure:"api_version"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Client implements Completer for OpenAI and Azure OpenAI deployments.
type Client struct {
	config     Config
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds the chat completions endpoint for config. Azure endpoints
// address the deployment named by Model.
func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if config.Model == "" {
		config.Model = defaultModel
	}

	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	endpoint, err := buildEndpoint(config)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:     config,
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger.With("module", "llm"),
	}, nil
}

func buildEndpoint(config Config) (string, error) {
	switch config.Provider {
	case ProviderAzure:
		if config.BaseURL == "" {
			return "", errors.New("azure provider requires a base url")
		}

		base := strings.TrimSuffix(config.BaseURL, "/")
		query := url.Values{}
		query.Set("api-version", config.APIVersion)

		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s", base, url.PathEscape(config.Model), query.Encode()), nil
	case ProviderOpenAI, "":
		base := config.BaseURL
		if base == "" {
			base = defaultOpenAIURL
		}

		if strings.HasSuffix(base, "/chat/completions") {
			return base, nil
		}

		return strings.TrimSuffix(base, "/") + "/chat/completions", nil
	default:
		return "", fmt.Errorf("unsupported llm provider: %s", config.Provider)
	}
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) Complete(ctx context.Context, messages []Message) (map[string]any, error) {
	body, err := json.Marshal(completionRequest{
		Model:          c.config.Model,
		Messages:       messages,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.config.Provider == ProviderAzure {
		req.Header.Set("api-key", c.config.APIKey)
	} else if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}

	c.logger.DebugContext(ctx, "Completion finished", "status", resp.StatusCode, "duration_ms", time.Since(started).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion api error %d: %s", resp.StatusCode, string(respBody))
	}

	var completion completionResponse

	err = json.Unmarshal(respBody, &completion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse completion response: %w", err)
	}

	if completion.Error != nil {
		return nil, fmt.Errorf("completion api error: %s", completion.Error.Message)
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	return DecodeObject(completion.Choices[0].Message.Content)
}

// DecodeObject parses content as a JSON object, tolerating a surrounding
// markdown code fence.
func DecodeObject(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var result map[string]any

	err := json.Unmarshal([]byte(content), &result)
	if err != nil || result == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJSON, content)
	}

	return result, nil
}
