// Package httprequest provides the HTTP request system action.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/converse/pkg/template"
)

const defaultTimeoutSeconds = 30

var (
	// ErrHTTPRequestHostInvalid is returned when the HTTP request host is invalid.
	ErrHTTPRequestHostInvalid = errors.New("invalid HTTP request host")
	// ErrHTTPServerError is returned when the server returns an error status code.
	ErrHTTPServerError = errors.New("server error during HTTP request")
)

// Action performs an HTTP request. Path, headers and body are templates
// rendered against the step inputs.
type Action struct {
	Method   string
	Protocol string
	Host     string
	Path     string
	Headers  map[string]string
	Body     string
	Timeout  time.Duration
	Retry    RetryConfig
	client   *http.Client
}

// RetryConfig defines retry behavior for HTTP requests. Delay is in seconds.
type RetryConfig struct {
	Attempts int
	Delay    int
}

// NewAction creates a new Action from configuration.
func NewAction(config map[string]any) (*Action, error) {
	method, _ := config["method"].(string)

	host, ok := config["host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("missing or invalid 'host' in configuration: %w", ErrHTTPRequestHostInvalid)
	}

	path, _ := config["path"].(string)
	if len(path) == 0 {
		path = "/"
	}

	protocol, _ := config["protocol"].(string)
	if protocol == "" {
		protocol = "https"
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)

	if headersMap, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersMap {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	retry := RetryConfig{Attempts: 1, Delay: 0}
	if retryConfig, exists := config["retry"]; exists {
		retry = parseRetryConfig(retryConfig)
	}

	timeout := defaultTimeoutSeconds * time.Second
	if seconds, ok := toInt(config["timeout"]); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	if method == "" {
		method = http.MethodGet
	}

	return &Action{
		Method:   strings.ToUpper(method),
		Protocol: protocol,
		Host:     host,
		Path:     path,
		Headers:  headers,
		Body:     body,
		Timeout:  timeout,
		Retry:    retry,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func parseRetryConfig(retryConfig any) RetryConfig {
	retry := RetryConfig{Attempts: 1, Delay: 0}

	retryMap, ok := retryConfig.(map[string]any)
	if !ok {
		return retry
	}

	if attempts, ok := toInt(retryMap["attempts"]); ok && attempts > 0 {
		retry.Attempts = attempts
	}

	if delay, ok := toInt(retryMap["delay"]); ok && delay >= 0 {
		retry.Delay = delay
	}

	return retry
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Execute performs the request with retry on 5xx responses. The result carries
// status_code, body, headers and success (status below 400).
func (a *Action) Execute(ctx context.Context, inputs map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "http_request_action")
	logger.InfoContext(ctx, "Executing HTTP request action")

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Retrying HTTP request", "attempt", attempt, "attempts", a.Retry.Attempts)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(a.Retry.Delay) * time.Second):
			}
		}

		req, err := a.buildRequest(ctx, inputs)
		if err != nil {
			return nil, err
		}

		resp, err = a.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			resp = nil

			continue
		}

		if resp.StatusCode >= 500 && attempt < a.Retry.Attempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error (status %d), retrying: %w", resp.StatusCode, ErrHTTPServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) buildRequest(ctx context.Context, inputs map[string]any) (*http.Request, error) {
	body := ""

	if a.Body != "" {
		rendered, err := template.RenderText(a.Body, inputs)
		if err != nil {
			return nil, fmt.Errorf("failed to render body template: %w", err)
		}

		body = rendered
	}

	path, err := template.RenderText(a.Path, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to render path template: %w", err)
	}

	url := fmt.Sprintf("%s://%s%s", a.Protocol, a.Host, path)

	req, err := http.NewRequestWithContext(ctx, a.Method, url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		headerValue, err := template.RenderText(value, inputs)
		if err != nil {
			return nil, fmt.Errorf("failed to render header '%s' template: %w", key, err)
		}

		req.Header.Set(key, headerValue)
	}

	return req, nil
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (map[string]any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)

		logger.WarnContext(ctx, "Failed to parse response as JSON, returning as string", "error", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	logger.InfoContext(ctx, "HTTP request action completed", "status", resp.StatusCode, "body_length", len(bodyBytes))

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headers,
		"success":     resp.StatusCode < http.StatusBadRequest,
	}, nil
}
