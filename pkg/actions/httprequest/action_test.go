package httprequest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverConfig(server *httptest.Server, extra map[string]any) map[string]any {
	config := map[string]any{
		"protocol": "http",
		"host":     strings.TrimPrefix(server.URL, "http://"),
	}
	for k, v := range extra {
		config[k] = v
	}

	return config
}

func TestNewAction(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected *Action
		wantErr  error
	}{
		{
			name:    "missing host",
			config:  map[string]any{"path": "/x"},
			wantErr: ErrHTTPRequestHostInvalid,
		},
		{
			name:   "defaults",
			config: map[string]any{"host": "api.example.com"},
			expected: &Action{
				Method:   "GET",
				Protocol: "https",
				Host:     "api.example.com",
				Path:     "/",
				Headers:  map[string]string{},
				Timeout:  30 * time.Second,
				Retry:    RetryConfig{Attempts: 1},
			},
		},
		{
			name: "full config",
			config: map[string]any{
				"host":     "localhost:8080",
				"protocol": "http",
				"method":   "post",
				"path":     "/orders",
				"headers":  map[string]any{"X-Key": "k", "Skip": 1},
				"body":     `{"a":1}`,
				"timeout":  float64(5),
				"retry":    map[string]any{"attempts": 3, "delay": float64(1)},
			},
			expected: &Action{
				Method:   "POST",
				Protocol: "http",
				Host:     "localhost:8080",
				Path:     "/orders",
				Headers:  map[string]string{"X-Key": "k"},
				Body:     `{"a":1}`,
				Timeout:  5 * time.Second,
				Retry:    RetryConfig{Attempts: 3, Delay: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := NewAction(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected.Method, action.Method)
			assert.Equal(t, tt.expected.Protocol, action.Protocol)
			assert.Equal(t, tt.expected.Host, action.Host)
			assert.Equal(t, tt.expected.Path, action.Path)
			assert.Equal(t, tt.expected.Headers, action.Headers)
			assert.Equal(t, tt.expected.Body, action.Body)
			assert.Equal(t, tt.expected.Timeout, action.Timeout)
			assert.Equal(t, tt.expected.Retry, action.Retry)
		})
	}
}

func TestAction_Execute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("renders inputs into request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/orders/A-1", r.URL.Path)
			assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))

			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"email":"a@b.c"}`, string(body))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"shipped"}`))
		}))
		defer server.Close()

		action, err := NewAction(serverConfig(server, map[string]any{
			"method":  "POST",
			"path":    "/orders/{{ .order_id }}",
			"headers": map[string]any{"Authorization": "Bearer {{ .token }}"},
			"body":    `{"email":"{{ .email }}"}`,
		}))
		require.NoError(t, err)

		result, err := action.Execute(context.Background(), map[string]any{
			"order_id": "A-1",
			"token":    "t",
			"email":    "a@b.c",
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, 200, result["status_code"])
		assert.Equal(t, map[string]any{"status": "shipped"}, result["body"])
		assert.Equal(t, true, result["success"])
	})

	t.Run("client error is reported as unsuccessful", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
		}))
		defer server.Close()

		action, err := NewAction(serverConfig(server, nil))
		require.NoError(t, err)

		result, err := action.Execute(context.Background(), map[string]any{}, logger)
		require.NoError(t, err)
		assert.Equal(t, 404, result["status_code"])
		assert.Equal(t, "not found", result["body"])
		assert.Equal(t, false, result["success"])
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)

				return
			}

			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		action, err := NewAction(serverConfig(server, map[string]any{
			"retry": map[string]any{"attempts": 2, "delay": 0},
		}))
		require.NoError(t, err)

		result, err := action.Execute(context.Background(), map[string]any{}, logger)
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, 200, result["status_code"])
	})

	t.Run("connection failure", func(t *testing.T) {
		action, err := NewAction(map[string]any{"protocol": "http", "host": "127.0.0.1:1"})
		require.NoError(t, err)

		_, err = action.Execute(context.Background(), map[string]any{}, logger)
		require.Error(t, err)
	})
}
