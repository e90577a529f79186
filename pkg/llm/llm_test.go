package llm_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/converse/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, check func(r *http.Request)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestClient_CompleteOpenAI(t *testing.T) {
	server := completionServer(t, `{"skill":"workflow","workflow_id":"wf-1"}`, func(r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.Len(t, body["messages"], 2)
	})

	client, err := llm.NewClient(llm.Config{BaseURL: server.URL + "/v1", APIKey: "secret", Model: "test-model"}, server.Client(), slog.Default())
	require.NoError(t, err)

	result, err := client.Complete(t.Context(), []llm.Message{
		{Role: llm.RoleSystem, Content: "classify"},
		{Role: llm.RoleUser, Content: "reset my password"},
	})
	require.NoError(t, err)
	assert.Equal(t, "workflow", result["skill"])
	assert.Equal(t, "wf-1", result["workflow_id"])
}

func TestClient_CompleteAzure(t *testing.T) {
	server := completionServer(t, "```json\n{\"skill\":\"other\"}\n```", func(r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
	})

	client, err := llm.NewClient(llm.Config{
		Provider:   llm.ProviderAzure,
		BaseURL:    server.URL,
		APIKey:     "azure-key",
		APIVersion: "2024-06-01",
		Model:      "gpt-4o",
	}, server.Client(), slog.Default())
	require.NoError(t, err)

	result, err := client.Complete(t.Context(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "other", result["skill"])
}

func TestClient_Errors(t *testing.T) {
	t.Run("non json content", func(t *testing.T) {
		server := completionServer(t, "I think it is a workflow", nil)

		client, err := llm.NewClient(llm.Config{BaseURL: server.URL}, server.Client(), slog.Default())
		require.NoError(t, err)

		_, err = client.Complete(t.Context(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
		assert.ErrorIs(t, err, llm.ErrInvalidJSON)
	})

	t.Run("empty content", func(t *testing.T) {
		server := completionServer(t, "  ", nil)

		client, err := llm.NewClient(llm.Config{BaseURL: server.URL}, server.Client(), slog.Default())
		require.NoError(t, err)

		_, err = client.Complete(t.Context(), nil)
		assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	})

	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		t.Cleanup(server.Close)

		client, err := llm.NewClient(llm.Config{BaseURL: server.URL}, server.Client(), slog.Default())
		require.NoError(t, err)

		_, err = client.Complete(t.Context(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("configuration", func(t *testing.T) {
		_, err := llm.NewClient(llm.Config{Provider: "bard"}, nil, slog.Default())
		assert.Error(t, err)

		_, err = llm.NewClient(llm.Config{Provider: llm.ProviderAzure}, nil, slog.Default())
		assert.Error(t, err)
	})
}

func TestDecodeObject(t *testing.T) {
	result, err := llm.DecodeObject(" {\"a\": 1} ")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result["a"])

	_, err = llm.DecodeObject("[1,2]")
	assert.ErrorIs(t, err, llm.ErrInvalidJSON)

	_, err = llm.DecodeObject("null")
	assert.ErrorIs(t, err, llm.ErrInvalidJSON)
}
