package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := NewLLMService(Config{APIKey: "ak-test", BaseURL: srv.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)
}

func TestGenerate_SendsHeadersAndDefaults(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, defaultMaxTokens, req.MaxTokens)
		assert.Empty(t, req.System)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "part one, "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "part two"},
			},
		})
	})

	out, err := svc.Generate(context.Background(), "question", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "part one, part two", out)
}

func TestChat_ExtractsSystemPrompt(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be terse", req.System)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "ok"}},
		})
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGenerate_OverloadedIsTemporary(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{})
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "anthropic", pe.Provider)
	assert.Equal(t, "Overloaded", pe.Message)
	assert.True(t, pe.Temporary())
}

func TestGenerate_EmptyContent(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})
	_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
	})
	assert.NoError(t, svc.Ping(context.Background()))
}
