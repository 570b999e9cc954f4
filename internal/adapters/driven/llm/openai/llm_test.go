package openai

import (
	"context"
	"encoding/json"
	"errors"
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
	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "qwen-plus"})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.Error(t, err)
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
}

func TestGenerate_SendsRequest(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen-plus", req.Model)
		assert.Equal(t, 0.3, req.Temperature)
		assert.Equal(t, []string{"END"}, req.Stop)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Equal(t, "hello", req.Messages[0].Content)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "world"}}},
		})
	})

	out, err := svc.Generate(context.Background(), "hello", driven.GenerateOptions{
		Temperature: 0.3,
		StopWords:   []string{"END"},
	})
	require.NoError(t, err)
	assert.Equal(t, "world", out)
}

func TestChat_ForwardsMessages(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 2)
		assert.Equal(t, 64, req.MaxTokens)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, driven.ChatOptions{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGenerate_ProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		temporary bool
		rate      bool
		message   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, true, true, "slow down"},
		{"server error", http.StatusBadGateway, "upstream died", true, false, "upstream died"},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"invalid key"}}`, false, false, "invalid key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{})
			var pe *domain.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.message, pe.Message)
			assert.Equal(t, tt.temporary, pe.Temporary())
			assert.Equal(t, tt.rate, errors.Is(err, domain.ErrRateLimited))
		})
	}
}

func TestGenerate_MalformedResponse(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	svc = newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err = svc.Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, svc.Ping(context.Background()))

	svc = newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	var pe *domain.ProviderError
	assert.ErrorAs(t, svc.Ping(context.Background()), &pe)
}
