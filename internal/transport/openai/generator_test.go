package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
)

func newTestGenerator(url string) *Generator {
	return NewGenerator(&GeneratorConfig{
		APIKey:      "test-key",
		BaseURL:     url,
		Model:       "chat-model",
		Temperature: 0.3,
		MaxTokens:   256,
		Logger:      zap.NewNop(),
	})
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "chat-model" || req.MaxTokens != 256 {
			t.Errorf("unexpected request settings: %+v", req)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "prompt text" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "chat-model",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerator_Generate(t *testing.T) {
	server := chatServer(t, "These pieces suit both the gym and the office.")

	got, err := newTestGenerator(server.URL).Generate(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "These pieces suit both the gym and the office." {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestGenerator_EmptyCompletion(t *testing.T) {
	server := chatServer(t, "   ")

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "prompt text")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := errorServer(t, http.StatusServiceUnavailable,
		map[string]any{"error": map[string]any{"message": "overloaded"}})

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "prompt text")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatal("generation failures must not classify as embedding failures")
	}
	if !domain.IsTransient(err) {
		t.Error("5xx generation failure should be transient")
	}
}

func TestGenerator_Unauthorized(t *testing.T) {
	server := errorServer(t, http.StatusForbidden, map[string]any{"error": map[string]any{"message": "no"}})

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "prompt text")
	if !errors.Is(err, domain.ErrProviderUnauthorized) {
		t.Fatalf("expected ErrProviderUnauthorized, got %v", err)
	}
	if domain.IsTransient(err) {
		t.Error("auth failure must not be transient")
	}
}

func TestGenerator_HealthCheck(t *testing.T) {
	server := errorServer(t, http.StatusServiceUnavailable, map[string]any{
		"error": map[string]any{"message": "down", "type": "server_error"},
	})

	if err := newTestGenerator(server.URL).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail against a failing provider")
	}
}
