package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testEmbeddingClient(t *testing.T, handler http.HandlerFunc) *EmbeddingClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewEmbeddingClient("test-key", "")
	c.baseURL = srv.URL
	c.retry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return c
}

func TestEmbeddingClient_Embed(t *testing.T) {
	t.Parallel()
	var gotPath, gotKey string
	var gotReq embeddingRequest
	c := testEmbeddingClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	})

	got, err := c.Embed(context.Background(), "library timings")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 3 || got[2] != 0.3 {
		t.Errorf("Embed() = %v", got)
	}
	if gotPath != "/"+DefaultGeminiEmbeddingModel+":embedContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q", gotKey)
	}
	if gotReq.Model != "models/"+DefaultGeminiEmbeddingModel || gotReq.OutputDimensionality != GeminiEmbeddingDimensions {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Content.Parts) != 1 || gotReq.Content.Parts[0].Text != "library timings" {
		t.Errorf("request parts = %+v", gotReq.Content.Parts)
	}
}

func TestEmbeddingClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	c := testEmbeddingClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"embedding":{"values":[1]}}`))
	})

	if _, err := c.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestEmbeddingClient_PermanentError(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	c := testEmbeddingClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Embed(context.Background(), "hello")
	var llmErr *LLMError
	if !errors.As(err, &llmErr) || llmErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("Embed() error = %v, want LLMError with status 400", err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

func TestEmbeddingClient_Validation(t *testing.T) {
	t.Parallel()
	noKey := NewEmbeddingClient("", "")
	if _, err := noKey.Embed(context.Background(), "hello"); err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("Embed() without key error = %v", err)
	}
	c := NewEmbeddingClient("key", "custom-model")
	if c.model != "custom-model" {
		t.Errorf("model = %q", c.model)
	}
	if _, err := c.Embed(context.Background(), "   "); err == nil || !strings.Contains(err.Error(), "empty text") {
		t.Errorf("Embed() on blank text error = %v", err)
	}
}

func TestNewEmbedders(t *testing.T) {
	t.Parallel()

	none, err := NewEmbedders(EmbedConfig{})
	if err != nil || none.English != nil || none.Indic != nil {
		t.Errorf("NewEmbedders(empty) = %+v, %v", none, err)
	}

	gemini, err := NewEmbedders(EmbedConfig{Provider: EmbedProviderGemini, GeminiAPIKey: "k"})
	if err != nil || gemini.English == nil || gemini.Indic == nil {
		t.Errorf("NewEmbedders(gemini) = %+v, %v", gemini, err)
	}

	ollama, err := NewEmbedders(EmbedConfig{Provider: EmbedProviderOllama, OllamaBaseURL: "http://localhost:11434"})
	if err != nil || ollama.English == nil || ollama.Indic == nil {
		t.Errorf("NewEmbedders(ollama) = %+v, %v", ollama, err)
	}

	if _, err := NewEmbedders(EmbedConfig{Provider: "openai"}); err == nil {
		t.Error("NewEmbedders(unknown) should fail")
	}
}

func TestOllamaEndpoints(t *testing.T) {
	t.Parallel()
	tests := []struct {
		base       string
		wantAPI    string
		wantOpenAI string
	}{
		{"http://localhost:11434", "http://localhost:11434/api", "http://localhost:11434/v1/"},
		{"http://localhost:11434/", "http://localhost:11434/api", "http://localhost:11434/v1/"},
		{"http://ollama:11434/api", "http://ollama:11434/api", "http://ollama:11434/v1/"},
		{" http://ollama:11434/v1/ ", "http://ollama:11434/api", "http://ollama:11434/v1/"},
	}
	for _, tt := range tests {
		if got := OllamaAPIEndpoint(tt.base); got != tt.wantAPI {
			t.Errorf("OllamaAPIEndpoint(%q) = %q, want %q", tt.base, got, tt.wantAPI)
		}
		if got := OllamaOpenAIEndpoint(tt.base); got != tt.wantOpenAI {
			t.Errorf("OllamaOpenAIEndpoint(%q) = %q, want %q", tt.base, got, tt.wantOpenAI)
		}
	}
}
