package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.3-70b-versatile",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "classify_intent", "arguments": "{\"intent\":\"personal_query\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
}`

func TestOpenAIModel_ClassifyToolCall(t *testing.T) {
	t.Parallel()
	var req map[string]any
	srv := chatServer(t, http.StatusOK, toolCallResponse, &req)
	m := newOpenAIModel(ProviderGroq, srv.URL+"/", "key", "llama-3.3-70b-versatile")

	intent, u, err := m.classify(context.Background(), "what is my attendance?")
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if intent != IntentPersonal {
		t.Errorf("classify() = %q, want %q", intent, IntentPersonal)
	}
	if u.input != 120 || u.output != 8 {
		t.Errorf("usage = %+v", u)
	}
	if req["tool_choice"] != "required" {
		t.Errorf("tool_choice = %v, want required", req["tool_choice"])
	}
}

func TestOpenAIModel_ClassifyPlainText(t *testing.T) {
	t.Parallel()
	var req map[string]any
	srv := chatServer(t, http.StatusOK, `{
  "id": "x", "object": "chat.completion", "created": 1, "model": "qwen:7b",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " timetable_request. "}}]
}`, &req)
	m := newOpenAIModel(ProviderOllama, srv.URL+"/", "ollama", "qwen:7b")

	intent, _, err := m.classify(context.Background(), "monday classes")
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if intent != IntentTimetable {
		t.Errorf("classify() = %q, want %q", intent, IntentTimetable)
	}
	if _, ok := req["tools"]; ok {
		t.Error("ollama requests should not send tools")
	}
}

func TestOpenAIModel_UnrecognizedLabel(t *testing.T) {
	t.Parallel()
	srv := chatServer(t, http.StatusOK, `{
  "id": "x", "object": "chat.completion", "created": 1, "model": "m",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "weather"}}]
}`, nil)
	m := newOpenAIModel(ProviderOllama, srv.URL+"/", "ollama", "m")

	_, _, err := m.classify(context.Background(), "is it raining")
	if ClassifyError(err) != ActionFallback {
		t.Errorf("ClassifyError(%v) = %v, want fallback", err, ClassifyError(err))
	}
}

func TestOpenAIModel_Complete(t *testing.T) {
	t.Parallel()
	var req map[string]any
	srv := chatServer(t, http.StatusOK, `{
  "id": "x", "object": "chat.completion", "created": 1, "model": "llama-3.3-70b",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  The library opens at 9 AM.\n"}}],
  "usage": {"prompt_tokens": 300, "completion_tokens": 12, "total_tokens": 312}
}`, &req)
	m := newOpenAIModel(ProviderCerebras, srv.URL+"/", "key", "llama-3.3-70b")

	text, u, err := m.complete(context.Background(), "system prompt", "library timings?")
	if err != nil {
		t.Fatalf("complete() error = %v", err)
	}
	if text != "The library opens at 9 AM." {
		t.Errorf("complete() = %q", text)
	}
	if u.input != 300 || u.output != 12 {
		t.Errorf("usage = %+v", u)
	}
	msgs, _ := req["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", req["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" || first["content"] != "system prompt" {
		t.Errorf("system message = %v", first)
	}
}

func TestOpenAIModel_HTTPError(t *testing.T) {
	t.Parallel()
	srv := chatServer(t, http.StatusUnauthorized,
		`{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`, nil)
	m := newOpenAIModel(ProviderGroq, srv.URL+"/", "bad", "llama-3.3-70b-versatile")

	_, _, err := m.complete(context.Background(), "s", "u")
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		t.Fatalf("complete() error = %v, want *LLMError", err)
	}
	if llmErr.StatusCode != http.StatusUnauthorized || llmErr.Provider != ProviderGroq {
		t.Errorf("LLMError = %+v", llmErr)
	}
	if ClassifyError(err) != ActionFallback {
		t.Errorf("401 should fall back, got %v", ClassifyError(err))
	}
}
