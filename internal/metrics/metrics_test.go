package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersAll(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	if m == nil {
		t.Fatal("New() returned nil")
	}

	// Touch one series per vector so Gather reports it.
	m.RecordChat("general_faq", "answered", 0.2)
	m.RecordEscalation("fallback_answer")
	m.RecordLLMRequest("gemini", "answer", "success", 1.1)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"campussathi_chat_requests_total",
		"campussathi_route_duration_seconds",
		"campussathi_escalations_total",
		"campussathi_llm_requests_total",
		"campussathi_unanswered_pending",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordChat("timetable_request", "structured", 0.01)
	m.RecordChat("timetable_request", "structured", 0.02)
	if got := testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("timetable_request", "structured")); got != 2 {
		t.Errorf("chat requests = %v, want 2", got)
	}

	m.SetPendingUnanswered(3)
	if got := testutil.ToFloat64(m.PendingUnanswered); got != 3 {
		t.Errorf("pending = %v, want 3", got)
	}

	m.RecordLLMTokens("groq", "answer", 120, 0)
	if got := testutil.ToFloat64(m.LLMTokensTotal.WithLabelValues("groq", "answer", "input")); got != 120 {
		t.Errorf("input tokens = %v, want 120", got)
	}

	m.RecordLLMRequest("groq", "intent", "rate_limit", 0.5)
	if got := testutil.CollectAndCount(m.LLMDurationSeconds); got != 0 {
		t.Errorf("failed requests should not observe duration, got %d series", got)
	}

	m.SetKnowledgeDocuments("english", 42)
	if got := testutil.ToFloat64(m.KnowledgeDocuments.WithLabelValues("english")); got != 42 {
		t.Errorf("documents = %v, want 42", got)
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	// None of these may panic.
	m.RecordChat("general_faq", "answered", 1)
	m.RecordEscalation("rag_error")
	m.RecordIntentDefaulted("classifier_error")
	m.SetPendingUnanswered(1)
	m.RecordLLMRequest("gemini", "intent", "success", 1)
	m.RecordLLMFallback("gemini", "groq", "intent")
	m.RecordRateLimiterDrop("chat")
	m.RecordJobRun("refresh", "success")
}
