// Package genai talks to the LLM providers that classify chat intents and
// write answers from retrieved passages, and to the embedding services that
// back the vector indexes.
//
// Gemini uses google.golang.org/genai. Groq, Cerebras and Ollama use
// github.com/openai/openai-go/v3 against their OpenAI-compatible endpoints.
//
// Failures fall back in three layers:
//  1. the same model is retried with jittered backoff;
//  2. the next model of the same provider is tried;
//  3. the next provider in the configured order is tried.
package genai

import (
	"context"
	"strings"
	"time"

	"github.com/campussathi/campussathi-go/internal/rag"
)

// Provider identifies an LLM provider.
type Provider string

const (
	ProviderGemini   Provider = "gemini"
	ProviderGroq     Provider = "groq"
	ProviderCerebras Provider = "cerebras"
	// ProviderOllama is a self-hosted Ollama server reached through its
	// OpenAI-compatible /v1 API.
	ProviderOllama Provider = "ollama"
)

// ProviderEndpoint holds the base URL of the hosted OpenAI-compatible providers.
// Ollama's endpoint comes from configuration.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

func (p Provider) String() string {
	return string(p)
}

// Intent is the routing label assigned to a chat message.
type Intent string

const (
	IntentTimetable Intent = "timetable_request"
	IntentPersonal  Intent = "personal_query"
	IntentGeneral   Intent = "general_faq"
)

// Intents lists every valid label.
var Intents = []Intent{IntentTimetable, IntentPersonal, IntentGeneral}

// ParseIntent maps a model's raw label onto a known intent. Surrounding
// whitespace, quotes and punctuation are ignored, as is case.
func ParseIntent(raw string) (Intent, bool) {
	label := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "\"'`.:;!"))
	for _, intent := range Intents {
		if label == string(intent) {
			return intent, true
		}
	}
	return "", false
}

// Answer is a generated reply. Found is false when the model reported that
// the passages did not contain the answer.
type Answer struct {
	Text  string
	Found bool
}

// IntentClassifier labels a chat message.
type IntentClassifier interface {
	Classify(ctx context.Context, query string) (Intent, error)
}

// AnswerGenerator writes an answer to query grounded in passages.
type AnswerGenerator interface {
	Generate(ctx context.Context, query string, passages []rag.Passage) (Answer, error)
}

// RetryConfig controls retries of a single model.
type RetryConfig struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Retry defaults.
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// Default model chains. The first model is primary.
var (
	DefaultGeminiModels   = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqModels     = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}
	DefaultOllamaModels   = []string{"llama3.1:8b"}

	// DefaultOllamaIntentModels favours a small, fast model for classification.
	DefaultOllamaIntentModels = []string{"qwen:7b", "llama3.1:8b"}

	DefaultProviders = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras, ProviderOllama}
)

// Config configures the provider chains.
type Config struct {
	// Providers is the fallback order. Providers without credentials are skipped.
	Providers []Provider

	GeminiAPIKey   string
	GroqAPIKey     string
	CerebrasAPIKey string
	OllamaBaseURL  string

	// IntentModels and AnswerModels override every provider's default chain
	// when set. They are meant for single-provider deployments.
	IntentModels []string
	AnswerModels []string

	Retry RetryConfig
}

// HasProvider reports whether p has credentials.
func (c *Config) HasProvider(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderGroq:
		return c.GroqAPIKey != ""
	case ProviderCerebras:
		return c.CerebrasAPIKey != ""
	case ProviderOllama:
		return c.OllamaBaseURL != ""
	default:
		return false
	}
}

// ConfiguredProviders returns the providers with credentials, in fallback order.
func (c *Config) ConfiguredProviders() []Provider {
	order := c.Providers
	if len(order) == 0 {
		order = DefaultProviders
	}
	out := make([]Provider, 0, len(order))
	for _, p := range order {
		if c.HasProvider(p) {
			out = append(out, p)
		}
	}
	return out
}
