package genai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/campussathi/campussathi-go/internal/metrics"
)

// NewClassifier builds the intent classifier chain from cfg. Without any
// configured provider the classifier is returned disabled.
func NewClassifier(ctx context.Context, cfg Config, m *metrics.Metrics) (*Classifier, error) {
	models, err := buildModels(ctx, cfg, func(p Provider) []string {
		if len(cfg.IntentModels) > 0 {
			return cfg.IntentModels
		}
		return defaultModels(p, true)
	})
	if err != nil {
		return nil, err
	}
	logChain(ctx, opIntent, models)
	return &Classifier{chain: &chain{op: opIntent, models: models, retry: retryOrDefault(cfg.Retry), metrics: m}}, nil
}

// NewGenerator builds the answer generator chain from cfg.
func NewGenerator(ctx context.Context, cfg Config, m *metrics.Metrics) (*Generator, error) {
	models, err := buildModels(ctx, cfg, func(p Provider) []string {
		if len(cfg.AnswerModels) > 0 {
			return cfg.AnswerModels
		}
		return defaultModels(p, false)
	})
	if err != nil {
		return nil, err
	}
	logChain(ctx, opAnswer, models)
	return &Generator{chain: &chain{op: opAnswer, models: models, retry: retryOrDefault(cfg.Retry), metrics: m}}, nil
}

func buildModels(ctx context.Context, cfg Config, modelsFor func(Provider) []string) ([]chatModel, error) {
	var models []chatModel
	for _, p := range cfg.ConfiguredProviders() {
		switch p {
		case ProviderGemini:
			client, err := newGeminiClient(ctx, cfg.GeminiAPIKey)
			if err != nil {
				return nil, err
			}
			for _, name := range modelsFor(p) {
				models = append(models, newGeminiModel(client, name))
			}
		case ProviderGroq:
			for _, name := range modelsFor(p) {
				models = append(models, newOpenAIModel(p, ProviderEndpoint[p], cfg.GroqAPIKey, name))
			}
		case ProviderCerebras:
			for _, name := range modelsFor(p) {
				models = append(models, newOpenAIModel(p, ProviderEndpoint[p], cfg.CerebrasAPIKey, name))
			}
		case ProviderOllama:
			for _, name := range modelsFor(p) {
				models = append(models, newOpenAIModel(p, OllamaOpenAIEndpoint(cfg.OllamaBaseURL), "ollama", name))
			}
		}
	}
	return models, nil
}

// OllamaOpenAIEndpoint returns the OpenAI-compatible endpoint of an Ollama server.
func OllamaOpenAIEndpoint(baseURL string) string {
	base := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	base = strings.TrimSuffix(base, "/api")
	base = strings.TrimSuffix(base, "/v1")
	return base + "/v1/"
}

func defaultModels(p Provider, intent bool) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiModels
	case ProviderGroq:
		return DefaultGroqModels
	case ProviderCerebras:
		return DefaultCerebrasModels
	case ProviderOllama:
		if intent {
			return DefaultOllamaIntentModels
		}
		return DefaultOllamaModels
	default:
		return nil
	}
}

func retryOrDefault(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		return DefaultRetryConfig()
	}
	return cfg
}

func logChain(ctx context.Context, op string, models []chatModel) {
	if len(models) == 0 {
		slog.InfoContext(ctx, "No LLM provider configured", "operation", op)
		return
	}
	slog.InfoContext(ctx, "LLM chain configured",
		"operation", op,
		"primary", models[0].Provider().String()+"/"+models[0].Model(),
		"chain_size", len(models))
}
