package app

import (
	"context"
	"log/slog"

	"github.com/campussathi/campussathi-go/internal/config"
	"github.com/campussathi/campussathi-go/internal/genai"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
	"github.com/campussathi/campussathi-go/internal/router"
)

// buildLLMConfig creates the provider chain configuration from the application config.
func buildLLMConfig(cfg *config.Config) genai.Config {
	llmCfg := genai.Config{
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GroqAPIKey:     cfg.GroqAPIKey,
		CerebrasAPIKey: cfg.CerebrasAPIKey,
		OllamaBaseURL:  cfg.OllamaBaseURL,
		IntentModels:   cfg.IntentModels,
		AnswerModels:   cfg.AnswerModels,
		Retry:          genai.DefaultRetryConfig(),
	}

	for _, p := range cfg.LLMProviders {
		switch provider := genai.Provider(p); provider {
		case genai.ProviderGemini, genai.ProviderGroq, genai.ProviderCerebras, genai.ProviderOllama:
			llmCfg.Providers = append(llmCfg.Providers, provider)
		default:
			slog.Warn("ignoring unknown provider", "name", p)
		}
	}

	return llmCfg
}

// buildEmbedConfig maps the retrieval settings onto the embedding backend.
func buildEmbedConfig(cfg *config.Config) genai.EmbedConfig {
	return genai.EmbedConfig{
		Provider:      cfg.EmbedProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		EnglishModel:  cfg.EmbedModelEnglish,
		IndicModel:    cfg.EmbedModelIndic,
	}
}

// applyLLM sets the classifier and generator on rc when a provider is
// configured. Without one the router treats every question as general and
// replies that the knowledge base is unavailable.
func applyLLM(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger, rc *router.Config) {
	if !cfg.HasLLMProvider() {
		log.Info("No LLM provider configured, chat answers are disabled")
		return
	}

	llmCfg := buildLLMConfig(cfg)
	if classifier, err := genai.NewClassifier(ctx, llmCfg, m); err != nil {
		log.WithError(err).Warn("Intent classifier initialization failed")
	} else if classifier.Enabled() {
		rc.Classifier = classifier
	}
	if generator, err := genai.NewGenerator(ctx, llmCfg, m); err != nil {
		log.WithError(err).Warn("Answer generator initialization failed")
	} else if generator.Enabled() {
		rc.Generator = generator
	}

	providers := llmCfg.ConfiguredProviders()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.String()
	}
	log.WithField("providers", names).Info("LLM features enabled")
}
