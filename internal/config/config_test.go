package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvGeminiAPIKey, "")
	t.Setenv(EnvOllamaBaseURL, "")
	t.Setenv(EnvEmbedProvider, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "10000" {
		t.Errorf("Expected default port '10000', got '%s'", cfg.Port)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("Expected chunking 500/50, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.SimilarityThreshold != 0.7 {
		t.Errorf("Expected similarity threshold 0.7, got %v", cfg.SimilarityThreshold)
	}
	if cfg.RetrieverK != 5 {
		t.Errorf("Expected retriever k 5, got %d", cfg.RetrieverK)
	}
	if cfg.HasEmbedder() {
		t.Errorf("Expected no embedder without keys, got provider %q", cfg.EmbedProvider)
	}
	if cfg.LineEnabled() || cfg.R2Enabled() || cfg.SentryEnabled() {
		t.Error("Optional integrations should be disabled by default")
	}
}

func TestLoad_EmbedProviderInferred(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvEmbedProvider, "")
	t.Setenv(EnvGeminiAPIKey, "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.EmbedProvider != EmbedProviderGemini {
		t.Errorf("EmbedProvider = %q, want %q", cfg.EmbedProvider, EmbedProviderGemini)
	}
	if !cfg.HasLLMProvider() {
		t.Error("HasLLMProvider() = false with Gemini key set")
	}
}

func TestLoad_ProviderList(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvLLMProviders, " Groq, ,gemini,groq ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := strings.Join(cfg.LLMProviders, ","); got != "groq,gemini" {
		t.Errorf("LLMProviders = %q, want %q", got, "groq,gemini")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                "10000",
			DataDir:             "/data",
			ChunkSize:           500,
			ChunkOverlap:        50,
			RetrieverK:          5,
			SimilarityThreshold: 0.7,
			ChatRateBurst:       10,
			ChatRateRefill:      0.2,
			SentrySampleRate:    1,
			ShutdownTimeout:     time.Second,
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Port = "" }, errContains: EnvPort},
		{name: "overlap too large", mutate: func(c *Config) { c.ChunkOverlap = 500 }, errContains: EnvChunkOverlap},
		{name: "threshold out of range", mutate: func(c *Config) { c.SimilarityThreshold = 1.5 }, errContains: EnvSimilarityThreshold},
		{name: "unknown embed provider", mutate: func(c *Config) { c.EmbedProvider = "bert" }, errContains: "unknown provider"},
		{name: "gemini embed without key", mutate: func(c *Config) { c.EmbedProvider = EmbedProviderGemini }, errContains: EnvGeminiAPIKey},
		{name: "half LINE config", mutate: func(c *Config) { c.LineChannelSecret = "s" }, errContains: "must be set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.errContains)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/srv/campus"}
	if got := cfg.SQLitePath(); got != "/srv/campus/campussathi.db" {
		t.Errorf("SQLitePath() = %q", got)
	}
	if got := cfg.FAQPath(); got != "/srv/campus/faq.pdf" {
		t.Errorf("FAQPath() = %q", got)
	}
	if got := cfg.StructuredTimetablePath(); got != "/srv/campus/timetable_structured.json" {
		t.Errorf("StructuredTimetablePath() = %q", got)
	}
}

func TestHasLLMProvider(t *testing.T) {
	if (&Config{}).HasLLMProvider() {
		t.Error("HasLLMProvider() = true with nothing configured")
	}
	if !(&Config{OllamaBaseURL: "http://localhost:11434"}).HasLLMProvider() {
		t.Error("HasLLMProvider() = false with an Ollama server")
	}
	if !(&Config{CerebrasAPIKey: "c"}).HasLLMProvider() {
		t.Error("HasLLMProvider() = false with a Cerebras key")
	}
}
