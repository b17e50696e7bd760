// Package config provides application configuration management.
// It loads settings from environment variables (optionally from a .env file)
// and provides defaults for the server, retrieval, LLM and operator features.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/campussathi/campussathi-go/internal/sliceutil"
)

// Embedding providers accepted by CAMPUS_EMBED_PROVIDER.
const (
	EmbedProviderGemini = "gemini"
	EmbedProviderOllama = "ollama"
)

// Default retrieval parameters.
const (
	DefaultChunkSize           = 500
	DefaultChunkOverlap        = 50
	DefaultRetrieverK          = 5
	DefaultSimilarityThreshold = 0.7
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string
	AllowedOrigin   string // Extra CORS origin for the web front-end ("*" when empty)

	// Data Configuration
	DataDir           string
	SeedSampleData    bool          // Insert sample students when the table is empty
	LogRetention      time.Duration // Query logs older than this are purged (0 = keep forever)
	RefreshSchedule   string        // Cron spec for scheduled index refresh (empty = disabled)
	RetentionSchedule string        // Cron spec for query log retention

	// Retrieval Configuration
	EmbedProvider       string
	EmbedModelEnglish   string
	EmbedModelIndic     string
	SimilarityThreshold float64
	ChunkSize           int
	ChunkOverlap        int
	RetrieverK          int

	// LLM Configuration
	LLMProviders   []string // Provider order for the fallback chain
	GeminiAPIKey   string
	GroqAPIKey     string
	CerebrasAPIKey string
	OllamaBaseURL  string
	IntentModels   []string // Empty = provider defaults
	AnswerModels   []string // Empty = provider defaults

	// Chat Rate Limits (Token Bucket + Daily Window)
	ChatRateBurst  float64
	ChatRateRefill float64 // Tokens per second
	ChatDailyLimit int     // 0 = disabled

	// LINE Channel (optional)
	LineChannelToken  string
	LineChannelSecret string

	// R2 Mirror (optional)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Prefix          string

	// Sentry (optional)
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack (optional)
	BetterStackToken    string
	BetterStackEndpoint string

	// Operator Auth (empty password = no auth)
	AdminUsername   string
	AdminPassword   string
	MetricsUsername string
	MetricsPassword string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:      getEnv(EnvServerName, ""),
		AllowedOrigin:   getEnv(EnvAllowedOrigin, ""),

		DataDir:           getEnv(EnvDataDir, getDefaultDataDir()),
		SeedSampleData:    getBoolEnv(EnvSeedSampleData, true),
		LogRetention:      getDurationEnv(EnvLogRetention, 90*24*time.Hour),
		RefreshSchedule:   getEnv(EnvRefreshSchedule, ""),
		RetentionSchedule: getEnv(EnvRetentionSchedule, "@daily"),

		EmbedProvider:       getEnv(EnvEmbedProvider, ""),
		EmbedModelEnglish:   getEnv(EnvEmbedModelEnglish, ""),
		EmbedModelIndic:     getEnv(EnvEmbedModelIndic, ""),
		SimilarityThreshold: getFloatEnv(EnvSimilarityThreshold, DefaultSimilarityThreshold),
		ChunkSize:           getIntEnv(EnvChunkSize, DefaultChunkSize),
		ChunkOverlap:        getIntEnv(EnvChunkOverlap, DefaultChunkOverlap),
		RetrieverK:          getIntEnv(EnvRetrieverK, DefaultRetrieverK),

		LLMProviders:   getListEnv(EnvLLMProviders, []string{"gemini", "groq", "cerebras", "ollama"}),
		GeminiAPIKey:   getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:     getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey: getEnv(EnvCerebrasAPIKey, ""),
		OllamaBaseURL:  getEnv(EnvOllamaBaseURL, ""),
		IntentModels:   getListEnv(EnvIntentModels, nil),
		AnswerModels:   getListEnv(EnvAnswerModels, nil),

		ChatRateBurst:  getFloatEnv(EnvChatRateBurst, 10),
		ChatRateRefill: getFloatEnv(EnvChatRateRefill, 0.2), // 1 per 5s
		ChatDailyLimit: getIntEnv(EnvChatRateDaily, 200),

		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2Prefix:          getEnv(EnvR2Prefix, "campussathi/"),

		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		AdminUsername:   getEnv(EnvAdminUsername, "admin"),
		AdminPassword:   getEnv(EnvAdminPassword, ""),
		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	if cfg.EmbedProvider == "" {
		cfg.EmbedProvider = cfg.defaultEmbedProvider()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration values are consistent
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvChunkSize, c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("%s must be in [0, %d), got %d", EnvChunkOverlap, c.ChunkSize, c.ChunkOverlap))
	}
	if c.RetrieverK <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvRetrieverK, c.RetrieverK))
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %v", EnvSimilarityThreshold, c.SimilarityThreshold))
	}
	switch c.EmbedProvider {
	case "", EmbedProviderGemini, EmbedProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("%s: unknown provider %q", EnvEmbedProvider, c.EmbedProvider))
	}
	if c.EmbedProvider == EmbedProviderGemini && c.GeminiAPIKey == "" {
		errs = append(errs, fmt.Errorf("%s=gemini requires %s", EnvEmbedProvider, EnvGeminiAPIKey))
	}
	if c.EmbedProvider == EmbedProviderOllama && c.OllamaBaseURL == "" {
		errs = append(errs, fmt.Errorf("%s=ollama requires %s", EnvEmbedProvider, EnvOllamaBaseURL))
	}
	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
	}
	if c.ChatRateBurst <= 0 || c.ChatRateRefill <= 0 {
		errs = append(errs, errors.New("chat rate limit burst and refill must be positive"))
	}
	if c.ChatDailyLimit < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvChatRateDaily, c.ChatDailyLimit))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Config) defaultEmbedProvider() string {
	switch {
	case c.GeminiAPIKey != "":
		return EmbedProviderGemini
	case c.OllamaBaseURL != "":
		return EmbedProviderOllama
	default:
		return ""
	}
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty and repeated items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, strings.ToLower(item))
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return sliceutil.Unique(items)
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "campussathi.db")
}

// VectorDir returns the directory holding persisted vector collections.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, "vectors")
}

// FAQPath returns the uploaded FAQ PDF location.
func (c *Config) FAQPath() string {
	return filepath.Join(c.DataDir, "faq.pdf")
}

// TimetablePDFPath returns the uploaded timetable PDF location.
func (c *Config) TimetablePDFPath() string {
	return filepath.Join(c.DataDir, "timetable.pdf")
}

// StructuredTimetablePath returns the structured timetable JSON location.
func (c *Config) StructuredTimetablePath() string {
	return filepath.Join(c.DataDir, "timetable_structured.json")
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != "" || c.OllamaBaseURL != ""
}

// HasEmbedder reports whether retrieval indexes can be built.
func (c *Config) HasEmbedder() bool {
	return c.EmbedProvider != ""
}

// LineEnabled reports whether the LINE channel is configured.
func (c *Config) LineEnabled() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// R2Enabled reports whether uploaded files are mirrored to R2.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// R2Endpoint returns the S3-compatible endpoint for the configured account.
func (c *Config) R2Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}

// SentryEnabled reports whether Sentry error reporting is configured.
func (c *Config) SentryEnabled() bool {
	return c.SentryToken != "" && c.SentryHost != ""
}

// BetterStackEnabled reports whether logs are shipped to Better Stack.
func (c *Config) BetterStackEnabled() bool {
	return c.BetterStackToken != ""
}
