// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "CAMPUS_LOG_LEVEL"
	EnvShutdownTimeout = "CAMPUS_SHUTDOWN_TIMEOUT"
	EnvServerName      = "CAMPUS_SERVER_NAME"
	EnvAllowedOrigin   = "CAMPUS_ALLOWED_ORIGIN"

	// Data
	EnvDataDir           = "CAMPUS_DATA_DIR"
	EnvSeedSampleData    = "CAMPUS_SEED_SAMPLE_DATA"
	EnvLogRetention      = "CAMPUS_LOG_RETENTION"
	EnvRefreshSchedule   = "CAMPUS_REFRESH_SCHEDULE"
	EnvRetentionSchedule = "CAMPUS_RETENTION_SCHEDULE"

	// Retrieval
	EnvEmbedProvider       = "CAMPUS_EMBED_PROVIDER"
	EnvEmbedModelEnglish   = "CAMPUS_EMBED_MODEL_EN"
	EnvEmbedModelIndic     = "CAMPUS_EMBED_MODEL_INDIC"
	EnvSimilarityThreshold = "CAMPUS_SIMILARITY_THRESHOLD"
	EnvChunkSize           = "CAMPUS_CHUNK_SIZE"
	EnvChunkOverlap        = "CAMPUS_CHUNK_OVERLAP"
	EnvRetrieverK          = "CAMPUS_RETRIEVER_K"

	// LLM
	EnvLLMProviders   = "CAMPUS_LLM_PROVIDERS"
	EnvGeminiAPIKey   = "CAMPUS_GEMINI_API_KEY"
	EnvGroqAPIKey     = "CAMPUS_GROQ_API_KEY"
	EnvCerebrasAPIKey = "CAMPUS_CEREBRAS_API_KEY"
	EnvOllamaBaseURL  = "CAMPUS_OLLAMA_BASE_URL"
	EnvIntentModels   = "CAMPUS_INTENT_MODELS"
	EnvAnswerModels   = "CAMPUS_ANSWER_MODELS"

	// Rate Limits
	EnvChatRateBurst  = "CAMPUS_CHAT_RATE_BURST"
	EnvChatRateRefill = "CAMPUS_CHAT_RATE_REFILL"
	EnvChatRateDaily  = "CAMPUS_CHAT_DAILY_LIMIT"

	// LINE Channel
	EnvLineChannelAccessToken = "CAMPUS_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "CAMPUS_LINE_CHANNEL_SECRET"

	// R2 Mirror
	EnvR2AccountID       = "CAMPUS_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "CAMPUS_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "CAMPUS_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "CAMPUS_R2_BUCKET_NAME"
	EnvR2Prefix          = "CAMPUS_R2_PREFIX"

	// Sentry
	EnvSentryToken       = "CAMPUS_SENTRY_TOKEN"
	EnvSentryHost        = "CAMPUS_SENTRY_HOST"
	EnvSentryEnvironment = "CAMPUS_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "CAMPUS_SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "CAMPUS_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CAMPUS_BETTERSTACK_ENDPOINT"

	// Auth for operator surfaces
	EnvAdminUsername   = "CAMPUS_ADMIN_USERNAME"
	EnvAdminPassword   = "CAMPUS_ADMIN_PASSWORD"
	EnvMetricsUsername = "CAMPUS_METRICS_USERNAME"
	EnvMetricsPassword = "CAMPUS_METRICS_PASSWORD"
)
