package genai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/ratelimit"
)

// Embedding providers.
const (
	EmbedProviderGemini = "gemini"
	EmbedProviderOllama = "ollama"
)

const (
	// DefaultGeminiEmbeddingModel is multilingual, so it serves both indexes.
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
	// GeminiEmbeddingDimensions truncates Gemini vectors (the model supports MRL).
	GeminiEmbeddingDimensions = 768
	// GeminiEmbeddingRPM is the embedding API's per-minute request quota.
	GeminiEmbeddingRPM = 1000

	DefaultOllamaEnglishModel = "nomic-embed-text"
	DefaultOllamaIndicModel   = "bge-m3"

	geminiAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

var embedRetry = RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 16 * time.Second}

// EmbeddingClient calls the Gemini embedContent REST endpoint.
type EmbeddingClient struct {
	apiKey      string
	model       string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *ratelimit.Limiter
	retry       RetryConfig
}

// NewEmbeddingClient creates a Gemini embedding client for model.
func NewEmbeddingClient(apiKey, model string) *EmbeddingClient {
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	return &EmbeddingClient{
		apiKey:      apiKey,
		model:       model,
		baseURL:     geminiAPIBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: ratelimit.NewPerMinute(GeminiEmbeddingRPM),
		retry:       embedRetry,
	}
}

type embeddingRequest struct {
	Model                string           `json:"model"`
	Content              embeddingContent `json:"content"`
	OutputDimensionality int              `json:"outputDimensionality,omitempty"`
}

type embeddingContent struct {
	Parts []embeddingPart `json:"parts"`
}

type embeddingPart struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding of text, retrying rate limits and server errors.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, errors.New("gemini API key not configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text cannot be embedded")
	}
	return withRetry(ctx, c.retry, nil, func() ([]float32, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.embedOnce(ctx, text)
	})
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, text string) ([]float32, error) {
	endpoint := fmt.Sprintf("%s/%s:embedContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	body, err := json.Marshal(embeddingRequest{
		Model:                "models/" + c.model,
		Content:              embeddingContent{Parts: []embeddingPart{{Text: text}}},
		OutputDimensionality: GeminiEmbeddingDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, WrapError(fmt.Errorf("execute request: %w", err), ProviderGemini, c.model, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= 300 {
			return nil, WrapError(errors.New("embedding request failed"), ProviderGemini, c.model, resp.StatusCode)
		}
		return nil, WrapError(fmt.Errorf("decode response: %w", err), ProviderGemini, c.model, http.StatusBadRequest)
	}
	if out.Error != nil {
		code := out.Error.Code
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, WrapError(fmt.Errorf("API error %s: %s", out.Error.Status, out.Error.Message), ProviderGemini, c.model, code)
	}
	if resp.StatusCode >= 300 {
		return nil, WrapError(errors.New("embedding request failed"), ProviderGemini, c.model, resp.StatusCode)
	}
	if len(out.Embedding.Values) == 0 {
		return nil, WrapError(errors.New("empty embedding returned"), ProviderGemini, c.model, http.StatusBadRequest)
	}
	return out.Embedding.Values, nil
}

// EmbeddingFunc adapts the client to chromem-go.
func (c *EmbeddingClient) EmbeddingFunc() chromem.EmbeddingFunc {
	return c.Embed
}

// EmbedConfig selects the embedding backend of the two vector indexes.
type EmbedConfig struct {
	// Provider is "gemini", "ollama" or empty for keyword-only retrieval.
	Provider      string
	GeminiAPIKey  string
	OllamaBaseURL string
	EnglishModel  string
	IndicModel    string
}

// NewEmbedders returns the English and Indic embedding functions for cfg.
// An empty provider returns zero Embedders.
func NewEmbedders(cfg EmbedConfig) (rag.Embedders, error) {
	switch cfg.Provider {
	case "":
		return rag.Embedders{}, nil
	case EmbedProviderGemini:
		english := NewEmbeddingClient(cfg.GeminiAPIKey, cfg.EnglishModel)
		indic := english
		if cfg.IndicModel != "" && cfg.IndicModel != english.model {
			indic = NewEmbeddingClient(cfg.GeminiAPIKey, cfg.IndicModel)
		}
		return rag.Embedders{English: english.EmbeddingFunc(), Indic: indic.EmbeddingFunc()}, nil
	case EmbedProviderOllama:
		base := OllamaAPIEndpoint(cfg.OllamaBaseURL)
		englishModel := cmp.Or(cfg.EnglishModel, DefaultOllamaEnglishModel)
		indicModel := cmp.Or(cfg.IndicModel, DefaultOllamaIndicModel)
		return rag.Embedders{
			English: chromem.NewEmbeddingFuncOllama(englishModel, base),
			Indic:   chromem.NewEmbeddingFuncOllama(indicModel, base),
		}, nil
	default:
		return rag.Embedders{}, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// OllamaAPIEndpoint returns the native API endpoint of an Ollama server.
func OllamaAPIEndpoint(baseURL string) string {
	base := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	base = strings.TrimSuffix(base, "/v1")
	base = strings.TrimSuffix(base, "/api")
	return base + "/api"
}
