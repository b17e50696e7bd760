package genai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiModel calls one Gemini model.
type geminiModel struct {
	client *genai.Client
	model  string
	tools  []*genai.Tool
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

func newGeminiModel(client *genai.Client, model string) *geminiModel {
	return &geminiModel{
		client: client,
		model:  model,
		tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        classifyFunctionName,
				Description: classifyFunctionDescription,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						classifyParam: {
							Type:        genai.TypeString,
							Description: "The category of the message.",
							Enum:        intentNames(),
						},
					},
					Required: []string{classifyParam},
				},
			}},
		}},
	}
}

func (m *geminiModel) Provider() Provider { return ProviderGemini }
func (m *geminiModel) Model() string      { return m.model }

func (m *geminiModel) classify(ctx context.Context, query string) (Intent, usage, error) {
	config := &genai.GenerateContentConfig{
		Tools:             m.tools,
		SystemInstruction: genai.NewContentFromText(IntentSystemPrompt, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 64,
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(query), config)
	if err != nil {
		return "", usage{}, WrapError(fmt.Errorf("generate content: %w", err), ProviderGemini, m.model, 0)
	}
	u := geminiUsage(resp)

	label := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.FunctionCall != nil && part.FunctionCall.Name == classifyFunctionName {
				label, _ = part.FunctionCall.Args[classifyParam].(string)
				break
			}
		}
	}
	if label == "" {
		label = geminiText(resp)
	}
	intent, ok := ParseIntent(label)
	if !ok {
		return "", u, WrapError(fmt.Errorf("unrecognized intent %q: %w", label, errNoUsableOutput), ProviderGemini, m.model, 0)
	}
	return intent, u, nil
}

func (m *geminiModel) complete(ctx context.Context, system, user string) (string, usage, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
		MaxOutputTokens:   1024,
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(user), config)
	if err != nil {
		return "", usage{}, WrapError(fmt.Errorf("generate content: %w", err), ProviderGemini, m.model, 0)
	}
	text := geminiText(resp)
	if text == "" {
		return "", geminiUsage(resp), WrapError(fmt.Errorf("empty answer: %w", errNoUsableOutput), ProviderGemini, m.model, 0)
	}
	return text, geminiUsage(resp), nil
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func geminiUsage(resp *genai.GenerateContentResponse) usage {
	if resp == nil || resp.UsageMetadata == nil {
		return usage{}
	}
	return usage{
		input:  int64(resp.UsageMetadata.PromptTokenCount),
		output: int64(resp.UsageMetadata.CandidatesTokenCount),
	}
}
