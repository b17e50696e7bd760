package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiModel calls one model of an OpenAI-compatible provider.
type openaiModel struct {
	client   openai.Client
	model    string
	provider Provider
	// tools is nil for providers without reliable forced tool calling;
	// those classify from the plain-text reply.
	tools []openai.ChatCompletionToolUnionParam
}

func newOpenAIModel(provider Provider, baseURL, apiKey, model string) *openaiModel {
	m := &openaiModel{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
		),
		model:    model,
		provider: provider,
	}
	if provider != ProviderOllama {
		m.tools = []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
				Name:        classifyFunctionName,
				Description: openai.String(classifyFunctionDescription),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						classifyParam: map[string]any{
							"type":        "string",
							"description": "The category of the message.",
							"enum":        intentNames(),
						},
					},
					"required": []string{classifyParam},
				},
			}),
		}
	}
	return m
}

func (m *openaiModel) Provider() Provider { return m.provider }
func (m *openaiModel) Model() string      { return m.model }

func (m *openaiModel) classify(ctx context.Context, query string) (Intent, usage, error) {
	params := openai.ChatCompletionNewParams{
		Model: m.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(IntentSystemPrompt),
			openai.UserMessage(query),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(64),
	}
	if m.tools != nil {
		params.Tools = m.tools
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", usage{}, m.wrap(fmt.Errorf("chat completion: %w", err))
	}
	u := openaiUsage(resp)
	if len(resp.Choices) == 0 {
		return "", u, m.wrap(fmt.Errorf("no choices: %w", errNoUsableOutput))
	}

	msg := resp.Choices[0].Message
	label := msg.Content
	for _, call := range msg.ToolCalls {
		if call.Function.Name != classifyFunctionName {
			continue
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err == nil {
			if v, ok := args[classifyParam].(string); ok {
				label = v
			}
		}
		break
	}
	intent, ok := ParseIntent(label)
	if !ok {
		return "", u, m.wrap(fmt.Errorf("unrecognized intent %q: %w", label, errNoUsableOutput))
	}
	return intent, u, nil
}

func (m *openaiModel) complete(ctx context.Context, system, user string) (string, usage, error) {
	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: m.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(1024),
	})
	if err != nil {
		return "", usage{}, m.wrap(fmt.Errorf("chat completion: %w", err))
	}
	u := openaiUsage(resp)
	if len(resp.Choices) == 0 {
		return "", u, m.wrap(fmt.Errorf("no choices: %w", errNoUsableOutput))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", u, m.wrap(fmt.Errorf("empty answer: %w", errNoUsableOutput))
	}
	return text, u, nil
}

// wrap attaches the HTTP status of API errors so the chain can classify them.
func (m *openaiModel) wrap(err error) error {
	status := 0
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return WrapError(err, m.provider, m.model, status)
}

func openaiUsage(resp *openai.ChatCompletion) usage {
	if resp == nil {
		return usage{}
	}
	return usage{input: resp.Usage.PromptTokens, output: resp.Usage.CompletionTokens}
}
