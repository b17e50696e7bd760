package genai

import (
	"context"
	"strings"

	"github.com/campussathi/campussathi-go/internal/rag"
)

// Generator answers questions from retrieved passages with an LLM provider chain.
type Generator struct {
	chain *chain
}

// Generate answers query from passages. With no passages the model is not
// called and the fallback phrase is returned with Found false.
func (g *Generator) Generate(ctx context.Context, query string, passages []rag.Passage) (Answer, error) {
	if len(passages) == 0 {
		return Answer{Text: FallbackPhrase, Found: false}, nil
	}

	var ch *chain
	if g != nil {
		ch = g.chain
	}
	system := AnswerSystemPrompt + FormatContext(passages)
	text, err := run(ctx, ch, func(m chatModel) (string, usage, error) {
		return m.complete(ctx, system, query)
	})
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: text, Found: !ContainsFallback(text)}, nil
}

// Enabled reports whether at least one model is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.chain.len() > 0
}

// FormatContext joins passage texts the way they are shown to the model.
func FormatContext(passages []rag.Passage) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if text := strings.TrimSpace(p.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// ContainsFallback reports whether text contains FallbackPhrase, ignoring
// case and the curly/straight apostrophe difference.
func ContainsFallback(text string) bool {
	norm := func(s string) string { return strings.ToLower(apostrophes.Replace(s)) }
	return strings.Contains(norm(text), norm(FallbackPhrase))
}
