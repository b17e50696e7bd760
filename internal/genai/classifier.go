package genai

import "context"

// Classifier labels chat messages with an LLM provider chain.
type Classifier struct {
	chain *chain
}

// Classify returns the intent of query. Callers treat errors as general_faq.
func (c *Classifier) Classify(ctx context.Context, query string) (Intent, error) {
	var ch *chain
	if c != nil {
		ch = c.chain
	}
	return run(ctx, ch, func(m chatModel) (Intent, usage, error) {
		return m.classify(ctx, query)
	})
}

// Enabled reports whether at least one model is configured.
func (c *Classifier) Enabled() bool {
	return c != nil && c.chain.len() > 0
}
