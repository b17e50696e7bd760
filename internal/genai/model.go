package genai

import "context"

// usage is the token accounting reported by a provider.
type usage struct {
	input  int64
	output int64
}

// chatModel is one provider model in a fallback chain.
type chatModel interface {
	Provider() Provider
	Model() string
	// classify returns the intent of query.
	classify(ctx context.Context, query string) (Intent, usage, error)
	// complete answers user under the system instruction.
	complete(ctx context.Context, system, user string) (string, usage, error)
}

func intentNames() []string {
	out := make([]string, len(Intents))
	for i, intent := range Intents {
		out[i] = string(intent)
	}
	return out
}
