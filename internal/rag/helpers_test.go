package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"math"

	"github.com/campussathi/campussathi-go/internal/logger"
)

// bagOfWordsEmbed is a deterministic embedding: hashed token counts,
// normalized. Identical texts have similarity 1, disjoint ones 0 (modulo
// hash collisions).
func bagOfWordsEmbed(_ context.Context, text string) ([]float32, error) {
	const dims = 256
	v := make([]float32, dims)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%dims]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v, nil
}

func failingEmbed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

type retrieverFunc func(ctx context.Context, query string) ([]Passage, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	return f(ctx, query)
}

func passages(contents ...string) []Passage {
	out := make([]Passage, len(contents))
	for i, c := range contents {
		out[i] = Passage{ID: c, Content: c}
	}
	return out
}

func contents(ps []Passage) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Content
	}
	return out
}
