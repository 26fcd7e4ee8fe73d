// Package embedding maps text to fixed-length normalized vectors using a
// pretrained sentence-embedding model served behind an OpenAI-compatible API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"cpa-document-processor/internal/config"
)

// Embedder is an immutable handle to the embedding model, constructed once at
// process start and shared by every caller.
type Embedder struct {
	impl      *embeddings.EmbedderImpl
	model     string
	dimension int
}

// New connects to the model server. The handle is safe for concurrent use.
func New(cfg *config.EmbeddingConfig) (*Embedder, error) {
	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("model", cfg.Model).
		Int("dimension", cfg.Dimension).
		Msg("Loading embedding model")

	token := strings.TrimPrefix(cfg.APIKey, "Bearer ")
	if token == "" {
		// local model servers ignore the token, but the client requires one
		token = "unused"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedding client: %w", err)
	}

	impl, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating embedder: %w", err)
	}

	return &Embedder{impl: impl, model: cfg.Model, dimension: cfg.Dimension}, nil
}

// EmbedOne returns the normalized embedding vector for a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text must be a non-empty string")
	}
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("error generating embedding: %w", err)
	}
	Normalize(vec)
	return vec, nil
}

// EmbedMany returns one normalized vector per input text, in input order.
// Batching for throughput happens inside the underlying embedder.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("texts must be a non-empty list")
	}
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("error generating embeddings: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("error generating embeddings: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i := range vecs {
		Normalize(vecs[i])
	}
	return vecs, nil
}

// Dimension reports the model's output dimension, which must match the
// index schema's declared vector dimension.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Model returns the short model name, e.g. "all-MiniLM-L6-v2".
func (e *Embedder) Model() string {
	if idx := strings.LastIndex(e.model, "/"); idx >= 0 {
		return e.model[idx+1:]
	}
	return e.model
}

// Normalize scales v to unit L2 length in place. A zero vector is left as-is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
