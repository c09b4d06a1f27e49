// Package embedding implements the text-embedding client (C3): token-
// chunked windowing, per-window embedding, length-weighted combination, and
// L2 normalization, against an OpenAI-compatible embeddings endpoint.
package embedding

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	"github.com/graphrag-query/go-graphrag-query/internal/models/provider"
	"github.com/graphrag-query/go-graphrag-query/internal/tokenizer"
)

// Embedder is the embedding client contract.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimensions() int
}

// Config selects and parameterizes an embedding backend.
type Config struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int // window size, default 8191
	Dimensions int
}

// New dispatches to an OpenAI-compatible embedder. A local/Ollama backend
// can be added the same way chat.New routes to Ollama, but none of the
// graph-query inputs in scope here require it — embeddings are always
// produced against the configured remote model.
func New(cfg Config) (Embedder, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8191
	}
	_ = provider.DetectProvider(cfg.BaseURL) // reserved for future per-provider routing
	return newOpenAIEmbedder(cfg), nil
}

type openAIEmbedder struct {
	client     *openai.Client
	model      string
	maxTokens  int
	dimensions int
}

func newOpenAIEmbedder(cfg Config) *openAIEmbedder {
	oacfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oacfg.BaseURL = cfg.BaseURL
	}
	return &openAIEmbedder{
		client:     openai.NewClientWithConfig(oacfg),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		dimensions: cfg.Dimensions,
	}
}

func (e *openAIEmbedder) ModelName() string { return e.model }
func (e *openAIEmbedder) Dimensions() int   { return e.dimensions }

// Embed splits text into token windows, embeds each, combines by a
// length-weighted average, and L2-normalizes the result.
func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	windows := tokenizer.ChunkText(text, e.maxTokens)

	var vectors [][]float32
	var lengths []int
	for _, w := range windows {
		vec, err := e.embedOne(ctx, w)
		if err != nil {
			return nil, ierrors.Wrap(ierrors.ErrEmbedding, err)
		}
		vectors = append(vectors, vec)
		lengths = append(lengths, tokenizer.NumTokens(w))
	}
	return combineEmbeddings(vectors, lengths), nil
}

func (e *openAIEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (e *openAIEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// combineEmbeddings combines per-window vectors into one, weighting by
// each window's token length, then L2-normalizes the result.
func combineEmbeddings(vectors [][]float32, lengths []int) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return l2Normalize(vectors[0])
	}

	dim := len(vectors[0])
	combined := make([]float64, dim)
	total := 0
	for _, l := range lengths {
		total += l
	}
	if total == 0 {
		total = len(vectors)
		for i := range lengths {
			lengths[i] = 1
		}
	}
	for i, vec := range vectors {
		weight := float64(lengths[i]) / float64(total)
		for j, v := range vec {
			combined[j] += float64(v) * weight
		}
	}
	out := make([]float32, dim)
	for i, v := range combined {
		out[i] = float32(v)
	}
	return l2Normalize(out)
}

func l2Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
