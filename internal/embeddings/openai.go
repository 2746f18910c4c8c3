package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel represents a supported OpenAI embedding model.
type OpenAIModel string

const (
	ModelTextEmbedding3Small OpenAIModel = "text-embedding-3-small"
	ModelTextEmbedding3Large OpenAIModel = "text-embedding-3-large"
	ModelTextEmbeddingAda002 OpenAIModel = "text-embedding-ada-002"
)

func (m OpenAIModel) dimensions() int {
	switch m {
	case ModelTextEmbedding3Large:
		return 3072
	default:
		return 1536
	}
}

// shortenable reports whether the model accepts a reduced output size.
func (m OpenAIModel) shortenable() bool {
	return m != ModelTextEmbeddingAda002
}

// OpenAIEmbedder embeds text with the OpenAI embeddings endpoint, or any
// endpoint compatible with it.
type OpenAIEmbedder struct {
	client *openai.Client
	model  OpenAIModel
	dims   int // reduced output size; 0 keeps the model's native size
}

// NewOpenAIEmbedder creates an embedder for the hosted OpenAI API.
func NewOpenAIEmbedder(apiKey string, model OpenAIModel) *OpenAIEmbedder {
	return NewOpenAIEmbedderWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIEmbedderWithConfig creates an embedder against an OpenAI-compatible
// endpoint, e.g. a local proxy.
func NewOpenAIEmbedderWithConfig(cfg openai.ClientConfig, model OpenAIModel) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// WithDimensions requests vectors of n dimensions from models that support
// shortening. It is ignored for other models and for n <= 0.
func (e *OpenAIEmbedder) WithDimensions(n int) *OpenAIEmbedder {
	if n > 0 && e.model.shortenable() && n != e.model.dimensions() {
		e.dims = n
	}
	return e
}

func (e *OpenAIEmbedder) Name() string {
	return sizedName("openai/"+string(e.model), e.dims)
}

func (e *OpenAIEmbedder) Dimensions() int {
	if e.dims > 0 {
		return e.dims
	}
	return e.model.dimensions()
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return inBatches(ctx, texts, maxBatchSize, e.embedBatch)
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      batch,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dims,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("openai returned %d embeddings, expected %d", len(resp.Data), len(batch))
	}

	// Items may arrive out of order; Index is authoritative.
	ordered := make([][]float32, len(batch))
	for _, emb := range resp.Data {
		if emb.Index < 0 || emb.Index >= len(batch) || ordered[emb.Index] != nil {
			return nil, fmt.Errorf("openai returned bad embedding index %d", emb.Index)
		}
		ordered[emb.Index] = emb.Embedding
	}
	return ordered, nil
}
