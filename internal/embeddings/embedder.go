package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// ProviderError wraps a failure reported by an embedding backend.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// DimensionMismatchError reports vectors that do not match the
// dimensionality, or the embedder, a collection was created with.
type DimensionMismatchError struct {
	Collection   string
	Want         int
	Got          int
	WantEmbedder string
	GotEmbedder  string
}

func (e *DimensionMismatchError) Error() string {
	prefix := "dimension mismatch"
	if e.Collection != "" {
		prefix += " in collection " + e.Collection
	}
	if e.WantEmbedder != "" && e.WantEmbedder != e.GotEmbedder {
		return fmt.Sprintf("%s: created with embedder %q, got %q", prefix, e.WantEmbedder, e.GotEmbedder)
	}
	return fmt.Sprintf("%s: want %d dimensions, got %d", prefix, e.Want, e.Got)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &ProviderError{Provider: e.Name(), Err: fmt.Errorf("returned %d embeddings, expected 1", len(vecs))}
	}
	return vecs[0], nil
}

// checkedEmbedder enforces the error taxonomy and a fixed dimensionality
// on top of any backend.
type checkedEmbedder struct {
	inner Embedder
}

// Checked wraps e so that backend failures surface as *ProviderError and
// vectors of the wrong length as *DimensionMismatchError. A Dimensions()
// of 0 means the first returned vector fixes the expected length for the
// call.
func Checked(e Embedder) Embedder {
	if _, ok := e.(*checkedEmbedder); ok {
		return e
	}
	return &checkedEmbedder{inner: e}
}

func (c *checkedEmbedder) Name() string    { return c.inner.Name() }
func (c *checkedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *checkedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := c.inner.Embed(ctx, texts)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ProviderError{Provider: c.inner.Name(), Err: err}
	}
	if len(vecs) != len(texts) {
		return nil, &ProviderError{
			Provider: c.inner.Name(),
			Err:      fmt.Errorf("returned %d embeddings, expected %d", len(vecs), len(texts)),
		}
	}

	want := c.inner.Dimensions()
	for _, v := range vecs {
		if want == 0 {
			want = len(v)
		}
		if len(v) != want || len(v) == 0 {
			return nil, &DimensionMismatchError{Want: want, Got: len(v)}
		}
	}
	return vecs, nil
}
