package embeddings

import (
	"context"
	"fmt"
)

// maxBatchSize caps the number of texts sent in one backend call.
const maxBatchSize = 100

type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// inBatches embeds texts in slices of at most size, concatenating the results
// in input order. Each call must return exactly one vector per text.
func inBatches(ctx context.Context, texts []string, size int, embed batchFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += size {
		batch := texts[i:min(i+size, len(texts))]
		vecs, err := embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("backend returned %d embeddings, expected %d", len(vecs), len(batch))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// sizedName appends a reduced output size to a model name so collections
// built at different sizes are told apart.
func sizedName(name string, dims int) string {
	if dims <= 0 {
		return name
	}
	return fmt.Sprintf("%s@%d", name, dims)
}
